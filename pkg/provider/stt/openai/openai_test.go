package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrWong99/cynicast/pkg/provider/stt"
)

type upload struct {
	path, model, language, filename, contentType string
	data                                         []byte
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, chan upload) {
	t.Helper()
	got := make(chan upload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := upload{path: r.URL.Path}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		} else {
			u.model = r.FormValue("model")
			u.language = r.FormValue("language")
			f, hdr, err := r.FormFile("file")
			if err != nil {
				t.Errorf("FormFile: %v", err)
			} else {
				u.filename = hdr.Filename
				u.contentType = hdr.Header.Get("Content-Type")
				u.data, _ = io.ReadAll(f)
				f.Close()
			}
		}
		got <- u
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	srv, got := newServer(t, http.StatusOK, `{"text":"  hola mundo \n"}`)
	p, err := New("sk-test", "", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tr, err := p.Transcribe(context.Background(), stt.Request{
		Name:     "episodio.mp3",
		MIMEType: "audio/mpeg",
		Data:     []byte("ID3audio"),
		Language: "es",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "hola mundo" || tr.Model != DefaultModel {
		t.Errorf("transcript = %+v", tr)
	}

	u := <-got
	if !strings.HasSuffix(u.path, "/audio/transcriptions") {
		t.Errorf("path = %q", u.path)
	}
	if u.model != "whisper-1" || u.language != "es" {
		t.Errorf("model=%q language=%q", u.model, u.language)
	}
	if u.filename != "episodio.mp3" || u.contentType != "audio/mpeg" || string(u.data) != "ID3audio" {
		t.Errorf("upload = %+v", u)
	}
}

func TestTranscribe_APIError(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, http.StatusBadRequest, `{"error":{"message":"bad audio","type":"invalid_request_error"}}`)
	p, _ := New("sk-test", "whisper-1", WithBaseURL(srv.URL+"/"))
	if _, err := p.Transcribe(context.Background(), stt.Request{Name: "x.wav", Data: []byte{1}}); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	t.Parallel()
	p, _ := New("sk-test", "")
	if _, err := p.Transcribe(context.Background(), stt.Request{Name: "x.mp3"}); !errors.Is(err, stt.ErrEmptyAudio) {
		t.Errorf("err = %v, want ErrEmptyAudio", err)
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		req  stt.Request
		want string
	}{
		{stt.Request{Name: "clip.ogg", MIMEType: "audio/mpeg"}, "clip.ogg"},
		{stt.Request{Name: "clip", MIMEType: "audio/wav"}, "clip.wav"},
		{stt.Request{Name: "../../etc/clip", MIMEType: "audio/webm"}, "clip.webm"},
		{stt.Request{MIMEType: ""}, "audio.mp3"},
	}
	for _, tc := range tests {
		if got := fileName(tc.req); got != tc.want {
			t.Errorf("fileName(%+v) = %q, want %q", tc.req, got, tc.want)
		}
	}
}

func TestNew_EmptyKey(t *testing.T) {
	t.Parallel()
	if _, err := New("", "whisper-1"); err == nil {
		t.Error("expected error for empty API key")
	}
}
