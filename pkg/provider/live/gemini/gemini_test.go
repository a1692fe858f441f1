package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/cynicast/pkg/audio"
	"github.com/MrWong99/cynicast/pkg/provider/live"
	"github.com/MrWong99/cynicast/pkg/provider/live/gemini"
)

// ── Helpers ───────────────────────────────────────────────────────────────────

// wsURL converts an httptest server HTTP URL to a WebSocket URL.
func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// startGeminiServer launches a test WebSocket server. The handler function
// receives the accepted *websocket.Conn. The server is automatically closed
// when the test finishes.
func startGeminiServer(t *testing.T, handler func(conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		handler(conn, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// readJSON reads one WebSocket text frame and decodes it into v.
func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Errorf("readJSON: %v", err)
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Errorf("readJSON unmarshal: %v", err)
	}
}

// writeJSON marshals v and sends it as a text frame.
func writeJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	data, _ := json.Marshal(v)
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Logf("writeJSON: %v (may be expected on close)", err)
	}
}

// sendSetupComplete sends the server-side setupComplete ack.
func sendSetupComplete(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	writeJSON(t, conn, map[string]any{"setupComplete": map[string]any{}})
}

// nextEvent waits for the next session event.
func nextEvent(t *testing.T, sess live.Session) (live.Event, bool) {
	t.Helper()
	select {
	case ev, ok := <-sess.Events():
		return ev, ok
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for event")
		return live.Event{}, false
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestConnect_SendsSetup(t *testing.T) {
	t.Parallel()

	type setupMsg struct {
		Setup struct {
			Model            string `json:"model"`
			GenerationConfig struct {
				ResponseModalities []string `json:"responseModalities"`
				SpeechConfig       struct {
					VoiceConfig struct {
						PrebuiltVoiceConfig struct {
							VoiceName string `json:"voiceName"`
						} `json:"prebuiltVoiceConfig"`
					} `json:"voiceConfig"`
				} `json:"speechConfig"`
			} `json:"generationConfig"`
			SystemInstruction *struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"systemInstruction"`
		} `json:"setup"`
	}

	received := make(chan setupMsg, 1)
	keys := make(chan string, 1)
	srv := startGeminiServer(t, func(conn *websocket.Conn, r *http.Request) {
		keys <- r.URL.Query().Get("key")
		var msg setupMsg
		readJSON(t, conn, &msg)
		received <- msg
		<-conn.CloseRead(context.Background()).Done()
	})

	p := gemini.New("test-key", gemini.WithModel("custom-model"), gemini.WithBaseURL(wsURL(srv)))
	sess, err := p.Connect(context.Background(), live.SessionConfig{
		Voice:        "Fenrir",
		Instructions: "Eres cínico.",
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sess.Close()

	if got := <-keys; got != "test-key" {
		t.Errorf("api key = %q, want test-key", got)
	}
	msg := <-received
	if want := "models/custom-model"; msg.Setup.Model != want {
		t.Errorf("model = %q; want %q", msg.Setup.Model, want)
	}
	if mods := msg.Setup.GenerationConfig.ResponseModalities; len(mods) != 1 || mods[0] != "audio" {
		t.Errorf("responseModalities = %v, want [audio]", mods)
	}
	if v := msg.Setup.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; v != "Fenrir" {
		t.Errorf("voice = %q, want Fenrir", v)
	}
	if msg.Setup.SystemInstruction == nil || msg.Setup.SystemInstruction.Parts[0].Text != "Eres cínico." {
		t.Errorf("systemInstruction = %+v", msg.Setup.SystemInstruction)
	}
}

func TestSessionConfigModelOverridesDefault(t *testing.T) {
	t.Parallel()

	models := make(chan string, 1)
	srv := startGeminiServer(t, func(conn *websocket.Conn, _ *http.Request) {
		var msg struct {
			Setup struct {
				Model string `json:"model"`
			} `json:"setup"`
		}
		readJSON(t, conn, &msg)
		models <- msg.Setup.Model
		<-conn.CloseRead(context.Background()).Done()
	})

	sess, err := gemini.New("k", gemini.WithBaseURL(wsURL(srv))).
		Connect(context.Background(), live.SessionConfig{Model: "other"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sess.Close()

	if got := <-models; got != "models/other" {
		t.Errorf("model = %q, want models/other", got)
	}
}

func TestEvents_OrderedStream(t *testing.T) {
	t.Parallel()

	srv := startGeminiServer(t, func(conn *websocket.Conn, _ *http.Request) {
		var setup map[string]any
		readJSON(t, conn, &setup)
		sendSetupComplete(t, conn)
		writeJSON(t, conn, map[string]any{
			"serverContent": map[string]any{
				"modelTurn": map[string]any{
					"parts": []any{
						map[string]any{"inlineData": map[string]any{"mimeType": "audio/pcm;rate=24000", "data": "AAAA"}},
						map[string]any{"inlineData": map[string]any{"mimeType": "audio/pcm;rate=24000", "data": "AQAB"}},
					},
				},
			},
		})
		writeJSON(t, conn, map[string]any{"serverContent": map[string]any{"interrupted": true}})
		writeJSON(t, conn, map[string]any{"serverContent": map[string]any{"turnComplete": true}})
		conn.Close(websocket.StatusNormalClosure, "bye")
	})

	sess, err := gemini.New("k", gemini.WithBaseURL(wsURL(srv))).Connect(context.Background(), live.SessionConfig{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sess.Close()

	want := []live.EventKind{
		live.EventOpened,
		live.EventAudio,
		live.EventAudio,
		live.EventInterrupted,
		live.EventTurnComplete,
		live.EventClosed,
	}
	var audioData []string
	for i, kind := range want {
		ev, ok := nextEvent(t, sess)
		if !ok {
			t.Fatalf("event %d: channel closed early", i)
		}
		if ev.Kind != kind {
			t.Fatalf("event %d: kind = %s, want %s", i, ev.Kind, kind)
		}
		if ev.Kind == live.EventAudio {
			if ev.Audio.SampleRate != audio.Output.SampleRate {
				t.Errorf("audio sample rate = %d", ev.Audio.SampleRate)
			}
			audioData = append(audioData, ev.Audio.Data)
		}
		if ev.Kind == live.EventClosed && ev.Err != nil {
			t.Errorf("normal closure should carry no error, got %v", ev.Err)
		}
	}
	if len(audioData) != 2 || audioData[0] != "AAAA" || audioData[1] != "AQAB" {
		t.Errorf("audio order = %v", audioData)
	}
	if _, ok := nextEvent(t, sess); ok {
		t.Error("expected events channel to be closed after EventClosed")
	}
}

func TestEvents_ServerError(t *testing.T) {
	t.Parallel()

	srv := startGeminiServer(t, func(conn *websocket.Conn, _ *http.Request) {
		var setup map[string]any
		readJSON(t, conn, &setup)
		writeJSON(t, conn, map[string]any{
			"error": map[string]any{"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"},
		})
		<-conn.CloseRead(context.Background()).Done()
	})

	sess, err := gemini.New("k", gemini.WithBaseURL(wsURL(srv))).Connect(context.Background(), live.SessionConfig{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sess.Close()

	ev, _ := nextEvent(t, sess)
	if ev.Kind != live.EventError {
		t.Fatalf("kind = %s, want error", ev.Kind)
	}
	if !strings.Contains(ev.Err.Error(), "quota exceeded") {
		t.Errorf("err = %v", ev.Err)
	}
}

func TestSend_MediaChunk(t *testing.T) {
	t.Parallel()

	type rtMsg struct {
		RealtimeInput struct {
			MediaChunks []struct {
				MIMEType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"mediaChunks"`
		} `json:"realtimeInput"`
	}

	got := make(chan rtMsg, 2)
	srv := startGeminiServer(t, func(conn *websocket.Conn, _ *http.Request) {
		var setup map[string]any
		readJSON(t, conn, &setup)
		for range 2 {
			var msg rtMsg
			readJSON(t, conn, &msg)
			got <- msg
		}
		<-conn.CloseRead(context.Background()).Done()
	})

	sess, err := gemini.New("k", gemini.WithBaseURL(wsURL(srv))).Connect(context.Background(), live.SessionConfig{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sess.Close()

	frames := []audio.Frame{
		audio.EncodeFrame([]float32{0.1, 0.2}, audio.Input),
		audio.EncodeFrame([]float32{0.3, 0.4}, audio.Input),
	}
	for _, f := range frames {
		if err := sess.Send(context.Background(), f); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	for i, f := range frames {
		msg := <-got
		if len(msg.RealtimeInput.MediaChunks) != 1 {
			t.Fatalf("frame %d: %d chunks", i, len(msg.RealtimeInput.MediaChunks))
		}
		c := msg.RealtimeInput.MediaChunks[0]
		if c.MIMEType != "audio/pcm;rate=16000" || c.Data != f.Data {
			t.Errorf("frame %d: got %+v, want data %q", i, c, f.Data)
		}
	}
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()

	srv := startGeminiServer(t, func(conn *websocket.Conn, _ *http.Request) {
		<-conn.CloseRead(context.Background()).Done()
	})

	sess, err := gemini.New("k", gemini.WithBaseURL(wsURL(srv))).Connect(context.Background(), live.SessionConfig{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	for range 3 {
		if err := sess.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if err := sess.Send(context.Background(), audio.Frame{}); !errors.Is(err, live.ErrSessionClosed) {
		t.Errorf("Send after Close: got %v, want ErrSessionClosed", err)
	}
	// Channel must close without a terminal event after a local close.
	for ev := range sess.Events() {
		if ev.Kind == live.EventError || ev.Kind == live.EventClosed {
			t.Errorf("unexpected terminal event after local Close: %s", ev.Kind)
		}
	}
}

func TestConnect_DialFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := gemini.New("k", gemini.WithBaseURL(wsURL(srv))).Connect(context.Background(), live.SessionConfig{})
	if err == nil {
		t.Fatal("expected dial error")
	}
}
