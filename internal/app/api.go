package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/MrWong99/cynicast/internal/observe"
	"github.com/MrWong99/cynicast/internal/studio"
)

// User-facing messages for failed studio requests.
const (
	MsgScriptFailed = "Error crítico: La IA se niega a cooperar. Verifica tu conexión o intenta más tarde."
	MsgAudioFailed  = "Error procesando el audio. Quizás el archivo está corrupto o la IA está de huelga."
)

const (
	maxScriptBody = 64 << 10

	// maxAudioBody leaves room for the multipart envelope around the file.
	maxAudioBody = studio.MaxAudioBytes + 1<<20
)

// GenerateScript fills empty fields of req from the studio defaults and
// writes a script.
func (a *App) GenerateScript(ctx context.Context, req studio.ScriptRequest) (*studio.Script, error) {
	sc := a.Studio()
	if req.ToolName == "" {
		req.ToolName = sc.ToolName
	}
	if req.PodcastName == "" {
		req.PodcastName = sc.PodcastName
	}
	if req.HostName == "" {
		req.HostName = sc.HostName
	}
	if req.ToneIntensity == 0 {
		req.ToneIntensity = sc.Intensity
	}
	ctx, cancel := a.studioContext(ctx)
	defer cancel()
	return a.writer.Generate(ctx, req)
}

// ProcessAudio runs req through the audio lab, taking the sarcasm level
// from the studio defaults when unset.
func (a *App) ProcessAudio(ctx context.Context, req studio.AudioRequest) (*studio.AudioResult, error) {
	if req.Sarcasm == 0 {
		req.Sarcasm = a.Studio().Sarcasm
	}
	ctx, cancel := a.studioContext(ctx)
	defer cancel()
	return a.lab.Process(ctx, req)
}

func (a *App) studioContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t := a.Studio().Timeout; t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return context.WithCancel(ctx)
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type audioBody struct {
	Header string `json:"header"`
	Text   string `json:"text"`
}

// handleScript serves POST /api/scripts.
func (a *App) handleScript(w http.ResponseWriter, r *http.Request) {
	var req studio.ScriptRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxScriptBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Detail: err.Error()})
		return
	}

	script, err := a.GenerateScript(r.Context(), req)
	if err != nil {
		a.writeStudioError(w, r, err, MsgScriptFailed)
		return
	}
	writeJSON(w, http.StatusOK, script)
}

// handleAudio serves POST /api/audio. The form carries the recording in
// "file", plus optional "mode" and "sarcasm" fields.
func (a *App) handleAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBody)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorBody{Error: "invalid multipart form", Detail: err.Error()})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	mode, err := studio.ParseMode(r.FormValue("mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	var sarcasm int
	if s := r.FormValue("sarcasm"); s != "" {
		sarcasm, err = strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("sarcasm must be an integer, got %q", s)})
			return
		}
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing file field", Detail: err.Error()})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "read upload", Detail: err.Error()})
		return
	}

	res, err := a.ProcessAudio(r.Context(), studio.AudioRequest{
		Name:     hdr.Filename,
		MIMEType: hdr.Header.Get("Content-Type"),
		Data:     data,
		Mode:     mode,
		Sarcasm:  sarcasm,
	})
	if err != nil {
		a.writeStudioError(w, r, err, MsgAudioFailed)
		return
	}
	writeJSON(w, http.StatusOK, audioBody{Header: res.Header, Text: res.String()})
}

// writeStudioError maps validation errors to 4xx and everything else to a
// 502 carrying the user-facing message.
func (a *App) writeStudioError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, studio.ErrInvalidIntensity),
		errors.Is(err, studio.ErrInvalidMode),
		errors.Is(err, studio.ErrEmptyAudio),
		errors.Is(err, studio.ErrNotAudio):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, studio.ErrAudioTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error()})
	default:
		observe.Logger(r.Context()).Error("app: studio request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: msg, Detail: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
