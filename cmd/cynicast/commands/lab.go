package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/cynicast/internal/studio"
)

var labFlags struct {
	mode    string
	sarcasm int
	mime    string
	json    bool
}

var labCmd = &cobra.Command{
	Use:   "lab <file>",
	Short: "Transcribe or sarcastically remix a recording",
	Long: `Send a recording to the audio lab. In transcribe mode the speech is
returned word for word; in humor mode it is rewritten with the requested
sarcasm level.`,
	Example: `  cynicast lab entrevista.mp3
  cynicast lab nota.ogg --mode humor --sarcasm 10`,
	Args: cobra.ExactArgs(1),
	RunE: runLab,
}

func init() {
	f := labCmd.Flags()
	f.StringVarP(&labFlags.mode, "mode", "m", string(studio.ModeTranscribe), "transcribe or humor")
	f.IntVarP(&labFlags.sarcasm, "sarcasm", "s", 0, "sarcasm level from 1 to 10 (humor mode)")
	f.StringVar(&labFlags.mime, "mime-type", "", "audio MIME type (guessed from the extension when empty)")
	f.BoolVar(&labFlags.json, "json", false, "print the result as JSON")
}

func runLab(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	req, err := labRequest(args[0], labFlags.mode, labFlags.mime, labFlags.sarcasm)
	if err != nil {
		return err
	}

	a, err := newStudio(ctx)
	if err != nil {
		return err
	}
	res, err := a.ProcessAudio(ctx, req)
	if err != nil {
		return err
	}
	return printAudio(cmd.OutOrStdout(), res, labFlags.json)
}

// labRequest reads path into an audio request. The file size is checked
// before reading.
func labRequest(path, mode, mimeType string, sarcasm int) (studio.AudioRequest, error) {
	m, err := studio.ParseMode(mode)
	if err != nil {
		return studio.AudioRequest{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return studio.AudioRequest{}, err
	}
	if info.Size() > studio.MaxAudioBytes {
		return studio.AudioRequest{}, fmt.Errorf("%w: %d bytes", studio.ErrAudioTooLarge, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return studio.AudioRequest{}, err
	}
	name := filepath.Base(path)
	if mimeType == "" {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	}
	return studio.AudioRequest{
		Name:     name,
		MIMEType: mimeType,
		Data:     data,
		Mode:     m,
		Sarcasm:  sarcasm,
	}, nil
}

func printAudio(w io.Writer, r *studio.AudioResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprintln(w, labelStyle.Render(r.Header))
	fmt.Fprintln(w)
	_, err := fmt.Fprintln(w, r.Text)
	return err
}
