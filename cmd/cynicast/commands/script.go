package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrWong99/cynicast/internal/studio"
)

var scriptFlags struct {
	tool      string
	intensity int
	podcast   string
	host      string
	width     int
	json      bool
}

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Write an episode script about an AI tool",
	Long: `Generate a Spanish podcast script roasting an AI tool and print it as a
screenplay. Flags left unset fall back to the studio defaults in the
configuration.`,
	Example: `  cynicast script --tool Copilot --intensity 9
  cynicast script --tool Gemini --json > episodio.json`,
	Args: cobra.NoArgs,
	RunE: runScript,
}

func init() {
	f := scriptCmd.Flags()
	f.StringVarP(&scriptFlags.tool, "tool", "t", "", "AI tool the episode is about")
	f.IntVarP(&scriptFlags.intensity, "intensity", "i", 0, "sarcasm intensity from 1 to 10")
	f.StringVar(&scriptFlags.podcast, "podcast", "", "podcast name")
	f.StringVar(&scriptFlags.host, "host", "", "host name")
	f.IntVarP(&scriptFlags.width, "width", "w", 80, "wrap body text at this width (0 disables wrapping)")
	f.BoolVar(&scriptFlags.json, "json", false, "print the script as JSON")
}

func runScript(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newStudio(ctx)
	if err != nil {
		return err
	}

	script, err := a.GenerateScript(ctx, studio.ScriptRequest{
		ToolName:      scriptFlags.tool,
		ToneIntensity: scriptFlags.intensity,
		PodcastName:   scriptFlags.podcast,
		HostName:      scriptFlags.host,
	})
	if err != nil {
		return err
	}
	return printScript(cmd.OutOrStdout(), script, scriptFlags.json, scriptFlags.width)
}

func printScript(w io.Writer, s *studio.Script, asJSON bool, width int) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Fprintln(w, labelStyle.Render(s.Title))
	_, err := fmt.Fprint(w, studio.NewScreenplay(studio.DefaultTheme, width).Render(s.Content))
	return err
}
