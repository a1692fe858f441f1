// Command cynicast is the podcast producer's toolkit: a realtime voice
// session with an AI co-host, a script writer, an audio lab, and the HTTP
// and MCP surfaces that expose the studio to other tools.
package main

import (
	"os"

	"github.com/MrWong99/cynicast/cmd/cynicast/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
