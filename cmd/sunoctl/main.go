// Command sunoctl submits music generation tasks and follows them to
// completion from a terminal.
//
// Usage:
//
//	sunoctl [flags] <command> [command flags]
//
// Commands:
//
//	generate  - generate songs from a prompt
//	lyrics    - generate lyrics drafts
//	extend    - continue an existing track
//	separate  - split a track into vocal and instrumental stems
//	wav       - convert a track to WAV
//	mp4       - render a music video
//
// Without --server the upstream API is called directly with SUNO_API_KEY.
// With --server the service's /api/suno routes are used instead.
package main

import (
	"fmt"
	"os"

	"github.com/makeasinger/musicgen/cmd/sunoctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
