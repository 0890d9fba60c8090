package model

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# Nockchain Key Generator

Runs the **nockchain-wallet** tool and shows its output.

| Key | Action |
|-----|--------|
| g | Generate keys (` + "`keygen`" + `) |
| e | Save wallet keys (` + "`export-keys`" + `) to a file |
| c | Copy the last saved path to the clipboard |
| ↑/↓ pgup/pgdn | Scroll the log |
| ? | Toggle this help |
| q | Quit |

Exported keys are written with owner-only permissions. Keep the file safe:
anyone holding it controls the wallet.
`

var (
	helpMu       sync.Mutex
	helpRenderer *glamour.TermRenderer
	helpWidth    int
)

// renderHelp renders the help text for width, falling back to the raw
// markdown when the renderer cannot be built.
func renderHelp(width int) string {
	helpMu.Lock()
	defer helpMu.Unlock()

	if helpRenderer == nil || helpWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return helpMarkdown
		}
		helpRenderer, helpWidth = r, width
	}
	out, err := helpRenderer.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return strings.TrimRight(out, "\n")
}
