package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
)

// stepSpinner shows the current gate step next to a spinner and leaves a
// final ✓/✗ line behind when stopped.
type stepSpinner struct {
	s     *spinner.Spinner
	label string
}

func newSpinner() *stepSpinner {
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(os.Stdout))
	s.Prefix = "  "
	return &stepSpinner{s: s}
}

func (sp *stepSpinner) setLabel(l string) {
	sp.s.Lock()
	sp.label = l
	sp.s.Suffix = " " + l
	sp.s.Unlock()
}

func (sp *stepSpinner) start() { sp.s.Start() }

// stop halts the spinner and prints a final status line.
func (sp *stepSpinner) stop(ok bool) {
	sp.s.Stop()

	mark := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✓")
	if !ok {
		mark = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("✗")
	}
	fmt.Printf("  %s %s\n", mark, sp.label)
}
