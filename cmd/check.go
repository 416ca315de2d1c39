package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kb-labs/reqcheck/internal/config"
	"github.com/kb-labs/reqcheck/internal/env"
	"github.com/kb-labs/reqcheck/internal/requirements"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate requirements and print notices",
	Long: `Evaluate the plugin's requirements against the site and print every
unmet requirement. Exits with status 2 when any requirement is unmet.`,
	RunE: runCheck,
}

var flagFormat string

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&flagFormat, "format", "f", "text", "output format: text, html or json")
}

func runCheck(cmd *cobra.Command, args []string) error {
	switch flagFormat {
	case "text", "html", "json":
	default:
		return fmt.Errorf("unknown format %q (want text, html or json)", flagFormat)
	}

	dir, err := siteDir()
	if err != nil {
		return err
	}
	m, err := loadManifest()
	if err != nil {
		return fmt.Errorf("load requirements: %w", err)
	}

	log := openLogger(dir)
	defer log.Close()

	e, closeEnv, err := env.Detect(envOptions(dir), log)
	if err != nil {
		return err
	}
	defer closeEnv()

	c := m.NewChecker(e, requirements.WithLogger(log.WithField("plugin", m.Plugin.File)))
	met := c.Evaluate()
	log.Infof("%s: %d requirement(s) unmet", c.Subject().DisplayName(), len(c.Failures()))

	if err := config.Write(dir, config.NewReport(dir, c, e)); err != nil {
		log.Warnf("write report: %v", err)
	}

	switch flagFormat {
	case "html":
		for _, n := range c.Failures() {
			fmt.Println(n.HTML())
		}
	case "json":
		if err := printCheckJSON(c, met); err != nil {
			return err
		}
	default:
		printCheckTable(c, e)
	}

	if !met {
		return unmetError{count: len(c.Failures())}
	}
	return nil
}

// checkRow is one requirement with its outcome.
type checkRow struct {
	requirements.Requirement
	Met bool `json:"met"`
}

func checkRows(c *requirements.Checker) []checkRow {
	failures := c.Failures()
	reqs := c.Requirements()
	rows := make([]checkRow, len(reqs))
	for i, r := range reqs {
		rows[i] = checkRow{Requirement: r, Met: !failedBy(r, failures)}
	}
	return rows
}

// failedBy reports whether any notice refers to r.
func failedBy(r requirements.Requirement, notices []requirements.Notice) bool {
	for _, n := range notices {
		if n.Category == r.Category && n.ID == r.ID {
			return true
		}
	}
	return false
}

func printCheckJSON(c *requirements.Checker, met bool) error {
	out := struct {
		Subject      string                `json:"subject"`
		Met          bool                  `json:"met"`
		Requirements []checkRow            `json:"requirements"`
		Notices      []requirements.Notice `json:"notices"`
		Messages     []string              `json:"messages"`
	}{
		Subject:      c.Subject().DisplayName(),
		Met:          met,
		Requirements: checkRows(c),
		Notices:      c.Failures(),
		Messages:     c.Notices(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printCheckTable(c *requirements.Checker, e requirements.Environment) {
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

	fmt.Println()
	fmt.Printf("  %s\n\n", title.Render(c.Subject().DisplayName()))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Kind", "Requirement", "Expected", "Current", "Status"})
	for _, r := range checkRows(c) {
		current := ""
		switch r.Category {
		case requirements.CategoryPlatform:
			current = e.PlatformVersion()
		case requirements.CategoryHost:
			current = e.HostVersion()
		}
		status := okStyle.Render("✓ met")
		if !r.Met {
			status = badStyle.Render("✗ unmet")
		}
		name := r.Name
		if r.Name != r.ID && r.Category == requirements.CategoryComponent {
			name = fmt.Sprintf("%s (%s)", r.Name, r.ID)
		}
		t.AppendRow(table.Row{r.Category, name, r.Expected, current, status})
	}
	t.Render()
	fmt.Println()

	notices := c.Notices()
	if len(notices) == 0 {
		fmt.Println(okStyle.Bold(true).Render("✓ All requirements met"))
		return
	}
	for _, n := range notices {
		fmt.Printf("  %s %s\n", badStyle.Render("✗"), n)
	}
	fmt.Println()
}
