package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kb-labs/reqcheck/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last check report",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	dir, err := siteDir()
	if err != nil {
		return err
	}

	r, err := config.Read(dir)
	if err != nil {
		return err
	}

	label := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8"))
	val := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	ok := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	bad := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	result := ok.Render("met")
	if !r.Met {
		result = bad.Render(fmt.Sprintf("%d unmet", len(r.Notices)))
	}
	if r.Deactivated {
		result += bad.Render(" · deactivated")
	}

	fmt.Println()
	fmt.Printf("  %s %s\n\n", label.Render("Plugin:   "), val.Render(r.Subject))
	fmt.Printf("  %s %s\n", label.Render("File:     "), r.PluginFile)
	fmt.Printf("  %s %s\n", label.Render("Site:     "), r.Site)
	fmt.Printf("  %s %s\n", label.Render("Checked:  "), r.CheckedAt.Local().Format("2006-01-02 15:04"))
	fmt.Printf("  %s %s\n", label.Render("PHP:      "), orDash(r.PHPVersion))
	fmt.Printf("  %s %s\n", label.Render("WordPress:"), orDash(r.WordPressVersion))
	fmt.Printf("  %s %s\n\n", label.Render("Result:   "), result)

	if len(r.Requirements) > 0 {
		fmt.Printf("  %s\n", label.Render("Requirements:"))
		for _, req := range r.Requirements {
			mark := ok.Render("●")
			if failedBy(req, r.Notices) {
				mark = bad.Render("●")
			}
			fmt.Printf("    %s %-10s %-32s %s\n", mark, req.Category, req.Name, dimStr(req.Expected))
		}
	}

	if len(r.Notices) > 0 {
		fmt.Printf("\n  %s\n", label.Render("Notices:"))
		for _, n := range r.Notices {
			fmt.Printf("    %s %s\n", bad.Render("✗"), n)
		}
	}

	fmt.Println()
	return nil
}

func dimStr(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
