package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kb-labs/reqcheck/internal/manifest"
	"github.com/kb-labs/reqcheck/internal/wizard"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a requirements manifest",
	Long: `Walk through an interactive wizard that builds a requirements manifest,
seeded from --requirements or the built-in default.`,
	RunE: runInit,
}

var (
	flagYes bool
	flagOut string
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "skip wizard and write the defaults")
	initCmd.Flags().StringVarP(&flagOut, "out", "o", wizard.DefaultOut, "where to write the manifest (.json writes JSON)")
}

func runInit(cmd *cobra.Command, args []string) error {
	base, err := loadManifest()
	if err != nil {
		return fmt.Errorf("load requirements: %w", err)
	}

	res, err := wizard.Run(base, wizard.Options{Out: flagOut, Yes: flagYes})
	if err != nil {
		return err // includes "cancelled"
	}
	if err := res.Manifest.Validate(); err != nil {
		return err
	}
	if err := manifest.Write(res.Path, res.Manifest); err != nil {
		return err
	}

	ok := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	val := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	fmt.Println()
	fmt.Println(ok.Render("✓ Manifest written") + "  " + val.Render(res.Path))
	fmt.Println()
	fmt.Printf("  %s\n", dim.Render("Next steps:"))
	fmt.Printf("    reqcheck check -r %s --site <wordpress-root>\n", res.Path)
	fmt.Println()
	return nil
}
