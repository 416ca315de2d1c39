package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kb-labs/reqcheck/internal/env"
	"github.com/kb-labs/reqcheck/internal/gate"
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Evaluate requirements and deactivate the plugin when unmet",
	Long: `Run the plugin bootstrap gate: evaluate the requirements, deactivate the
plugin on the site when any is unmet, print the notices an administrator
would see and record the outcome in .reqcheck/report.json.`,
	RunE: runGate,
}

var flagDryRun bool

func init() {
	rootCmd.AddCommand(gateCmd)
	gateCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "evaluate and report without deactivating")
}

func runGate(cmd *cobra.Command, args []string) error {
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

	fmt.Println()
	sp := newSpinner()
	g := &gate.Gate{
		Site: e,
		Log:  log,
		OnStep: func(step, total int, label string) {
			sp.setLabel(fmt.Sprintf("[%d/%d] %s", step, total, label))
		},
	}

	sp.start()
	res, err := g.Run(m, dir, flagDryRun)
	sp.stop(err == nil && res.Met)
	if res == nil {
		return fmt.Errorf("gate failed: %w", err)
	}

	printGateResult(res)
	if err != nil {
		return fmt.Errorf("gate failed: %w", err)
	}
	if !res.Met {
		return unmetError{count: len(res.Notices)}
	}
	return nil
}

func printGateResult(r *gate.Result) {
	ok := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	bad := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	val := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	took := dim.Render(fmt.Sprintf("  (%s)", r.Duration.Round(time.Millisecond)))
	fmt.Println()
	switch {
	case r.Met:
		fmt.Println(ok.Render("✓ Requirements met") + took)
	case r.Deactivated:
		fmt.Println(bad.Render("✗ Plugin deactivated") + took)
	default:
		fmt.Println(bad.Render("✗ Requirements unmet") + took)
	}
	fmt.Println()
	for _, n := range r.Notices {
		fmt.Printf("  %s\n", n)
	}
	if len(r.Notices) > 0 {
		fmt.Println()
	}
	fmt.Printf("  Report:  %s\n\n", val.Render(r.ReportPath))
}
