package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kb-labs/reqcheck/internal/logger"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show check logs",
	Long: `Show the most recent check or gate log of the site.
Use --follow to stream new lines in real time.`,
	RunE: runLogs,
}

var flagFollow bool

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVarP(&flagFollow, "follow", "f", false, "follow log output (like tail -f)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	dir, err := siteDir()
	if err != nil {
		return err
	}

	logPath := logger.LatestLogPath(dir)
	if logPath == "" {
		return fmt.Errorf("no check logs found in %s", dir)
	}

	f, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	// Print existing content.
	if err := printLogLines(f); err != nil {
		return err
	}

	if !flagFollow {
		return nil
	}

	// Follow mode: poll for new content until interrupted.
	ctx := cmd.Context()
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := printLogLines(f); err != nil {
			return err
		}
	}
}

var (
	errorLine = color.New(color.FgRed)
	warnLine  = color.New(color.FgYellow)
	debugLine = color.New(color.FgHiBlack)
)

// printLogLines copies r to stdout, colouring lines by level. color disables
// itself when stdout is not a terminal.
func printLogLines(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "level=error"), strings.Contains(line, "level=fatal"):
			errorLine.Println(line)
		case strings.Contains(line, "level=warning"):
			warnLine.Println(line)
		case strings.Contains(line, "level=debug"):
			debugLine.Println(line)
		default:
			fmt.Println(line)
		}
	}
	return scanner.Err()
}
