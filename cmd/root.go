// Package cmd implements the reqcheck CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kb-labs/reqcheck/internal/env"
	"github.com/kb-labs/reqcheck/internal/logger"
	"github.com/kb-labs/reqcheck/internal/manifest"
)

// SetVersionInfo is called from main.go with values injected at build time via -ldflags.
// It must be called before Execute().
func SetVersionInfo(version, commit, date string) {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"reqcheck %s (commit %s, built %s)\n", version, commit, date,
	))
	rootCmd.Version = version
}

var rootCmd = &cobra.Command{
	Use:   "reqcheck",
	Short: "WordPress plugin requirement checker",
	Long: `reqcheck verifies that a WordPress site satisfies a plugin's requirements
(PHP and WordPress versions, active plugins, PHP extensions and php.ini
settings) and deactivates the plugin when it does not.

Examples:
  reqcheck check --site /var/www/html            evaluate and print notices
  reqcheck check --snapshot env.json -f html     evaluate a recorded environment
  reqcheck gate --site /var/www/html             evaluate and deactivate on failure
  reqcheck init                                  build a requirements manifest
  reqcheck status                                show the last report
  reqcheck serve --addr :8080                    serve notices over HTTP
  reqcheck logs                                  show the latest check log`,
	SilenceUsage: true,
}

var (
	flagRequirements string
	flagSnapshot     string
	flagSite         string
	flagDatabase     string
	flagTablePrefix  string
	flagPHP          string
	flagLogLevel     string
)

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagRequirements, "requirements", "r", "", "requirements manifest (file path or http(s) URL); embedded default when empty")
	pf.StringVar(&flagSnapshot, "snapshot", "", "read the environment from a JSON snapshot instead of a live site")
	pf.StringVar(&flagSite, "site", "", "WordPress root directory (default: current directory)")
	pf.StringVar(&flagDatabase, "db", "", "WordPress SQLite database (default: <site>/wp-content/database/.ht.sqlite)")
	pf.StringVar(&flagTablePrefix, "table-prefix", "wp_", "WordPress table prefix")
	pf.StringVar(&flagPHP, "php", "", "php binary (default: php on PATH)")
	pf.StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// unmetError signals that requirements are unmet so Execute exits with 2
// rather than the generic 1.
type unmetError struct{ count int }

func (e unmetError) Error() string {
	return fmt.Sprintf("%d requirement(s) unmet", e.count)
}

func exitCode(err error) int {
	var unmet unmetError
	if errors.As(err, &unmet) {
		return 2
	}
	return 1
}

// siteDir returns the directory that holds .reqcheck state.
func siteDir() (string, error) {
	if flagSite != "" {
		return filepath.Abs(flagSite)
	}
	return os.Getwd()
}

// loadManifest resolves --requirements. An explicit local file must exist;
// a URL falls back to the embedded default when unreachable.
func loadManifest() (*manifest.Manifest, error) {
	src := flagRequirements
	switch {
	case src == "":
		return manifest.LoadDefault()
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return manifest.Load(manifest.LoadOptions{RemoteURL: src})
	}
	if _, err := os.Stat(src); err != nil {
		return nil, fmt.Errorf("requirements: %w", err)
	}
	return manifest.Load(manifest.LoadOptions{LocalOverride: src})
}

func envOptions(dir string) env.Options {
	return env.Options{
		SnapshotPath: flagSnapshot,
		SiteRoot:     dir,
		Database:     flagDatabase,
		TablePrefix:  flagTablePrefix,
		PHPBinary:    flagPHP,
	}
}

// openLogger writes to stderr and <dir>/.reqcheck/logs. When the state dir
// cannot be created it degrades to stderr only.
func openLogger(dir string) *logger.Logger {
	level := logger.ParseLevel(flagLogLevel)
	log, err := logger.New(dir, level)
	if err != nil {
		log = logger.NewConsole(level)
		log.Warnf("file logging disabled: %v", err)
	}
	return log
}
