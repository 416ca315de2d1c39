// Package config persists the result of the last requirement check to
// <siteDir>/.reqcheck/report.json. The schema is versioned to support
// forward-compatible migrations.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kb-labs/reqcheck/internal/logger"
	"github.com/kb-labs/reqcheck/internal/requirements"
)

const (
	reportVersion = 1
	reportFile    = "report.json"
)

// Report is the persistent state written to <site>/.reqcheck/report.json.
// Version field enables future migrations.
type Report struct {
	CheckedAt        time.Time                  `json:"checkedAt"`
	Site             string                     `json:"site"`
	Subject          string                     `json:"subject"`
	PluginFile       string                     `json:"pluginFile"`
	TextDomain       string                     `json:"textDomain,omitempty"`
	PHPVersion       string                     `json:"phpVersion"`
	WordPressVersion string                     `json:"wordpressVersion"`
	Requirements     []requirements.Requirement `json:"requirements"`
	Notices          []requirements.Notice      `json:"notices"`
	Met              bool                       `json:"met"`
	Deactivated      bool                       `json:"deactivated"`
	Version          int                        `json:"version"`
}

// ReportPath returns the path to the report file for the given site directory.
func ReportPath(siteDir string) string {
	return filepath.Join(siteDir, logger.StateDir, reportFile)
}

// Write persists r to <siteDir>/.reqcheck/report.json.
func Write(siteDir string, r *Report) error {
	dir := filepath.Join(siteDir, logger.StateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := os.WriteFile(ReportPath(siteDir), data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Read loads and parses the report from <siteDir>/.reqcheck/report.json.
func Read(siteDir string) (*Report, error) {
	path := ReportPath(siteDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no report found at %s: run reqcheck check first", path)
		}
		return nil, fmt.Errorf("read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}

	// Future: handle r.Version < reportVersion migrations here.

	return &r, nil
}

// NewReport captures the outcome of the checker's last evaluation.
func NewReport(siteDir string, c *requirements.Checker, env requirements.Environment) *Report {
	abs, _ := filepath.Abs(siteDir)
	subject := c.Subject()
	notices := c.Failures()
	return &Report{
		Version:          reportVersion,
		CheckedAt:        time.Now().UTC(),
		Site:             abs,
		Subject:          subject.DisplayName(),
		PluginFile:       subject.File,
		TextDomain:       subject.TextDomain,
		PHPVersion:       env.PlatformVersion(),
		WordPressVersion: env.HostVersion(),
		Requirements:     c.Requirements(),
		Notices:          notices,
		Met:              len(notices) == 0,
	}
}
