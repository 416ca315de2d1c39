// Package gate runs the plugin bootstrap check end to end: it builds a checker
// from a manifest, evaluates it against the site, deactivates the plugin when
// requirements are unmet and persists the outcome via the config package.
package gate

import (
	"fmt"
	"time"

	"github.com/kb-labs/reqcheck/internal/config"
	"github.com/kb-labs/reqcheck/internal/logger"
	"github.com/kb-labs/reqcheck/internal/manifest"
	"github.com/kb-labs/reqcheck/internal/requirements"
)

// Site is an environment that can also deactivate plugins.
type Site interface {
	requirements.Environment
	Deactivate(pluginFile string) error
}

// Result is returned after Run.
type Result struct {
	Met         bool
	Notices     []requirements.Notice
	Deactivated bool
	ReportPath  string
	Duration    time.Duration
}

// Gate orchestrates a single bootstrap check.
type Gate struct {
	Site   Site
	Log    *logger.Logger
	OnStep func(step, total int, label string) // called at each named stage
}

// Run evaluates m against the site. When requirements fail and dryRun is
// false the plugin is deactivated. The report is written in both cases.
// A failed check is not an error; only I/O problems are.
func (g *Gate) Run(m *manifest.Manifest, siteDir string, dryRun bool) (*Result, error) {
	start := time.Now()

	c := m.NewChecker(g.Site, requirements.WithLogger(g.Log.WithField("plugin", m.Plugin.File)))

	g.step(1, 3, fmt.Sprintf("Checking requirements for %s", c.Subject().DisplayName()))
	met := c.Evaluate()
	res := &Result{Met: met, Notices: c.Failures()}

	var gateErr error
	switch {
	case met:
		g.step(2, 3, "All requirements met")
	case dryRun:
		g.step(2, 3, fmt.Sprintf("%d requirement(s) unmet, skipping deactivation (dry run)", len(res.Notices)))
	default:
		g.step(2, 3, fmt.Sprintf("%d requirement(s) unmet, deactivating %s", len(res.Notices), m.Plugin.File))
		h := &host{site: g.Site, log: g.Log}
		gateErr = c.DisableAndNotify(h)
		res.Deactivated = h.deactivated
		for _, n := range h.rendered {
			g.Log.Warn(n.String())
		}
	}

	g.step(3, 3, "Writing report")
	r := config.NewReport(siteDir, c, g.Site)
	r.Deactivated = res.Deactivated
	if err := config.Write(siteDir, r); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	res.ReportPath = config.ReportPath(siteDir)
	res.Duration = time.Since(start)

	if gateErr != nil {
		return res, fmt.Errorf("disable plugin: %w", gateErr)
	}
	return res, nil
}

func (g *Gate) step(n, total int, label string) {
	g.Log.Infof("[%d/%d] %s", n, total, label)
	if g.OnStep != nil {
		g.OnStep(n, total, label)
	}
}

// host adapts a Site to requirements.Host. Notices are collected rather than
// printed so the caller decides how to show them.
type host struct {
	site        Site
	log         *logger.Logger
	deactivated bool
	rendered    []requirements.Notice
}

func (h *host) Deactivate(pluginFile string) error {
	if err := h.site.Deactivate(pluginFile); err != nil {
		return err
	}
	h.deactivated = true
	h.log.Infof("Deactivated %s", pluginFile)
	return nil
}

func (h *host) RenderNotices(notices []requirements.Notice) error {
	h.rendered = append(h.rendered, notices...)
	return nil
}
