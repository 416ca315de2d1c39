package gate

import (
	"errors"
	"os"
	"testing"

	"github.com/kb-labs/reqcheck/internal/config"
	"github.com/kb-labs/reqcheck/internal/logger"
	"github.com/kb-labs/reqcheck/internal/manifest"
)

// ── fakes ────────────────────────────────────────────────────────────────────

// fakeSite answers every query from fields and records deactivations.
type fakeSite struct {
	php, wp       string
	active        map[string]bool
	deactivated   []string
	deactivateErr error
}

func (f *fakeSite) PlatformVersion() string                   { return f.php }
func (f *fakeSite) HostVersion() string                       { return f.wp }
func (f *fakeSite) IsComponentActive(id string) bool          { return f.active[id] }
func (f *fakeSite) IsExtensionLoaded(id string) bool          { return id == "curl" }
func (f *fakeSite) IsSettingEqual(name, expected string) bool { return expected == "1" }

func (f *fakeSite) Deactivate(file string) error {
	if f.deactivateErr != nil {
		return f.deactivateErr
	}
	f.deactivated = append(f.deactivated, file)
	delete(f.active, file)
	return nil
}

func sampleManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Plugin: manifest.Plugin{Name: "Flexible Shipping", File: "flexible-shipping/flexible-shipping.php"},
		Requires: manifest.Requires{
			PHP:        "7.4",
			WordPress:  "5.8",
			Plugins:    []manifest.Named{{ID: "woocommerce/woocommerce.php", Name: "WooCommerce"}},
			Extensions: []manifest.Named{{ID: "curl"}},
			Settings:   []manifest.Setting{{Name: "allow_url_fopen", Value: true}},
		},
	}
}

func newSite() *fakeSite {
	return &fakeSite{
		php:    "8.2.0",
		wp:     "6.4.2",
		active: map[string]bool{"woocommerce/woocommerce.php": true, "flexible-shipping/flexible-shipping.php": true},
	}
}

// ── Run ──────────────────────────────────────────────────────────────────────

// TestRunMet verifies that nothing is deactivated when all requirements hold.
func TestRunMet(t *testing.T) {
	dir := t.TempDir()
	site := newSite()
	g := &Gate{Site: site, Log: logger.NewDiscard()}

	res, err := g.Run(sampleManifest(), dir, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Met || res.Deactivated || len(res.Notices) != 0 {
		t.Errorf("Run() = %+v, want met without deactivation", res)
	}
	if len(site.deactivated) != 0 {
		t.Errorf("deactivated = %v, want none", site.deactivated)
	}
	if _, err := os.Stat(res.ReportPath); err != nil {
		t.Errorf("report not written: %v", err)
	}
}

// TestRunUnmetDeactivates verifies the plugin is deactivated and the report says so.
func TestRunUnmetDeactivates(t *testing.T) {
	dir := t.TempDir()
	site := newSite()
	site.wp = "5.2"
	g := &Gate{Site: site, Log: logger.NewDiscard()}

	res, err := g.Run(sampleManifest(), dir, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Met || !res.Deactivated || len(res.Notices) != 1 {
		t.Fatalf("Run() = %+v, want unmet, deactivated, one notice", res)
	}
	if len(site.deactivated) != 1 || site.deactivated[0] != "flexible-shipping/flexible-shipping.php" {
		t.Errorf("deactivated = %v", site.deactivated)
	}

	r, err := config.Read(dir)
	if err != nil {
		t.Fatalf("config.Read() error = %v", err)
	}
	if r.Met || !r.Deactivated || r.WordPressVersion != "5.2" {
		t.Errorf("report = %+v, want unmet and deactivated on 5.2", r)
	}
}

// TestRunDryRun verifies that dry run reports failures without deactivating.
func TestRunDryRun(t *testing.T) {
	site := newSite()
	site.active["woocommerce/woocommerce.php"] = false
	g := &Gate{Site: site, Log: logger.NewDiscard()}

	res, err := g.Run(sampleManifest(), t.TempDir(), true)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Met || res.Deactivated {
		t.Errorf("Run() = %+v, want unmet and not deactivated", res)
	}
	if len(site.deactivated) != 0 {
		t.Errorf("deactivated = %v, want none", site.deactivated)
	}
}

// TestRunDeactivateError verifies that a failed deactivation still writes the report.
func TestRunDeactivateError(t *testing.T) {
	dir := t.TempDir()
	site := newSite()
	site.php = "7.2"
	site.deactivateErr = errors.New("read-only database")
	g := &Gate{Site: site, Log: logger.NewDiscard()}

	res, err := g.Run(sampleManifest(), dir, false)
	if err == nil {
		t.Fatal("Run() error = nil, want deactivation error")
	}
	if res == nil || res.Deactivated {
		t.Fatalf("Run() = %+v, want result with Deactivated=false", res)
	}
	if _, err := config.Read(dir); err != nil {
		t.Errorf("report not written: %v", err)
	}
}

// TestRunSteps verifies OnStep is called once per stage in order.
func TestRunSteps(t *testing.T) {
	var steps []int
	g := &Gate{
		Site:   newSite(),
		Log:    logger.NewDiscard(),
		OnStep: func(step, total int, label string) { steps = append(steps, step) },
	}

	if _, err := g.Run(sampleManifest(), t.TempDir(), false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(steps) != 3 || steps[0] != 1 || steps[2] != 3 {
		t.Errorf("steps = %v, want [1 2 3]", steps)
	}
}
