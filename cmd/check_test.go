package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/kb-labs/reqcheck/internal/requirements"
)

// TestFailedByMatchesCategoryAndID verifies notices are attributed to the
// requirement they came from.
func TestFailedByMatchesCategoryAndID(t *testing.T) {
	notices := []requirements.Notice{
		{Category: requirements.CategoryHost, ID: "wordpress", Item: "WordPress", Expected: "6.0"},
		{Category: requirements.CategoryComponent, ID: "woocommerce/woocommerce.php", Item: "WooCommerce"},
		{Category: requirements.CategorySetting, ID: "allow_url_fopen", Item: "allow_url_fopen", Expected: "1"},
	}

	cases := []struct {
		req  requirements.Requirement
		want bool
	}{
		{requirements.Requirement{Category: requirements.CategoryPlatform, ID: "php", Name: "PHP"}, false},
		{requirements.Requirement{Category: requirements.CategoryHost, ID: "wordpress", Name: "WordPress"}, true},
		{requirements.Requirement{Category: requirements.CategoryComponent, ID: "woocommerce/woocommerce.php", Name: "WooCommerce"}, true},
		{requirements.Requirement{Category: requirements.CategoryComponent, ID: "akismet/akismet.php", Name: "akismet/akismet.php"}, false},
		{requirements.Requirement{Category: requirements.CategorySetting, ID: "allow_url_fopen", Name: "allow_url_fopen"}, true},
		{requirements.Requirement{Category: requirements.CategoryExtension, ID: "curl", Name: "curl"}, false},
	}
	for _, c := range cases {
		if got := failedBy(c.req, notices); got != c.want {
			t.Errorf("failedBy(%s %s) = %v, want %v", c.req.Category, c.req.ID, got, c.want)
		}
	}
}

// sharedNameEnv has only the current WooCommerce plugin active.
type sharedNameEnv struct{}

func (sharedNameEnv) PlatformVersion() string            { return "8.2.12" }
func (sharedNameEnv) HostVersion() string                { return "6.4.2" }
func (sharedNameEnv) IsComponentActive(id string) bool   { return id == "woocommerce/woocommerce.php" }
func (sharedNameEnv) IsExtensionLoaded(string) bool      { return true }
func (sharedNameEnv) IsSettingEqual(string, string) bool { return true }

// TestFailedBySharedDisplayName verifies that two plugins shown under the same
// name are reported separately.
func TestFailedBySharedDisplayName(t *testing.T) {
	c := requirements.New(requirements.Subject{Name: "Shop Addon"}, sharedNameEnv{}, "7.4", "6.0")
	c.RequireComponent("woocommerce/woocommerce.php", "WooCommerce").
		RequireComponent("woocommerce-legacy/woocommerce.php", "WooCommerce")
	if c.Evaluate() {
		t.Fatal("Evaluate() = true, want false")
	}
	notices := c.Failures()

	for _, r := range c.Requirements() {
		if r.Category != requirements.CategoryComponent {
			continue
		}
		want := r.ID == "woocommerce-legacy/woocommerce.php"
		if got := failedBy(r, notices); got != want {
			t.Errorf("failedBy(%s) = %v, want %v", r.ID, got, want)
		}
	}
}

// TestExitCode verifies unmet requirements exit with 2 even when wrapped.
func TestExitCode(t *testing.T) {
	if got := exitCode(unmetError{count: 1}); got != 2 {
		t.Errorf("exitCode(unmet) = %d, want 2", got)
	}
	if got := exitCode(fmt.Errorf("gate: %w", unmetError{count: 3})); got != 2 {
		t.Errorf("exitCode(wrapped unmet) = %d, want 2", got)
	}
	if got := exitCode(fmt.Errorf("boom")); got != 1 {
		t.Errorf("exitCode(other) = %d, want 1", got)
	}
}

// TestLoadManifestMissingFile verifies an explicit path must exist.
func TestLoadManifestMissingFile(t *testing.T) {
	old := flagRequirements
	t.Cleanup(func() { flagRequirements = old })

	flagRequirements = filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := loadManifest(); err == nil {
		t.Error("loadManifest() error = nil, want missing file error")
	}
}

// TestLoadManifestFile verifies an explicit file is used.
func TestLoadManifestFile(t *testing.T) {
	old := flagRequirements
	t.Cleanup(func() { flagRequirements = old })

	path := filepath.Join(t.TempDir(), "reqs.yaml")
	data := "plugin:\n  file: shop/shop.php\nrequires:\n  php: \"8.1\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	flagRequirements = path

	m, err := loadManifest()
	if err != nil {
		t.Fatalf("loadManifest() error = %v", err)
	}
	if m.Plugin.File != "shop/shop.php" || m.Requires.PHP != "8.1" {
		t.Errorf("manifest = %+v", m)
	}
}
