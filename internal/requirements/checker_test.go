package requirements

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const (
	alwaysValidPHPVersion = "5.2"
	alwaysValidWPVersion  = "4.0"
)

// ── fakes ────────────────────────────────────────────────────────────────────

// fakeEnv is an in-memory Environment. Active plugins follow the WordPress
// model: a site-wide list plus a network-wide list consulted on multisite.
type fakeEnv struct {
	php        string
	wp         string
	active     []string
	network    map[string]int64
	multisite  bool
	extensions map[string]bool
	settings   map[string]string
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		php:        "8.2.12",
		wp:         alwaysValidWPVersion,
		extensions: map[string]bool{"curl": true, "json": true},
		settings:   map[string]string{"allow_url_fopen": "1", "memory_limit": "256M"},
	}
}

func (f *fakeEnv) PlatformVersion() string { return f.php }
func (f *fakeEnv) HostVersion() string     { return f.wp }

func (f *fakeEnv) IsComponentActive(id string) bool {
	for _, a := range f.active {
		if a == id {
			return true
		}
	}
	if f.multisite {
		_, ok := f.network[id]
		return ok
	}
	return false
}

func (f *fakeEnv) IsExtensionLoaded(id string) bool { return f.extensions[id] }

func (f *fakeEnv) IsSettingEqual(name, expected string) bool {
	v, ok := f.settings[name]
	return ok && v == expected
}

type fakeHost struct {
	deactivated []string
	rendered    []Notice
	failWith    error
}

func (h *fakeHost) Deactivate(file string) error {
	h.deactivated = append(h.deactivated, file)
	return h.failWith
}

func (h *fakeHost) RenderNotices(n []Notice) error {
	h.rendered = append(h.rendered, n...)
	return nil
}

func newChecker(env Environment) *Checker {
	return New(Subject{Name: "name", TextDomain: "text", File: "file"}, env, alwaysValidPHPVersion, alwaysValidWPVersion)
}

// ── version checks ───────────────────────────────────────────────────────────

// TestPlatformVersionCheck verifies that every known PHP baseline up to the
// running version passes.
func TestPlatformVersionCheck(t *testing.T) {
	c := newChecker(newFakeEnv())
	for _, v := range []string{"7.3", "7.2", "7.1", "7.0", "5.6", "5.5", "5.4", "5.3", "5.2"} {
		c.SetMinPlatformVersion(v)
		if !c.Evaluate() {
			t.Errorf("Evaluate() with min PHP %s = false, want true; notices = %v", v, c.Notices())
		}
	}
}

// TestPlatformVersionBelowMinimum verifies that a newer baseline than the
// running PHP produces a platform notice.
func TestPlatformVersionBelowMinimum(t *testing.T) {
	env := newFakeEnv()
	env.php = "5.1.6"
	c := newChecker(env)

	if c.Evaluate() {
		t.Fatal("Evaluate() = true, want false")
	}
	got := c.Failures()
	if len(got) != 1 || got[0].Category != CategoryPlatform || got[0].Expected != alwaysValidPHPVersion {
		t.Errorf("Failures() = %+v, want one platform notice for %s", got, alwaysValidPHPVersion)
	}
}

// TestHostVersionCheck verifies that raising the WordPress baseline flips the
// result and adds exactly one host notice.
func TestHostVersionCheck(t *testing.T) {
	c := newChecker(newFakeEnv())
	if !c.Evaluate() {
		t.Fatalf("Evaluate() = false, want true; notices = %v", c.Notices())
	}
	before := len(c.Notices())

	c.SetMinHostVersion("4.1")
	if c.Evaluate() {
		t.Fatal("Evaluate() after SetMinHostVersion(4.1) = true, want false")
	}
	failures := c.Failures()
	if len(failures)-before != 1 {
		t.Fatalf("notices grew by %d, want 1", len(failures)-before)
	}
	if failures[0].Category != CategoryHost {
		t.Errorf("notice category = %q, want %q", failures[0].Category, CategoryHost)
	}
	if !strings.Contains(c.Notices()[0], "4.1") {
		t.Errorf("host notice %q does not name the minimum version", c.Notices()[0])
	}
}

// TestMalformedVersionFailsClosed verifies that an unparseable baseline is
// reported rather than silently passed.
func TestMalformedVersionFailsClosed(t *testing.T) {
	c := newChecker(newFakeEnv())
	c.SetMinHostVersion("latest")
	if c.Evaluate() {
		t.Error("Evaluate() with malformed host minimum = true, want false")
	}
}

// ── extensions ───────────────────────────────────────────────────────────────

// TestExtensionLoaded verifies that a loaded extension keeps the gate open.
func TestExtensionLoaded(t *testing.T) {
	c := newChecker(newFakeEnv())
	c.RequireExtension("curl")
	if !c.Evaluate() {
		t.Errorf("Evaluate() = false, want true; notices = %v", c.Notices())
	}
}

// TestExtensionMissing verifies that an absent extension adds one notice
// naming its display name.
func TestExtensionMissing(t *testing.T) {
	c := newChecker(newFakeEnv())
	c.RequireExtension("curl").RequireExtension("soap", "SOAP")
	if c.Evaluate() {
		t.Fatal("Evaluate() = true, want false")
	}
	got := c.Failures()
	if len(got) != 1 || got[0].Category != CategoryExtension || got[0].Item != "SOAP" || got[0].ID != "soap" {
		t.Errorf("Failures() = %+v, want one extension notice for SOAP", got)
	}
}

// ── components ───────────────────────────────────────────────────────────────

// TestComponentCheckWithMultisite verifies that plugins active site-wide or
// network-wide pass and only the inactive one is reported.
func TestComponentCheckWithMultisite(t *testing.T) {
	env := newFakeEnv()
	env.multisite = true
	env.active = []string{"WooCommerce"}
	env.network = map[string]int64{"Multisite": 1700000000}
	c := newChecker(env)

	c.RequireComponent("WooCommerce")
	if !c.Evaluate() {
		t.Fatalf("Evaluate() with active plugin = false; notices = %v", c.Notices())
	}
	c.RequireComponent("Multisite")
	if !c.Evaluate() {
		t.Fatalf("Evaluate() with network plugin = false; notices = %v", c.Notices())
	}
	c.RequireComponent("Whatever")
	if c.Evaluate() {
		t.Fatal("Evaluate() with inactive plugin = true, want false")
	}

	got := c.Failures()
	if len(got) != 1 {
		t.Fatalf("Failures() len = %d, want 1; got %+v", len(got), got)
	}
	if got[0].Category != CategoryComponent || got[0].Item != "Whatever" {
		t.Errorf("Failures()[0] = %+v, want component notice for Whatever", got[0])
	}
}

// TestComponentNetworkIgnoredWithoutMultisite verifies that the network list is
// only consulted on multisite installs.
func TestComponentNetworkIgnoredWithoutMultisite(t *testing.T) {
	env := newFakeEnv()
	env.network = map[string]int64{"Multisite": 1}
	c := newChecker(env)
	c.RequireComponent("Multisite")
	if c.Evaluate() {
		t.Error("Evaluate() = true for network plugin on single site, want false")
	}
}

// TestRequireComponentOverwrites verifies last-write-wins for display names
// without changing registration order.
func TestRequireComponentOverwrites(t *testing.T) {
	c := newChecker(newFakeEnv())
	c.RequireComponent("a/a.php", "First").
		RequireComponent("b/b.php").
		RequireComponent("a/a.php", "Alpha")
	c.Evaluate()

	var items []string
	for _, n := range c.Failures() {
		items = append(items, n.Item)
	}
	want := []string{"Alpha", "b/b.php"}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("notice items = %v, want %v", items, want)
	}
}

// ── settings ─────────────────────────────────────────────────────────────────

// TestSettingMatch verifies string comparison after PHP-style stringification.
func TestSettingMatch(t *testing.T) {
	c := newChecker(newFakeEnv())
	c.RequireSetting("allow_url_fopen", true).RequireSetting("memory_limit", "256M")
	if !c.Evaluate() {
		t.Errorf("Evaluate() = false, want true; notices = %v", c.Notices())
	}
}

// TestSettingMismatch verifies that a different value adds a setting notice
// naming the setting and expected value.
func TestSettingMismatch(t *testing.T) {
	c := newChecker(newFakeEnv())
	c.RequireSetting("memory_limit", "512M")
	if c.Evaluate() {
		t.Fatal("Evaluate() = true, want false")
	}
	got := c.Failures()
	if len(got) != 1 || got[0].Item != "memory_limit" || got[0].Expected != "512M" {
		t.Errorf("Failures() = %+v, want memory_limit=512M", got)
	}
}

// TestStringify verifies PHP strval semantics for common scalar types.
func TestStringify(t *testing.T) {
	cases := map[string]struct {
		in   any
		want string
	}{
		"true":   {true, "1"},
		"false":  {false, ""},
		"nil":    {nil, ""},
		"int":    {128, "128"},
		"string": {"On", "On"},
	}
	for name, tc := range cases {
		if got := Stringify(tc.in); got != tc.want {
			t.Errorf("%s: Stringify(%v) = %q, want %q", name, tc.in, got, tc.want)
		}
	}
}

// ── evaluation semantics ─────────────────────────────────────────────────────

// TestEvaluateIdempotent verifies that repeated evaluation without state changes
// yields the same result and notices.
func TestEvaluateIdempotent(t *testing.T) {
	c := newChecker(newFakeEnv())
	c.RequireComponent("missing/missing.php").RequireExtension("imagick")

	first := c.Evaluate()
	firstNotices := c.Notices()
	second := c.Evaluate()
	secondNotices := c.Notices()

	if first != second {
		t.Errorf("Evaluate() = %v then %v, want identical", first, second)
	}
	if !reflect.DeepEqual(firstNotices, secondNotices) {
		t.Errorf("Notices() = %v then %v, want identical", firstNotices, secondNotices)
	}
}

// TestEvaluateOrder verifies the fixed category order and registration order
// within a category.
func TestEvaluateOrder(t *testing.T) {
	env := newFakeEnv()
	env.php = "5.0"
	env.wp = "3.9"
	c := newChecker(env)
	c.RequireSetting("memory_limit", "1G").
		RequireExtension("soap").
		RequireComponent("z/z.php").
		RequireComponent("a/a.php").
		RequireExtension("gmp")

	c.Evaluate()

	var got []string
	for _, n := range c.Failures() {
		got = append(got, string(n.Category)+":"+n.Item)
	}
	want := []string{
		"platform:PHP",
		"host:WordPress",
		"component:z/z.php",
		"component:a/a.php",
		"extension:soap",
		"extension:gmp",
		"setting:memory_limit",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("notice order = %v, want %v", got, want)
	}
}

// TestNoticesEmptyBeforeEvaluate verifies that nothing is reported before the
// first evaluation.
func TestNoticesEmptyBeforeEvaluate(t *testing.T) {
	c := newChecker(newFakeEnv())
	c.RequireExtension("imagick")
	if got := c.Notices(); len(got) != 0 {
		t.Errorf("Notices() before Evaluate = %v, want []", got)
	}
}

// TestNoticesReplacedOnEvaluate verifies that notices reflect only the most
// recent evaluation.
func TestNoticesReplacedOnEvaluate(t *testing.T) {
	env := newFakeEnv()
	c := newChecker(env)
	c.RequireExtension("imagick")
	c.Evaluate()

	env.extensions["imagick"] = true
	if !c.Evaluate() {
		t.Fatalf("Evaluate() = false after extension loaded; notices = %v", c.Notices())
	}
	if got := c.Notices(); len(got) != 0 {
		t.Errorf("Notices() = %v, want []", got)
	}
}

// TestRequirementsListsRegistrationOrder verifies the reporting view.
func TestRequirementsListsRegistrationOrder(t *testing.T) {
	c := newChecker(newFakeEnv())
	c.RequireSetting("memory_limit", "256M").RequireComponent("woocommerce/woocommerce.php", "WooCommerce")

	reqs := c.Requirements()
	if len(reqs) != 4 {
		t.Fatalf("Requirements() len = %d, want 4", len(reqs))
	}
	if reqs[2].Category != CategoryComponent || reqs[3].Category != CategorySetting {
		t.Errorf("Requirements() order = %+v", reqs)
	}
}

// ── DisableAndNotify ─────────────────────────────────────────────────────────

// TestDisableAndNotify verifies that the plugin file is deactivated and the
// last notices are rendered.
func TestDisableAndNotify(t *testing.T) {
	c := newChecker(newFakeEnv())
	c.RequireExtension("imagick")
	c.Evaluate()

	h := &fakeHost{}
	if err := c.DisableAndNotify(h); err != nil {
		t.Fatalf("DisableAndNotify() error = %v", err)
	}
	if len(h.deactivated) != 1 || h.deactivated[0] != "file" {
		t.Errorf("deactivated = %v, want [file]", h.deactivated)
	}
	if len(h.rendered) != 1 {
		t.Errorf("rendered %d notices, want 1", len(h.rendered))
	}
}

// TestDisableAndNotifyWithoutFile verifies that no deactivation is attempted
// when the subject has no file reference.
func TestDisableAndNotifyWithoutFile(t *testing.T) {
	c := New(Subject{Name: "name"}, newFakeEnv(), alwaysValidPHPVersion, alwaysValidWPVersion)
	h := &fakeHost{}
	if err := c.DisableAndNotify(h); err != nil {
		t.Fatalf("DisableAndNotify() error = %v", err)
	}
	if len(h.deactivated) != 0 {
		t.Errorf("deactivated = %v, want none", h.deactivated)
	}
}

// TestDisableAndNotifyDeactivateError verifies that a deactivation failure is
// returned while notices are still rendered.
func TestDisableAndNotifyDeactivateError(t *testing.T) {
	c := newChecker(newFakeEnv())
	c.RequireExtension("imagick")
	c.Evaluate()

	boom := errors.New("boom")
	h := &fakeHost{failWith: boom}
	err := c.DisableAndNotify(h)
	if !errors.Is(err, boom) {
		t.Errorf("DisableAndNotify() error = %v, want %v", err, boom)
	}
	if len(h.rendered) != 1 {
		t.Errorf("rendered %d notices, want 1", len(h.rendered))
	}
}
