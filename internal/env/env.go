// Package env answers requirement queries about a WordPress host.
//
// An Env composes a Runtime (the PHP interpreter: version, loaded extensions,
// php.ini values) and a Site (the WordPress install: version and active
// plugins). Use Detect to build one from CLI options, the same way the rest of
// the tool picks its sources.
package env

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Runtime describes the PHP interpreter the plugin runs under.
type Runtime interface {
	// Version returns PHP_VERSION.
	Version() (string, error)
	// ExtensionLoaded reports whether the named extension is loaded.
	// Names are matched case-insensitively, like extension_loaded().
	ExtensionLoaded(name string) (bool, error)
	// Setting returns the php.ini value and whether the directive exists.
	Setting(name string) (string, bool, error)
}

// Site describes the WordPress install the plugin is activated on.
type Site interface {
	// Version returns $wp_version.
	Version() (string, error)
	// ActivePlugins returns the active_plugins option.
	ActivePlugins() ([]string, error)
	// NetworkActivePlugins returns the plugin files in the
	// active_sitewide_plugins site option, whether stored as keys (the
	// WordPress format, file => timestamp) or as list values.
	NetworkActivePlugins() ([]string, error)
	// IsMultisite reports whether the install is a network.
	IsMultisite() (bool, error)
	// Deactivate removes the plugin file from both active lists.
	Deactivate(pluginFile string) error
}

// Env implements requirements.Environment on top of a Runtime and a Site.
// Source errors are logged and the affected check fails.
type Env struct {
	Runtime Runtime
	Site    Site
	Log     logrus.FieldLogger
}

// New returns an Env with a discarding logger when log is nil.
func New(rt Runtime, site Site, log logrus.FieldLogger) *Env {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Env{Runtime: rt, Site: site, Log: log}
}

// PlatformVersion returns the PHP version, or "" when it cannot be read.
func (e *Env) PlatformVersion() string {
	v, err := e.Runtime.Version()
	if err != nil {
		e.Log.Warnf("read PHP version: %v", err)
		return ""
	}
	return v
}

// HostVersion returns the WordPress version, or "" when it cannot be read.
func (e *Env) HostVersion() string {
	v, err := e.Site.Version()
	if err != nil {
		e.Log.Warnf("read WordPress version: %v", err)
		return ""
	}
	return v
}

// IsComponentActive checks active_plugins and, on multisite, the network list.
func (e *Env) IsComponentActive(id string) bool {
	active, err := e.Site.ActivePlugins()
	if err != nil {
		e.Log.Warnf("read active plugins: %v", err)
		return false
	}
	for _, p := range active {
		if p == id {
			return true
		}
	}

	multi, err := e.Site.IsMultisite()
	if err != nil {
		e.Log.Warnf("detect multisite: %v", err)
		return false
	}
	if !multi {
		return false
	}
	network, err := e.Site.NetworkActivePlugins()
	if err != nil {
		e.Log.Warnf("read network active plugins: %v", err)
		return false
	}
	for _, p := range network {
		if p == id {
			return true
		}
	}
	return false
}

// IsExtensionLoaded asks the runtime.
func (e *Env) IsExtensionLoaded(id string) bool {
	ok, err := e.Runtime.ExtensionLoaded(id)
	if err != nil {
		e.Log.Warnf("check extension %s: %v", id, err)
		return false
	}
	return ok
}

// IsSettingEqual compares the live php.ini value with expected. A missing
// directive never matches, mirroring ini_get() returning false.
func (e *Env) IsSettingEqual(name, expected string) bool {
	v, ok, err := e.Runtime.Setting(name)
	if err != nil {
		e.Log.Warnf("read setting %s: %v", name, err)
		return false
	}
	return ok && v == expected
}

// Deactivate forwards to the site.
func (e *Env) Deactivate(pluginFile string) error {
	return e.Site.Deactivate(pluginFile)
}

// Options selects the sources Detect uses.
type Options struct {
	// SnapshotPath, if set, serves both runtime and site from a JSON snapshot.
	SnapshotPath string
	// SiteRoot is the WordPress root (containing wp-includes/version.php).
	SiteRoot string
	// Database is the WordPress SQLite database. Defaults to
	// <SiteRoot>/wp-content/database/.ht.sqlite.
	Database string
	// TablePrefix defaults to "wp_".
	TablePrefix string
	// PHPBinary overrides the php executable looked up on PATH.
	PHPBinary string
}

// Closer is returned by Detect so callers can release database handles.
type Closer func() error

// Detect builds an Env from opts: a snapshot when one is given, otherwise the
// php binary plus the WordPress database under SiteRoot.
func Detect(opts Options, log logrus.FieldLogger) (*Env, Closer, error) {
	if opts.SnapshotPath != "" {
		snap, err := LoadSnapshot(opts.SnapshotPath)
		if err != nil {
			return nil, nil, err
		}
		return New(snap, snap.SiteView(), log), func() error { return nil }, nil
	}

	if strings.TrimSpace(opts.SiteRoot) == "" {
		return nil, nil, fmt.Errorf("no environment source: use --snapshot or --site")
	}

	php, err := LookupPHP(opts.PHPBinary)
	if err != nil {
		return nil, nil, err
	}
	db, err := OpenWPDatabase(opts.SiteRoot, opts.Database, opts.TablePrefix)
	if err != nil {
		return nil, nil, err
	}
	return New(php, db, log), db.Close, nil
}
