// Package requirements gates a plugin on the host environment it runs in.
//
// A Checker accumulates declared requirements (minimum PHP and WordPress
// versions, sibling plugins, PHP extensions and php.ini settings) and evaluates
// them on demand against an Environment. Every unmet requirement becomes a
// Notice; nothing short-circuits, so a single evaluation reports everything
// the site administrator needs to fix.
//
// Registration must complete before Evaluate is called. A Checker is not safe
// for concurrent use.
package requirements

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/kb-labs/reqcheck/internal/version"
)

// Environment answers the checker's queries about the host.
type Environment interface {
	// PlatformVersion returns the running PHP version.
	PlatformVersion() string
	// HostVersion returns the running WordPress version.
	HostVersion() string
	// IsComponentActive reports whether the plugin file id is active on the
	// site or, on multisite, network-wide.
	IsComponentActive(id string) bool
	// IsExtensionLoaded reports whether the PHP extension id is loaded.
	IsExtensionLoaded(id string) bool
	// IsSettingEqual reports whether the php.ini setting name equals expected.
	IsSettingEqual(name, expected string) bool
}

// Host performs the side effects of a failed gate.
type Host interface {
	// Deactivate turns the plugin off on the site.
	Deactivate(pluginFile string) error
	// RenderNotices surfaces the notices to the site administrator.
	RenderNotices(notices []Notice) error
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger used for per-check diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Checker) {
		if l != nil {
			c.log = l
		}
	}
}

// Checker evaluates a plugin's requirements against an Environment.
type Checker struct {
	env     Environment
	log     logrus.FieldLogger
	subject Subject

	minPlatformVersion string
	minHostVersion     string

	components orderedMap
	extensions orderedMap
	settings   orderedMap

	notices []Notice
}

// New creates a Checker for subject with the given minimum PHP and WordPress
// versions.
func New(subject Subject, env Environment, minPlatformVersion, minHostVersion string, opts ...Option) *Checker {
	c := &Checker{
		env:                env,
		log:                discardLogger(),
		subject:            subject,
		minPlatformVersion: minPlatformVersion,
		minHostVersion:     minHostVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subject returns the plugin being gated.
func (c *Checker) Subject() Subject { return c.subject }

// TextDomain returns the subject's locale key.
func (c *Checker) TextDomain() string { return c.subject.TextDomain }

// SetMinPlatformVersion overwrites the minimum PHP version.
func (c *Checker) SetMinPlatformVersion(v string) *Checker {
	c.minPlatformVersion = v
	return c
}

// SetMinHostVersion overwrites the minimum WordPress version.
func (c *Checker) SetMinHostVersion(v string) *Checker {
	c.minHostVersion = v
	return c
}

// RequireComponent registers a plugin that must be active. The optional
// display name is used in notices; it defaults to id.
func (c *Checker) RequireComponent(id string, displayName ...string) *Checker {
	c.components.set(id, nameOr(id, displayName))
	return c
}

// RequireExtension registers a PHP extension that must be loaded.
func (c *Checker) RequireExtension(id string, displayName ...string) *Checker {
	c.extensions.set(id, nameOr(id, displayName))
	return c
}

// RequireSetting registers a php.ini setting that must equal expected once
// both sides are stringified the way PHP's strval does.
func (c *Checker) RequireSetting(name string, expected any) *Checker {
	c.settings.set(name, Stringify(expected))
	return c
}

// Evaluate runs every check and stores the resulting notices. It returns true
// when all requirements are met.
func (c *Checker) Evaluate() bool {
	name := c.subject.DisplayName()
	var notices []Notice

	if !c.atLeast("platform", c.env.PlatformVersion(), c.minPlatformVersion) {
		notices = append(notices, Notice{Category: CategoryPlatform, Subject: name, ID: "php", Item: "PHP", Expected: c.minPlatformVersion})
	}
	if !c.atLeast("host", c.env.HostVersion(), c.minHostVersion) {
		notices = append(notices, Notice{Category: CategoryHost, Subject: name, ID: "wordpress", Item: "WordPress", Expected: c.minHostVersion})
	}
	c.components.each(func(id, display string) {
		if !c.env.IsComponentActive(id) {
			c.log.Debugf("plugin %s is not active", id)
			notices = append(notices, Notice{Category: CategoryComponent, Subject: name, ID: id, Item: display})
		}
	})
	c.extensions.each(func(id, display string) {
		if !c.env.IsExtensionLoaded(id) {
			c.log.Debugf("extension %s is not loaded", id)
			notices = append(notices, Notice{Category: CategoryExtension, Subject: name, ID: id, Item: display})
		}
	})
	c.settings.each(func(setting, expected string) {
		if !c.env.IsSettingEqual(setting, expected) {
			c.log.Debugf("setting %s is not %q", setting, expected)
			notices = append(notices, Notice{Category: CategorySetting, Subject: name, ID: setting, Item: setting, Expected: expected})
		}
	})

	c.notices = notices
	return len(notices) == 0
}

// Notices returns the plain-text notices from the last Evaluate.
func (c *Checker) Notices() []string {
	out := make([]string, len(c.notices))
	for i, n := range c.notices {
		out[i] = n.String()
	}
	return out
}

// Failures returns the structured notices from the last Evaluate.
func (c *Checker) Failures() []Notice {
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

// Requirements lists every registered requirement in evaluation order.
func (c *Checker) Requirements() []Requirement {
	reqs := []Requirement{
		{Category: CategoryPlatform, ID: "php", Name: "PHP", Expected: c.minPlatformVersion},
		{Category: CategoryHost, ID: "wordpress", Name: "WordPress", Expected: c.minHostVersion},
	}
	c.components.each(func(id, display string) {
		reqs = append(reqs, Requirement{Category: CategoryComponent, ID: id, Name: display})
	})
	c.extensions.each(func(id, display string) {
		reqs = append(reqs, Requirement{Category: CategoryExtension, ID: id, Name: display})
	})
	c.settings.each(func(name, expected string) {
		reqs = append(reqs, Requirement{Category: CategorySetting, ID: name, Name: name, Expected: expected})
	})
	return reqs
}

// DisableAndNotify deactivates the plugin and hands the last notices to the
// host. The plugin is only deactivated when the subject has a file reference.
func (c *Checker) DisableAndNotify(h Host) error {
	var errs []error
	if c.subject.File != "" {
		if err := h.Deactivate(c.subject.File); err != nil {
			errs = append(errs, fmt.Errorf("deactivate %s: %w", c.subject.File, err))
		}
	}
	if err := h.RenderNotices(c.Failures()); err != nil {
		errs = append(errs, fmt.Errorf("render notices: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Checker) atLeast(kind, current, minimum string) bool {
	ok, err := version.AtLeast(current, minimum)
	if err != nil {
		c.log.Warnf("%s version check failed closed (current %q, minimum %q): %v", kind, current, minimum, err)
		return false
	}
	return ok
}

// Requirement is one registered requirement, used for reporting.
type Requirement struct {
	Category Category `json:"category"`
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Expected string   `json:"expected,omitempty"`
}

// Stringify converts v the way PHP's strval does for scalar ini values:
// true is "1", false and nil are empty.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		if t {
			return "1"
		}
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func nameOr(id string, names []string) string {
	if len(names) > 0 && names[0] != "" {
		return names[0]
	}
	return id
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// orderedMap keeps insertion order; re-setting a key keeps its position.
type orderedMap struct {
	keys   []string
	values map[string]string
}

func (m *orderedMap) set(k, v string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

func (m *orderedMap) each(fn func(k, v string)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}
