// Package manifest declares a plugin's requirements in a YAML or JSON file so
// they can be registered on a requirements.Checker without code.
package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kb-labs/reqcheck/internal/requirements"
	"github.com/kb-labs/reqcheck/internal/version"
)

// Validation errors.
var (
	ErrMissingPluginFile = errors.New("manifest: plugin.file is required")
	ErrInvalidVersion    = errors.New("manifest: invalid minimum version")
	ErrEmptyID           = errors.New("manifest: requirement id is empty")
)

// noMinimum is used when a minimum version is omitted; every version satisfies it.
const noMinimum = "0"

// Plugin is the gated plugin's metadata record.
type Plugin struct {
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	File        string `yaml:"file" json:"file"`
	TextDomain  string `yaml:"textDomain,omitempty" json:"textDomain,omitempty"`
	Dir         string `yaml:"dir,omitempty" json:"dir,omitempty"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`
	ProductID   string `yaml:"productId,omitempty" json:"productId,omitempty"`
	ReleaseDate string `yaml:"releaseDate,omitempty" json:"releaseDate,omitempty"`
}

// Named is a plugin or extension requirement with an optional display name.
type Named struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// Setting is a php.ini directive that must hold Value.
type Setting struct {
	Name  string `yaml:"name" json:"name"`
	Value any    `yaml:"value" json:"value"`
}

// Requires lists everything the plugin needs, in evaluation order per kind.
type Requires struct {
	PHP        string    `yaml:"php,omitempty" json:"php,omitempty"`
	WordPress  string    `yaml:"wordpress,omitempty" json:"wordpress,omitempty"`
	Plugins    []Named   `yaml:"plugins,omitempty" json:"plugins,omitempty"`
	Extensions []Named   `yaml:"extensions,omitempty" json:"extensions,omitempty"`
	Settings   []Setting `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// Manifest is the root of a requirements file.
type Manifest struct {
	Plugin   Plugin   `yaml:"plugin" json:"plugin"`
	Requires Requires `yaml:"requires" json:"requires"`
}

// Validate checks the fields the checker cannot recover from.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Plugin.File) == "" {
		return ErrMissingPluginFile
	}
	for field, v := range map[string]string{"php": m.Requires.PHP, "wordpress": m.Requires.WordPress} {
		if v == "" {
			continue
		}
		if _, err := version.Parse(v); err != nil {
			return fmt.Errorf("%w: requires.%s %q", ErrInvalidVersion, field, v)
		}
	}
	for _, n := range append(append([]Named{}, m.Requires.Plugins...), m.Requires.Extensions...) {
		if strings.TrimSpace(n.ID) == "" {
			return ErrEmptyID
		}
	}
	for _, s := range m.Requires.Settings {
		if strings.TrimSpace(s.Name) == "" {
			return ErrEmptyID
		}
	}
	return nil
}

// Subject returns the requirements subject for the plugin.
func (m *Manifest) Subject() requirements.Subject {
	return requirements.Subject{
		Name:       m.Plugin.Name,
		TextDomain: m.Plugin.TextDomain,
		File:       m.Plugin.File,
	}
}

// MinPHP returns the declared PHP minimum, or one every version satisfies.
func (m *Manifest) MinPHP() string { return orNoMinimum(m.Requires.PHP) }

// MinWordPress returns the declared WordPress minimum.
func (m *Manifest) MinWordPress() string { return orNoMinimum(m.Requires.WordPress) }

// NewChecker builds a checker for env with every requirement registered.
func (m *Manifest) NewChecker(env requirements.Environment, opts ...requirements.Option) *requirements.Checker {
	c := requirements.New(m.Subject(), env, m.MinPHP(), m.MinWordPress(), opts...)
	m.Apply(c)
	return c
}

// Apply registers the manifest's plugins, extensions and settings on c in
// file order.
func (m *Manifest) Apply(c *requirements.Checker) *requirements.Checker {
	for _, p := range m.Requires.Plugins {
		c.RequireComponent(p.ID, p.Name)
	}
	for _, e := range m.Requires.Extensions {
		c.RequireExtension(e.ID, e.Name)
	}
	for _, s := range m.Requires.Settings {
		c.RequireSetting(s.Name, s.Value)
	}
	return c
}

func orNoMinimum(v string) string {
	if strings.TrimSpace(v) == "" {
		return noMinimum
	}
	return v
}
