package requirements

import (
	"path"
	"strings"
)

// NameResolver derives a display name for a plugin from its file reference.
type NameResolver func(file string) string

// Subject identifies the plugin whose activation is gated by the checker.
type Subject struct {
	// Name is the display name used in notices. When empty, Resolve is used.
	Name string
	// TextDomain is the locale key the host uses to translate notices.
	TextDomain string
	// File is the plugin file relative to the plugins directory,
	// e.g. "flexible-shipping/flexible-shipping.php".
	File string
	// Resolve derives the name from File when Name is empty.
	// Defaults to FileNameResolver.
	Resolve NameResolver
}

// DisplayName returns the explicit name, or one derived from the plugin file.
func (s Subject) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	resolve := s.Resolve
	if resolve == nil {
		resolve = FileNameResolver
	}
	return resolve(s.File)
}

// FileNameResolver uses the plugin's directory name, or the file name without
// extension for single-file plugins.
func FileNameResolver(file string) string {
	file = strings.TrimSpace(strings.ReplaceAll(file, "\\", "/"))
	if file == "" {
		return ""
	}
	if dir := path.Dir(file); dir != "." && dir != "/" {
		return path.Base(dir)
	}
	base := path.Base(file)
	return strings.TrimSuffix(base, path.Ext(base))
}
