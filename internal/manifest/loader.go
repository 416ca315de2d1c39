package manifest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed requirements.yaml
var embeddedManifest []byte

// LoadOptions controls where the manifest is loaded from.
// Zero value loads from embedded YAML only.
type LoadOptions struct {
	// RemoteURL, if set, is tried first. Falls back to LocalOverride or embedded.
	RemoteURL string
	// LocalOverride, if set, is tried after RemoteURL failure.
	LocalOverride string
	// Timeout for remote fetch. Default 5s.
	Timeout time.Duration
}

// Load returns the manifest using the fallback chain:
//
//	Remote URL → Local override file → Embedded YAML
//
// The result is validated before it is returned.
func Load(opts LoadOptions) (*Manifest, error) {
	if opts.RemoteURL != "" {
		m, err := loadRemote(opts.RemoteURL, opts.Timeout)
		if err == nil {
			return m, nil
		}
		// non-fatal: fall through to next source
	}

	if opts.LocalOverride != "" {
		data, readErr := os.ReadFile(opts.LocalOverride)
		if readErr == nil {
			// File exists: parse errors are always fatal.
			m, err := Parse(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", opts.LocalOverride, err)
			}
			return m, nil
		}
		if !os.IsNotExist(readErr) {
			return nil, fmt.Errorf("read override %s: %w", opts.LocalOverride, readErr)
		}
		// File not found, fall through to embedded.
	}

	return Parse(embeddedManifest)
}

// LoadDefault loads the embedded manifest with no remote/local overrides.
func LoadDefault() (*Manifest, error) {
	return Load(LoadOptions{})
}

// Parse decodes YAML or JSON (a YAML subset) and validates the result.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Write stores m at path as JSON for .json files and YAML otherwise.
func Write(path string, m *Manifest) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(m, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(m)
	}
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create manifest dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func loadRemote(url string, timeout time.Duration) (*Manifest, error) {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
