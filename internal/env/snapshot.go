package env

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Snapshot serves both Runtime and Site from a JSON document:
//
//	{
//	  "runtime": {"version": "8.2.12", "extensions": ["curl"], "settings": {"memory_limit": "256M"}},
//	  "site": {"version": "6.4.2", "multisite": true,
//	           "active_plugins": ["woocommerce/woocommerce.php"],
//	           "active_sitewide_plugins": {"akismet/akismet.php": 1700000000}}
//	}
//
// Deactivate rewrites the file in place when the snapshot was loaded from disk.
type Snapshot struct {
	mu   sync.RWMutex
	path string
	data []byte
}

// LoadSnapshot reads and validates a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	s, err := ParseSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.path = path
	return s, nil
}

// ParseSnapshot validates data and returns an in-memory snapshot.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse snapshot: invalid JSON")
	}
	return &Snapshot{data: data}, nil
}

// Bytes returns the current document.
func (s *Snapshot) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

func (s *Snapshot) get(path string) gjson.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gjson.GetBytes(s.data, path)
}

func (s *Snapshot) Version() (string, error) {
	return s.required("runtime.version")
}

func (s *Snapshot) ExtensionLoaded(name string) (bool, error) {
	found := false
	s.get("runtime.extensions").ForEach(func(_, v gjson.Result) bool {
		if strings.EqualFold(v.String(), name) {
			found = true
			return false
		}
		return true
	})
	return found, nil
}

func (s *Snapshot) Setting(name string) (string, bool, error) {
	r := s.get("runtime.settings." + escapePath(name))
	if !r.Exists() {
		return "", false, nil
	}
	switch r.Type {
	case gjson.True:
		return "1", true, nil
	case gjson.False, gjson.Null:
		return "", true, nil
	default:
		return r.String(), true, nil
	}
}

// SiteVersion returns site.version; Snapshot cannot expose two Version
// methods, so siteView adapts it to Site.
func (s *Snapshot) SiteVersion() (string, error) {
	return s.required("site.version")
}

func (s *Snapshot) ActivePlugins() ([]string, error) {
	var out []string
	s.get("site.active_plugins").ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.String())
		return true
	})
	return out, nil
}

func (s *Snapshot) NetworkActivePlugins() ([]string, error) {
	var out []string
	network := s.get("site.active_sitewide_plugins")
	network.ForEach(func(k, v gjson.Result) bool {
		if network.IsObject() {
			out = append(out, k.String())
		}
		if v.Type == gjson.String {
			out = append(out, v.String())
		}
		return true
	})
	return out, nil
}

func (s *Snapshot) IsMultisite() (bool, error) {
	return s.get("site.multisite").Bool(), nil
}

// Deactivate drops pluginFile from active_plugins and active_sitewide_plugins
// and persists the result.
func (s *Snapshot) Deactivate(pluginFile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.data
	var err error

	if data, err = deleteValue(data, "site.active_plugins", pluginFile); err != nil {
		return fmt.Errorf("remove active plugin: %w", err)
	}

	network := gjson.GetBytes(data, "site.active_sitewide_plugins")
	if network.IsArray() {
		if data, err = deleteValue(data, "site.active_sitewide_plugins", pluginFile); err != nil {
			return fmt.Errorf("remove network plugin: %w", err)
		}
	} else if key := "site.active_sitewide_plugins." + escapePath(pluginFile); gjson.GetBytes(data, key).Exists() {
		if data, err = sjson.DeleteBytes(data, key); err != nil {
			return fmt.Errorf("remove network plugin: %w", err)
		}
	}

	if s.path != "" {
		if err := os.WriteFile(s.path, data, 0o644); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}
	s.data = data
	return nil
}

// deleteValue removes every element equal to value from the array at path,
// back to front so earlier indexes stay valid.
func deleteValue(data []byte, path, value string) ([]byte, error) {
	items := gjson.GetBytes(data, path).Array()
	var err error
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].String() != value {
			continue
		}
		if data, err = sjson.DeleteBytes(data, fmt.Sprintf("%s.%d", path, i)); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// SiteView returns s as a Site.
func (s *Snapshot) SiteView() Site { return siteView{s} }

type siteView struct{ *Snapshot }

func (v siteView) Version() (string, error) { return v.SiteVersion() }

func (s *Snapshot) required(path string) (string, error) {
	r := s.get(path)
	if !r.Exists() || r.String() == "" {
		return "", fmt.Errorf("snapshot: %s is not set", path)
	}
	return r.String(), nil
}

// escapePath escapes gjson/sjson path metacharacters in a single key.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
