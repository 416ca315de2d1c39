package env

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	_ "github.com/mattn/go-sqlite3"
)

const defaultTablePrefix = "wp_"

var wpVersionPattern = regexp.MustCompile(`\$wp_version\s*=\s*['"]([^'"]+)['"]`)

// WPDatabase implements Site for a WordPress install backed by SQLite
// (the SQLite Database Integration drop-in keeps the standard schema).
type WPDatabase struct {
	db     *sql.DB
	root   string
	prefix string
}

// OpenWPDatabase opens the site's database. dbPath defaults to
// <root>/wp-content/database/.ht.sqlite and prefix to "wp_".
func OpenWPDatabase(root, dbPath, prefix string) (*WPDatabase, error) {
	if dbPath == "" {
		dbPath = filepath.Join(root, "wp-content", "database", ".ht.sqlite")
	}
	if prefix == "" {
		prefix = defaultTablePrefix
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("wordpress database: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open wordpress database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open wordpress database: %w", err)
	}
	return &WPDatabase{db: db, root: root, prefix: prefix}, nil
}

// Close releases the database handle.
func (w *WPDatabase) Close() error {
	return w.db.Close()
}

// Version reads $wp_version from wp-includes/version.php.
func (w *WPDatabase) Version() (string, error) {
	data, err := os.ReadFile(filepath.Join(w.root, "wp-includes", "version.php"))
	if err != nil {
		return "", fmt.Errorf("read version.php: %w", err)
	}
	m := wpVersionPattern.FindSubmatch(data)
	if m == nil {
		return "", fmt.Errorf("version.php: $wp_version not found")
	}
	return string(m[1]), nil
}

func (w *WPDatabase) ActivePlugins() ([]string, error) {
	arr, err := w.option("active_plugins")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.Value.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (w *WPDatabase) NetworkActivePlugins() ([]string, error) {
	arr, err := w.siteOption("active_sitewide_plugins")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if k, ok := e.Key.(string); ok {
			out = append(out, k)
		}
		if v, ok := e.Value.(string); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// IsMultisite reports whether the network tables exist.
func (w *WPDatabase) IsMultisite() (bool, error) {
	var name string
	err := w.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, w.prefix+"sitemeta",
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("detect multisite: %w", err)
	}
	return true, nil
}

// Deactivate removes pluginFile from active_plugins and, on multisite, from
// active_sitewide_plugins in one transaction.
func (w *WPDatabase) Deactivate(pluginFile string) error {
	multi, err := w.IsMultisite()
	if err != nil {
		return err
	}
	active, err := w.option("active_plugins")
	if err != nil {
		return err
	}
	var network phpArray
	if multi {
		if network, err = w.siteOption("active_sitewide_plugins"); err != nil {
			return err
		}
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := w.store(tx, w.prefix+"options", "option_value", "option_name", "active_plugins", reindex(without(active, pluginFile, false))); err != nil {
		return err
	}
	if multi {
		if err := w.store(tx, w.prefix+"sitemeta", "meta_value", "meta_key", "active_sitewide_plugins", without(network, pluginFile, true)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (w *WPDatabase) option(name string) (phpArray, error) {
	return w.array(fmt.Sprintf(`SELECT option_value FROM %soptions WHERE option_name = ?`, w.prefix), name)
}

func (w *WPDatabase) siteOption(name string) (phpArray, error) {
	return w.array(fmt.Sprintf(`SELECT meta_value FROM %ssitemeta WHERE meta_key = ? ORDER BY meta_id LIMIT 1`, w.prefix), name)
}

// array loads a serialized array value; a missing row is an empty array.
func (w *WPDatabase) array(query, name string) (phpArray, error) {
	var raw string
	err := w.db.QueryRow(query, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	v, err := unserialize(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	arr, ok := v.(phpArray)
	if !ok {
		return nil, fmt.Errorf("decode %s: not an array", name)
	}
	return arr, nil
}

func (w *WPDatabase) store(tx *sql.Tx, table, valueCol, keyCol, key string, arr phpArray) error {
	raw, err := serialize(arr)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	q := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s = ?`, table, valueCol, keyCol)
	if _, err := tx.Exec(q, raw, key); err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}
	return nil
}

// without drops entries whose value (or also key, when byKey) equals file.
func without(arr phpArray, file string, byKey bool) phpArray {
	out := make(phpArray, 0, len(arr))
	for _, e := range arr {
		if v, ok := e.Value.(string); ok && v == file {
			continue
		}
		if k, ok := e.Key.(string); ok && byKey && k == file {
			continue
		}
		out = append(out, e)
	}
	return out
}

// reindex renumbers list keys from zero, as array_values() does.
func reindex(arr phpArray) phpArray {
	for i := range arr {
		arr[i].Key = int64(i)
	}
	return arr
}
