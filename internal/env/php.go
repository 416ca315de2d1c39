package env

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// iniMissingExit is the exit status the ini probe uses when ini_get() returns false.
const iniMissingExit = 3

const iniProbe = `$v = ini_get($argv[1]); if ($v === false) { exit(3); } echo $v;`

// PHP implements Runtime by running the php CLI binary.
type PHP struct {
	Binary string

	// run executes the binary; replaced in tests.
	run func(args ...string) ([]byte, error)

	once    sync.Once
	modules map[string]bool
	modErr  error
}

// NewPHP returns a runtime backed by binary.
func NewPHP(binary string) *PHP {
	p := &PHP{Binary: binary}
	p.run = p.exec
	return p
}

// LookupPHP finds binary (default "php") on PATH.
func LookupPHP(binary string) (*PHP, error) {
	if binary == "" {
		binary = "php"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("php binary %q not found: %w", binary, err)
	}
	return NewPHP(path), nil
}

func (p *PHP) Version() (string, error) {
	out, err := p.run("-r", "echo PHP_VERSION;")
	if err != nil {
		return "", fmt.Errorf("php version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (p *PHP) ExtensionLoaded(name string) (bool, error) {
	p.once.Do(p.loadModules)
	if p.modErr != nil {
		return false, p.modErr
	}
	return p.modules[strings.ToLower(name)], nil
}

func (p *PHP) Setting(name string) (string, bool, error) {
	out, err := p.run("-r", iniProbe, "--", name)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == iniMissingExit {
			return "", false, nil
		}
		return "", false, fmt.Errorf("php ini_get %s: %w", name, err)
	}
	return string(out), true, nil
}

// loadModules parses `php -m`, which lists one module per line under
// [PHP Modules] and [Zend Modules] headers.
func (p *PHP) loadModules() {
	out, err := p.run("-m")
	if err != nil {
		p.modErr = fmt.Errorf("php -m: %w", err)
		return
	}
	p.modules = parseModules(out)
}

func parseModules(out []byte) map[string]bool {
	mods := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}
		mods[strings.ToLower(line)] = true
	}
	return mods
}

func (p *PHP) exec(args ...string) ([]byte, error) {
	cmd := exec.Command(p.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}
