// Package wizard implements the interactive Bubble Tea TUI behind
// `reqcheck init`. The wizard walks through three stages: plugin details and
// minimum versions, required plugins and PHP extensions, and a final
// confirmation screen. When Options.Yes is true the TUI is skipped entirely
// and Run returns the base manifest with the output path resolved.
package wizard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kb-labs/reqcheck/internal/manifest"
	"github.com/kb-labs/reqcheck/internal/version"
)

// DefaultOut is where the manifest is written when no path is given.
const DefaultOut = "requirements.yaml"

// Options controls wizard behaviour.
type Options struct {
	// Out pre-fills the output path input.
	Out string
	// Yes skips the TUI and returns defaults immediately.
	Yes bool
}

// Result is the manifest the user built and where to write it.
type Result struct {
	Manifest *manifest.Manifest
	Path     string
}

// Run shows the interactive wizard seeded from base.
// If opts.Yes is true, returns base without launching TUI.
func Run(base *manifest.Manifest, opts Options) (*Result, error) {
	if opts.Yes {
		return defaultResult(base, opts), nil
	}

	model := newModel(base, opts)
	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	result := final.(wizardModel)
	if result.cancelled {
		return nil, fmt.Errorf("init cancelled")
	}
	return result.toResult(), nil
}

// ── styles ────────────────────────────────────────────────────────────────────

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	focusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle     = dimStyle
)

// ── catalogue ────────────────────────────────────────────────────────────────

// commonPlugins and commonExtensions are offered as toggles in addition to
// whatever the base manifest already requires.
var commonPlugins = []manifest.Named{
	{ID: "woocommerce/woocommerce.php", Name: "WooCommerce"},
	{ID: "advanced-custom-fields/acf.php", Name: "Advanced Custom Fields"},
	{ID: "elementor/elementor.php", Name: "Elementor"},
}

var commonExtensions = []manifest.Named{
	{ID: "curl"}, {ID: "json"}, {ID: "mbstring"}, {ID: "openssl"},
	{ID: "intl"}, {ID: "zip"}, {ID: "gd"}, {ID: "soap"},
}

// ── model stages ─────────────────────────────────────────────────────────────

type stage int

const (
	stageDetails stage = iota // plugin name, file, minimum versions, output
	stageOptions              // toggling plugins & extensions
	stageConfirm              // confirm / cancel
)

// detail inputs, in tab order
const (
	inputName = iota
	inputFile
	inputPHP
	inputWordPress
	inputOut
	inputCount
)

type checkItem struct {
	id      string
	name    string
	checked bool
}

type wizardModel struct {
	base       *manifest.Manifest
	errMsg     string
	plugins    []checkItem
	extensions []checkItem
	inputs     []textinput.Model
	stage      stage
	active     int
	cursor     int
	cancelled  bool
	confirmed  bool
}

func newModel(base *manifest.Manifest, opts Options) wizardModel {
	out := opts.Out
	if out == "" {
		out = DefaultOut
	}

	inputs := make([]textinput.Model, inputCount)
	for i, v := range []struct{ value, placeholder string }{
		inputName:      {base.Plugin.Name, "My Plugin"},
		inputFile:      {base.Plugin.File, "my-plugin/my-plugin.php"},
		inputPHP:       {base.Requires.PHP, "7.4"},
		inputWordPress: {base.Requires.WordPress, "5.8"},
		inputOut:       {out, DefaultOut},
	} {
		ti := textinput.New()
		ti.Placeholder = v.placeholder
		ti.SetValue(v.value)
		ti.Width = 50
		inputs[i] = ti
	}
	inputs[inputName].Focus()

	return wizardModel{
		base:       base,
		stage:      stageDetails,
		inputs:     inputs,
		plugins:    catalogue(commonPlugins, base.Requires.Plugins),
		extensions: catalogue(commonExtensions, base.Requires.Extensions),
	}
}

// catalogue lists the base requirements first (checked) followed by common
// entries the base does not mention.
func catalogue(common, required []manifest.Named) []checkItem {
	items := make([]checkItem, 0, len(common)+len(required))
	seen := make(map[string]bool, len(required))
	for _, r := range required {
		items = append(items, checkItem{id: r.ID, name: r.Name, checked: true})
		seen[r.ID] = true
	}
	for _, c := range common {
		if !seen[c.ID] {
			items = append(items, checkItem{id: c.ID, name: c.Name})
		}
	}
	return items
}

// ── tea.Model interface ───────────────────────────────────────────────────────

func (m wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(key)
	}
	// forward to active input
	var cmd tea.Cmd
	if m.stage == stageDetails {
		m.inputs[m.active], cmd = m.inputs[m.active].Update(msg)
	}
	return m, cmd
}

func (m wizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.stage {
	case stageDetails:
		return m.handleDetailsKey(msg)
	case stageOptions:
		return m.handleOptionsKey(msg)
	case stageConfirm:
		return m.handleConfirmKey(msg)
	}
	return m, nil
}

func (m wizardModel) handleDetailsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "tab", "down", "shift+tab", "up":
		m.inputs[m.active].Blur()
		if s := msg.String(); s == "shift+tab" || s == "up" {
			m.active = (m.active + inputCount - 1) % inputCount
		} else {
			m.active = (m.active + 1) % inputCount
		}
		m.inputs[m.active].Focus()
		return m, textinput.Blink
	case "enter":
		if err := m.validateDetails(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.stage = stageOptions
		m.cursor = 0
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.active], cmd = m.inputs[m.active].Update(msg)
	return m, cmd
}

func (m wizardModel) handleOptionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	total := len(m.plugins) + len(m.extensions)
	switch msg.String() {
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < total-1 {
			m.cursor++
		}
	case " ":
		m.toggleCursor()
	case "enter":
		m.stage = stageConfirm
	}
	return m, nil
}

func (m wizardModel) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "n", "N":
		m.cancelled = true
		return m, tea.Quit
	case "enter", "y", "Y":
		m.confirmed = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *wizardModel) toggleCursor() {
	if m.cursor < len(m.plugins) {
		m.plugins[m.cursor].checked = !m.plugins[m.cursor].checked
	} else {
		i := m.cursor - len(m.plugins)
		m.extensions[i].checked = !m.extensions[i].checked
	}
}

func (m wizardModel) value(i int) string {
	return strings.TrimSpace(m.inputs[i].Value())
}

func (m wizardModel) validateDetails() error {
	if m.value(inputFile) == "" {
		return fmt.Errorf("plugin file is required")
	}
	if m.value(inputOut) == "" {
		return fmt.Errorf("output path is required")
	}
	for _, i := range []int{inputPHP, inputWordPress} {
		if v := m.value(i); v != "" {
			if _, err := version.Parse(v); err != nil {
				return fmt.Errorf("%q is not a version", v)
			}
		}
	}
	return nil
}

// ── View ──────────────────────────────────────────────────────────────────────

func (m wizardModel) View() string {
	switch m.stage {
	case stageDetails:
		return m.viewDetails()
	case stageOptions:
		return m.viewOptions()
	case stageConfirm:
		return m.viewConfirm()
	}
	return ""
}

func (m wizardModel) viewDetails() string {
	labels := [inputCount][2]string{
		inputName:      {"Plugin name", "Shown in notices; derived from the file when empty"},
		inputFile:      {"Plugin file", "Relative to wp-content/plugins, e.g. my-plugin/my-plugin.php"},
		inputPHP:       {"Minimum PHP", "Leave empty for no minimum"},
		inputWordPress: {"Minimum WordPress", "Leave empty for no minimum"},
		inputOut:       {"Write to", "YAML, or JSON when the name ends in .json"},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("  reqcheck") + "  requirements manifest\n\n")
	for i, l := range labels {
		b.WriteString("  " + sectionStyle.Render(l[0]) + "\n")
		b.WriteString("  " + m.inputs[i].View() + "\n")
		b.WriteString(dimStyle.Render("  "+l[1]) + "\n\n")
	}

	if m.errMsg != "" {
		b.WriteString("  " + errorStyle.Render("✖ "+m.errMsg) + "\n\n")
	}

	b.WriteString(helpStyle.Render("  tab switch · enter next · esc quit"))
	return b.String()
}

func (m wizardModel) viewOptions() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  reqcheck") + "  select requirements\n\n")

	b.WriteString("  " + sectionStyle.Render("─── Plugins ───") + "\n")
	for i, p := range m.plugins {
		b.WriteString(m.renderItem(i, p))
	}
	b.WriteString("\n")

	b.WriteString("  " + sectionStyle.Render("─── PHP extensions ───") + "\n")
	for i, e := range m.extensions {
		b.WriteString(m.renderItem(len(m.plugins)+i, e))
	}
	b.WriteString("\n")

	if n := len(m.base.Requires.Settings); n > 0 {
		b.WriteString("  " + dimStyle.Render(fmt.Sprintf("  %d php setting(s) carried over", n)) + "\n\n")
	}

	b.WriteString(helpStyle.Render("  ↑↓ move · space toggle · enter continue · esc quit"))
	return b.String()
}

func (m wizardModel) renderItem(idx int, item checkItem) string {
	cursor := "  "
	if idx == m.cursor {
		cursor = focusStyle.Render(" ▶")
	}
	check := "○"
	style := normalStyle
	if item.checked {
		check = selectedStyle.Render("◉")
		style = selectedStyle
	}
	return fmt.Sprintf("%s %s  %-32s  %s\n",
		cursor, check,
		style.Render(item.id),
		dimStyle.Render(item.name),
	)
}

func (m wizardModel) viewConfirm() string {
	r := m.toResult()
	req := r.Manifest.Requires

	var b strings.Builder
	b.WriteString(titleStyle.Render("  reqcheck") + "  ready to write\n\n")
	b.WriteString(fmt.Sprintf("  Plugin:     %s\n", focusStyle.Render(r.Manifest.Subject().DisplayName())))
	b.WriteString(fmt.Sprintf("  PHP:        %s\n", focusStyle.Render(orAny(req.PHP))))
	b.WriteString(fmt.Sprintf("  WordPress:  %s\n", focusStyle.Render(orAny(req.WordPress))))
	if len(req.Plugins) > 0 {
		b.WriteString("  Plugins:    " + strings.Join(ids(req.Plugins), ", ") + "\n")
	}
	if len(req.Extensions) > 0 {
		b.WriteString("  Extensions: " + strings.Join(ids(req.Extensions), ", ") + "\n")
	}
	b.WriteString(fmt.Sprintf("\n  Output:     %s\n\n", focusStyle.Render(r.Path)))

	b.WriteString(helpStyle.Render("  Press enter to write · n to cancel"))
	return b.String()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (m wizardModel) toResult() *Result {
	out := *m.base
	out.Plugin.Name = m.value(inputName)
	out.Plugin.File = m.value(inputFile)
	out.Requires.PHP = m.value(inputPHP)
	out.Requires.WordPress = m.value(inputWordPress)
	out.Requires.Plugins = checked(m.plugins)
	out.Requires.Extensions = checked(m.extensions)
	out.Requires.Settings = append([]manifest.Setting(nil), m.base.Requires.Settings...)
	return &Result{Manifest: &out, Path: expandHome(m.value(inputOut))}
}

func defaultResult(base *manifest.Manifest, opts Options) *Result {
	out := opts.Out
	if out == "" {
		out = DefaultOut
	}
	m := *base
	return &Result{Manifest: &m, Path: expandHome(out)}
}

func checked(items []checkItem) []manifest.Named {
	var out []manifest.Named
	for _, it := range items {
		if it.checked {
			out = append(out, manifest.Named{ID: it.id, Name: it.name})
		}
	}
	return out
}

func ids(ns []manifest.Named) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func orAny(v string) string {
	if v == "" {
		return "any"
	}
	return v
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
