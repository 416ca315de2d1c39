package requirements

import (
	"fmt"
	"html"
	"path"
)

// Category names the kind of requirement a notice reports.
type Category string

const (
	CategoryPlatform  Category = "platform"
	CategoryHost      Category = "host"
	CategoryComponent Category = "component"
	CategoryExtension Category = "extension"
	CategorySetting   Category = "setting"
)

// Notice describes one unmet requirement.
type Notice struct {
	Category Category `json:"category"`
	Subject  string   `json:"subject"`
	// ID is the identifier of the unmet requirement, matching Requirement.ID.
	ID string `json:"id,omitempty"`
	// Item is the display name or identifier of the unmet requirement.
	Item string `json:"item"`
	// Expected is the minimum version or the expected setting value.
	Expected string `json:"expected,omitempty"`
}

var templates = map[Category]string{
	CategoryPlatform:  "The “%[1]s” plugin cannot run on PHP versions older than %[3]s. Please contact your host and ask them to upgrade.",
	CategoryHost:      "The “%[1]s” plugin cannot run on WordPress versions older than %[3]s. Please update WordPress.",
	CategoryComponent: "The “%[1]s” plugin cannot run without %[2]s active. Please install and activate %[2]s plugin.",
	CategoryExtension: "The “%[1]s” plugin cannot run without %[2]s php module installed. Please contact your host and ask them to install %[2]s.",
	CategorySetting:   "The “%[1]s” plugin cannot run without %[2]s php setting set to %[3]s. Please contact your host and ask them to set %[2]s.",
}

// String returns the notice as a plain sentence.
func (n Notice) String() string {
	return n.format(func(s string) string { return s })
}

// HTML returns the notice as an admin error fragment with every interpolated
// value escaped.
func (n Notice) HTML() string {
	return `<div class="error"><p>` + n.format(html.EscapeString) + `</p></div>`
}

func (n Notice) format(escape func(string) string) string {
	tmpl, ok := templates[n.Category]
	if !ok {
		return escape(fmt.Sprintf("%s: %s %s %s", n.Category, n.Subject, n.Item, n.Expected))
	}
	item, expected := n.Item, n.Expected
	switch n.Category {
	case CategoryComponent, CategoryExtension:
		item = basename(item)
	case CategorySetting:
		item, expected = basename(item), basename(expected)
	}
	return fmt.Sprintf(tmpl, escape(n.Subject), escape(item), escape(expected))
}

// basename mirrors how hosts shorten plugin paths like "woocommerce/woocommerce.php".
func basename(s string) string {
	if s == "" {
		return s
	}
	return path.Base(s)
}
