// Package messages holds the bot's user-facing text.
package messages

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var catalogFiles embed.FS

// Language selects a catalog.
type Language string

const (
	Portuguese Language = "pt"
	English    Language = "en"
)

// ParseLanguage maps user input to a supported language, defaulting to
// Portuguese.
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "eng", "english":
		return English
	default:
		return Portuguese
	}
}

// Catalog looks up message templates by dotted key, e.g. "register.created".
type Catalog struct {
	lang     Language
	messages map[string]string
}

// Load reads the embedded catalog for lang.
func Load(lang Language) (*Catalog, error) {
	raw, err := catalogFiles.ReadFile(string(lang) + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("messages: no catalog for %q: %w", lang, err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("messages: parsing %s catalog: %w", lang, err)
	}

	c := &Catalog{lang: lang, messages: make(map[string]string)}
	flatten("", tree, c.messages)
	return c, nil
}

// MustLoad is Load for catalogs known to be embedded.
func MustLoad(lang Language) *Catalog {
	c, err := Load(lang)
	if err != nil {
		panic(err)
	}
	return c
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(key, v, out)
		case string:
			out[key] = v
		default:
			out[key] = fmt.Sprint(v)
		}
	}
}

// Language returns the catalog's language.
func (c *Catalog) Language() Language {
	return c.lang
}

// T formats the message for key with args. Unknown keys return the key.
func (c *Catalog) T(key string, args ...any) string {
	template, ok := c.messages[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return template
	}
	return fmt.Sprintf(template, args...)
}

// Keys returns every key in the catalog.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.messages))
	for key := range c.messages {
		keys = append(keys, key)
	}
	return keys
}
