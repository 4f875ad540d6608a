package reactions

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

//go:embed reactions.yaml
var defaultFiles embed.FS

// Template is one reaction type the overlay can display.
type Template struct {
	Emoji string `yaml:"emoji" json:"emoji"`
	Text  string `yaml:"text" json:"text"`
}

// Catalog maps reaction type keys to their templates. Loaded once at startup;
// read-only afterwards.
type Catalog struct {
	data map[string]Template
}

// NewCatalog loads the embedded defaults and then applies overrides from dir
// if provided. Override files replace or add whole reaction entries.
func NewCatalog(overrideDir string) (*Catalog, error) {
	c := &Catalog{data: make(map[string]Template)}

	raw, err := fs.ReadFile(defaultFiles, "reactions.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded reactions: %w", err)
	}
	if err := c.applyYAML(raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) applyYAML(b []byte) error {
	var doc struct {
		Reactions map[string]Template `yaml:"reactions"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	for k, v := range doc.Reactions {
		c.data[k] = v
	}
	return nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read reaction dir: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := c.applyYAML(b); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return nil
}

// Lookup returns the template for a reaction type.
func (c *Catalog) Lookup(reactionType string) (Template, bool) {
	t, ok := c.data[reactionType]
	return t, ok
}

// Types returns the sorted reaction type keys.
func (c *Catalog) Types() []string {
	out := make([]string, 0, len(c.data))
	for k := range c.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
