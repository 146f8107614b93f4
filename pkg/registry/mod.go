// Package registry holds installed mods and named profiles: which mods
// exist in storage, and per profile which are enabled, in what order, and
// with which options selected.
package registry

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/stratum-mods/stratum/pkg/types"
)

// Meta is the descriptive block of a mod package's meta.yml.
type Meta struct {
	Name         string         `yaml:"name"`
	Version      string         `yaml:"version"`
	Author       string         `yaml:"author"`
	Category     string         `yaml:"category,omitempty"`
	Description  string         `yaml:"description,omitempty"`
	Platform     types.Platform `yaml:"platform,omitempty"` // empty means universal
	PriorityHint int            `yaml:"priority_hint,omitempty"`
	Language     types.Language `yaml:"language,omitempty"` // default language for localized payloads
	Options      []OptionGroup  `yaml:"options,omitempty"`
}

// OptionGroup declares a set of selectable sub-manifests.
type OptionGroup struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Multiple    bool     `yaml:"multiple,omitempty"`
	Required    bool     `yaml:"required,omitempty"`
	Defaults    []string `yaml:"defaults,omitempty"`
	Options     []Option `yaml:"choices"`
}

// Option is one selectable choice inside a group.
type Option struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// Manifest lists the canonical resource paths a mod touches, partitioned
// by variant.
type Manifest struct {
	Content []string `yaml:"content,omitempty"`
	Update  []string `yaml:"update,omitempty"`
	DLC     []string `yaml:"dlc,omitempty"`
}

// Paths returns the path list for one variant.
func (m Manifest) Paths(v types.Variant) []string {
	switch v {
	case types.VariantContent:
		return m.Content
	case types.VariantUpdate:
		return m.Update
	case types.VariantDLC:
		return m.DLC
	}
	return nil
}

// Add records a path under a variant, keeping the list sorted and
// duplicate-free.
func (m *Manifest) Add(v types.Variant, path string) {
	list := m.Paths(v)
	i := sort.SearchStrings(list, path)
	if i < len(list) && list[i] == path {
		return
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = path
	m.set(v, list)
}

func (m *Manifest) set(v types.Variant, list []string) {
	switch v {
	case types.VariantContent:
		m.Content = list
	case types.VariantUpdate:
		m.Update = list
	case types.VariantDLC:
		m.DLC = list
	}
}

// Merge folds another manifest into this one.
func (m *Manifest) Merge(other Manifest) {
	for _, v := range types.Variants() {
		for _, p := range other.Paths(v) {
			m.Add(v, p)
		}
	}
}

// IsEmpty reports whether the manifest touches nothing.
func (m Manifest) IsEmpty() bool {
	return len(m.Content) == 0 && len(m.Update) == 0 && len(m.DLC) == 0
}

// Len returns the total number of touched paths.
func (m Manifest) Len() int {
	return len(m.Content) + len(m.Update) + len(m.DLC)
}

// Mod is one installed mod in shared storage. Per-profile state (enabled,
// priority, selected options) lives on the profile, not here.
type Mod struct {
	ID              string              `yaml:"id"`
	Meta            Meta                `yaml:"meta"`
	Manifest        Manifest            `yaml:"manifest"`
	OptionManifests map[string]Manifest `yaml:"option_manifests,omitempty"`
}

// ModID derives the stable identity of a mod from its descriptive
// identity fields. Two packages with the same name, version and author are
// the same mod.
func ModID(name, version, author string) string {
	h := xxhash.New()
	h.WriteString(name)
	h.WriteString("\x00")
	h.WriteString(version)
	h.WriteString("\x00")
	h.WriteString(author)
	return fmt.Sprintf("%016x", h.Sum64())
}

// EffectiveManifest returns the mod's base manifest merged with the
// sub-manifests of the selected options. Unknown option names are
// ignored; selection validity is enforced at selection time.
func (m *Mod) EffectiveManifest(selected []string) Manifest {
	var out Manifest
	out.Merge(m.Manifest)
	for _, opt := range selected {
		if sub, ok := m.OptionManifests[opt]; ok {
			out.Merge(sub)
		}
	}
	return out
}

// ValidateOptions checks a selection against the mod's option groups:
// every selected name must exist, exclusive groups allow at most one
// choice, and required groups must have at least one.
func (m *Mod) ValidateOptions(selected []string) error {
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[s] = true
	}

	known := make(map[string]string) // option name -> group name
	for _, g := range m.Meta.Options {
		count := 0
		for _, o := range g.Options {
			known[o.Name] = g.Name
			if chosen[o.Name] {
				count++
			}
		}
		if g.Required && count == 0 {
			return fmt.Errorf("option group %q requires a selection", g.Name)
		}
		if !g.Multiple && count > 1 {
			return fmt.Errorf("option group %q allows only one selection", g.Name)
		}
	}
	for _, s := range selected {
		if _, ok := known[s]; !ok {
			return fmt.Errorf("unknown option %q", s)
		}
	}
	return nil
}
