package registry

import (
	"github.com/stratum-mods/stratum/pkg/errors"
)

// ModRef is one mod's entry in a profile: the shared storage identity plus
// the profile-local state.
type ModRef struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"` // denormalized for readable state files
	Enabled bool     `yaml:"enabled"`
	Options []string `yaml:"options,omitempty"`
}

// Profile is a named ordered mod list. Position in Mods is the mod's
// priority: index 0 is lowest, later entries win conflicts.
type Profile struct {
	Name string   `yaml:"name"`
	Mods []ModRef `yaml:"mods"`
}

// NewProfile returns an empty profile.
func NewProfile(name string) *Profile {
	return &Profile{Name: name}
}

// Priority returns a mod's current priority within the profile.
func (p *Profile) Priority(modID string) (int, bool) {
	for i, ref := range p.Mods {
		if ref.ID == modID {
			return i, true
		}
	}
	return 0, false
}

// Ref returns the profile entry for a mod.
func (p *Profile) Ref(modID string) (*ModRef, bool) {
	for i := range p.Mods {
		if p.Mods[i].ID == modID {
			return &p.Mods[i], true
		}
	}
	return nil, false
}

// Add appends a mod at the highest priority. Adding an already present
// mod is an invalid operation.
func (p *Profile) Add(mod *Mod, enabled bool, options []string) error {
	if _, ok := p.Priority(mod.ID); ok {
		return errors.Newf(errors.ErrModInvalid, "mod %q is already in profile %q", mod.Meta.Name, p.Name).
			WithDetail("mod_id", mod.ID)
	}
	if err := mod.ValidateOptions(options); err != nil {
		return errors.Wrap(err, errors.ErrModInvalid, "invalid option selection").
			WithDetail("mod_id", mod.ID)
	}
	p.Mods = append(p.Mods, ModRef{
		ID:      mod.ID,
		Name:    mod.Meta.Name,
		Enabled: enabled,
		Options: options,
	})
	return nil
}

// Remove drops a mod from the profile. Remaining mods keep their relative
// order; priorities stay contiguous because they are positional.
func (p *Profile) Remove(modID string) error {
	i, ok := p.Priority(modID)
	if !ok {
		return errors.Newf(errors.ErrModNotFound, "mod %s is not in profile %q", modID, p.Name)
	}
	p.Mods = append(p.Mods[:i], p.Mods[i+1:]...)
	return nil
}

// Move shifts a mod to a new priority, sliding everything between.
func (p *Profile) Move(modID string, priority int) error {
	i, ok := p.Priority(modID)
	if !ok {
		return errors.Newf(errors.ErrModNotFound, "mod %s is not in profile %q", modID, p.Name)
	}
	if priority < 0 || priority >= len(p.Mods) {
		return errors.Newf(errors.ErrModInvalid, "priority %d out of range [0, %d)", priority, len(p.Mods))
	}
	ref := p.Mods[i]
	p.Mods = append(p.Mods[:i], p.Mods[i+1:]...)
	p.Mods = append(p.Mods[:priority], append([]ModRef{ref}, p.Mods[priority:]...)...)
	return nil
}

// Reorder replaces the full ordering. ids must be a permutation of the
// profile's current mod set.
func (p *Profile) Reorder(ids []string) error {
	if len(ids) != len(p.Mods) {
		return errors.Newf(errors.ErrModInvalid,
			"reorder needs all %d mods, got %d", len(p.Mods), len(ids))
	}
	reordered := make([]ModRef, 0, len(ids))
	for _, id := range ids {
		ref, ok := p.Ref(id)
		if !ok {
			return errors.Newf(errors.ErrModNotFound, "mod %s is not in profile %q", id, p.Name)
		}
		reordered = append(reordered, *ref)
	}
	p.Mods = reordered
	return nil
}

// SetEnabled toggles a mod. A disabled mod contributes nothing to any
// merge but keeps its priority slot.
func (p *Profile) SetEnabled(modID string, enabled bool) error {
	ref, ok := p.Ref(modID)
	if !ok {
		return errors.Newf(errors.ErrModNotFound, "mod %s is not in profile %q", modID, p.Name)
	}
	ref.Enabled = enabled
	return nil
}

// SelectOptions replaces a mod's option selection.
func (p *Profile) SelectOptions(mod *Mod, options []string) error {
	ref, ok := p.Ref(mod.ID)
	if !ok {
		return errors.Newf(errors.ErrModNotFound, "mod %s is not in profile %q", mod.ID, p.Name)
	}
	if err := mod.ValidateOptions(options); err != nil {
		return errors.Wrap(err, errors.ErrModInvalid, "invalid option selection").
			WithDetail("mod_id", mod.ID)
	}
	ref.Options = options
	return nil
}

// Enabled returns the enabled refs in priority order.
func (p *Profile) Enabled() []ModRef {
	var out []ModRef
	for _, ref := range p.Mods {
		if ref.Enabled {
			out = append(out, ref)
		}
	}
	return out
}
