// Package pending tracks what still needs deploying: the manifest of the
// last deployed output versus the freshly merged one, and the set of
// paths a registry mutation has made stale.
package pending

import (
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/types"
)

// Manifest maps canonical resource paths to content hashes. Equality of
// hashes, not modification times, decides whether a path changed.
type Manifest map[string]string

// Paths returns the manifest's keys, sorted.
func (m Manifest) Paths() []string {
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (m Manifest) Clone() Manifest {
	out := make(Manifest, len(m))
	for p, h := range m {
		out[p] = h
	}
	return out
}

// ChangeSet is the minimal delta between two manifests.
type ChangeSet struct {
	Added    []string
	Modified []string
	Removed  []string
}

// IsEmpty reports whether nothing needs doing.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// Len returns the total number of pending entries.
func (c ChangeSet) Len() int {
	return len(c.Added) + len(c.Modified) + len(c.Removed)
}

// Diff computes the change set that turns the deployed state into the
// current one. All three lists come back sorted.
func Diff(deployed, current Manifest) ChangeSet {
	var cs ChangeSet
	for p, h := range current {
		old, ok := deployed[p]
		switch {
		case !ok:
			cs.Added = append(cs.Added, p)
		case old != h:
			cs.Modified = append(cs.Modified, p)
		}
	}
	for p := range deployed {
		if _, ok := current[p]; !ok {
			cs.Removed = append(cs.Removed, p)
		}
	}
	sort.Strings(cs.Added)
	sort.Strings(cs.Modified)
	sort.Strings(cs.Removed)
	return cs
}

// Tracker owns the stale-path set for one profile. Registry mutations
// mark paths stale; merge recomputation consumes them. Safe for
// concurrent use.
type Tracker struct {
	mu    sync.Mutex
	stale map[string]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{stale: make(map[string]struct{})}
}

// MarkStale records paths whose merged output can no longer be trusted.
func (t *Tracker) MarkStale(paths ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range paths {
		t.stale[p] = struct{}{}
	}
}

// Stale returns the current stale set, sorted.
func (t *Tracker) Stale() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.stale))
	for p := range t.stale {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Clear drops paths from the stale set once they have been recomputed.
func (t *Tracker) Clear(paths ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range paths {
		delete(t.stale, p)
	}
}

// Len returns the number of stale paths.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stale)
}

// deployedState is the persisted record of the last deploy: the manifest
// plus the configuration it was deployed under, so a config change can
// force a full reconcile.
type deployedState struct {
	Output   string   `yaml:"output"`
	Method   string   `yaml:"method"`
	Layout   string   `yaml:"layout"`
	Manifest Manifest `yaml:"manifest"`
}

// Record couples a manifest with the deployment configuration active when
// it was written.
type Record struct {
	Output   string
	Method   string
	Layout   string
	Manifest Manifest
}

// SameConfig reports whether another record was deployed under the same
// output, method and layout.
func (r Record) SameConfig(other Record) bool {
	return r.Output == other.Output && r.Method == other.Method && r.Layout == other.Layout
}

// LoadRecord reads the deployed-state file for a profile. A missing file
// yields an empty record, which is the state before any deploy.
func LoadRecord(fsys types.FS, path string) (Record, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{Manifest: Manifest{}}, nil
		}
		return Record{}, errors.Wrap(err, errors.ErrFileAccess, "failed to read deployed manifest").WithPath(path)
	}
	var st deployedState
	if err := yaml.Unmarshal(data, &st); err != nil {
		return Record{}, errors.Wrap(err, errors.ErrInternal, "corrupt deployed manifest").WithPath(path)
	}
	if st.Manifest == nil {
		st.Manifest = Manifest{}
	}
	return Record{Output: st.Output, Method: st.Method, Layout: st.Layout, Manifest: st.Manifest}, nil
}

// SaveRecord persists the deployed-state file.
func SaveRecord(fsys types.FS, path string, r Record) error {
	st := deployedState{Output: r.Output, Method: r.Method, Layout: r.Layout, Manifest: r.Manifest}
	data, err := yaml.Marshal(st)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode deployed manifest")
	}
	if err := fsys.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrFileWrite, "failed to write deployed manifest").WithPath(path)
	}
	return nil
}
