package registry

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/logging"
	"github.com/stratum-mods/stratum/pkg/paths"
	"github.com/stratum-mods/stratum/pkg/types"
)

// ModFileName is the per-mod state file inside each mod's storage dir.
const ModFileName = "mod.yml"

// Store persists mods and profiles as YAML under the data directory.
// Mods are shared across profiles; profiles are independent state files.
type Store struct {
	fs    types.FS
	paths paths.Paths
}

// NewStore creates a store over the given filesystem and path layout.
func NewStore(filesystem types.FS, p paths.Paths) *Store {
	return &Store{fs: filesystem, paths: p}
}

// SaveMod writes a mod's registry state into its storage directory.
func (s *Store) SaveMod(mod *Mod) error {
	dir := s.paths.ModDir(mod.ID)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "failed to create mod storage dir").WithPath(dir)
	}
	data, err := yaml.Marshal(mod)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode mod state")
	}
	target := filepath.Join(dir, ModFileName)
	if err := s.fs.WriteFile(target, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrFileAccess, "failed to write mod state").WithPath(target)
	}
	logger := logging.GetLogger("registry")
	logger.Debug().Str("mod", mod.Meta.Name).Str("id", mod.ID).Msg("saved mod")
	return nil
}

// LoadMod reads one mod's registry state by id.
func (s *Store) LoadMod(id string) (*Mod, error) {
	target := filepath.Join(s.paths.ModDir(id), ModFileName)
	data, err := s.fs.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrModNotFound, "mod %s is not installed", id)
		}
		return nil, errors.Wrap(err, errors.ErrFileAccess, "failed to read mod state").WithPath(target)
	}
	var mod Mod
	if err := yaml.Unmarshal(data, &mod); err != nil {
		return nil, errors.Wrap(err, errors.ErrModInvalid, "corrupt mod state").WithPath(target)
	}
	return &mod, nil
}

// ListMods returns every installed mod, sorted by name.
func (s *Store) ListMods() ([]*Mod, error) {
	entries, err := s.fs.ReadDir(s.paths.ModsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrFileAccess, "failed to list mod storage").WithPath(s.paths.ModsDir())
	}
	var mods []*Mod
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		mod, err := s.LoadMod(e.Name())
		if err != nil {
			logger := logging.GetLogger("registry")
			logger.Warn().Err(err).Str("id", e.Name()).
				Msg("skipping unreadable mod storage entry")
			continue
		}
		mods = append(mods, mod)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Meta.Name < mods[j].Meta.Name })
	return mods, nil
}

// DeleteMod removes a mod's storage directory entirely.
func (s *Store) DeleteMod(id string) error {
	dir := s.paths.ModDir(id)
	if _, err := s.fs.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return errors.Newf(errors.ErrModNotFound, "mod %s is not installed", id)
		}
		return errors.Wrap(err, errors.ErrFileAccess, "failed to stat mod storage").WithPath(dir)
	}
	if err := s.fs.RemoveAll(dir); err != nil {
		return errors.Wrap(err, errors.ErrFileDelete, "failed to remove mod storage").WithPath(dir)
	}
	return nil
}

// PayloadPath maps a mod's touched resource path to the loose file holding
// its payload in mod storage. Nested virtual paths are flattened so they
// stay unambiguous on disk.
func (s *Store) PayloadPath(modID string, v types.Variant, resPath string) string {
	return filepath.Join(s.paths.ModDir(modID), string(v), FlattenPath(resPath))
}

// FlattenPath rewrites a virtual resource path into a single on-disk
// relative path. The archive nesting separator "//" would collapse under
// path cleaning, so it is replaced with a marker directory.
func FlattenPath(resPath string) string {
	return strings.ReplaceAll(resPath, "//", "/~/")
}

// UnflattenPath reverses FlattenPath.
func UnflattenPath(diskPath string) string {
	return strings.ReplaceAll(filepath.ToSlash(diskPath), "/~/", "//")
}

// SaveProfile writes a profile's state file.
func (s *Store) SaveProfile(p *Profile) error {
	if err := s.fs.MkdirAll(s.paths.ProfilesDir(), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "failed to create profiles dir").WithPath(s.paths.ProfilesDir())
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode profile")
	}
	target := s.paths.ProfilePath(p.Name)
	if err := s.fs.WriteFile(target, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrFileAccess, "failed to write profile").WithPath(target)
	}
	return nil
}

// LoadProfile reads a profile by name.
func (s *Store) LoadProfile(name string) (*Profile, error) {
	target := s.paths.ProfilePath(name)
	data, err := s.fs.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrProfileNotFound, "profile %q does not exist", name)
		}
		return nil, errors.Wrap(err, errors.ErrFileAccess, "failed to read profile").WithPath(target)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "corrupt profile state").WithPath(target)
	}
	if p.Name == "" {
		p.Name = name
	}
	return &p, nil
}

// LoadOrCreateProfile reads a profile, creating an empty one when it does
// not exist yet.
func (s *Store) LoadOrCreateProfile(name string) (*Profile, error) {
	p, err := s.LoadProfile(name)
	if err == nil {
		return p, nil
	}
	if errors.IsErrorCode(err, errors.ErrProfileNotFound) {
		return NewProfile(name), nil
	}
	return nil, err
}

// ListProfiles returns the names of all persisted profiles.
func (s *Store) ListProfiles() ([]string, error) {
	entries, err := s.fs.ReadDir(s.paths.ProfilesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrFileAccess, "failed to list profiles").WithPath(s.paths.ProfilesDir())
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yml"))
	}
	sort.Strings(names)
	return names, nil
}

// DeleteProfile removes a profile's state file.
func (s *Store) DeleteProfile(name string) error {
	target := s.paths.ProfilePath(name)
	if err := s.fs.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return errors.Newf(errors.ErrProfileNotFound, "profile %q does not exist", name)
		}
		return errors.Wrap(err, errors.ErrFileDelete, "failed to delete profile").WithPath(target)
	}
	return nil
}
