// Package paths provides centralized path handling for stratum.
// It implements XDG Base Directory specification compliance and
// provides a consistent API for all path operations in the codebase.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/stratum-mods/stratum/pkg/types"
)

// Environment variable names
const (
	// EnvStratumDataDir overrides the XDG data directory for stratum
	EnvStratumDataDir = "STRATUM_DATA_DIR"

	// EnvStratumConfigDir overrides the XDG config directory for stratum
	EnvStratumConfigDir = "STRATUM_CONFIG_DIR"

	// EnvStratumCacheDir overrides the XDG cache directory for stratum
	EnvStratumCacheDir = "STRATUM_CACHE_DIR"
)

// Default directories and files.
// IMPORTANT: These constants define stratum's internal storage structure and
// are NOT user-configurable. User-configurable paths belong in pkg/config.
const (
	// StratumDirName is the directory name for stratum-specific files
	StratumDirName = "stratum"

	// ModsDir is the subdirectory holding unpacked installed mods
	ModsDir = "mods"

	// ProfilesDir is the subdirectory holding profile state files
	ProfilesDir = "profiles"

	// MergedDir is the subdirectory holding merged output per profile
	MergedDir = "merged"

	// ManifestsDir is the subdirectory holding deployed-manifest records
	ManifestsDir = "manifests"

	// SettingsFile is the name of the settings file
	SettingsFile = "settings.toml"

	// LogFileName is the name of the log file
	LogFileName = "stratum.log"
)

// Paths provides centralized path management for stratum
type Paths interface {
	types.Pather

	// ModsDir returns the directory holding unpacked installed mods.
	ModsDir() string

	// ModDir returns the storage directory for one installed mod.
	ModDir(modID string) string

	// ProfilesDir returns the directory holding profile state files.
	ProfilesDir() string

	// ProfilePath returns the state file for a named profile.
	ProfilePath(name string) string

	// MergedDir returns the merged-output store for a named profile.
	MergedDir(profile string) string

	// DeployedManifestPath returns the record of what a profile last
	// deployed, including under which configuration.
	DeployedManifestPath(profile string) string

	// SettingsPath returns the location of the settings file.
	SettingsPath() string
}

type xdgPaths struct {
	dataDir   string
	configDir string
	cacheDir  string
	stateDir  string
}

// New creates a Paths instance rooted at the XDG base directories, honoring
// the STRATUM_*_DIR overrides.
func New() (Paths, error) {
	p := &xdgPaths{
		dataDir:   filepath.Join(xdg.DataHome, StratumDirName),
		configDir: filepath.Join(xdg.ConfigHome, StratumDirName),
		cacheDir:  filepath.Join(xdg.CacheHome, StratumDirName),
		stateDir:  filepath.Join(xdg.StateHome, StratumDirName),
	}
	if dir := os.Getenv(EnvStratumDataDir); dir != "" {
		p.dataDir = dir
	}
	if dir := os.Getenv(EnvStratumConfigDir); dir != "" {
		p.configDir = dir
	}
	if dir := os.Getenv(EnvStratumCacheDir); dir != "" {
		p.cacheDir = dir
	}
	return p, nil
}

func (p *xdgPaths) DataDir() string   { return p.dataDir }
func (p *xdgPaths) ConfigDir() string { return p.configDir }
func (p *xdgPaths) CacheDir() string  { return p.cacheDir }
func (p *xdgPaths) StateDir() string  { return p.stateDir }

func (p *xdgPaths) ModsDir() string {
	return filepath.Join(p.dataDir, ModsDir)
}

func (p *xdgPaths) ModDir(modID string) string {
	return filepath.Join(p.dataDir, ModsDir, modID)
}

func (p *xdgPaths) ProfilesDir() string {
	return filepath.Join(p.dataDir, ProfilesDir)
}

func (p *xdgPaths) ProfilePath(name string) string {
	return filepath.Join(p.dataDir, ProfilesDir, name+".yml")
}

func (p *xdgPaths) MergedDir(profile string) string {
	return filepath.Join(p.dataDir, MergedDir, profile)
}

func (p *xdgPaths) DeployedManifestPath(profile string) string {
	return filepath.Join(p.dataDir, ManifestsDir, profile+".yml")
}

func (p *xdgPaths) SettingsPath() string {
	return filepath.Join(p.configDir, SettingsFile)
}
