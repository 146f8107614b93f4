// Package config loads and persists stratum settings.
//
// Configuration is layered: built-in defaults, then the settings file in
// the XDG config directory, then STRATUM_* environment variables. The
// merged result is decoded into the Settings struct. Saving writes the
// settings file back as TOML.
package config

import (
	"fmt"
	"strings"

	"github.com/stratum-mods/stratum/pkg/types"
)

// DeployMethod selects the filesystem strategy used to materialize merged
// output.
type DeployMethod string

const (
	MethodCopy     DeployMethod = "copy"
	MethodHardLink DeployMethod = "hardlink"
	MethodSymlink  DeployMethod = "symlink"
)

// ParseDeployMethod converts a string to a DeployMethod.
func ParseDeployMethod(s string) (DeployMethod, error) {
	switch DeployMethod(strings.ToLower(s)) {
	case MethodCopy:
		return MethodCopy, nil
	case MethodHardLink:
		return MethodHardLink, nil
	case MethodSymlink:
		return MethodSymlink, nil
	}
	return "", fmt.Errorf("unknown deploy method %q", s)
}

// DeployLayout controls whether output lands under a folder named after the
// title ("withname") or directly at the output root ("withoutname").
type DeployLayout string

const (
	LayoutWithName    DeployLayout = "withname"
	LayoutWithoutName DeployLayout = "withoutname"
)

// DeployConfig describes one platform's deployment target.
type DeployConfig struct {
	Output              string       `koanf:"output" toml:"output"`
	Method              DeployMethod `koanf:"method" toml:"method"`
	Layout              DeployLayout `koanf:"layout" toml:"layout"`
	WriteLoaderManifest bool         `koanf:"write_loader_manifest" toml:"write_loader_manifest"`
	Auto                bool         `koanf:"auto" toml:"auto"`
}

// BaselineDirs points at the read-only reference asset tree, split by
// variant. These directories are never written.
type BaselineDirs struct {
	Content string `koanf:"content" toml:"content"`
	Update  string `koanf:"update" toml:"update"`
	DLC     string `koanf:"dlc" toml:"dlc"`
}

// Dir returns the root for one variant.
func (b BaselineDirs) Dir(v types.Variant) string {
	switch v {
	case types.VariantUpdate:
		return b.Update
	case types.VariantDLC:
		return b.DLC
	default:
		return b.Content
	}
}

// PlatformConfig groups everything configured per platform variant.
type PlatformConfig struct {
	Baseline BaselineDirs  `koanf:"baseline" toml:"baseline"`
	Deploy   *DeployConfig `koanf:"deploy" toml:"deploy"`
	Profile  string        `koanf:"profile" toml:"profile"`
}

// Settings is the root settings document.
type Settings struct {
	CurrentPlatform types.Platform                    `koanf:"current_platform" toml:"current_platform"`
	Language        types.Language                    `koanf:"language" toml:"language"`
	Platforms       map[types.Platform]PlatformConfig `koanf:"platforms" toml:"platforms"`
}

// PlatformConfig returns the config block for the current platform, or nil
// when the platform has never been configured.
func (s *Settings) CurrentPlatformConfig() *PlatformConfig {
	if s.Platforms == nil {
		return nil
	}
	cfg, ok := s.Platforms[s.CurrentPlatform]
	if !ok {
		return nil
	}
	return &cfg
}

// ActiveProfile returns the profile selected for the current platform,
// defaulting to "Default" as the original manager does.
func (s *Settings) ActiveProfile() string {
	if cfg := s.CurrentPlatformConfig(); cfg != nil && cfg.Profile != "" {
		return cfg.Profile
	}
	return "Default"
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"current_platform": string(types.PlatformPS),
		"language":         string(types.DefaultLanguage),
	}
}
