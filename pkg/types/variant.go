package types

import (
	"fmt"
	"strings"
)

// Variant identifies which partition of the baseline asset tree a
// resource path belongs to.
type Variant string

const (
	VariantContent Variant = "content"
	VariantUpdate  Variant = "update"
	VariantDLC     Variant = "dlc"
)

// Variants lists all partitions in canonical order.
func Variants() []Variant {
	return []Variant{VariantContent, VariantUpdate, VariantDLC}
}

// CanonicalPrefix returns the prefix used when addressing this variant's
// resources in a single flat namespace. Only DLC paths are prefixed.
func (v Variant) CanonicalPrefix() string {
	if v == VariantDLC {
		return "DLC/0010/"
	}
	return ""
}

// ParseVariant converts a string to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(s)) {
	case VariantContent:
		return VariantContent, nil
	case VariantUpdate:
		return VariantUpdate, nil
	case VariantDLC:
		return VariantDLC, nil
	}
	return "", fmt.Errorf("unknown variant %q", s)
}

// Platform identifies a target platform variant. Each platform has its own
// settings block and deployment configuration.
type Platform string

const (
	// PlatformPS is the little-endian portable console target.
	PlatformPS Platform = "ps"
	// PlatformWU is the big-endian home console target.
	PlatformWU Platform = "wu"
)

// ParsePlatform converts a string to a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(s)) {
	case PlatformPS:
		return PlatformPS, nil
	case PlatformWU:
		return PlatformWU, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Language is a localization code in the original region-language form,
// e.g. "USen", "EUfr", "JPja".
type Language string

// DefaultLanguage is the fallback used when a mod carries no data for the
// configured language.
const DefaultLanguage Language = "USen"

// KnownLanguages lists the language codes the runtime ships text for.
func KnownLanguages() []Language {
	return []Language{
		"USen", "USfr", "USes",
		"EUen", "EUfr", "EUde", "EUes", "EUit", "EUnl", "EUru",
		"JPja", "KRko", "CNzh", "TWzh",
	}
}

// Progress reports coarse batch progress, one call per completed unit of
// work (per mod, per resource). Implementations must tolerate concurrent
// calls.
type Progress func(unit string)

// NopProgress discards progress reports.
func NopProgress(string) {}
