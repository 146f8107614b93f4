// Package modpack reads and writes .smod mod packages: a zip envelope
// holding meta.yml, manifest.yml and per-resource payloads partitioned by
// variant. Installing unpacks the envelope into per-mod loose storage so
// merging reads plain files.
package modpack

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stratum-mods/stratum/pkg/codec"
	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/logging"
	"github.com/stratum-mods/stratum/pkg/registry"
	"github.com/stratum-mods/stratum/pkg/types"
)

// Well-known entry names inside a package.
const (
	MetaFileName     = "meta.yml"
	ManifestFileName = "manifest.yml"
	OptionsDirName   = "options"

	// DiffSuffix marks a YAML structural-diff payload.
	DiffSuffix = ".diff.yml"
	// OverrideSuffix marks a raw whole-resource override payload.
	OverrideSuffix = ".override"
)

// Package is a parsed .smod archive held in memory. Payload bytes stay
// zstd-compressed until unpacked.
type Package struct {
	Meta            registry.Meta
	Manifest        registry.Manifest
	OptionManifests map[string]registry.Manifest

	payloads map[string][]byte // zip entry name -> raw bytes
}

// ID returns the stable mod identity derived from the package metadata.
func (p *Package) ID() string {
	return registry.ModID(p.Meta.Name, p.Meta.Version, p.Meta.Author)
}

// Open reads and parses a package file. The platform check against the
// active settings happens at install time, not here.
func Open(fsys types.FS, packagePath string) (*Package, error) {
	raw, err := fsys.ReadFile(packagePath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "failed to read mod package").WithPath(packagePath)
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrModInvalid, "not a mod package").WithPath(packagePath)
	}

	pkg := &Package{
		OptionManifests: make(map[string]registry.Manifest),
		payloads:        make(map[string][]byte),
	}
	var haveMeta, haveManifest bool
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrModInvalid, "corrupt package entry").
				WithPath(packagePath).WithDetail("entry", f.Name)
		}
		name := path.Clean(f.Name)
		switch {
		case name == MetaFileName:
			if err := yaml.Unmarshal(data, &pkg.Meta); err != nil {
				return nil, errors.Wrap(err, errors.ErrModInvalid, "corrupt meta.yml").WithPath(packagePath)
			}
			haveMeta = true
		case name == ManifestFileName:
			if err := yaml.Unmarshal(data, &pkg.Manifest); err != nil {
				return nil, errors.Wrap(err, errors.ErrModInvalid, "corrupt manifest.yml").WithPath(packagePath)
			}
			haveManifest = true
		case isOptionManifest(name):
			opt := strings.Split(name, "/")[1]
			var m registry.Manifest
			if err := yaml.Unmarshal(data, &m); err != nil {
				return nil, errors.Wrap(err, errors.ErrModInvalid, "corrupt option manifest").
					WithPath(packagePath).WithDetail("option", opt)
			}
			pkg.OptionManifests[opt] = m
		default:
			pkg.payloads[name] = data
		}
	}

	if !haveMeta {
		return nil, errors.New(errors.ErrModInvalid, "package has no meta.yml").WithPath(packagePath)
	}
	if !haveManifest {
		return nil, errors.New(errors.ErrModInvalid, "package has no manifest.yml").WithPath(packagePath)
	}
	if pkg.Meta.Name == "" || pkg.Meta.Version == "" {
		return nil, errors.New(errors.ErrModInvalid, "meta.yml must set name and version").WithPath(packagePath)
	}
	return pkg, nil
}

func isOptionManifest(name string) bool {
	parts := strings.Split(name, "/")
	return len(parts) == 3 && parts[0] == OptionsDirName && parts[2] == ManifestFileName
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Unpack extracts every payload into destDir, decompressing as it goes.
// The resulting tree mirrors the package layout: <variant>/<flattened
// path>[.diff.yml|.override] plus the options/ subtree.
func (p *Package) Unpack(fsys types.FS, destDir string) error {
	log := logging.GetLogger("modpack")
	for name, data := range p.payloads {
		plain, _, err := codec.DecompressIf(data)
		if err != nil {
			return errors.Wrap(err, errors.ErrModInvalid, "corrupt compressed payload").
				WithPath(name)
		}
		target := filepath.Join(destDir, filepath.FromSlash(name))
		if err := fsys.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return errors.Wrap(err, errors.ErrDirCreate, "failed to create payload dir").WithPath(target)
		}
		if err := fsys.WriteFile(target, plain, 0o644); err != nil {
			return errors.Wrap(err, errors.ErrFileWrite, "failed to write payload").WithPath(target)
		}
	}
	log.Debug().Str("mod", p.Meta.Name).Int("payloads", len(p.payloads)).
		Str("dest", destDir).Msg("unpacked mod package")
	return nil
}

// PayloadKind classifies how a payload contributes to a merge.
type PayloadKind int

const (
	// PayloadDiff is a YAML structural diff applied onto the baseline.
	PayloadDiff PayloadKind = iota
	// PayloadOverride replaces the resource outright, suppressing merging.
	PayloadOverride
	// PayloadFile is a plain whole-file payload.
	PayloadFile
)

// ClassifyPayload splits an on-disk payload file name into the resource
// path it belongs to and the payload kind.
func ClassifyPayload(flatName string) (resPath string, kind PayloadKind) {
	switch {
	case strings.HasSuffix(flatName, DiffSuffix):
		return registry.UnflattenPath(strings.TrimSuffix(flatName, DiffSuffix)), PayloadDiff
	case strings.HasSuffix(flatName, OverrideSuffix):
		return registry.UnflattenPath(strings.TrimSuffix(flatName, OverrideSuffix)), PayloadOverride
	default:
		return registry.UnflattenPath(flatName), PayloadFile
	}
}
