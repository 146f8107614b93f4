package modpack

import (
	"archive/zip"
	"bytes"
	"path"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/stratum-mods/stratum/pkg/codec"
	"github.com/stratum-mods/stratum/pkg/diff"
	"github.com/stratum-mods/stratum/pkg/errors"
	"github.com/stratum-mods/stratum/pkg/logging"
	"github.com/stratum-mods/stratum/pkg/registry"
	"github.com/stratum-mods/stratum/pkg/resource"
	"github.com/stratum-mods/stratum/pkg/types"
)

// BaselineFunc resolves the unmodified resource for a variant-qualified
// path during packing. ok=false means the mod introduces the resource.
type BaselineFunc func(v types.Variant, resPath string) (data []byte, ok bool, err error)

// PackOptions describes a pack-from-folder run. SourceDir is laid out like
// unpacked mod storage: <variant>/ trees of modified files, plus an
// optional options/ subtree.
type PackOptions struct {
	Meta      registry.Meta
	SourceDir string
	Baselines BaselineFunc

	// Overrides lists resource paths whose payloads must bypass
	// structural merging entirely.
	Overrides []string
}

// Pack builds a .smod package from a loose mod folder. Structured files
// with a baseline become YAML diffs; everything else ships whole. The
// computed manifest is returned for inspection.
func Pack(fsys types.FS, opts PackOptions, outPath string) (*registry.Manifest, error) {
	if opts.Meta.Name == "" || opts.Meta.Version == "" {
		return nil, errors.New(errors.ErrInvalidInput, "package meta must set name and version")
	}
	log := logging.GetLogger("modpack")

	override := make(map[string]bool, len(opts.Overrides))
	for _, p := range opts.Overrides {
		override[resource.Canonical(p)] = true
	}

	var manifest registry.Manifest
	payloads := make(map[string][]byte)

	for _, v := range types.Variants() {
		root := filepath.Join(opts.SourceDir, string(v))
		files, err := walkFiles(fsys, root)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			rel, _ := filepath.Rel(root, file)
			resPath := registry.UnflattenPath(rel)
			name, data, err := buildPayload(fsys, file, v, resPath, opts.Baselines, override)
			if err != nil {
				return nil, err
			}
			manifest.Add(v, resPath)
			payloads[path.Join(string(v), name)] = data
		}
	}

	optionManifests, err := packOptions(fsys, opts, override, payloads)
	if err != nil {
		return nil, err
	}

	if err := writePackage(fsys, outPath, opts.Meta, manifest, optionManifests, payloads); err != nil {
		return nil, err
	}
	log.Info().Str("package", outPath).Str("mod", opts.Meta.Name).
		Int("paths", manifest.Len()).Msg("packed mod")
	return &manifest, nil
}

// buildPayload decides the payload form for one modified file and returns
// the zip entry name (relative to the variant dir) and compressed bytes.
func buildPayload(fsys types.FS, file string, v types.Variant, resPath string, baselines BaselineFunc, override map[string]bool) (string, []byte, error) {
	data, err := fsys.ReadFile(file)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.ErrFileAccess, "failed to read mod file").WithPath(file)
	}
	flat := registry.FlattenPath(resPath)

	if override[resource.Canonical(resPath)] {
		return flat + OverrideSuffix, codec.Compress(data), nil
	}

	if resource.KindOf(resPath) == resource.ResStructured && baselines != nil {
		base, ok, err := baselines(v, resPath)
		if err != nil {
			return "", nil, errors.Wrap(err, errors.ErrFileAccess, "failed to read baseline").WithPath(resPath)
		}
		if ok {
			payload, err := diffPayload(base, data, resPath)
			if err != nil {
				return "", nil, err
			}
			return flat + DiffSuffix, codec.Compress(payload), nil
		}
	}
	return flat, codec.Compress(data), nil
}

func diffPayload(baseline, modified []byte, resPath string) ([]byte, error) {
	basePlain, _, err := codec.DecompressIf(baseline)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrContainerCorrupt, "corrupt baseline").WithPath(resPath)
	}
	modPlain, _, err := codec.DecompressIf(modified)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrContainerCorrupt, "corrupt mod file").WithPath(resPath)
	}
	baseNode, err := resource.UnmarshalBinary(basePlain)
	if err != nil {
		return nil, wrapPath(err, resPath)
	}
	modNode, err := resource.UnmarshalBinary(modPlain)
	if err != nil {
		return nil, wrapPath(err, resPath)
	}
	d := diff.Diff(baseNode, modNode, resource.SpecFor(resPath))
	return diff.EncodeYAML(d)
}

func packOptions(fsys types.FS, opts PackOptions, override map[string]bool, payloads map[string][]byte) (map[string]registry.Manifest, error) {
	optionsRoot := filepath.Join(opts.SourceDir, OptionsDirName)
	entries, err := fsys.ReadDir(optionsRoot)
	if err != nil {
		// No options subtree is the common case.
		return nil, nil
	}

	manifests := make(map[string]registry.Manifest)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		opt := e.Name()
		var m registry.Manifest
		for _, v := range types.Variants() {
			root := filepath.Join(optionsRoot, opt, string(v))
			files, err := walkFiles(fsys, root)
			if err != nil {
				return nil, err
			}
			for _, file := range files {
				rel, _ := filepath.Rel(root, file)
				resPath := registry.UnflattenPath(rel)
				name, data, err := buildPayload(fsys, file, v, resPath, opts.Baselines, override)
				if err != nil {
					return nil, err
				}
				m.Add(v, resPath)
				payloads[path.Join(OptionsDirName, opt, string(v), name)] = data
			}
		}
		manifests[opt] = m
	}
	return manifests, nil
}

// writePackage assembles the zip envelope. Payloads are already
// zstd-compressed, so they are stored raw; the YAML metadata deflates.
func writePackage(fsys types.FS, outPath string, meta registry.Meta, manifest registry.Manifest, optionManifests map[string]registry.Manifest, payloads map[string][]byte) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeYAMLEntry(zw, MetaFileName, meta); err != nil {
		return err
	}
	if err := writeYAMLEntry(zw, ManifestFileName, manifest); err != nil {
		return err
	}
	optNames := make([]string, 0, len(optionManifests))
	for opt := range optionManifests {
		optNames = append(optNames, opt)
	}
	sort.Strings(optNames)
	for _, opt := range optNames {
		name := path.Join(OptionsDirName, opt, ManifestFileName)
		if err := writeYAMLEntry(zw, name, optionManifests[opt]); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(payloads))
	for name := range payloads {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		if err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to create package entry").WithDetail("entry", name)
		}
		if _, err := w.Write(payloads[name]); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to write package entry").WithDetail("entry", name)
		}
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to finalize package")
	}

	if err := fsys.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "failed to create output dir").WithPath(outPath)
	}
	if err := fsys.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, errors.ErrFileWrite, "failed to write package").WithPath(outPath)
	}
	return nil
}

func writeYAMLEntry(zw *zip.Writer, name string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode package metadata").WithDetail("entry", name)
	}
	w, err := zw.Create(name)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create package entry").WithDetail("entry", name)
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to write package entry").WithDetail("entry", name)
	}
	return nil
}

// walkFiles lists all regular files under root, depth-first. A missing
// root yields an empty list.
func walkFiles(fsys types.FS, root string) ([]string, error) {
	entries, err := fsys.ReadDir(root)
	if err != nil {
		return nil, nil
	}
	var out []string
	for _, e := range entries {
		full := filepath.Join(root, e.Name())
		if e.IsDir() {
			sub, err := walkFiles(fsys, full)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		out = append(out, full)
	}
	sort.Strings(out)
	return out, nil
}

func wrapPath(err error, resPath string) error {
	if se, ok := err.(*errors.StratumError); ok {
		return se.WithPath(resPath)
	}
	return errors.Wrap(err, errors.ErrContainerCorrupt, "unreadable structured resource").WithPath(resPath)
}
