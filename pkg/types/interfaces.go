package types

import (
	"io/fs"
)

// Pather exposes the base directories an application stores state under.
type Pather interface {
	// DataDir returns the directory for long-lived application data.
	DataDir() string

	// ConfigDir returns the directory holding user configuration.
	ConfigDir() string

	// CacheDir returns the directory for regenerable caches.
	CacheDir() string

	// StateDir returns the directory for logs and other mutable state.
	StateDir() string
}

// FS is the filesystem interface required for stratum operations
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Directory operations
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)

	// Link operations
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)
	Link(oldname, newname string) error

	// Other operations
	Remove(name string) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error

	// Lstat reports on the link itself rather than its target.
	// Implementations without symlink support may fall back to Stat.
	Lstat(name string) (fs.FileInfo, error)
}
