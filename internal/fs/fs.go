// Package fs implements the filesystem facade: the mount table and
// longest-prefix volume routing described in spec.md 4.G. A concrete
// filesystem (FAT, etc.) is an external collaborator that only needs
// to implement Volume.
package fs

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/village-kernel/village-go/internal/debug"
)

// Mode mirrors the original FileMode bit flags.
type Mode int

const (
	OpenExisting Mode = 0x00
	Read         Mode = 0x01
	Write        Mode = 0x02
	ReadWrite    Mode = 0x03
	CreateNew    Mode = 0x04
	CreateAlways Mode = 0x10
	OpenAppend   Mode = 0x30
)

// Type classifies a directory entry.
type Type int

const (
	Unknown Type = iota
	File
	Directory
	VolumeType
)

// Entry is one result of a directory read.
type Entry struct {
	Path string
	Name string
	Type Type
}

// ErrNoVolume is returned when no mounted volume's path is a prefix
// of the requested path.
var ErrNoVolume = errors.New("fs: no volume mounted for path")

// Volume is the per-filesystem collaborator: it owns its own fd
// tables for files and directories. The facade only ever calls a
// Volume after resolving the mount path via longest-prefix match.
type Volume interface {
	MountPath() string
	SetMountPath(path string)
	Name() string

	Open(name string, mode Mode) (fd int, ok bool)
	Write(fd int, data []byte, offset int) int
	Read(fd int, data []byte, offset int) int
	Size(fd int) int
	Flush(fd int)
	Close(fd int)

	OpenDir(name string) (fd int, ok bool)
	ReadDir(fd int, offset int) (Entry, bool)
	SizeDir(fd int) int
	CloseDir(fd int)

	Exist(name string, typeid Type) bool
	Remove(name string) bool
}

// FileSys is a registered filesystem driver: it produces Volume
// instances on demand, one per mount.
type FileSys interface {
	Name() string
	CreateVolume() Volume
}

// Facade is the kernel's filesystem facade: it owns the mount table
// and dispatches every file/dir operation to the volume whose mount
// path is the longest prefix of the request path.
type Facade struct {
	mu       sync.Mutex
	registry map[string]FileSys
	mounts   []Volume
	dbg      *debug.Debug
}

// New returns an empty Facade.
func New(dbg *debug.Debug) *Facade {
	return &Facade{registry: make(map[string]FileSys), dbg: dbg}
}

// Setup logs readiness.
func (f *Facade) Setup() {
	if f.dbg != nil {
		f.dbg.Info("File system setup completed!")
	}
}

// Exit flushes nothing (mount/volume teardown is caller-driven via
// Unmount) and logs nothing; its body is empty.
func (f *Facade) Exit() {}

// RegisterFS adds a filesystem driver to the registry, keyed by name.
func (f *Facade) RegisterFS(filesys FileSys) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registry[filesys.Name()] = filesys
}

// UnregisterFS removes a filesystem driver from the registry. Any
// volumes it already produced remain mounted until explicitly
// unmounted.
func (f *Facade) UnregisterFS(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.registry, name)
}

// Mount creates a volume from the named filesystem driver and mounts
// it at path.
func (f *Facade) Mount(fsName, path string) (Volume, error) {
	f.mu.Lock()
	driver, ok := f.registry[fsName]
	f.mu.Unlock()
	if !ok {
		return nil, errors.Errorf("fs: unknown filesystem %q", fsName)
	}
	vol := driver.CreateVolume()
	vol.SetMountPath(path)

	f.mu.Lock()
	f.mounts = append(f.mounts, vol)
	f.mu.Unlock()
	return vol, nil
}

// Unmount drops the volume mounted at path.
func (f *Facade) Unmount(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range f.mounts {
		if v.MountPath() == path {
			f.mounts = append(f.mounts[:i], f.mounts[i+1:]...)
			return true
		}
	}
	return false
}

// GetVolume selects the mounted volume whose mount path is the
// longest prefix of path.
func (f *Facade) GetVolume(path string) (Volume, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var best Volume
	bestLen := -1
	for _, v := range f.mounts {
		mp := v.MountPath()
		if strings.HasPrefix(path, mp) && len(mp) > bestLen {
			best = v
			bestLen = len(mp)
		}
	}
	return best, best != nil
}

// Open resolves path's volume and opens it.
func (f *Facade) Open(path string, mode Mode) (Volume, int, error) {
	v, ok := f.GetVolume(path)
	if !ok {
		return nil, 0, ErrNoVolume
	}
	fd, ok := v.Open(path, mode)
	if !ok {
		return nil, 0, errors.Errorf("fs: open %q failed", path)
	}
	return v, fd, nil
}

// ReadFile opens path read-only, reads it to the end, and closes it —
// the convenience a loader (internal/runner) needs instead of driving
// Open/Read/Size/Close itself.
func (f *Facade) ReadFile(path string) ([]byte, error) {
	v, fd, err := f.Open(path, Read)
	if err != nil {
		return nil, err
	}
	defer v.Close(fd)

	size := v.Size(fd)
	data := make([]byte, size)
	n := v.Read(fd, data, 0)
	if n < 0 {
		n = 0
	}
	return data[:n], nil
}

// Exist resolves path's volume and checks existence.
func (f *Facade) Exist(path string, typeid Type) bool {
	v, ok := f.GetVolume(path)
	if !ok {
		return false
	}
	return v.Exist(path, typeid)
}

// Remove resolves path's volume and removes the entry.
func (f *Facade) Remove(path string) bool {
	v, ok := f.GetVolume(path)
	if !ok {
		return false
	}
	return v.Remove(path)
}

// OpenDir resolves path's volume and opens it for directory reads.
func (f *Facade) OpenDir(path string) (Volume, int, error) {
	v, ok := f.GetVolume(path)
	if !ok {
		return nil, 0, ErrNoVolume
	}
	fd, ok := v.OpenDir(path)
	if !ok {
		return nil, 0, errors.Errorf("fs: opendir %q failed", path)
	}
	return v, fd, nil
}
