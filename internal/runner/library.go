package runner

import (
	"sync"

	"github.com/village-kernel/village-go/internal/debug"
	"github.com/village-kernel/village-go/internal/fs"
	"github.com/village-kernel/village-go/internal/util/linkedlist"
	"github.com/village-kernel/village-go/internal/util/parser"
)

type libraryEntry struct {
	path      string
	container Library
}

// LibraryManager is the kernel's library install list (vk_library.rs):
// Setup/Exit drive /libraries/_load_.rc (install forward, uninstall
// reverse); Install/Uninstall/Search are exposed directly for hot
// (un)loading via the console's `inslib`/`rmlib` commands.
type LibraryManager struct {
	mu       sync.Mutex
	libs     linkedlist.List[libraryEntry]
	director *Director
	files    *fs.Facade
	dbg      *debug.Debug
}

// NewLibraryManager returns an empty LibraryManager.
func NewLibraryManager(director *Director, files *fs.Facade, dbg *debug.Debug) *LibraryManager {
	return &LibraryManager{director: director, files: files, dbg: dbg}
}

const librariesRC = "/libraries/_load_.rc"

// Setup installs every library named in /libraries/_load_.rc, in
// record order.
func (m *LibraryManager) Setup() {
	for _, path := range m.readRC(librariesRC) {
		m.Install(path)
	}
	if m.dbg != nil {
		m.dbg.Info("Library setup completed!")
	}
}

// Exit uninstalls every library named in /libraries/_load_.rc, in
// reverse record order.
func (m *LibraryManager) Exit() {
	records := m.readRC(librariesRC)
	for i := len(records) - 1; i >= 0; i-- {
		m.Uninstall(records[i])
	}
}

func (m *LibraryManager) readRC(path string) []string {
	if m.files == nil {
		return nil
	}
	data, err := m.files.ReadFile(path)
	if err != nil {
		return nil
	}
	return parser.RC(string(data))
}

// Install loads path via the director's library builder registry and
// adds it to the install list. Installing an already-installed path
// is a harmless no-op (warned, not erred), matching the original.
func (m *LibraryManager) Install(path string) bool {
	m.mu.Lock()
	already := false
	m.libs.Each(func(e libraryEntry) {
		if e.path == path {
			already = true
		}
	})
	m.mu.Unlock()
	if already {
		if m.dbg != nil {
			m.dbg.Warn(path + " has already been installed!")
		}
		return true
	}

	container, err := m.director.CreateLibContainer(path)
	if err != nil {
		if m.dbg != nil {
			m.dbg.Error(path + " unsupported file type!")
		}
		return false
	}
	if !container.Init(path) {
		if m.dbg != nil {
			m.dbg.Error(path + " install failed!")
		}
		return false
	}

	m.mu.Lock()
	m.libs.PushBack(libraryEntry{path: path, container: container})
	m.mu.Unlock()
	if m.dbg != nil {
		m.dbg.Info(path + " install successful!")
	}
	return true
}

// Uninstall calls the library's Exit and removes it from the list.
func (m *LibraryManager) Uninstall(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := m.libs.RemoveMatch(func(e libraryEntry) bool {
		if e.path == path {
			e.container.Exit()
			return true
		}
		return false
	})
	if !removed {
		if m.dbg != nil {
			m.dbg.Error(path + " library not found!")
		}
		return false
	}
	if m.dbg != nil {
		m.dbg.Info(path + " uninstall successful!")
	}
	return true
}

// Search resolves symbol against every installed library in install
// order, returning the first match.
func (m *LibraryManager) Search(symbol string) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var addr uint32
	m.libs.Each(func(e libraryEntry) {
		if addr != 0 {
			return
		}
		if a := e.container.Get(symbol); a != 0 {
			addr = a
		}
	})
	return addr
}
