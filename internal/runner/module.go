package runner

import (
	"sync"

	"github.com/village-kernel/village-go/internal/debug"
	"github.com/village-kernel/village-go/internal/fs"
	"github.com/village-kernel/village-go/internal/util/linkedlist"
	"github.com/village-kernel/village-go/internal/util/parser"
)

type moduleEntry struct {
	path      string
	container Container
}

// ModuleManager is the kernel's module install list (vk_module.rs):
// Setup/Exit drive /modules/_load_.rc (install forward, uninstall
// reverse); Install/Uninstall are exposed directly for the console's
// `insmod`/`rmmod` commands.
type ModuleManager struct {
	mu       sync.Mutex
	mods     linkedlist.List[moduleEntry]
	director *Director
	files    *fs.Facade
	dbg      *debug.Debug
}

// NewModuleManager returns an empty ModuleManager.
func NewModuleManager(director *Director, files *fs.Facade, dbg *debug.Debug) *ModuleManager {
	return &ModuleManager{director: director, files: files, dbg: dbg}
}

const modulesRC = "/modules/_load_.rc"

// Setup installs every module named in /modules/_load_.rc, in record
// order.
func (m *ModuleManager) Setup() {
	for _, path := range m.readRC(modulesRC) {
		m.Install(path)
	}
	if m.dbg != nil {
		m.dbg.Info("Module setup completed!")
	}
}

// Exit uninstalls every module named in /modules/_load_.rc, in
// reverse record order.
func (m *ModuleManager) Exit() {
	records := m.readRC(modulesRC)
	for i := len(records) - 1; i >= 0; i-- {
		m.Uninstall(records[i])
	}
}

func (m *ModuleManager) readRC(path string) []string {
	if m.files == nil {
		return nil
	}
	data, err := m.files.ReadFile(path)
	if err != nil {
		return nil
	}
	return parser.RC(string(data))
}

// Install builds a module container for path via the director's
// program builder registry and runs it without argv.
func (m *ModuleManager) Install(path string) bool {
	m.mu.Lock()
	already := false
	m.mods.Each(func(e moduleEntry) {
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

	container, err := m.director.CreateProgContainer(path)
	if err != nil {
		if m.dbg != nil {
			m.dbg.Error(path + " unsupported file type!")
		}
		return false
	}
	if container.Run(path, nil) < 0 {
		if m.dbg != nil {
			m.dbg.Error(path + " install failed!")
		}
		return false
	}

	m.mu.Lock()
	m.mods.PushBack(moduleEntry{path: path, container: container})
	m.mu.Unlock()
	if m.dbg != nil {
		m.dbg.Info(path + " install successful!")
	}
	return true
}

// Uninstall kills the module's container and removes it from the
// list.
func (m *ModuleManager) Uninstall(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := m.mods.RemoveMatch(func(e moduleEntry) bool {
		if e.path == path {
			e.container.Kill()
			return true
		}
		return false
	})
	if !removed {
		if m.dbg != nil {
			m.dbg.Error(path + " module not found!")
		}
		return false
	}
	if m.dbg != nil {
		m.dbg.Info(path + " uninstall successful!")
	}
	return true
}
