package extension

import "github.com/village-kernel/village-go/internal/debug"

// Feature is the kernel's Feature capability (vk_feature.rs). The
// original leaves module register/unregister/get unimplemented; the
// real module lifecycle lives in runner.ModuleManager, reached
// through the kernel facade's own accessor.
type Feature struct {
	dbg *debug.Debug
}

// NewFeature returns a Feature.
func NewFeature(dbg *debug.Debug) *Feature {
	return &Feature{dbg: dbg}
}

// Setup logs readiness.
func (f *Feature) Setup() {
	if f.dbg != nil {
		f.dbg.Info("Feature setup done!")
	}
}

// Exit has nothing to release.
func (f *Feature) Exit() {}

// RegisterModule is reserved for a future module-table capability;
// the original leaves it unimplemented.
func (f *Feature) RegisterModule() {}

// UnregisterModule is reserved for a future module-table capability;
// the original leaves it unimplemented.
func (f *Feature) UnregisterModule() {}

// GetModule is reserved for a future module-table capability; the
// original leaves it unimplemented.
func (f *Feature) GetModule(name string) {}
