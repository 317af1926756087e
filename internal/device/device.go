// Package device implements the device registry: the live driver
// list and the platform device/platform driver matcher described in
// spec.md 4.F.
package device

import (
	"sync"

	"github.com/village-kernel/village-go/internal/debug"
	"github.com/village-kernel/village-go/internal/util/observer"
)

// HotplugEvent is the Notify payload sent to Hotplug subscribers
// whenever a driver attaches to or detaches from a device.
type HotplugEvent struct {
	DeviceName string
	DriverName string
	Attached   bool
}

// Kind classifies a registered driver, mirroring the original
// DriverID enum's non-platform variants.
type Kind int

const (
	Block Kind = iota
	Char
	Display
	Input
	Network
	Misc
)

func (k Kind) String() string {
	switch k {
	case Block:
		return "block driver"
	case Char:
		return "char driver"
	case Display:
		return "display driver"
	case Input:
		return "input driver"
	case Network:
		return "network driver"
	default:
		return "misc driver"
	}
}

// Command is an opaque ioctl payload; FBCommand-style structured
// variants live alongside the concrete driver that understands them.
type Command any

// Driver is the vtable every registered driver instance implements.
type Driver interface {
	Open(config any) bool
	Write(data []byte, offset int) int
	Read(data []byte, offset int) int
	Ioctrl(cmd Command) bool
	Close()
}

// record is a live driver entry: its vtable plus the identity the
// registry matches on.
type record struct {
	kind   Kind
	name   string
	config any
	driver Driver
}

// PlatDevice is a platform device awaiting a matching driver. Name
// equality is the only matching criterion (spec.md 4.F).
type PlatDevice struct {
	Name   string
	Config any
}

// PlatDriver probes platform devices whose name it recognizes and
// attaches/detaches a concrete Driver to/from the registry.
type PlatDriver interface {
	// Probe is called with a device whose name matched; it returns the
	// driver instance to register, or (nil, false) to decline.
	Probe(dev PlatDevice) (Driver, bool)
	// Remove is called when the device is unregistered or the driver
	// itself is unregistered, to release any attached driver state.
	Remove(dev PlatDevice)
}

// Registry is the kernel's device registry: platform devices,
// platform drivers, and the resulting live driver instances.
type Registry struct {
	mu       sync.Mutex
	devices  map[string]PlatDevice
	drivers  map[string]PlatDriver
	live     map[string]*record
	attached map[string]string // device name -> attached platform driver name
	dbg      *debug.Debug

	// Hotplug notifies subscribers of driver attach/detach (vk_observer.rs
	// subject/observer used for device hotplug in the original).
	Hotplug observer.Subject
}

// New returns an empty Registry.
func New(dbg *debug.Debug) *Registry {
	return &Registry{
		devices:  make(map[string]PlatDevice),
		drivers:  make(map[string]PlatDriver),
		live:     make(map[string]*record),
		attached: make(map[string]string),
		dbg:      dbg,
	}
}

// Setup logs readiness.
func (r *Registry) Setup() {
	if r.dbg != nil {
		r.dbg.Info("Device setup completed!")
	}
}

// Exit tears down every live driver.
func (r *Registry) Exit() {
	r.mu.Lock()
	names := make([]string, 0, len(r.live))
	for name := range r.live {
		names = append(names, name)
	}
	r.mu.Unlock()
	for _, name := range names {
		r.UnregisterDriver(name)
	}
}

// RegisterDevice adds dev to the platform device list and attempts a
// probe against every registered platform driver whose name matches.
func (r *Registry) RegisterDevice(dev PlatDevice) {
	r.mu.Lock()
	r.devices[dev.Name] = dev
	drv, ok := r.drivers[dev.Name]
	r.mu.Unlock()
	if ok {
		r.probe(dev, dev.Name, drv)
	}
}

// UnregisterDevice removes dev and, if a driver is attached, runs its
// Remove hook and drops the live driver record.
func (r *Registry) UnregisterDevice(name string) {
	r.mu.Lock()
	delete(r.devices, name)
	drvName, attached := r.attached[name]
	r.mu.Unlock()
	if attached {
		r.detach(name, drvName)
	}
}

// RegisterDriver adds drv (matched by name) to the platform driver
// list and probes it against any already-registered device of the
// same name.
func (r *Registry) RegisterDriver(name string, drv PlatDriver) {
	r.mu.Lock()
	r.drivers[name] = drv
	dev, ok := r.devices[name]
	r.mu.Unlock()
	if ok {
		r.probe(dev, name, drv)
	}
}

// UnregisterDriver detaches name's live driver, if any, and removes
// it from the platform driver list.
func (r *Registry) UnregisterDriver(name string) {
	r.mu.Lock()
	_, attached := r.live[name]
	r.mu.Unlock()
	if attached {
		r.detach(name, name)
	}
	r.mu.Lock()
	delete(r.drivers, name)
	r.mu.Unlock()
}

func (r *Registry) probe(dev PlatDevice, name string, drv PlatDriver) {
	driver, ok := drv.Probe(dev)
	if !ok {
		return
	}
	r.mu.Lock()
	r.live[name] = &record{kind: Misc, name: name, config: dev.Config, driver: driver}
	r.attached[dev.Name] = name
	r.mu.Unlock()
	r.Hotplug.Notify(HotplugEvent{DeviceName: dev.Name, DriverName: name, Attached: true})
}

func (r *Registry) detach(deviceName, driverName string) {
	r.mu.Lock()
	dev := r.devices[deviceName]
	drv := r.drivers[driverName]
	delete(r.live, driverName)
	delete(r.attached, deviceName)
	r.mu.Unlock()
	if drv != nil {
		drv.Remove(dev)
	}
	r.Hotplug.Notify(HotplugEvent{DeviceName: deviceName, DriverName: driverName, Attached: false})
}

// GetDriver returns the live driver registered under name.
func (r *Registry) GetDriver(name string) (Driver, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.live[name]
	if !ok {
		return nil, false
	}
	return rec.driver, true
}
