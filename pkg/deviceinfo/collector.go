package deviceinfo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Collector gathers a DeviceInfo snapshot on demand.
// A Collector holds no per-call state and is safe for concurrent use.
type Collector struct {
	runner  CommandRunner
	root    string
	dataDir string
	ids     *InstallationID
	log     zerolog.Logger
	onProbe func(probe string, err error)

	// gopsutil entry point, replaceable in tests
	platformVersion func() (string, error)
}

// Option configures a Collector
type Option func(*Collector)

// WithRunner sets the platform tool runner
func WithRunner(r CommandRunner) Option {
	return func(c *Collector) { c.runner = r }
}

// WithRoot sets the filesystem root that /proc and /sys are resolved against
func WithRoot(root string) Option {
	return func(c *Collector) { c.root = root }
}

// WithDataDir sets the filesystem reported as device storage
func WithDataDir(dir string) Option {
	return func(c *Collector) { c.dataDir = dir }
}

// WithInstallationID sets the identifier used when no device identifier is readable
func WithInstallationID(id *InstallationID) Option {
	return func(c *Collector) { c.ids = id }
}

// WithLogger sets the logger used for probe failures
func WithLogger(l zerolog.Logger) Option {
	return func(c *Collector) { c.log = l }
}

// WithProbeHook registers a callback invoked after every probe with its
// name and result (nil on success)
func WithProbeHook(fn func(probe string, err error)) Option {
	return func(c *Collector) { c.onProbe = fn }
}

// NewCollector creates a collector for the running device
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		runner:  ExecRunner{Timeout: 5 * time.Second},
		root:    "/",
		dataDir: "/",
		log:     zerolog.Nop(),
		platformVersion: func() (string, error) {
			info, err := host.Info()
			if err != nil {
				return "", err
			}
			return info.PlatformVersion, nil
		},
	}
	if runtime.GOOS == "android" {
		c.dataDir = "/data"
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// probe is one independent best-effort read
type probe struct {
	name string
	run  func(ctx context.Context, info *DeviceInfo) error
}

func (c *Collector) probes() []probe {
	return []probe{
		{"build", c.probeBuild},
		{"memory", c.probeMemory},
		{"storage", c.probeStorage},
		{"cores", c.probeCores},
		{"cpu_model", c.probeCPUModel},
		{"cpu_freq", c.probeCPUFreq},
		{"battery", c.probeBattery},
		{"screen", c.probeScreen},
		{"network", c.probeNetwork},
		{"identifier", c.probeIdentifier},
	}
}

// Collect runs every probe and returns the populated record.
// It never fails: a probe that errors or panics leaves its fields unset.
func (c *Collector) Collect() *DeviceInfo {
	info := &DeviceInfo{}
	ctx := context.Background()

	for _, p := range c.probes() {
		c.runProbe(ctx, p, info)
	}

	return info
}

// JSON collects a snapshot and serializes it
func (c *Collector) JSON() string {
	return c.Collect().JSON()
}

// runProbe executes a single probe, containing any error or panic
func (c *Collector) runProbe(ctx context.Context, p probe, info *DeviceInfo) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
		if err != nil {
			c.log.Debug().Str("probe", p.name).Err(err).Msg("probe failed")
		}
		if c.onProbe != nil {
			c.onProbe(p.name, err)
		}
	}()

	err = p.run(ctx, info)
}

// hostPath resolves an absolute pseudo-file path against the collector root
func (c *Collector) hostPath(path string) string {
	return filepath.Join(c.root, filepath.FromSlash(path))
}

// readTrimmed reads a small pseudo-file
func (c *Collector) readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(c.hostPath(path))
	if err != nil {
		return "", err
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", ErrNoValue
	}
	return value, nil
}

// prop reads an Android system property
func (c *Collector) prop(ctx context.Context, key string) (string, error) {
	value, err := c.runner.Run(ctx, "getprop", key)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", fmt.Errorf("%s: %w", key, ErrNoValue)
	}
	return value, nil
}

// probeBuild fills model, manufacturer and OS version
func (c *Collector) probeBuild(ctx context.Context, info *DeviceInfo) error {
	if model, err := c.prop(ctx, "ro.product.model"); err == nil {
		info.ModelName = model
	} else if model, err := c.readTrimmed("/sys/devices/virtual/dmi/id/product_name"); err == nil {
		info.ModelName = model
	}

	if manufacturer, err := c.prop(ctx, "ro.product.manufacturer"); err == nil {
		info.Manufacturer = manufacturer
	} else if vendor, err := c.readTrimmed("/sys/devices/virtual/dmi/id/sys_vendor"); err == nil {
		info.Manufacturer = vendor
	}

	if release, err := c.prop(ctx, "ro.build.version.release"); err == nil {
		info.AndroidVersion = release
	} else if version, err := c.platformVersion(); err == nil && version != "" {
		info.AndroidVersion = version
	}

	if info.ModelName == "" && info.Manufacturer == "" && info.AndroidVersion == "" {
		return ErrNoValue
	}
	return nil
}

// probeMemory fills total and available RAM
func (c *Collector) probeMemory(_ context.Context, info *DeviceInfo) error {
	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return fmt.Errorf("failed to read memory info: %w", err)
	}

	info.RAMSizeGB = ptr(bytesToGB(memInfo.Total))
	info.AvailableRAMGB = ptr(bytesToGB(memInfo.Available))
	return nil
}

// probeStorage fills total and available storage of the data filesystem.
// Free counts blocks usable by unprivileged callers.
func (c *Collector) probeStorage(_ context.Context, info *DeviceInfo) error {
	usage, err := disk.Usage(c.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem %s: %w", c.dataDir, err)
	}

	info.StorageSizeGB = ptr(bytesToGB(usage.Total))
	info.AvailableStorageGB = ptr(bytesToGB(usage.Free))
	return nil
}

// probeCores fills the logical core count
func (c *Collector) probeCores(_ context.Context, info *DeviceInfo) error {
	count, err := cpu.Counts(true)
	if err != nil || count <= 0 {
		count = runtime.NumCPU()
	}

	info.ProcessorCores = ptr(count)
	return nil
}

// probeCPUModel fills the CPU identification string
func (c *Collector) probeCPUModel(_ context.Context, info *DeviceInfo) error {
	if data, err := os.ReadFile(c.hostPath("/proc/cpuinfo")); err == nil {
		if model, ok := ParseCPUModel(string(data)); ok {
			info.CPUModel = model
			return nil
		}
	}

	// Fall back to gopsutil
	cpuInfo, err := cpu.Info()
	if err != nil {
		return fmt.Errorf("failed to read cpu info: %w", err)
	}
	if len(cpuInfo) == 0 || cpuInfo[0].ModelName == "" {
		return ErrNoValue
	}

	info.CPUModel = cpuInfo[0].ModelName
	return nil
}

// probeCPUFreq fills the maximum clock across cores
func (c *Collector) probeCPUFreq(_ context.Context, info *DeviceInfo) error {
	mhz, err := MaxCPUFreqMHz(c.root)
	if err != nil {
		return err
	}

	info.CPUMaxFreqMHz = ptr(mhz)
	return nil
}

// probeBattery fills level, status and plug source
func (c *Collector) probeBattery(ctx context.Context, info *DeviceInfo) error {
	snapshot, err := c.batterySnapshot(ctx)
	if err != nil {
		return err
	}

	info.BatteryStatus = snapshot.StatusString()
	info.BatteryPlugged = snapshot.PluggedString()

	pct, err := snapshot.Percent()
	if err != nil {
		return err
	}
	info.BatteryLevel = ptr(pct)
	return nil
}

// batterySnapshot reads the battery service state, falling back to sysfs
func (c *Collector) batterySnapshot(ctx context.Context) (BatterySnapshot, error) {
	if out, err := c.runner.Run(ctx, "dumpsys", "battery"); err == nil {
		if snapshot, err := ParseDumpsysBattery(out); err == nil {
			return snapshot, nil
		}
	}

	return ReadPowerSupply(c.hostPath("/sys/class/power_supply"))
}

// probeScreen fills resolution and diagonal size
func (c *Collector) probeScreen(ctx context.Context, info *DeviceInfo) error {
	sizeOut, err := c.runner.Run(ctx, "wm", "size")
	if err != nil {
		return err
	}
	width, height, err := ParseWMSize(sizeOut)
	if err != nil {
		return err
	}

	display := Display{WidthPx: width, HeightPx: height}
	info.ScreenResolution = display.Resolution()

	display.XDPI, display.YDPI, err = c.displayDPI(ctx)
	if err != nil {
		return err
	}

	inches, err := display.DiagonalInches()
	if err != nil {
		return err
	}
	info.ScreenSizeInches = ptr(inches)
	return nil
}

// displayDPI reads the physical panel density, falling back to the logical
// density from `wm density` for both axes
func (c *Collector) displayDPI(ctx context.Context) (float64, float64, error) {
	if out, err := c.runner.Run(ctx, "dumpsys", "display"); err == nil {
		if xdpi, ydpi, err := ParseDisplayDPI(out); err == nil {
			return xdpi, ydpi, nil
		}
	}

	out, err := c.runner.Run(ctx, "wm", "density")
	if err != nil {
		return 0, 0, err
	}
	dpi, err := ParseWMDensity(out)
	if err != nil {
		return 0, 0, err
	}
	return dpi, dpi, nil
}
