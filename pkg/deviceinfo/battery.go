package deviceinfo

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Battery status codes as reported by the Android battery service
const (
	BatteryStatusUnknown     = 1
	BatteryStatusCharging    = 2
	BatteryStatusDischarging = 3
	BatteryStatusNotCharging = 4
	BatteryStatusFull        = 5
)

// Plug source codes
const (
	BatteryPluggedNone     = 0
	BatteryPluggedAC       = 1
	BatteryPluggedUSB      = 2
	BatteryPluggedWireless = 4
	BatteryPluggedDock     = 8
)

// sysfs power_supply values
const (
	powerSupplyTypeBattery   = "battery"
	powerSupplyTypeMains     = "mains"
	powerSupplyTypeWireless  = "wireless"
	powerSupplyTypeUSBPrefix = "usb" // USB, USB_C, USB_PD, ...
	powerSupplyOnline        = "1"
	sysfsCapacityScale       = 100
)

// BatterySnapshot mirrors the extras of a battery state broadcast
type BatterySnapshot struct {
	Level   int
	Scale   int
	Status  int
	Plugged int
}

// Percent returns round(level*100/scale)
func (b BatterySnapshot) Percent() (int, error) {
	if b.Scale <= 0 || b.Level < 0 {
		return 0, fmt.Errorf("invalid battery level %d/%d", b.Level, b.Scale)
	}

	pct := float64(b.Level*100) / float64(b.Scale)
	return int(math.Floor(pct + 0.5)), nil
}

// StatusString maps the status code to its display string
func (b BatterySnapshot) StatusString() string {
	switch b.Status {
	case BatteryStatusCharging:
		return "Charging"
	case BatteryStatusDischarging:
		return "Discharging"
	case BatteryStatusFull:
		return "Full"
	case BatteryStatusNotCharging:
		return "Not charging"
	default:
		return "Unknown"
	}
}

// PluggedString maps the plug code to its display string
func (b BatterySnapshot) PluggedString() string {
	switch b.Plugged {
	case BatteryPluggedAC:
		return "AC"
	case BatteryPluggedUSB:
		return "USB"
	case BatteryPluggedWireless:
		return "Wireless"
	default:
		return "Unplugged"
	}
}

// ParseDumpsysBattery parses the output of `dumpsys battery`
func ParseDumpsysBattery(out string) (BatterySnapshot, error) {
	fields := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(parts[0]))] = strings.TrimSpace(parts[1])
	}

	level, err := strconv.Atoi(fields["level"])
	if err != nil {
		return BatterySnapshot{}, fmt.Errorf("failed to parse battery level: %w", err)
	}
	scale, err := strconv.Atoi(fields["scale"])
	if err != nil {
		return BatterySnapshot{}, fmt.Errorf("failed to parse battery scale: %w", err)
	}

	snapshot := BatterySnapshot{
		Level:   level,
		Scale:   scale,
		Status:  BatteryStatusUnknown,
		Plugged: BatteryPluggedNone,
	}
	if status, err := strconv.Atoi(fields["status"]); err == nil {
		snapshot.Status = status
	}

	switch {
	case fields["ac powered"] == "true":
		snapshot.Plugged = BatteryPluggedAC
	case fields["usb powered"] == "true":
		snapshot.Plugged = BatteryPluggedUSB
	case fields["wireless powered"] == "true":
		snapshot.Plugged = BatteryPluggedWireless
	case fields["dock powered"] == "true":
		snapshot.Plugged = BatteryPluggedDock
	}

	return snapshot, nil
}

// ReadPowerSupply builds a snapshot from a sysfs power_supply class directory
func ReadPowerSupply(dir string) (BatterySnapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return BatterySnapshot{}, fmt.Errorf("failed to read power supplies: %w", err)
	}

	snapshot := BatterySnapshot{Status: BatteryStatusUnknown, Plugged: BatteryPluggedNone}
	found := false

	for _, entry := range entries {
		supply := filepath.Join(dir, entry.Name())
		supplyType := strings.ToLower(readSysfs(supply, "type"))

		switch {
		case supplyType == powerSupplyTypeBattery:
			capacity, err := strconv.Atoi(readSysfs(supply, "capacity"))
			if err != nil {
				continue
			}
			snapshot.Level = capacity
			snapshot.Scale = sysfsCapacityScale
			snapshot.Status = sysfsStatusCode(readSysfs(supply, "status"))
			found = true

		case readSysfs(supply, "online") != powerSupplyOnline:
			// Offline chargers do not affect the plug source

		case supplyType == powerSupplyTypeMains:
			snapshot.Plugged = BatteryPluggedAC
		case strings.HasPrefix(supplyType, powerSupplyTypeUSBPrefix):
			if snapshot.Plugged == BatteryPluggedNone {
				snapshot.Plugged = BatteryPluggedUSB
			}
		case supplyType == powerSupplyTypeWireless:
			if snapshot.Plugged == BatteryPluggedNone {
				snapshot.Plugged = BatteryPluggedWireless
			}
		}
	}

	if !found {
		return BatterySnapshot{}, fmt.Errorf("no battery in %s: %w", dir, ErrNoValue)
	}
	return snapshot, nil
}

// sysfsStatusCode maps the power_supply status text to a status code
func sysfsStatusCode(status string) int {
	switch strings.ToLower(status) {
	case "charging":
		return BatteryStatusCharging
	case "discharging":
		return BatteryStatusDischarging
	case "not charging":
		return BatteryStatusNotCharging
	case "full":
		return BatteryStatusFull
	default:
		return BatteryStatusUnknown
	}
}

func readSysfs(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
