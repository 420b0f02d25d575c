package deviceinfo

import (
	"encoding/json"
	"errors"

	"gopkg.in/yaml.v3"
)

// BytesInGB is the divisor used for every *GB field
const BytesInGB = 1 << 30

var (
	// ErrNoValue is returned by a probe whose source exists but reports nothing
	ErrNoValue = errors.New("no value reported")

	// ErrRestricted is returned when every identifier source is restricted
	ErrRestricted = errors.New("identifier restricted or unavailable")
)

// DeviceInfo is the flat telemetry record returned to the page.
// Every field is optional; unset fields are omitted from the JSON.
type DeviceInfo struct {
	ModelName          string   `json:"modelName,omitempty" yaml:"modelName,omitempty"`
	Manufacturer       string   `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	RAMSizeGB          *float64 `json:"ramSizeGB,omitempty" yaml:"ramSizeGB,omitempty"`
	AvailableRAMGB     *float64 `json:"availableRamGB,omitempty" yaml:"availableRamGB,omitempty"`
	StorageSizeGB      *float64 `json:"storageSizeGB,omitempty" yaml:"storageSizeGB,omitempty"`
	AvailableStorageGB *float64 `json:"availableStorageGB,omitempty" yaml:"availableStorageGB,omitempty"`
	AndroidVersion     string   `json:"androidVersion,omitempty" yaml:"androidVersion,omitempty"`
	ProcessorCores     *int     `json:"processorCores,omitempty" yaml:"processorCores,omitempty"`
	BatteryLevel       *int     `json:"batteryLevel,omitempty" yaml:"batteryLevel,omitempty"`
	BatteryStatus      string   `json:"batteryStatus,omitempty" yaml:"batteryStatus,omitempty"`   // Charging/Discharging/...
	BatteryPlugged     string   `json:"batteryPlugged,omitempty" yaml:"batteryPlugged,omitempty"` // AC/USB/Wireless/Unplugged
	CPUModel           string   `json:"cpuModel,omitempty" yaml:"cpuModel,omitempty"`
	CPUMaxFreqMHz      *int     `json:"cpuMaxFreqMHz,omitempty" yaml:"cpuMaxFreqMHz,omitempty"`
	NetworkType        string   `json:"networkType,omitempty" yaml:"networkType,omitempty"`
	CarrierName        string   `json:"carrierName,omitempty" yaml:"carrierName,omitempty"`
	SimState           string   `json:"simState,omitempty" yaml:"simState,omitempty"`
	IMEIOrAndroidID    string   `json:"imeiOrAndroidId,omitempty" yaml:"imeiOrAndroidId,omitempty"`
	ScreenResolution   string   `json:"screenResolution,omitempty" yaml:"screenResolution,omitempty"`
	ScreenSizeInches   *float64 `json:"screenSizeInches,omitempty" yaml:"screenSizeInches,omitempty"`
}

// JSON serializes the record. An empty object is returned if encoding fails.
func (d *DeviceInfo) JSON() string {
	data, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// YAML serializes the record for human-readable output
func (d *DeviceInfo) YAML() ([]byte, error) {
	return yaml.Marshal(d)
}

func ptr[T any](v T) *T {
	return &v
}

func bytesToGB(b uint64) float64 {
	return float64(b) / BytesInGB
}
