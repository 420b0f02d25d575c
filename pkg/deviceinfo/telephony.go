package deviceinfo

import (
	"context"
	"strings"
)

// probeNetwork fills network type, carrier and SIM state from telephony properties
func (c *Collector) probeNetwork(ctx context.Context, info *DeviceInfo) error {
	if value, err := c.prop(ctx, "gsm.network.type"); err == nil {
		info.NetworkType = firstListEntry(value)
	}
	if value, err := c.prop(ctx, "gsm.operator.alpha"); err == nil {
		info.CarrierName = firstListEntry(value)
	}
	if value, err := c.prop(ctx, "gsm.sim.state"); err == nil {
		info.SimState = firstListEntry(value)
	}

	if info.NetworkType == "" && info.CarrierName == "" && info.SimState == "" {
		return ErrNoValue
	}
	return nil
}

// probeIdentifier fills the device identifier.
// Order: IMEI, Android ID, machine ID, then the persistent installation ID.
func (c *Collector) probeIdentifier(ctx context.Context, info *DeviceInfo) error {
	id, err := c.deviceIdentifier(ctx)
	if err != nil {
		return err
	}

	info.IMEIOrAndroidID = id
	return nil
}

func (c *Collector) deviceIdentifier(ctx context.Context) (string, error) {
	// IMEI is restricted to privileged apps on Android 10+
	if out, err := c.runner.Run(ctx, "service", "call", "iphonesubinfo", "1"); err == nil {
		if imei := ParseParcelString(out); isIMEI(imei) {
			return imei, nil
		}
	}

	if id, err := c.runner.Run(ctx, "settings", "get", "secure", "android_id"); err == nil {
		if id != "" && id != "null" {
			return id, nil
		}
	}

	if id, err := c.machineID(); err == nil {
		return id, nil
	}

	if c.ids != nil {
		return c.ids.Get()
	}

	return "", ErrRestricted
}

// machineID reads an identifier that survives reboots. The kernel boot_id
// changes on every boot and is never used. Android has neither file.
func (c *Collector) machineID() (string, error) {
	for _, path := range []string{"/etc/machine-id", "/sys/class/dmi/id/product_uuid"} {
		if id, err := c.readTrimmed(path); err == nil {
			return id, nil
		}
	}
	return "", ErrNoValue
}

// ParseParcelString extracts the string carried in `service call` output:
//
//	Result: Parcel(
//	  0x00000000: 00000000 0000000f 00350033 00340038 '........3.5.8.4.'
//
// The quoted columns are concatenated and the '.' placeholders dropped.
func ParseParcelString(out string) string {
	var b strings.Builder
	for _, line := range strings.Split(out, "\n") {
		start := strings.Index(line, "'")
		end := strings.LastIndex(line, "'")
		if start < 0 || end <= start {
			continue
		}
		b.WriteString(line[start+1 : end])
	}

	return strings.TrimSpace(strings.NewReplacer(".", "", " ", "").Replace(b.String()))
}

// isIMEI accepts 14 to 17 digit identifiers (IMEI, IMEISV, MEID in decimal)
func isIMEI(s string) bool {
	if len(s) < 14 || len(s) > 17 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// firstListEntry returns the first non-empty entry of a comma separated
// property (dual-SIM devices report one value per slot)
func firstListEntry(value string) string {
	for _, entry := range strings.Split(value, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			return entry
		}
	}
	return ""
}
