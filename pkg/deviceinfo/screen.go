package deviceinfo

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// displayDPIPattern matches the physical density in a DisplayDeviceInfo
// line, e.g. "density 420, 416.0 x 411.0 dpi"
var displayDPIPattern = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?) x ([0-9]+(?:\.[0-9]+)?) dpi`)

// Display holds pixel dimensions and reported density
type Display struct {
	WidthPx  int
	HeightPx int
	XDPI     float64
	YDPI     float64
}

// Resolution formats the pixel size as "<width>x<height>"
func (d Display) Resolution() string {
	return fmt.Sprintf("%dx%d", d.WidthPx, d.HeightPx)
}

// DiagonalInches returns the physical diagonal from pixel counts and DPI
func (d Display) DiagonalInches() (float64, error) {
	if d.XDPI <= 0 || d.YDPI <= 0 {
		return 0, fmt.Errorf("invalid display density %.1fx%.1f", d.XDPI, d.YDPI)
	}

	x := float64(d.WidthPx) / d.XDPI
	y := float64(d.HeightPx) / d.YDPI
	return math.Sqrt(x*x + y*y), nil
}

// ParseWMSize parses `wm size`. An override size wins over the physical size.
func ParseWMSize(out string) (int, int, error) {
	value, ok := wmValue(out, "size")
	if !ok {
		return 0, 0, fmt.Errorf("unexpected wm size output %q", out)
	}

	parts := strings.SplitN(value, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected screen size %q", value)
	}
	width, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse screen width: %w", err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse screen height: %w", err)
	}

	return width, height, nil
}

// ParseWMDensity parses `wm density`. An override density wins.
func ParseWMDensity(out string) (float64, error) {
	value, ok := wmValue(out, "density")
	if !ok {
		return 0, fmt.Errorf("unexpected wm density output %q", out)
	}

	dpi, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse screen density: %w", err)
	}
	return dpi, nil
}

// ParseDisplayDPI parses the panel's per-axis DPI from `dumpsys display`.
// The first DisplayDeviceInfo entry is the built-in screen.
func ParseDisplayDPI(out string) (float64, float64, error) {
	m := displayDPIPattern.FindStringSubmatch(out)
	if m == nil {
		return 0, 0, fmt.Errorf("no display dpi in dumpsys display output")
	}

	xdpi, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse x dpi: %w", err)
	}
	ydpi, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse y dpi: %w", err)
	}
	if xdpi <= 0 || ydpi <= 0 {
		return 0, 0, fmt.Errorf("invalid display dpi %sx%s", m[1], m[2])
	}

	return xdpi, ydpi, nil
}

// wmValue returns the "Override <kind>" value if present, else "Physical <kind>"
func wmValue(out, kind string) (string, bool) {
	var physical, override string
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		switch key {
		case "physical " + kind:
			physical = value
		case "override " + kind:
			override = value
		}
	}

	if override != "" {
		return override, true
	}
	return physical, physical != ""
}
