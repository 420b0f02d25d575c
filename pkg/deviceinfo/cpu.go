package deviceinfo

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseCPUModel returns the value of the first /proc/cpuinfo line whose key
// mentions "hardware" or "model name". ARM kernels report the SoC under
// Hardware, x86 kernels under model name.
func ParseCPUModel(cpuinfo string) (string, bool) {
	for _, line := range strings.Split(cpuinfo, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "hardware") && !strings.Contains(lower, "model name") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if value := strings.TrimSpace(parts[1]); value != "" {
			return value, true
		}
	}

	return "", false
}

// MaxCPUFreqMHz returns the highest cpuinfo_max_freq across all cores under
// root, converted from kHz to MHz. Unreadable or malformed files are skipped.
func MaxCPUFreqMHz(root string) (int, error) {
	pattern := filepath.Join(root, "sys", "devices", "system", "cpu", "cpu[0-9]*", "cpufreq", "cpuinfo_max_freq")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0, err
	}

	maxMHz := 0
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		khz, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			continue
		}
		if mhz := khz / 1000; mhz > maxMHz {
			maxMHz = mhz
		}
	}

	if maxMHz == 0 {
		return 0, ErrNoValue
	}
	return maxMHz, nil
}
