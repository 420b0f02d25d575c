package deviceinfo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRunner answers commands from a fixed table keyed by the joined command line
type fakeRunner map[string]string

func (f fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	if out, ok := f[key]; ok {
		return out, nil
	}
	return "", errors.New("exec: \"" + name + "\": executable file not found in $PATH")
}

// writeTree creates files relative to root
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	}
}

// newTestCollector builds a collector whose gopsutil host lookup fails
func newTestCollector(runner CommandRunner, root string, opts ...Option) *Collector {
	all := append([]Option{WithRunner(runner), WithRoot(root), WithDataDir(root)}, opts...)
	c := NewCollector(all...)
	c.platformVersion = func() (string, error) { return "", errors.New("host info unavailable") }
	return c
}
