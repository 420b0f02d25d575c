package deviceinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// InstallationID is a random identifier persisted on first use.
// It stands in for a hardware identifier the agent is not allowed to read.
type InstallationID struct {
	path string

	mu sync.Mutex
	id string
}

// NewInstallationID returns an identifier stored at path
func NewInstallationID(path string) *InstallationID {
	return &InstallationID{path: path}
}

// Stored returns the identifier already on disk without creating one.
// A missing file yields an error matching os.ErrNotExist.
func (i *InstallationID) Stored() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.load()
}

// Get returns the stored identifier, creating it if missing or corrupt
func (i *InstallationID) Get() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if id, err := i.load(); err == nil {
		return id, nil
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(i.path), 0700); err != nil {
		return "", fmt.Errorf("failed to create installation id directory: %w", err)
	}
	if err := os.WriteFile(i.path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to write installation id: %w", err)
	}

	i.id = id
	return i.id, nil
}

// load reads and caches the identifier. Callers hold mu.
func (i *InstallationID) load() (string, error) {
	if i.id != "" {
		return i.id, nil
	}

	data, err := os.ReadFile(i.path)
	if err != nil {
		return "", err
	}
	id, err := uuid.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return "", fmt.Errorf("invalid installation id in %s: %w", i.path, err)
	}

	i.id = id.String()
	return i.id, nil
}
