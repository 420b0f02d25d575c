package bridge

import (
	"encoding/json"
	"fmt"
)

// MethodGetDeviceInfo is the only method exposed to page script
const MethodGetDeviceInfo = "getDeviceInfo"

// Provider produces a device snapshot serialized as JSON text
type Provider interface {
	JSON() string
}

// Bridge is the surface callable from the embedded page
type Bridge struct {
	provider Provider
}

// New creates a bridge backed by provider
func New(provider Provider) *Bridge {
	return &Bridge{provider: provider}
}

// GetDeviceInfo returns a fresh snapshot as JSON. It never fails.
func (b *Bridge) GetDeviceInfo() string {
	return b.provider.JSON()
}

// Call dispatches a bridge method by name
func (b *Bridge) Call(method string) (string, error) {
	switch method {
	case MethodGetDeviceInfo:
		return b.GetDeviceInfo(), nil
	default:
		return "", fmt.Errorf("unknown method %q", method)
	}
}

// Request is a websocket call frame sent by the page
type Request struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
}

// Response answers a Request with the same ID
type Response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}
