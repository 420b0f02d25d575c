package bridge

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdoctor/agent/internal/metrics"
)

// stubProvider returns a fixed snapshot and counts calls
type stubProvider struct {
	body  string
	calls atomic.Int32
}

func (s *stubProvider) JSON() string {
	s.calls.Add(1)
	return s.body
}

func newTestServer(t *testing.T, assets string) (*httptest.Server, *stubProvider) {
	t.Helper()

	provider := &stubProvider{body: `{"modelName":"Pixel 7","batteryLevel":80}`}
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	srv := httptest.NewServer(NewRouter(RouterConfig{
		Bridge:    New(provider),
		AssetsDir: assets,
		Metrics:   metrics.Handler(reg),
		Logger:    zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)

	return srv, provider
}

func TestBridgeCall(t *testing.T) {
	provider := &stubProvider{body: `{}`}
	b := New(provider)

	out, err := b.Call(MethodGetDeviceInfo)
	require.NoError(t, err)
	assert.Equal(t, `{}`, out)

	_, err = b.Call("reboot")
	assert.Error(t, err)
	assert.EqualValues(t, 1, provider.calls.Load())
}

func TestDeviceInfoEndpoint(t *testing.T) {
	srv, provider := newTestServer(t, "")

	cases := []struct {
		name     string
		origin   string
		wantACAO string
	}{
		{name: "no origin", origin: ""},
		{name: "file page", origin: "null", wantACAO: "null"},
		{name: "served page", origin: srv.URL, wantACAO: srv.URL},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/bridge/device-info", nil)
			require.NoError(t, err)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			assert.Equal(t, tt.wantACAO, resp.Header.Get("Access-Control-Allow-Origin"))
			assert.JSONEq(t, provider.body, string(body))
		})
	}
}

func TestDeviceInfoRejectsForeignOrigin(t *testing.T) {
	srv, provider := newTestServer(t, "")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/bridge/device-info", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotContains(t, string(body), "Pixel 7")
	assert.Zero(t, provider.calls.Load())
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, ServerName, health["server"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "")

	call, err := http.Get(srv.URL + "/bridge/device-info")
	require.NoError(t, err)
	call.Body.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "bridge_calls_total")
}

func TestStaticAssets(t *testing.T) {
	assets := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(assets, "index.html"), []byte("<html>doctor</html>"), 0644))
	srv, _ := newTestServer(t, assets)

	resp, err := http.Get(srv.URL + "/index.html")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "<html>doctor</html>", string(body))
}

func TestWebSocketCalls(t *testing.T) {
	srv, provider := newTestServer(t, "")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/bridge/ws"

	header := http.Header{"Origin": []string{"null"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	cases := []struct {
		frame     string
		wantID    int64
		wantError string
	}{
		{frame: `{"id":1,"method":"getDeviceInfo"}`, wantID: 1},
		{frame: `{"id":2,"method":"reboot"}`, wantID: 2, wantError: `unknown method "reboot"`},
		{frame: `not json`, wantError: "invalid request"},
		{frame: `{"id":3,"method":"getDeviceInfo"}`, wantID: 3},
	}

	for _, tt := range cases {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.frame)))

		var resp Response
		require.NoError(t, conn.ReadJSON(&resp))
		assert.Equal(t, tt.wantID, resp.ID)
		assert.Equal(t, tt.wantError, resp.Error)
		if tt.wantError == "" {
			assert.JSONEq(t, provider.body, string(resp.Result))
		}
	}

	assert.EqualValues(t, 2, provider.calls.Load())
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	srv, _ := newTestServer(t, "")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/bridge/ws"

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCheckOrigin(t *testing.T) {
	cases := map[string]bool{
		"":                        true,
		"null":                    true,
		"file://":                 true,
		"http://localhost:3000":   true,
		"http://127.0.0.1:8765":   true,
		"http://[::1]:8765":       true,
		"https://doctor.example":  false,
		"http://192.168.1.5:8080": false,
	}

	for origin, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:9999/bridge/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		assert.Equal(t, want, checkOrigin(r), "origin %q", origin)
	}
}
