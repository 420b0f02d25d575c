package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdoctor/agent/pkg/deviceinfo"
)

func TestSubmitPhoneData(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/submit_phone_data", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "message": "Data saved successfully"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", 5*time.Second)
	resp, err := c.SubmitPhoneData(context.Background(), "abc-123", &deviceinfo.DeviceInfo{ModelName: "Pixel 7"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "Data saved successfully", resp.Message)
	assert.Equal(t, "abc-123", got["session_id"])
	assert.Equal(t, map[string]any{"modelName": "Pixel 7"}, got["phone_data"])
}

func TestSubmitPhoneDataErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "error field", status: http.StatusBadRequest, body: `{"error": "No session_id provided"}`, wantErr: "server error (400): No session_id provided"},
		{name: "error and message", status: http.StatusInternalServerError, body: `{"error": "io", "message": "disk full"}`, wantErr: "server error (500): io - disk full"},
		{name: "plain body", status: http.StatusBadGateway, body: `upstream down`, wantErr: "server error: 502 Bad Gateway"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, 5*time.Second).SubmitPhoneData(context.Background(), "abc", &deviceinfo.DeviceInfo{})
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestSubmitPhoneDataRequiresSession(t *testing.T) {
	_, err := New("http://127.0.0.1:1", time.Second).SubmitPhoneData(context.Background(), "", &deviceinfo.DeviceInfo{})
	assert.Error(t, err)
}

func TestCheckPhoneData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/check_phone_data/abc%20123", r.URL.EscapedPath())
		w.Write([]byte(`{"available": true, "data": {"modelName": "Pixel 7"}}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, 5*time.Second).CheckPhoneData(context.Background(), "abc 123")
	require.NoError(t, err)
	assert.True(t, resp.Available)
	assert.JSONEq(t, `{"modelName": "Pixel 7"}`, string(resp.Data))
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"status": "healthy", "timestamp": "2026-10-19T08:00:00Z", "server": "smartdoctor-agent"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)

	health, err := c.Health(context.Background(), "/healthz")
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)

	_, err = c.Health(context.Background(), "/health")
	assert.Error(t, err)
}
