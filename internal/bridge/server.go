package bridge

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/smartdoctor/agent/internal/metrics"
)

// ServerName is reported by the health endpoint
const ServerName = "smartdoctor-agent"

// RouterConfig wires the HTTP surface of the bridge
type RouterConfig struct {
	Bridge *Bridge

	// AssetsDir is served at / when set
	AssetsDir string

	// Metrics is mounted at /metrics when set
	Metrics http.Handler

	Logger zerolog.Logger
}

type handler struct {
	bridge   *Bridge
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewRouter builds the bridge HTTP handler
func NewRouter(cfg RouterConfig) http.Handler {
	h := &handler{
		bridge: cfg.Bridge,
		log:    cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)

	r.Route("/bridge", func(r chi.Router) {
		r.Use(allowPageOrigin)
		r.Get("/device-info", h.deviceInfo)
		r.Get("/ws", h.serveWS)
	})

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	if cfg.AssetsDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.AssetsDir)))
	}

	return r
}

// deviceInfo answers GET /bridge/device-info
func (h *handler) deviceInfo(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body := h.bridge.GetDeviceInfo()
	metrics.ObserveBridgeCall("http", MethodGetDeviceInfo, start)

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

// health answers GET /healthz
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"server":    ServerName,
	})
}

// serveWS runs a request/response loop over a websocket connection
func (h *handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.log.Debug().Str("remote", r.RemoteAddr).Msg("bridge websocket connected")

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("bridge websocket error")
			}
			return
		}

		if err := conn.WriteJSON(h.handleFrame(msg)); err != nil {
			h.log.Debug().Err(err).Msg("bridge websocket write failed")
			return
		}
	}
}

// handleFrame decodes one request frame and produces its response
func (h *handler) handleFrame(msg []byte) Response {
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return Response{Error: "invalid request"}
	}

	start := time.Now()
	result, err := h.bridge.Call(req.Method)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	metrics.ObserveBridgeCall("ws", req.Method, start)

	return Response{ID: req.ID, Result: json.RawMessage(result)}
}

// allowPageOrigin lets the page, loaded from file:// or another local
// origin, read bridge responses. Other origins are refused.
func allowPageOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		next.ServeHTTP(w, r)
	})
}

// checkOrigin accepts pages loaded from file:// (Origin "null"), loopback
// hosts, and the bridge's own host
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme == "file" || u.Host == r.Host {
		return true
	}

	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
