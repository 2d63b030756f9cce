package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/mittwald/mittprobe/internal/helper"
	"github.com/mittwald/mittprobe/pkg/health"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultCheckTimeout  = 5 * time.Second
	defaultWatchInterval = 5 * time.Second
	minWatchInterval     = 500 * time.Millisecond
)

type registeredProbe struct {
	name  string
	probe Probe
	wait  bool
}

// Handler runs registered probes and serves their reports over HTTP.
type Handler struct {
	mu      sync.RWMutex
	probes  []registeredProbe
	timeout time.Duration

	upgrader websocket.Upgrader
}

func NewHandler() *Handler {
	return &Handler{timeout: defaultCheckTimeout}
}

func (h *Handler) SetTimeout(timeout string) error {
	d, err := helper.ParseDurationOrDefault(timeout, defaultCheckTimeout.String(), "timeout", "server")
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.timeout = d
	h.mu.Unlock()
	return nil
}

// Register adds a probe. Probes with wait set gate Wait.
func (h *Handler) Register(name string, p Probe, wait bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, existing := range h.probes {
		if existing.name == name {
			return fmt.Errorf("probe %q is already registered", name)
		}
	}

	h.probes = append(h.probes, registeredProbe{name: name, probe: p, wait: wait})
	return nil
}

func (h *Handler) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, len(h.probes))
	for i, p := range h.probes {
		names[i] = p.name
	}
	return names
}

func (h *Handler) snapshot(filter func(registeredProbe) bool) ([]registeredProbe, time.Duration) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []registeredProbe
	for _, p := range h.probes {
		if filter == nil || filter(p) {
			out = append(out, p)
		}
	}
	return out, h.timeout
}

type namedReport struct {
	name   string
	report health.Report
}

// run checks all probes concurrently. Probes that do not answer within
// timeout are reported DOWN; they keep running in the background.
func run(probes []registeredProbe, timeout time.Duration) StatusResponse {
	response := StatusResponse{
		ID:     uuid.New().String(),
		Status: health.StatusUp,
		Probes: make(map[string]health.Report, len(probes)),
	}

	results := make(chan namedReport, len(probes))
	for _, p := range probes {
		response.Probes[p.name] = health.NewBuilder().Down(errors.New("timed out")).Build()

		go func(p registeredProbe) {
			results <- namedReport{name: p.name, report: p.probe.Check()}
		}(p)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	received := 0
collect:
	for received < len(probes) {
		select {
		case result := <-results:
			response.Probes[result.name] = result.report
			received++
		case <-deadline.C:
			log.WithFields(log.Fields{"kind": "probe", "id": response.ID, "pending": len(probes) - received}).Error("timed out")
			break collect
		}
	}

	for _, r := range response.Probes {
		if !r.Status().IsUp() {
			response.Status = health.StatusDown
		}
	}

	return response
}

// CheckAll runs every registered probe once.
func (h *Handler) CheckAll() StatusResponse {
	probes, timeout := h.snapshot(nil)
	return run(probes, timeout)
}

// Wait blocks until every probe registered with wait reports UP, checking
// once per second, or until ctx is done.
func (h *Handler) Wait(ctx context.Context) error {
	log.Info("waiting for probe readiness")

	probes, timeout := h.snapshot(func(p registeredProbe) bool { return p.wait })
	if len(probes) == 0 {
		return nil
	}

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			response := run(probes, timeout)
			for name, r := range response.Probes {
				if !r.Status().IsUp() {
					log.WithFields(log.Fields{"kind": "probe", "name": name, "reason": r.Reason()}).Warn("not ready yet")
				}
			}

			if response.Status.IsUp() {
				log.Info("all probes are ready")
				return nil
			}
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "readiness interrupted")
		}
	}
}

func writeJSON(res http.ResponseWriter, status int, body interface{}) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	if err := json.NewEncoder(res).Encode(body); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

func httpStatus(s health.Status) int {
	if s.IsUp() {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func (h *Handler) HandleStatus(res http.ResponseWriter, req *http.Request) {
	response := h.CheckAll()
	writeJSON(res, httpStatus(response.Status), &response)
}

func (h *Handler) HandleProbeStatus(res http.ResponseWriter, req *http.Request) {
	name := mux.Vars(req)["probe"]

	probes, timeout := h.snapshot(func(p registeredProbe) bool { return p.name == name })
	if len(probes) == 0 {
		http.Error(res, fmt.Sprintf("probe %q not found", name), http.StatusNotFound)
		return
	}

	response := run(probes, timeout)
	report := response.Probes[name]
	writeJSON(res, httpStatus(report.Status()), report)
}

// HandleWatch streams a status response over a websocket at the interval
// given by the "interval" query parameter.
func (h *Handler) HandleWatch(res http.ResponseWriter, req *http.Request) {
	interval := defaultWatchInterval
	if raw := req.URL.Query().Get("interval"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			http.Error(res, fmt.Sprintf("invalid interval %q", raw), http.StatusBadRequest)
			return
		}
		if d < minWatchInterval {
			d = minWatchInterval
		}
		interval = d
	}

	conn, err := h.upgrader.Upgrade(res, req, nil)
	if err != nil {
		log.WithError(err).Error("failed to upgrade watch connection")
		return
	}
	defer conn.Close()

	// drain client frames so close messages are noticed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(h.CheckAll()); err != nil {
			log.WithError(err).Debug("watch connection closed")
			return
		}

		select {
		case <-ticker.C:
		case <-closed:
			return
		case <-req.Context().Done():
			return
		}
	}
}

func (h *Handler) Router() *mux.Router {
	m := mux.NewRouter()
	m.Path("/status").Methods(http.MethodGet).HandlerFunc(h.HandleStatus)
	m.Path("/status/watch").Methods(http.MethodGet).HandlerFunc(h.HandleWatch)
	m.Path("/status/{probe}").Methods(http.MethodGet).HandlerFunc(h.HandleProbeStatus)
	return m
}

func listen(listenAddr string) (net.Listener, error) {
	socketFile := strings.TrimPrefix(listenAddr, "unix://")
	if socketFile == listenAddr {
		return net.Listen("tcp", listenAddr)
	}

	if err := os.MkdirAll(path.Dir(socketFile), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to prepare folder for socket-file")
	}
	_ = os.Remove(socketFile)
	return net.Listen("unix", socketFile)
}

// RunProbeServer serves the handler on listenAddr ("host:port" or
// "unix:///path/to/socket") until ctx is done.
func RunProbeServer(ctx context.Context, ph *Handler, listenAddr string) error {
	server := http.Server{
		Handler: ph.Router(),
	}

	l, err := listen(listenAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", listenAddr)
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down probe server")
		_ = server.Shutdown(context.Background())
	}()

	log.Infof("probe server listens on %s", listenAddr)
	if err := server.Serve(l); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
