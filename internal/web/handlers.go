package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"slices"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/cjeanneret/plotter/internal/logic/motion"
	"github.com/cjeanneret/plotter/internal/logic/units"
)

// Machine is the motion surface the handlers drive. *motion.Controller
// implements it.
type Machine interface {
	Axes() []string
	SetTarget(name string, step int) error
	SetTargetDistance(name string, d physic.Distance) error
	StopAll()
	Run(ctx context.Context, interval time.Duration) error
	Home(ctx context.Context, name string, interval, timeout time.Duration) error
	Status() []motion.AxisStatus
}

// Timing holds the cadence used for jobs started from the web.
type Timing struct {
	TickInterval time.Duration
	HomeTimeout  time.Duration
}

// MoveRequest asks one axis to move to an absolute position, given either
// in steps or as a distance such as "12.5mm".
type MoveRequest struct {
	Axis     string `json:"axis"`
	Step     *int   `json:"step,omitempty"`
	Distance string `json:"distance,omitempty"`
}

// HomeRequest asks one axis to home against its endstop.
type HomeRequest struct {
	Axis string `json:"axis"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Machine     Machine
	Timing      Timing
	staticFS    fs.FS

	jobMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewHandlers creates handlers with the given dependencies.
// If machine is nil, motion endpoints return 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, machine Machine, timing Timing, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Machine:     machine,
		Timing:      timing,
		staticFS:    staticFS,
	}
}

// ValidateMove checks a move request against the known axes.
func ValidateMove(req MoveRequest, axes []string) error {
	if req.Axis == "" {
		return errors.New("axis is required")
	}
	if !slices.Contains(axes, req.Axis) {
		return fmt.Errorf("unknown axis %q", req.Axis)
	}
	if (req.Step == nil) == (req.Distance == "") {
		return errors.New("exactly one of step or distance is required")
	}
	if req.Distance != "" {
		if _, err := units.ParseDistance(req.Distance); err != nil {
			return err
		}
	}
	return nil
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStatus returns every axis position as JSON.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if h.Machine == nil {
		http.Error(w, "motion not configured", http.StatusServiceUnavailable)
		return
	}
	h.jobMu.Lock()
	running := h.running
	h.jobMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"running": running,
		"axes":    h.Machine.Status(),
	})
}

// HandleMove handles POST /move: set a target and run until every axis is idle.
func (h *Handlers) HandleMove(w http.ResponseWriter, r *http.Request) {
	if h.Machine == nil {
		http.Error(w, "motion not configured", http.StatusServiceUnavailable)
		return
	}
	var req MoveRequest
	if !decodePost(w, r, &req) {
		return
	}
	if err := ValidateMove(req, h.Machine.Axes()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.startJob(w, "move "+req.Axis, func(ctx context.Context) error {
		if req.Step != nil {
			if err := h.Machine.SetTarget(req.Axis, *req.Step); err != nil {
				return err
			}
		} else {
			d, _ := units.ParseDistance(req.Distance)
			if err := h.Machine.SetTargetDistance(req.Axis, d); err != nil {
				return err
			}
		}
		return h.Machine.Run(ctx, h.Timing.TickInterval)
	})
}

// HandleHome handles POST /home: drive an axis to its endstop.
func (h *Handlers) HandleHome(w http.ResponseWriter, r *http.Request) {
	if h.Machine == nil {
		http.Error(w, "motion not configured", http.StatusServiceUnavailable)
		return
	}
	var req HomeRequest
	if !decodePost(w, r, &req) {
		return
	}
	if !slices.Contains(h.Machine.Axes(), req.Axis) {
		http.Error(w, fmt.Sprintf("unknown axis %q", req.Axis), http.StatusBadRequest)
		return
	}

	h.startJob(w, "home "+req.Axis, func(ctx context.Context) error {
		return h.Machine.Home(ctx, req.Axis, h.Timing.TickInterval, h.Timing.HomeTimeout)
	})
}

// HandleStop handles POST /stop: cancel the running job and hold every axis.
func (h *Handlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	if h.Machine == nil {
		http.Error(w, "motion not configured", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.cancelJob()
	h.Machine.StopAll()
	h.Broadcaster.BroadcastAxes(h.Machine.Status())
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// cancelJob cancels the running job, if any, and waits for it to return.
func (h *Handlers) cancelJob() {
	h.jobMu.Lock()
	cancel, done := h.cancel, h.done
	h.jobMu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// startJob runs fn in a goroutine unless another job is in progress.
func (h *Handlers) startJob(w http.ResponseWriter, name string, fn func(ctx context.Context) error) {
	h.jobMu.Lock()
	if h.running {
		h.jobMu.Unlock()
		http.Error(w, "motion already in progress", http.StatusConflict)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	h.running, h.cancel, h.done = true, cancel, done
	h.jobMu.Unlock()

	go func() {
		defer func() {
			h.jobMu.Lock()
			h.running, h.cancel, h.done = false, nil, nil
			h.jobMu.Unlock()
			cancel()
			close(done)
		}()

		err := fn(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			h.Broadcaster.Broadcast("info", name+" cancelled")
		case err != nil:
			h.Broadcaster.Broadcast("error", name+" failed: "+err.Error())
			log.Printf("%s failed: %v", name, err)
		default:
			h.Broadcaster.Broadcast("info", name+" complete")
		}
		h.Broadcaster.BroadcastAxes(h.Machine.Status())
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// maxBodyBytes bounds request bodies; move and home requests are tiny.
const maxBodyBytes = 1 << 20

// decodePost rejects non-POST requests and decodes a bounded JSON body into v.
// It writes the error response itself and reports whether the caller may go on.
func decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
