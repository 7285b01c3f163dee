package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/BallChaser/internal/debug"
	"github.com/cjeanneret/BallChaser/internal/hw/camera"
	"github.com/cjeanneret/BallChaser/internal/logic/chase"
	"github.com/cjeanneret/BallChaser/internal/logic/vision"
)

// MaxFrameBytes caps the body of POST /frame (a 1920x1080 rgb8 frame fits).
const MaxFrameBytes = 8 << 20

// ProcessFunc plans one frame and delivers its command.
// The POST /frame handler calls it for one request at a time.
type ProcessFunc func(ctx context.Context, f vision.Frame) (chase.Result, error)

// StatusInfo is returned by GET /config alongside the tuning.
type StatusInfo struct {
	Tuning      chase.Tuning `json:"tuning"`
	Frames      int64        `json:"frames"`
	Subscribers int          `json:"subscribers"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Process     ProcessFunc
	Tuning      chase.Tuning
	processMu   sync.Mutex
	frames      atomic.Int64
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If process is nil, POST /frame will return 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, process ProcessFunc, tuning chase.Tuning, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Process:     process,
		Tuning:      tuning,
		staticFS:    staticFS,
	}
}

// HandleConfig returns the active tuning as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	info := StatusInfo{
		Tuning:      h.Tuning,
		Frames:      h.frames.Load(),
		Subscribers: h.Broadcaster.Subscribers(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
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

// HandleFrame handles POST /frame. With width and height query parameters the
// body is a raw rgb8 buffer; without them it is an encoded image (PPM, PNG,
// JPEG or BMP). The response is the planned chase.Result.
func (h *Handlers) HandleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Process == nil {
		http.Error(w, "frame processing not configured", http.StatusServiceUnavailable)
		return
	}

	f, err := readFrame(http.MaxBytesReader(w, r.Body, MaxFrameBytes), r)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "frame too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := h.process(r.Context(), f)
	if err != nil {
		if errors.Is(err, vision.ErrInvalidFrame) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.Broadcaster.Broadcast(LevelError, "Frame failed: "+err.Error())
		http.Error(w, "frame processing failed", http.StatusInternalServerError)
		return
	}
	h.frames.Add(1)
	h.Broadcaster.BroadcastResult(res)
	debug.Verbose("POST /frame %dx%d planned in %v", f.Width, f.Height, time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *Handlers) process(ctx context.Context, f vision.Frame) (chase.Result, error) {
	h.processMu.Lock()
	defer h.processMu.Unlock()
	return h.Process(ctx, f)
}

func readFrame(body io.Reader, r *http.Request) (vision.Frame, error) {
	q := r.URL.Query()
	if !q.Has("width") && !q.Has("height") {
		f, _, err := camera.Decode(body, 0, 0)
		return f, err
	}

	width, err := strconv.Atoi(q.Get("width"))
	if err != nil {
		return vision.Frame{}, fmt.Errorf("invalid width %q", q.Get("width"))
	}
	height, err := strconv.Atoi(q.Get("height"))
	if err != nil {
		return vision.Frame{}, fmt.Errorf("invalid height %q", q.Get("height"))
	}
	if enc := q.Get("encoding"); enc != "" && enc != camera.Encoding {
		return vision.Frame{}, fmt.Errorf("unsupported encoding %q, want %s", enc, camera.Encoding)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return vision.Frame{}, err
	}
	return camera.DecodeRaw(width, height, data)
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

	// Send initial comment to establish connection
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
