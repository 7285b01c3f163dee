package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/cjeanneret/BallChaser/internal/debug"
	"github.com/cjeanneret/BallChaser/internal/logic/steering"
)

// Handler serves the command_robot service in front of a Commander.
// Requests are executed one at a time; the base cannot run two commands at once.
type Handler struct {
	mu   sync.Mutex
	base Commander
}

// NewHandler creates a command_robot handler driving base.
func NewHandler(base Commander) *Handler {
	return &Handler{base: base}
}

// Register adds the service route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("POST "+ServicePath, h)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	cmd := Clamp(steering.Command{LinearX: req.LinearX, AngularZ: req.AngularZ})
	debug.Live("command_robot request %s: linear_x=%.4f angular_z=%.2f",
		r.Header.Get("X-Request-ID"), cmd.LinearX, cmd.AngularZ)

	if err := h.drive(r.Context(), cmd); err != nil {
		debug.Error(fmt.Errorf("drive base: %w", err))
		http.Error(w, "drive failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{
		MsgFeedback: fmt.Sprintf("Wheel velocities set - linear_x: %.2f, angular_z: %.2f", cmd.LinearX, cmd.AngularZ),
	})
}

func (h *Handler) drive(ctx context.Context, cmd steering.Command) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.base.Drive(ctx, cmd)
}
