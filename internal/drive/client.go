package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cjeanneret/BallChaser/internal/debug"
	"github.com/cjeanneret/BallChaser/internal/logic/steering"
	"github.com/google/uuid"
)

// ServicePath is the route of the command_robot service.
const ServicePath = "/ball_chaser/command_robot"

// DefaultTimeout bounds one command round-trip.
const DefaultTimeout = 2 * time.Second

// Request is the command_robot request body.
type Request struct {
	LinearX  float64 `json:"linear_x"`
	AngularZ float64 `json:"angular_z"`
}

// Response is the command_robot response body.
type Response struct {
	MsgFeedback string `json:"msg_feedback"`
}

// Client calls a remote command_robot service over HTTP.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a client for the service at baseURL (e.g. http://robot:8090).
// timeout <= 0 uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url: baseURL + ServicePath,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Drive posts the command and waits for the service feedback.
func (c *Client) Drive(ctx context.Context, cmd steering.Command) error {
	_, err := c.Call(ctx, cmd)
	return err
}

// Call posts the command and returns the service feedback message.
func (c *Client) Call(ctx context.Context, cmd steering.Command) (string, error) {
	body, err := json.Marshal(Request{LinearX: cmd.LinearX, AngularZ: cmd.AngularZ})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrDeliveryFailed, err)
	}
	debug.Verbose("command_robot %s: %s", reqID, out.MsgFeedback)
	return out.MsgFeedback, nil
}
