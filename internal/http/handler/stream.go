package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/service"
	"draftforge.app/engine/internal/store"
)

const pingInterval = 25 * time.Second

// StreamHandler pushes live job progress to clients over SSE or a
// websocket. Both replay the retained history before live events.
type StreamHandler struct {
	jobService service.JobService
	bus        *event.Bus
	upgrader   websocket.Upgrader
}

func NewStreamHandler(jobService service.JobService, bus *event.Bus) *StreamHandler {
	return &StreamHandler{
		jobService: jobService,
		bus:        bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// SSE streams events as text/event-stream until the client disconnects.
func (h *StreamHandler) SSE(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("id")

	if _, err := h.jobService.Get(ctx, jobID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	setSSEHeaders(c.Writer)

	events, cancel := h.bus.Subscribe(ctx, jobID)
	defer cancel()

	sseWrite(c.Writer, "ping", "ready")
	flusher.Flush()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sseWrite(c.Writer, "ping", time.Now().UTC().Format(time.RFC3339Nano))
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			sseWrite(c.Writer, "progress", ev)
			flusher.Flush()
			if ev.Type == event.TypeJobCompleted || ev.Type == event.TypeJobFailed {
				return
			}
		}
	}
}

// WebSocket streams the same events as JSON text frames.
func (h *StreamHandler) WebSocket(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("id")

	if _, err := h.jobService.Get(ctx, jobID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Drain client frames so control messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events, cancel := h.bus.Subscribe(ctx, jobID)
	defer cancel()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case ev, open := <-events:
			if !open {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			if ev.Type == event.TypeJobCompleted || ev.Type == event.TypeJobFailed {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"),
					time.Now().Add(5*time.Second))
				return
			}
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
}

func sseWrite(w http.ResponseWriter, eventName string, data any) {
	payload := marshalPayload(data)
	if eventName != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", eventName)
	}
	for _, line := range strings.Split(payload, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
}

func marshalPayload(data any) string {
	switch payload := data.(type) {
	case string:
		return payload
	case []byte:
		return string(payload)
	default:
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Sprintf("%v", data)
		}
		return string(raw)
	}
}
