package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/http/handler"
	"draftforge.app/engine/internal/model"
	"draftforge.app/engine/internal/store"
)

var _ = Describe("StreamHandler", func() {
	var (
		router *gin.Engine
		svc    *mockJobService
		bus    *event.Bus
	)

	emit := func(jobID string, typ event.Type, stage string) {
		bus.Emit(context.Background(), event.Event{JobID: jobID, Type: typ, Stage: stage})
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockJobService{}
		bus = event.NewBus(100)
		h := handler.NewStreamHandler(svc, bus)
		router.GET("/jobs/:id/stream", h.SSE)
		router.GET("/jobs/:id/ws", h.WebSocket)
	})

	Describe("SSE", func() {
		It("replays history and closes after the terminal event", func() {
			svc.getFn = func(_ context.Context, id string) (*model.Job, error) {
				return &model.Job{ID: id, Status: model.JobStatusCompleted}, nil
			}
			emit("job-1", event.TypeJobStarted, "")
			emit("job-1", event.TypeStageCompleted, "router")
			emit("job-1", event.TypeJobCompleted, "")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/job-1/stream", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("text/event-stream"))

			body := w.Body.String()
			Expect(body).To(ContainSubstring("event: ping"))
			Expect(strings.Count(body, "event: progress")).To(Equal(3))
			Expect(body).To(ContainSubstring(`"type":"stage_completed"`))
			Expect(body).To(ContainSubstring(`"type":"job_completed"`))
		})

		It("returns 404 for an unknown job", func() {
			svc.getFn = func(_ context.Context, _ string) (*model.Job, error) {
				return nil, store.ErrNotFound
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/missing/stream", nil))

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("WebSocket", func() {
		It("delivers events as JSON frames and closes after the terminal event", func() {
			svc.getFn = func(_ context.Context, id string) (*model.Job, error) {
				return &model.Job{ID: id, Status: model.JobStatusCompleted}, nil
			}
			emit("job-2", event.TypeJobStarted, "")
			emit("job-2", event.TypeJobCompleted, "")

			srv := httptest.NewServer(router)
			defer srv.Close()

			url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/jobs/job-2/ws"
			conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
			Expect(err).NotTo(HaveOccurred())
			defer conn.Close()
			defer resp.Body.Close()

			var first event.Event
			Expect(conn.ReadJSON(&first)).To(Succeed())
			Expect(first.Type).To(Equal(event.TypeJobStarted))

			var last event.Event
			Expect(conn.ReadJSON(&last)).To(Succeed())
			Expect(last.Type).To(Equal(event.TypeJobCompleted))

			_, _, err = conn.ReadMessage()
			Expect(websocket.IsCloseError(err, websocket.CloseNormalClosure)).To(BeTrue())
		})
	})
})
