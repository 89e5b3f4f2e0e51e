package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/http/handler"
	"draftforge.app/engine/internal/model"
	"draftforge.app/engine/internal/service"
	"draftforge.app/engine/internal/store"
)

var _ = Describe("JobHandler", func() {
	var (
		router *gin.Engine
		svc    *mockJobService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockJobService{}
		h := handler.NewJobHandler(svc)
		router.POST("/jobs", h.Submit)
		router.GET("/jobs", h.List)
		router.GET("/jobs/:id", h.Get)
		router.GET("/jobs/:id/events", h.Events)
	})

	Describe("Submit", func() {
		It("returns 202 with the created job", func() {
			svc.submitFn = func(_ context.Context, req service.SubmitRequest) (*model.Job, error) {
				return &model.Job{
					ID:             "job-1",
					Topic:          req.Topic,
					Tone:           "professional",
					TargetSections: 5,
					Tier:           model.PlanTierBasic,
					Status:         model.JobStatusPending,
					CreatedAt:      time.Now().UTC(),
				}, nil
			}

			body, _ := json.Marshal(map[string]any{"topic": "Observability for small teams"})
			req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["id"]).To(Equal("job-1"))
			Expect(resp["status"]).To(Equal("PENDING"))
		})

		It("returns 400 on a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(`{`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 when topic is missing", func() {
			req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(`{"tone":"casual"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 422 with the offending field on validation failure", func() {
			svc.submitFn = func(_ context.Context, _ service.SubmitRequest) (*model.Job, error) {
				return nil, &service.ValidationError{Field: "tier", Message: "must be basic or premium"}
			}

			body, _ := json.Marshal(map[string]any{"topic": "A perfectly fine topic", "tier": "platinum"})
			req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["field"]).To(Equal("tier"))
		})

		It("returns 500 when the service fails", func() {
			svc.submitFn = func(_ context.Context, _ service.SubmitRequest) (*model.Job, error) {
				return nil, errors.New("redis down")
			}

			body, _ := json.Marshal(map[string]any{"topic": "A perfectly fine topic"})
			req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Get", func() {
		It("returns the job", func() {
			svc.getFn = func(_ context.Context, id string) (*model.Job, error) {
				return &model.Job{ID: id, Topic: "stored topic", Status: model.JobStatusCompleted, Content: "# Doc"}, nil
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/job-9", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["id"]).To(Equal("job-9"))
			Expect(resp["content"]).To(Equal("# Doc"))
		})

		It("returns 404 for an unknown job", func() {
			svc.getFn = func(_ context.Context, _ string) (*model.Job, error) {
				return nil, store.ErrNotFound
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/missing", nil))

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("List", func() {
		It("passes the limit through and omits content from summaries", func() {
			var gotLimit int
			svc.listFn = func(_ context.Context, limit int) ([]model.Job, error) {
				gotLimit = limit
				return []model.Job{{ID: "a", Content: "# Long body"}, {ID: "b"}}, nil
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs?limit=7", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotLimit).To(Equal(7))

			var resp struct {
				Jobs []map[string]any `json:"jobs"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Jobs).To(HaveLen(2))
			Expect(resp.Jobs[0]).NotTo(HaveKey("content"))
		})
	})

	Describe("Events", func() {
		It("returns the retained history", func() {
			svc.eventsFn = func(_ context.Context, id string) ([]event.Event, error) {
				return []event.Event{
					{ID: 1, JobID: id, Type: event.TypeJobStarted},
					{ID: 2, JobID: id, Type: event.TypeStageStarted, Stage: "router"},
				}, nil
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/job-3/events", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp struct {
				Events []event.Event `json:"events"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Events).To(HaveLen(2))
			Expect(resp.Events[1].Stage).To(Equal("router"))
		})

		It("returns 404 for an unknown job", func() {
			svc.eventsFn = func(_ context.Context, _ string) ([]event.Event, error) {
				return nil, store.ErrNotFound
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/missing/events", nil))

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
