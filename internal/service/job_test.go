package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"draftforge.app/engine/common/id"
	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/model"
	"draftforge.app/engine/internal/queue"
	"draftforge.app/engine/internal/service"
	"draftforge.app/engine/internal/store"
)

var _ = Describe("JobService", func() {
	var (
		svc      service.JobService
		jobs     *mockJobStore
		producer *mockProducer
		bus      *event.Bus
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		jobs = &mockJobStore{}
		producer = &mockProducer{}
		bus = event.NewBus(50)

		Expect(id.Init(1)).To(Succeed())

		svc = service.NewJobService(jobs, producer, bus)
	})

	validRequest := func() service.SubmitRequest {
		return service.SubmitRequest{
			Topic: "observability for go services",
			Tier:  model.PlanTierPremium,
		}
	}

	Describe("Submit", func() {
		It("persists and enqueues a valid job", func() {
			var created *model.Job
			jobs.createFn = func(_ context.Context, j *model.Job) error {
				created = j
				return nil
			}
			var enqueued queue.JobMessage
			producer.enqueueFn = func(_ context.Context, msg queue.JobMessage) error {
				enqueued = msg
				return nil
			}

			job, err := svc.Submit(ctx, validRequest())

			Expect(err).NotTo(HaveOccurred())
			Expect(job.ID).NotTo(BeEmpty())
			Expect(job.Status).To(Equal(model.JobStatusPending))
			Expect(created.ID).To(Equal(job.ID))
			Expect(enqueued.JobID).To(Equal(job.ID))
		})

		It("applies defaults for tone, sections and tier", func() {
			job, err := svc.Submit(ctx, service.SubmitRequest{Topic: "a perfectly fine topic"})

			Expect(err).NotTo(HaveOccurred())
			Expect(job.Tone).To(Equal("professional"))
			Expect(job.TargetSections).To(Equal(5))
			Expect(job.Tier).To(Equal(model.PlanTierBasic))
		})

		DescribeTable("rejects invalid submissions",
			func(mutate func(*service.SubmitRequest), field string) {
				req := validRequest()
				mutate(&req)

				_, err := svc.Submit(ctx, req)

				var verr *service.ValidationError
				Expect(errors.As(err, &verr)).To(BeTrue(), "got %v", err)
				Expect(verr.Field).To(Equal(field))
			},
			Entry("short topic", func(r *service.SubmitRequest) { r.Topic = "short" }, "topic"),
			Entry("whitespace topic", func(r *service.SubmitRequest) { r.Topic = "        " }, "topic"),
			Entry("too many sections", func(r *service.SubmitRequest) { r.TargetSections = 40 }, "target_sections"),
			Entry("negative sections", func(r *service.SubmitRequest) { r.TargetSections = -1 }, "target_sections"),
			Entry("blank keyword", func(r *service.SubmitRequest) { r.TargetKeywords = []string{"ok", " "} }, "target_keywords"),
			Entry("unknown tier", func(r *service.SubmitRequest) { r.Tier = "platinum" }, "tier"),
		)

		It("does not enqueue when the store rejects the job", func() {
			jobs.createFn = func(_ context.Context, _ *model.Job) error {
				return errors.New("db down")
			}
			enqueued := false
			producer.enqueueFn = func(_ context.Context, _ queue.JobMessage) error {
				enqueued = true
				return nil
			}

			_, err := svc.Submit(ctx, validRequest())

			Expect(err).To(HaveOccurred())
			Expect(enqueued).To(BeFalse())
		})

		It("surfaces enqueue failures", func() {
			producer.enqueueFn = func(_ context.Context, _ queue.JobMessage) error {
				return errors.New("redis down")
			}

			_, err := svc.Submit(ctx, validRequest())
			Expect(err).To(MatchError(ContainSubstring("enqueueing job")))
		})
	})

	Describe("Events", func() {
		It("returns retained history for an existing job", func() {
			jobs.getByIDFn = func(_ context.Context, jid string) (*model.Job, error) {
				return &model.Job{ID: jid}, nil
			}
			bus.Emit(ctx, event.New("j1", event.TypeJobStarted, "", "started", nil))

			events, err := svc.Events(ctx, "j1")

			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal(event.TypeJobStarted))
		})

		It("propagates not-found for unknown jobs", func() {
			jobs.getByIDFn = func(_ context.Context, _ string) (*model.Job, error) {
				return nil, store.ErrNotFound
			}

			_, err := svc.Events(ctx, "missing")
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})
})
