// Package pipeline assembles the content-generation graph and runs it
// for a job: routing, optional research, planning, parallel section
// writing, merge, validation, keyword and fact-check analysis, a single
// revision pass when the audit flags issues, and for premium jobs
// illustration and campaign assets.
package pipeline

import (
	"context"
	"fmt"

	"draftforge.app/engine/common/llm"
	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/images"
	"draftforge.app/engine/internal/model"
	"draftforge.app/engine/internal/search"
	"draftforge.app/engine/internal/stage"
)

type Config struct {
	MaxParallelWorkers int
	AssetsDir          string
	ImagesEnabled      bool
}

// Builder owns the pipeline's external dependencies and assembles one
// graph per job run.
type Builder struct {
	router   llm.Client
	writer   llm.Client
	provider search.Provider
	reader   search.Reader
	images   images.Generator
	bus      *event.Bus
	cfg      Config
}

func NewBuilder(router, writer llm.Client, provider search.Provider, reader search.Reader, generator images.Generator, bus *event.Bus, cfg Config) *Builder {
	return &Builder{
		router:   router,
		writer:   writer,
		provider: provider,
		reader:   reader,
		images:   generator,
		bus:      bus,
		cfg:      cfg,
	}
}

// Run executes the full pipeline for the job and returns the final state.
// The returned error is non-nil only for fatal stage failures; degraded
// stages surface through State.Errors.
func (b *Builder) Run(ctx context.Context, job *model.Job) (graph.State, error) {
	emitter := event.NewEmitter(b.bus, job.ID)

	engine, err := b.build(emitter)
	if err != nil {
		return graph.State{}, fmt.Errorf("assembling pipeline: %w", err)
	}

	initial := graph.State{
		JobID:          job.ID,
		Topic:          job.Topic,
		Tone:           job.Tone,
		TargetSections: job.TargetSections,
		TargetKeywords: job.TargetKeywords,
		Tier:           job.Tier,
	}

	return engine.Run(ctx, initial)
}

func (b *Builder) build(emitter *event.Emitter) (*graph.Engine, error) {
	e := graph.New(b.cfg.MaxParallelWorkers)

	router := stage.NewRouterStage(b.router, emitter)
	research := stage.NewResearchStage(b.router, b.provider, b.reader, emitter)
	orchestrator := stage.NewOrchestratorStage(b.router, emitter)
	writer := stage.NewWriterStage(b.writer, emitter)
	merge := stage.NewMergeStage(emitter)
	validate := stage.NewValidateStage(emitter)
	keywords := stage.NewKeywordsStage(emitter)
	qa := stage.NewQAStage(b.router, emitter)
	revision := stage.NewRevisionStage(b.writer, emitter)
	imagePlan := stage.NewImagePlanStage(b.router, emitter)
	imageGen := stage.NewImageGenStage(b.images, b.cfg.AssetsDir, emitter)
	campaign := stage.NewCampaignStage(b.writer, emitter)

	nodes := []struct {
		name   string
		fn     graph.NodeFunc
		policy graph.Policy
	}{
		{stage.Router, router.Run, graph.Fatal},
		{stage.Research, research.Run, graph.Degrade},
		{stage.Orchestrator, orchestrator.Run, graph.Fatal},
		{stage.Merge, merge.Run, graph.Fatal},
		{stage.Validate, validate.Run, graph.Degrade},
		{stage.Keywords, keywords.Run, graph.Degrade},
		{stage.QA, qa.Run, graph.Degrade},
		{stage.Revision, revision.Run, graph.Degrade},
		{stage.ImagePlan, imagePlan.Run, graph.Degrade},
		{stage.ImageGen, imageGen.Run, graph.Degrade},
		{stage.Campaign, campaign.Run, graph.Degrade},
	}
	for _, n := range nodes {
		if err := e.AddNode(n.name, n.fn, n.policy); err != nil {
			return nil, err
		}
	}

	wiring := []struct{ from, to string }{
		{graph.Start, stage.Router},
		{stage.Research, stage.Orchestrator},
		{stage.Merge, stage.Validate},
		{stage.Validate, stage.Keywords},
		{stage.Keywords, stage.QA},
		{stage.QA, stage.Revision},
		{stage.ImagePlan, stage.ImageGen},
		{stage.ImageGen, stage.Campaign},
		{stage.Campaign, graph.End},
	}
	for _, w := range wiring {
		if err := e.AddEdge(w.from, w.to); err != nil {
			return nil, err
		}
	}

	if err := e.AddConditionalEdge(stage.Router, func(s graph.State) string {
		if s.NeedsResearch {
			return stage.Research
		}
		return stage.Orchestrator
	}); err != nil {
		return nil, err
	}

	if err := e.AddFanOut(stage.Orchestrator, stage.Merge, writer.Units); err != nil {
		return nil, err
	}

	// Basic tier ships after quality control and revision; premium
	// continues into illustration and campaign assets.
	imagesEnabled := b.cfg.ImagesEnabled
	if err := e.AddConditionalEdge(stage.Revision, func(s graph.State) string {
		if s.Tier != model.PlanTierPremium {
			return graph.End
		}
		if !imagesEnabled {
			return stage.Campaign
		}
		return stage.ImagePlan
	}); err != nil {
		return nil, err
	}

	return e, nil
}
