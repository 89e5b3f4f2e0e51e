package stage

import (
	"context"
	"fmt"

	"draftforge.app/engine/common/llm"
	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/model"
)

const imagePlanSystemPrompt = `You are an art director for a blog. Plan illustrations for the draft:
for each image give a slug filename (png), alt text, a caption, a detailed
generation prompt, and the opening words of the paragraph the image should
follow. Prompts must describe concrete visual scenes, never text overlays.`

type imagePlan struct {
	Images []model.ImageSpec `json:"images" jsonschema:"required"`
}

var imagePlanSchema = llm.GenerateSchema[imagePlan]()

// ImagePlanStage decides what to illustrate. Runs only for premium jobs.
type ImagePlanStage struct {
	client  llm.Client
	emitter *event.Emitter
}

func NewImagePlanStage(client llm.Client, emitter *event.Emitter) *ImagePlanStage {
	return &ImagePlanStage{client: client, emitter: emitter}
}

func (st *ImagePlanStage) Run(ctx context.Context, s graph.State) (graph.Update, error) {
	sections := s.TargetSections
	if s.Plan != nil {
		sections = len(s.Plan.Tasks)
	}
	want := sections / 2
	if want < 1 {
		want = 1
	}
	if want > 3 {
		want = 3
	}

	st.emitter.Emit(ctx, event.TypeStageStarted, ImagePlan, fmt.Sprintf("planning %d illustrations", want), nil)

	var plan imagePlan
	_, err := st.client.Chat(ctx, llm.Request{
		SystemPrompt: imagePlanSystemPrompt,
		UserPrompt:   fmt.Sprintf("Plan exactly %d images.\n\nDraft:\n%s", want, truncate(s.Content, maxAuditRunes)),
		SchemaName:   "image_plan",
		Schema:       imagePlanSchema,
		MaxTokens:    2048,
		Temperature:  llm.Temp(0.5),
	}, &plan)
	if err != nil {
		return graph.Update{}, fmt.Errorf("planning images: %w", err)
	}

	if len(plan.Images) > want {
		plan.Images = plan.Images[:want]
	}

	st.emitter.Emit(ctx, event.TypeStageCompleted, ImagePlan, fmt.Sprintf("planned %d images", len(plan.Images)), nil)

	return graph.Update{Images: plan.Images}, nil
}
