package stage

import (
	"context"
	"fmt"

	"draftforge.app/engine/common/llm"
	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/model"
)

const routerSystemPrompt = `You are a research router for a long-form content pipeline.
Given a blog topic, decide whether writing it well requires external web research,
and if so, how fresh the sources must be.

Modes:
- closed_book: evergreen topic, model knowledge suffices, no research needed.
- hybrid: mostly stable topic with some moving parts, research recommended.
- open_book: fast-moving topic (news, releases, prices), research required with recent sources.

When research is needed, propose up to 5 focused web search queries.`

type routerDecision struct {
	NeedsResearch bool     `json:"needs_research" jsonschema:"required"`
	Mode          string   `json:"mode" jsonschema:"required,enum=closed_book,enum=hybrid,enum=open_book"`
	Queries       []string `json:"queries" jsonschema:"required,description=Web search queries when research is needed"`
	Reasoning     string   `json:"reasoning" jsonschema:"required"`
}

var routerSchema = llm.GenerateSchema[routerDecision]()

// RouterStage classifies the topic and decides the research strategy.
type RouterStage struct {
	client  llm.Client
	emitter *event.Emitter
}

func NewRouterStage(client llm.Client, emitter *event.Emitter) *RouterStage {
	return &RouterStage{client: client, emitter: emitter}
}

func (st *RouterStage) Run(ctx context.Context, s graph.State) (graph.Update, error) {
	st.emitter.Emit(ctx, event.TypeStageStarted, Router, "classifying topic", nil)

	var decision routerDecision
	_, err := st.client.Chat(ctx, llm.Request{
		SystemPrompt: routerSystemPrompt,
		UserPrompt:   fmt.Sprintf("Topic: %s\nDesired tone: %s", s.Topic, s.Tone),
		SchemaName:   "router_decision",
		Schema:       routerSchema,
		MaxTokens:    1024,
		Temperature:  llm.Temp(0),
	}, &decision)
	if err != nil {
		return graph.Update{}, fmt.Errorf("routing topic: %w", err)
	}

	mode := model.ResearchMode(decision.Mode)
	queries := decision.Queries
	if len(queries) > 5 {
		queries = queries[:5]
	}
	if !decision.NeedsResearch {
		queries = nil
	}

	st.emitter.Emit(ctx, event.TypeStageCompleted, Router, decision.Reasoning, map[string]any{
		"needs_research": decision.NeedsResearch,
		"mode":           string(mode),
		"recency_days":   mode.RecencyDays(),
		"queries":        len(queries),
	})

	return graph.Update{
		NeedsResearch: graph.Bool(decision.NeedsResearch),
		Mode:          &mode,
		Queries:       queries,
		RecencyDays:   graph.Int(mode.RecencyDays()),
	}, nil
}
