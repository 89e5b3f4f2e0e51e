package model

// ResearchMode describes how much external evidence a topic needs.
type ResearchMode string

const (
	ModeClosedBook ResearchMode = "closed_book"
	ModeHybrid     ResearchMode = "hybrid"
	ModeOpenBook   ResearchMode = "open_book"
)

// RecencyDays maps a research mode to the advisory evidence window.
func (m ResearchMode) RecencyDays() int {
	switch m {
	case ModeOpenBook:
		return 7
	case ModeHybrid:
		return 45
	default:
		return 3650
	}
}

// Task is one section specification inside a Plan. Task IDs are contiguous
// from 0 and are the sole ordering key when sections are reassembled.
type Task struct {
	ID          int      `json:"id" jsonschema:"required,description=0-based section index"`
	Title       string   `json:"title" jsonschema:"required"`
	Goal        string   `json:"goal" jsonschema:"required,description=What this section must accomplish"`
	Bullets     []string `json:"bullets" jsonschema:"required,description=3-6 points the section covers"`
	TargetWords int      `json:"target_words" jsonschema:"required"`
	Tags        []string `json:"tags" jsonschema:"description=Keywords to weave into this section"`
}

// Plan is the outline driving parallel section writing.
type Plan struct {
	BlogTitle       string   `json:"blog_title" jsonschema:"required"`
	Tone            string   `json:"tone" jsonschema:"required"`
	PrimaryKeywords []string `json:"primary_keywords"`
	Tasks           []Task   `json:"tasks" jsonschema:"required"`
}

// TargetWords sums the per-task word budgets.
func (p *Plan) TargetWords() int {
	total := 0
	for _, t := range p.Tasks {
		total += t.TargetWords
	}
	return total
}

// Normalize reindexes tasks to the contiguous 0..n-1 range the merger relies
// on, preserving the model-supplied order.
func (p *Plan) Normalize() {
	for i := range p.Tasks {
		p.Tasks[i].ID = i
	}
}

// SectionResult is the output of one writer invocation. Results keyed by
// TaskID collapse into one ordered document at merge time.
type SectionResult struct {
	TaskID   int    `json:"task_id"`
	Markdown string `json:"markdown"`
}
