package graph

import (
	"draftforge.app/engine/internal/model"
)

// State is the shared job state flowing through the pipeline. Nodes never
// mutate it directly; they return an Update and the engine folds it in, so
// every write goes through one merge policy.
type State struct {
	JobID          string
	Topic          string
	Tone           string
	TargetSections int
	TargetKeywords []string
	Tier           model.PlanTier

	NeedsResearch bool
	Mode          model.ResearchMode
	Queries       []string
	RecencyDays   int

	Evidence []model.EvidenceItem
	Plan     *model.Plan
	Sections []model.SectionResult

	Content    string
	Completion *model.CompletionReport
	Keywords   *model.KeywordReport
	FactCheck  *model.FactCheckReport

	Images     []model.ImageSpec
	ImagePaths []string
	Campaign   *model.CampaignAssets

	// Errors accumulates degraded-stage failures. A non-empty list does not
	// stop the pipeline.
	Errors []string
}

// Update is a partial write against State. Nil fields are untouched.
// Sections and Errors append; every other non-nil field overwrites.
type Update struct {
	NeedsResearch *bool
	Mode          *model.ResearchMode
	Queries       []string
	RecencyDays   *int

	Evidence []model.EvidenceItem
	Plan     *model.Plan
	Sections []model.SectionResult

	Content    *string
	Completion *model.CompletionReport
	Keywords   *model.KeywordReport
	FactCheck  *model.FactCheckReport

	Images     []model.ImageSpec
	ImagePaths []string
	Campaign   *model.CampaignAssets

	Errors []string
}

// Apply folds an update into the state.
func (s *State) Apply(u Update) {
	if u.NeedsResearch != nil {
		s.NeedsResearch = *u.NeedsResearch
	}
	if u.Mode != nil {
		s.Mode = *u.Mode
	}
	if u.Queries != nil {
		s.Queries = u.Queries
	}
	if u.RecencyDays != nil {
		s.RecencyDays = *u.RecencyDays
	}
	if u.Evidence != nil {
		s.Evidence = u.Evidence
	}
	if u.Plan != nil {
		s.Plan = u.Plan
	}
	if len(u.Sections) > 0 {
		s.Sections = append(s.Sections, u.Sections...)
	}
	if u.Content != nil {
		s.Content = *u.Content
	}
	if u.Completion != nil {
		s.Completion = u.Completion
	}
	if u.Keywords != nil {
		s.Keywords = u.Keywords
	}
	if u.FactCheck != nil {
		s.FactCheck = u.FactCheck
	}
	if u.Images != nil {
		s.Images = u.Images
	}
	if u.ImagePaths != nil {
		s.ImagePaths = u.ImagePaths
	}
	if u.Campaign != nil {
		s.Campaign = u.Campaign
	}
	if len(u.Errors) > 0 {
		s.Errors = append(s.Errors, u.Errors...)
	}
}

// Bool, Str and Int are pointer helpers for building updates.
func Bool(b bool) *bool { return &b }

func Str(s string) *string { return &s }

func Int(i int) *int { return &i }
