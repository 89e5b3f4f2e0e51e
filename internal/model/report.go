package model

// IssueSeverity grades a validation or fact-check finding.
type IssueSeverity string

const (
	SeverityLow    IssueSeverity = "low"
	SeverityMedium IssueSeverity = "medium"
	SeverityHigh   IssueSeverity = "high"
)

// CompletionIssue is one problem found by the completion validator.
type CompletionIssue struct {
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
}

// CompletionReport is the completion validator's output. The score is
// advisory; the pipeline never halts on a low score.
type CompletionReport struct {
	ExpectedSections int               `json:"expected_sections"`
	FoundSections    int               `json:"found_sections"`
	TotalWords       int               `json:"total_words"`
	ExpectedWords    int               `json:"expected_words"`
	WordRatio        float64           `json:"word_ratio"`
	Issues           []CompletionIssue `json:"issues"`
	Fixes            []string          `json:"fixes"`
	Score            float64           `json:"score"`
}

// KeywordStatus classifies a keyword's density against SEO guidance.
type KeywordStatus string

const (
	KeywordOptimal KeywordStatus = "optimal" // 1 - 2.5%
	KeywordLow     KeywordStatus = "low"     // < 1%
	KeywordHigh    KeywordStatus = "high"    // > 2.5%
)

// KeywordMetrics captures placement and density for one target keyword.
type KeywordMetrics struct {
	Keyword          string        `json:"keyword"`
	Count            int           `json:"count"`
	Density          float64       `json:"density"`
	InTitle          bool          `json:"in_title"`           // first 200 chars
	InFirstParagraph bool          `json:"in_first_paragraph"` // first 500 chars
	InHeadings       bool          `json:"in_headings"`
	Status           KeywordStatus `json:"status"`
}

// KeywordReport is the keyword optimizer's output. Pure analysis; the
// document is never mutated.
type KeywordReport struct {
	Metrics     []KeywordMetrics `json:"metrics"`
	Suggestions []string         `json:"suggestions"`
}

// FactCheckIssue is one flagged claim from the QA stage.
type FactCheckIssue struct {
	Claim          string `json:"claim" jsonschema:"required"`
	IssueType      string `json:"issue_type" jsonschema:"required,enum=citation_missing,enum=hallucination,enum=contradiction"`
	Severity       string `json:"severity" jsonschema:"required,enum=low,enum=medium,enum=high"`
	Recommendation string `json:"recommendation" jsonschema:"required"`
}

// FactCheckReport is the structured QA audit of the merged document.
type FactCheckReport struct {
	Score   float64          `json:"score" jsonschema:"required,description=0-10 quality score"`
	Verdict string           `json:"verdict" jsonschema:"required,enum=READY,enum=NEEDS_REVISION"`
	Issues  []FactCheckIssue `json:"issues"`
}

// ImageSpec describes one planned illustration.
type ImageSpec struct {
	Filename        string `json:"filename" jsonschema:"required"`
	Alt             string `json:"alt" jsonschema:"required"`
	Caption         string `json:"caption" jsonschema:"required"`
	Prompt          string `json:"prompt" jsonschema:"required,description=Generation prompt for the image model"`
	TargetParagraph string `json:"target_paragraph" jsonschema:"description=Opening words of the paragraph the image should follow"`
}

// CampaignAssets are the social-media derivatives of a finished post.
type CampaignAssets struct {
	LinkedInPost  string `json:"linkedin_post"`
	YouTubeScript string `json:"youtube_script"`
	FacebookPost  string `json:"facebook_post"`
	EmailSequence string `json:"email_sequence"`
	TwitterThread string `json:"twitter_thread"`
	LandingPage   string `json:"landing_page"`
}
