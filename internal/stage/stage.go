// Package stage implements the pipeline steps: routing, research,
// planning, parallel section writing, merging, validation, keyword and
// fact-check analysis, issue-driven revision, illustration, and campaign
// generation. Each stage
// is a graph node producing a partial state update.
package stage

import (
	"strings"
)

// Node names, in pipeline order.
const (
	Router       = "router"
	Research     = "research"
	Orchestrator = "orchestrator"
	Worker       = "worker"
	Merge        = "merge"
	Validate     = "validate"
	Keywords     = "keywords"
	QA           = "qa"
	Revision     = "revision"
	ImagePlan    = "image_plan"
	ImageGen     = "image_gen"
	Campaign     = "campaign"
)

// wordCount counts whitespace-separated tokens.
func wordCount(s string) int {
	return len(strings.Fields(s))
}

// truncate caps s at n runes for prompt hygiene.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
