package llm_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"draftforge.app/engine/common/llm"
)

type decision struct {
	NeedsResearch bool     `json:"needs_research" jsonschema:"required"`
	Mode          string   `json:"mode" jsonschema:"required,enum=closed_book,enum=hybrid,enum=open_book"`
	Queries       []string `json:"queries" jsonschema:"required"`
}

var _ = Describe("ValidateOutput", func() {
	schema := llm.GenerateSchema[decision]()

	It("accepts output conforming to the schema", func() {
		content := `{"needs_research": true, "mode": "hybrid", "queries": ["q1", "q2"]}`
		Expect(llm.ValidateOutput("decision", schema, content)).To(Succeed())
	})

	It("rejects output missing a required field", func() {
		content := `{"needs_research": true, "queries": []}`
		err := llm.ValidateOutput("decision", schema, content)

		var violation *llm.SchemaViolationError
		Expect(errors.As(err, &violation)).To(BeTrue())
		Expect(violation.SchemaName).To(Equal("decision"))
		Expect(violation.Raw).To(Equal(content))
	})

	It("rejects output with an out-of-enum value", func() {
		content := `{"needs_research": false, "mode": "oracle", "queries": []}`
		err := llm.ValidateOutput("decision", schema, content)

		var violation *llm.SchemaViolationError
		Expect(errors.As(err, &violation)).To(BeTrue())
	})

	It("rejects non-JSON output", func() {
		err := llm.ValidateOutput("decision", schema, "I could not produce JSON, sorry.")

		var violation *llm.SchemaViolationError
		Expect(errors.As(err, &violation)).To(BeTrue())
	})

	It("passes through when no schema was requested", func() {
		Expect(llm.ValidateOutput("free", nil, "anything")).To(Succeed())
	})
})

var _ = Describe("IsRetryable", func() {
	It("treats schema violations as permanent", func() {
		err := &llm.SchemaViolationError{SchemaName: "plan", Err: errors.New("missing tasks")}
		Expect(llm.IsRetryable(context.Background(), err)).To(BeFalse())
	})

	It("treats plain network errors as retryable", func() {
		Expect(llm.IsRetryable(context.Background(), errors.New("connection reset"))).To(BeTrue())
	})

	It("treats nil as non-retryable", func() {
		Expect(llm.IsRetryable(context.Background(), nil)).To(BeFalse())
	})
})
