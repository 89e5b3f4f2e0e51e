package stage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"draftforge.app/engine/common"
	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/images"
	"draftforge.app/engine/internal/model"
)

// ImageGenStage renders the planned illustrations, stores them under the
// assets directory and weaves figure markup into the document. Individual
// image failures are skipped; the stage only errors when nothing at all
// could be produced for a non-empty plan.
type ImageGenStage struct {
	generator images.Generator
	assetsDir string
	emitter   *event.Emitter
}

func NewImageGenStage(generator images.Generator, assetsDir string, emitter *event.Emitter) *ImageGenStage {
	return &ImageGenStage{generator: generator, assetsDir: assetsDir, emitter: emitter}
}

func (st *ImageGenStage) Run(ctx context.Context, s graph.State) (graph.Update, error) {
	if len(s.Images) == 0 {
		return graph.Update{}, nil
	}

	jobDir := filepath.Join(st.assetsDir, s.JobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return graph.Update{}, fmt.Errorf("creating assets dir: %w", err)
	}

	content := s.Content
	var paths []string
	for i, spec := range s.Images {
		raw, err := st.generator.Generate(ctx, spec.Prompt)
		if err != nil {
			slog.WarnContext(ctx, "image generation failed", "filename", spec.Filename, "error", err)
			continue
		}
		if raw == nil {
			continue
		}

		name, err := common.Slugify(strings.TrimSuffix(spec.Filename, ".png"), fmt.Sprintf("image-%d", i+1))
		if err != nil {
			name = fmt.Sprintf("image-%d", i+1)
		}
		path := filepath.Join(jobDir, name+".png")
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			slog.WarnContext(ctx, "saving image failed", "path", path, "error", err)
			continue
		}

		content = InsertFigure(content, spec, path)
		paths = append(paths, path)

		st.emitter.Emit(ctx, event.TypeProgress, ImageGen, "generated "+name+".png", map[string]any{"path": path})
	}

	if len(paths) == 0 {
		return graph.Update{}, fmt.Errorf("no images could be generated")
	}

	st.emitter.Emit(ctx, event.TypeStageCompleted, ImageGen, fmt.Sprintf("generated %d of %d images", len(paths), len(s.Images)), nil)

	return graph.Update{
		Content:    graph.Str(content),
		ImagePaths: paths,
	}, nil
}

// InsertFigure places figure markup after the paragraph that best matches
// the spec's target paragraph by word overlap. With no usable match the
// figure is appended to the document.
func InsertFigure(content string, spec model.ImageSpec, path string) string {
	figure := fmt.Sprintf("![%s](%s)\n*%s*", spec.Alt, path, spec.Caption)

	blocks := strings.Split(content, "\n\n")
	best, bestScore := -1, 0
	targetWords := fieldSet(spec.TargetParagraph)
	if len(targetWords) > 0 {
		for i, block := range blocks {
			if strings.HasPrefix(strings.TrimSpace(block), "#") {
				continue
			}
			score := overlap(targetWords, fieldSet(block))
			if score > bestScore {
				best, bestScore = i, score
			}
		}
	}

	if best < 0 {
		return content + "\n\n" + figure
	}

	out := make([]string, 0, len(blocks)+1)
	out = append(out, blocks[:best+1]...)
	out = append(out, figure)
	out = append(out, blocks[best+1:]...)
	return strings.Join(out, "\n\n")
}

func fieldSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len(w) > 3 {
			set[w] = true
		}
	}
	return set
}

func overlap(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}
