package pipeline

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/intelliscan/intelliscan/internal/model"
)

// Aggregate merges per-page results into one document-level result. Page
// texts are joined in page-index order with a single newline between
// consecutive pages, regardless of the order results arrive in. The document
// confidence is the arithmetic mean of page confidences rounded to one
// decimal place.
func Aggregate(results []model.PageResult) (model.DocumentResult, error) {
	if len(results) == 0 {
		return model.DocumentResult{}, ErrEmptyDocument
	}

	ordered := make([]model.PageResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].PageIndex < ordered[j].PageIndex })

	var sb strings.Builder
	var confSum float64
	for i, pr := range ordered {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(pr.Text)
		confSum += pr.Confidence
	}
	text := sb.String()

	mean := confSum / float64(len(ordered))

	return model.DocumentResult{
		Text:       text,
		Confidence: math.Round(mean*10) / 10,
		WordCount:  len(strings.Fields(text)),
		CharCount:  utf8.RuneCountInString(text),
		PageCount:  len(ordered),
	}, nil
}
