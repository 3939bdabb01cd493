package render

import (
	"strings"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

const summaryWidth = 48

// Summary returns a one-line description of box for terminal listings.
func Summary(box models.Box) string {
	out, err := Dispatch[string](box, summaryVisitor{})
	if err != nil {
		return "(" + string(box.Kind) + ")"
	}
	return out
}

type summaryVisitor struct{}

func (summaryVisitor) Heading(box models.Box) (string, error)  { return textSummary(box), nil }
func (summaryVisitor) Text(box models.Box) (string, error)     { return textSummary(box), nil }
func (summaryVisitor) Markdown(box models.Box) (string, error) { return textSummary(box), nil }

func (summaryVisitor) Image(box models.Box) (string, error) {
	if box.Image == nil || box.Image.Source == "" {
		return "(no image)", nil
	}
	return truncate(box.Image.Source), nil
}

func (summaryVisitor) Link(box models.Box) (string, error) {
	if box.Link == "" {
		return "(no link)", nil
	}
	return truncate(box.Link), nil
}

func (summaryVisitor) Iframe(box models.Box) (string, error) {
	if box.Link == "" {
		return "(no source)", nil
	}
	return truncate(box.Link), nil
}

func textSummary(box models.Box) string {
	if box.Text == nil || strings.TrimSpace(box.Text.Content) == "" {
		return "(empty)"
	}
	return truncate(strings.Join(strings.Fields(box.Text.Content), " "))
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= summaryWidth {
		return s
	}
	return string(runes[:summaryWidth-1]) + "…"
}
