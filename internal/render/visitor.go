// Package render turns boxes into HTML fragments and text summaries.
//
// Kind dispatch goes through KindVisitor: every visitor implements one method
// per box kind, so adding a kind to pkg/models without extending the
// interface and its implementations fails to compile.
package render

import (
	"fmt"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

// KindVisitor handles each box kind.
type KindVisitor[T any] interface {
	Heading(box models.Box) (T, error)
	Text(box models.Box) (T, error)
	Markdown(box models.Box) (T, error)
	Image(box models.Box) (T, error)
	Link(box models.Box) (T, error)
	Iframe(box models.Box) (T, error)
}

// Dispatch calls the visitor method matching box.Kind.
func Dispatch[T any](box models.Box, v KindVisitor[T]) (T, error) {
	switch box.Kind {
	case models.KindHeading:
		return v.Heading(box)
	case models.KindText:
		return v.Text(box)
	case models.KindMarkdown:
		return v.Markdown(box)
	case models.KindImage:
		return v.Image(box)
	case models.KindLink:
		return v.Link(box)
	case models.KindIframe:
		return v.Iframe(box)
	}
	var zero T
	return zero, fmt.Errorf("render: unknown box kind %q", box.Kind)
}
