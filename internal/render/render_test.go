package render

import (
	"context"
	"strings"
	"testing"

	"github.com/haasonsaas/boxgrid/internal/preview"
	"github.com/haasonsaas/boxgrid/pkg/models"
)

type stubPreviews struct {
	result preview.Result
	calls  int
}

func (s *stubPreviews) Fetch(ctx context.Context, rawURL string) preview.Result {
	s.calls++
	return s.result
}

func float(v float64) *float64 { return &v }

// countingVisitor answers with the name of the method that ran.
type countingVisitor struct{}

func (countingVisitor) Heading(models.Box) (string, error)  { return "heading", nil }
func (countingVisitor) Text(models.Box) (string, error)     { return "text", nil }
func (countingVisitor) Markdown(models.Box) (string, error) { return "markdown", nil }
func (countingVisitor) Image(models.Box) (string, error)    { return "image", nil }
func (countingVisitor) Link(models.Box) (string, error)     { return "link", nil }
func (countingVisitor) Iframe(models.Box) (string, error)   { return "iframe", nil }

func TestDispatchCoversEveryKind(t *testing.T) {
	for _, kind := range models.BoxKinds {
		got, err := Dispatch[string](models.NewBox("1", kind), countingVisitor{})
		if err != nil {
			t.Fatalf("Dispatch(%s) error = %v", kind, err)
		}
		if got != string(kind) {
			t.Fatalf("Dispatch(%s) = %q", kind, got)
		}
	}
	if _, err := Dispatch[string](models.Box{ID: "1", Kind: "video"}, countingVisitor{}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestRenderHTML(t *testing.T) {
	previews := &stubPreviews{result: preview.Result{Title: "Example", Image: "https://example.com/og.png"}}
	renderer := NewHTMLRenderer(previews)

	heading := models.NewBox("h1", models.KindHeading)
	heading.Text.Content = "Hello <world>"
	heading.Text.Color = "#ff0000"

	markdown := models.NewBox("m1", models.KindMarkdown)
	markdown.Text.Content = "# Title\n\n<script>alert(1)</script>\n\n- one"

	image := models.NewBox("i1", models.KindImage)
	image.Image = &models.ImageStyle{Radius: float(8), ObjectFit: "contain"}

	link := models.NewBox("l1", models.KindLink)
	link.Link = "https://example.com"

	iframe := models.NewBox("f1", models.KindIframe)
	iframe.Link = "javascript:alert(1)"

	styled := models.NewBox("s1", models.KindText)
	styled.Background = &models.Background{Color: "rgba(0, 0, 0, 0.5)", Opacity: float(40), Blur: float(4)}
	styled.Border = &models.Border{Width: "2px", Color: "red;background:url(x)", Radius: float(12)}

	tests := []struct {
		name    string
		box     models.Box
		editing bool
		want    []string
		reject  []string
	}{
		{
			name: "heading escapes content",
			box:  heading,
			want: []string{`<h2 class="box-heading"`, "Hello &lt;world&gt;", "color: #ff0000", `data-box-id="h1"`},
		},
		{
			name:    "heading editing",
			box:     heading,
			editing: true,
			want:    []string{`<input class="box-heading"`, `value="Hello &lt;world&gt;"`},
		},
		{
			name:   "markdown view",
			box:    markdown,
			want:   []string{"<h1>Title</h1>", "<li>one</li>", `class="markdown align-left"`},
			reject: []string{"<script>"},
		},
		{
			name:    "markdown editing",
			box:     markdown,
			editing: true,
			want:    []string{`<textarea class="box-text mono"`},
		},
		{
			name: "image placeholder",
			box:  image,
			want: []string{`src="/placeholder.svg"`, "border-radius: 8px", "object-fit: contain", `alt="i1"`},
		},
		{
			name: "link falls back to preview",
			box:  link,
			want: []string{`href="https://example.com"`, `src="https://example.com/og.png"`, "Example", `target="_blank"`},
		},
		{
			name:   "iframe unsafe url",
			box:    iframe,
			want:   []string{`<iframe class="box-iframe" src="#ZgotmplZ"`},
			reject: []string{"javascript:"},
		},
		{
			name:   "frame styles",
			box:    styled,
			want:   []string{"opacity: 0.4", "backdrop-filter: blur(4px)", "border-width: 2px", "border-radius: 12px", "background: rgba(0, 0, 0, 0.5)"},
			reject: []string{"url(x)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := renderer.Render(context.Background(), tt.box, tt.editing)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			html := string(out)
			for _, want := range tt.want {
				if !strings.Contains(html, want) {
					t.Fatalf("expected %q in:\n%s", want, html)
				}
			}
			for _, reject := range tt.reject {
				if strings.Contains(html, reject) {
					t.Fatalf("did not expect %q in:\n%s", reject, html)
				}
			}
		})
	}
}

func TestRenderLinkPrefersOwnImage(t *testing.T) {
	previews := &stubPreviews{result: preview.Result{Image: "https://example.com/og.png"}}
	box := models.NewBox("l1", models.KindLink)
	box.Link = "https://example.com"
	box.Image = &models.ImageStyle{Source: "https://cdn.example.com/own.png"}

	out, err := NewHTMLRenderer(previews).Render(context.Background(), box, false)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(string(out), "own.png") {
		t.Fatalf("expected own image, got %s", out)
	}
	if previews.calls != 0 {
		t.Fatalf("expected no preview fetch, got %d", previews.calls)
	}

	box.Image = nil
	out, err = NewHTMLRenderer(nil).Render(context.Background(), box, false)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(string(out), PlaceholderImage) {
		t.Fatalf("expected placeholder without previews, got %s", out)
	}
}

func TestRenderUnknownKind(t *testing.T) {
	_, err := NewHTMLRenderer(nil).Render(context.Background(), models.Box{ID: "x", Kind: "video"}, false)
	if err == nil || !strings.Contains(err.Error(), "unknown box kind") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	long := models.NewBox("t", models.KindText)
	long.Text.Content = strings.Repeat("word ", 30)

	link := models.NewBox("l", models.KindLink)
	link.Link = "https://example.com"

	tests := []struct {
		box  models.Box
		want string
	}{
		{models.NewBox("h", models.KindHeading), "Heading"},
		{models.NewBox("m", models.KindMarkdown), "### Markdown"},
		{models.NewBox("i", models.KindImage), "(no image)"},
		{link, "https://example.com"},
		{models.NewBox("f", models.KindIframe), "(no source)"},
		{models.Box{ID: "x", Kind: "video"}, "(video)"},
	}
	for _, tt := range tests {
		if got := Summary(tt.box); got != tt.want {
			t.Fatalf("Summary(%s) = %q, want %q", tt.box.Kind, got, tt.want)
		}
	}
	if got := Summary(long); len([]rune(got)) != summaryWidth || !strings.HasSuffix(got, "…") {
		t.Fatalf("expected truncated summary, got %q", got)
	}
}

func TestMarkdownEmpty(t *testing.T) {
	if got := Markdown("   "); got != "" {
		t.Fatalf("Markdown(blank) = %q", got)
	}
}
