package render

import (
	"bytes"
	"context"
	"html/template"
	"strconv"
	"strings"

	"github.com/haasonsaas/boxgrid/internal/preview"
	"github.com/haasonsaas/boxgrid/pkg/models"
)

// PlaceholderImage is shown when an image or link box has nothing to show.
const PlaceholderImage = "/placeholder.svg"

// PreviewSource supplies link previews for link boxes without an image.
type PreviewSource interface {
	Fetch(ctx context.Context, rawURL string) preview.Result
}

var boxTemplates = template.Must(template.New("boxes").Parse(`
{{- define "frame" -}}
<div class="box box-{{.Kind}}" data-box-id="{{.ID}}"{{with .Style}} style="{{.}}"{{end}}>
{{- with .Background}}<div class="box-background" style="{{.}}"></div>{{end -}}
{{.Body}}</div>
{{- end -}}

{{- define "heading" -}}
{{if .Editing}}<input class="box-heading" name="content" value="{{.Content}}"{{with .Style}} style="{{.}}"{{end}}>
{{- else}}<h2 class="box-heading"{{with .Style}} style="{{.}}"{{end}}>{{.Content}}</h2>{{end}}
{{- end -}}

{{- define "text" -}}
{{if .Editing}}<textarea class="box-text{{if .Mono}} mono{{end}}" name="content"{{with .Style}} style="{{.}}"{{end}}>{{.Content}}</textarea>
{{- else}}<div class="box-text"{{with .Style}} style="{{.}}"{{end}}>{{.Content}}</div>{{end}}
{{- end -}}

{{- define "markdown" -}}
<div class="markdown align-{{.Align}}">{{.HTML}}</div>
{{- end -}}

{{- define "image" -}}
<div class="box-image"{{with .Padding}} style="{{.}}"{{end}}><img src="{{.Src}}" alt="{{.Alt}}" style="{{.ImgStyle}}"></div>
{{- end -}}

{{- define "link" -}}
<a class="box-link" href="{{.Href}}" target="_blank" rel="noopener noreferrer"{{with .Padding}} style="{{.}}"{{end}}>
{{- if .Title}}<span class="box-link-title">{{.Title}}</span>{{end -}}
<img src="{{.Src}}" alt="{{.Alt}}" style="{{.ImgStyle}}"></a>
{{- end -}}

{{- define "iframe" -}}
<iframe class="box-iframe" src="{{.Src}}"{{with .Padding}} style="{{.}}"{{end}}></iframe>
{{- end -}}
`))

// HTMLRenderer renders boxes as HTML fragments.
type HTMLRenderer struct {
	previews PreviewSource
}

// NewHTMLRenderer builds a renderer. previews may be nil.
func NewHTMLRenderer(previews PreviewSource) *HTMLRenderer {
	return &HTMLRenderer{previews: previews}
}

// Render renders box inside its styled frame. editing selects the editable
// form of text-bearing kinds.
func (r *HTMLRenderer) Render(ctx context.Context, box models.Box, editing bool) (template.HTML, error) {
	body, err := Dispatch[template.HTML](box, &htmlVisitor{ctx: ctx, previews: r.previews, editing: editing})
	if err != nil {
		return "", err
	}
	return execute("frame", frameData{
		ID:         box.ID,
		Kind:       string(box.Kind),
		Style:      frameStyle(box),
		Background: backgroundStyle(box.Background),
		Body:       body,
	})
}

type frameData struct {
	ID         string
	Kind       string
	Style      template.CSS
	Background template.CSS
	Body       template.HTML
}

type textData struct {
	Editing bool
	Mono    bool
	Content string
	Style   template.CSS
}

type mediaData struct {
	Href     string
	Src      string
	Alt      string
	Title    string
	Padding  template.CSS
	ImgStyle template.CSS
}

type htmlVisitor struct {
	ctx      context.Context
	previews PreviewSource
	editing  bool
}

func (v *htmlVisitor) Heading(box models.Box) (template.HTML, error) {
	return execute("heading", v.text(box, false))
}

func (v *htmlVisitor) Text(box models.Box) (template.HTML, error) {
	data := v.text(box, false)
	data.Style = appendStyle(data.Style, "white-space", "pre-wrap")
	return execute("text", data)
}

func (v *htmlVisitor) Markdown(box models.Box) (template.HTML, error) {
	if v.editing {
		return execute("text", v.text(box, true))
	}
	align := "left"
	if box.Text != nil && cssValue(box.Text.Align) != "" {
		align = box.Text.Align
	}
	content := ""
	if box.Text != nil {
		content = box.Text.Content
	}
	return execute("markdown", struct {
		Align string
		HTML  template.HTML
	}{Align: align, HTML: Markdown(content)})
}

func (v *htmlVisitor) Image(box models.Box) (template.HTML, error) {
	data := media(box)
	if box.Image != nil && box.Image.Radius != nil {
		data.ImgStyle = appendStyle(data.ImgStyle, "border-radius", px(*box.Image.Radius))
	}
	if data.Src == "" {
		data.Src = PlaceholderImage
	}
	return execute("image", data)
}

func (v *htmlVisitor) Link(box models.Box) (template.HTML, error) {
	data := media(box)
	data.Href = box.Link
	if data.Src == "" && v.previews != nil && box.Link != "" {
		found := v.previews.Fetch(v.ctx, box.Link)
		data.Src = found.Image
		data.Title = found.Title
	}
	if data.Src == "" {
		data.Src = PlaceholderImage
	}
	return execute("link", data)
}

func (v *htmlVisitor) Iframe(box models.Box) (template.HTML, error) {
	data := media(box)
	data.Src = box.Link
	return execute("iframe", data)
}

func (v *htmlVisitor) text(box models.Box, mono bool) textData {
	data := textData{Editing: v.editing, Mono: mono}
	if box.Text != nil {
		data.Content = box.Text.Content
		var style template.CSS
		style = appendStyle(style, "text-align", box.Text.Align)
		style = appendStyle(style, "color", box.Text.Color)
		data.Style = style
	}
	return data
}

func media(box models.Box) mediaData {
	data := mediaData{Alt: box.ID}
	fit := "cover"
	if box.Image != nil {
		data.Src = strings.TrimSpace(box.Image.Source)
		if box.Image.Alt != "" {
			data.Alt = box.Image.Alt
		}
		if box.Image.ObjectFit != "" {
			fit = box.Image.ObjectFit
		}
		data.Padding = appendStyle("", "padding", box.Image.Padding)
	}
	data.ImgStyle = appendStyle("", "object-fit", fit)
	return data
}

func frameStyle(box models.Box) template.CSS {
	var style template.CSS
	if box.Border != nil {
		style = appendStyle(style, "border-width", box.Border.Width)
		style = appendStyle(style, "border-color", box.Border.Color)
		if box.Border.Radius != nil {
			style = appendStyle(style, "border-radius", px(*box.Border.Radius))
		}
		if box.Border.Width != "" {
			style = appendStyle(style, "border-style", "solid")
		}
	}
	if box.Text != nil {
		style = appendStyle(style, "color", box.Text.Color)
		style = appendStyle(style, "text-align", box.Text.Align)
	}
	return style
}

func backgroundStyle(bg *models.Background) template.CSS {
	if bg == nil {
		return ""
	}
	style := appendStyle("", "background", bg.Color)
	opacity := 1.0
	if bg.Opacity != nil {
		opacity = *bg.Opacity / 100
	}
	style = appendStyle(style, "opacity", strconv.FormatFloat(opacity, 'f', -1, 64))
	blur := 0.0
	if bg.Blur != nil {
		blur = *bg.Blur
	}
	return appendStyle(style, "backdrop-filter", "blur("+px(blur)+")")
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// cssValue returns value when it only uses characters found in colors,
// lengths and simple functions, and "" otherwise.
func cssValue(value string) string {
	value = strings.TrimSpace(value)
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("#(),.% -", r):
		default:
			return ""
		}
	}
	return value
}

func appendStyle(style template.CSS, property, value string) template.CSS {
	value = cssValue(value)
	if value == "" {
		return style
	}
	decl := property + ": " + value
	if style == "" {
		return template.CSS(decl)
	}
	return style + template.CSS("; "+decl)
}

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := boxTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
