package models

// BoxPatch is a partial update. Nil fields are left untouched; groups are
// merged field by field so that setting text.color keeps text.content.
type BoxPatch struct {
	Kind       *BoxKind         `json:"type,omitempty"`
	Link       *string          `json:"link,omitempty"`
	Text       *TextPatch       `json:"text,omitempty"`
	Image      *ImagePatch      `json:"image,omitempty"`
	Background *BackgroundPatch `json:"background,omitempty"`
	Border     *BorderPatch     `json:"border,omitempty"`
}

type TextPatch struct {
	Content *string `json:"content,omitempty"`
	Align   *string `json:"align,omitempty"`
	Color   *string `json:"color,omitempty"`
}

type ImagePatch struct {
	Source    *string  `json:"src,omitempty"`
	Alt       *string  `json:"alt,omitempty"`
	Padding   *string  `json:"padding,omitempty"`
	Radius    *float64 `json:"radius,omitempty"`
	ObjectFit *string  `json:"objectFit,omitempty"`
	Align     *string  `json:"align,omitempty"`
}

type BackgroundPatch struct {
	Color   *string  `json:"color,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
	Blur    *float64 `json:"blur,omitempty"`
}

type BorderPatch struct {
	Color  *string  `json:"color,omitempty"`
	Width  *string  `json:"width,omitempty"`
	Radius *float64 `json:"radius,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p BoxPatch) Empty() bool {
	return p.Kind == nil && p.Link == nil && p.Text == nil && p.Image == nil &&
		p.Background == nil && p.Border == nil
}

// Apply returns a copy of box with the patch merged in. The receiver box is
// not modified.
func (p BoxPatch) Apply(box Box) Box {
	out := box.Clone()
	if p.Kind != nil {
		out.Kind = *p.Kind
	}
	if p.Link != nil {
		out.Link = *p.Link
	}
	if p.Text != nil {
		text := TextStyle{}
		if out.Text != nil {
			text = *out.Text
		}
		setString(&text.Content, p.Text.Content)
		setString(&text.Align, p.Text.Align)
		setString(&text.Color, p.Text.Color)
		out.Text = &text
	}
	if p.Image != nil {
		image := ImageStyle{}
		if out.Image != nil {
			image = *out.Image
		}
		setString(&image.Source, p.Image.Source)
		setString(&image.Alt, p.Image.Alt)
		setString(&image.Padding, p.Image.Padding)
		setString(&image.ObjectFit, p.Image.ObjectFit)
		setString(&image.Align, p.Image.Align)
		if p.Image.Radius != nil {
			image.Radius = Float(*p.Image.Radius)
		}
		out.Image = &image
	}
	if p.Background != nil {
		bg := Background{}
		if out.Background != nil {
			bg = *out.Background
		}
		setString(&bg.Color, p.Background.Color)
		if p.Background.Opacity != nil {
			bg.Opacity = Float(clampOpacity(*p.Background.Opacity))
		}
		if p.Background.Blur != nil {
			bg.Blur = Float(nonNegative(*p.Background.Blur))
		}
		out.Background = &bg
	}
	if p.Border != nil {
		border := Border{}
		if out.Border != nil {
			border = *out.Border
		}
		setString(&border.Color, p.Border.Color)
		setString(&border.Width, p.Border.Width)
		if p.Border.Radius != nil {
			border.Radius = Float(nonNegative(*p.Border.Radius))
		}
		out.Border = &border
	}
	return out
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func clampOpacity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
