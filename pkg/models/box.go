package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// BoxKind identifies which renderer a box uses and which style groups are meaningful.
type BoxKind string

const (
	KindHeading  BoxKind = "heading"
	KindText     BoxKind = "text"
	KindMarkdown BoxKind = "markdown"
	KindImage    BoxKind = "image"
	KindLink     BoxKind = "link"
	KindIframe   BoxKind = "iframe"
)

// BoxKinds lists every supported kind.
var BoxKinds = []BoxKind{KindHeading, KindText, KindMarkdown, KindImage, KindLink, KindIframe}

// Valid reports whether the kind is one of the supported kinds.
func (k BoxKind) Valid() bool {
	switch k {
	case KindHeading, KindText, KindMarkdown, KindImage, KindLink, KindIframe:
		return true
	}
	return false
}

// ParseBoxKind converts user input into a BoxKind.
func ParseBoxKind(value string) (BoxKind, error) {
	kind := BoxKind(strings.ToLower(strings.TrimSpace(value)))
	if !kind.Valid() {
		return "", fmt.Errorf("unknown box kind %q", value)
	}
	return kind, nil
}

// HasText reports whether the text group is meaningful for the kind.
func (k BoxKind) HasText() bool {
	return k == KindHeading || k == KindText || k == KindMarkdown
}

// HasImage reports whether the image group is meaningful for the kind.
func (k BoxKind) HasImage() bool {
	return k == KindImage || k == KindLink
}

// HasLink reports whether the link field is meaningful for the kind.
func (k BoxKind) HasLink() bool {
	return k == KindLink || k == KindIframe
}

// TextStyle holds text content and its presentation.
type TextStyle struct {
	Content string `json:"content,omitempty"`
	Align   string `json:"align,omitempty"`
	Color   string `json:"color,omitempty"`
}

// ImageStyle holds an image source and its presentation.
type ImageStyle struct {
	Source    string   `json:"src,omitempty"`
	Alt       string   `json:"alt,omitempty"`
	Padding   string   `json:"padding,omitempty"`
	Radius    *float64 `json:"radius,omitempty"`
	ObjectFit string   `json:"objectFit,omitempty"`
	Align     string   `json:"align,omitempty"`
}

// Background describes the layer painted behind a box.
type Background struct {
	Color   string   `json:"color,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
	Blur    *float64 `json:"blur,omitempty"`
}

// Border describes the box outline.
type Border struct {
	Color  string   `json:"color,omitempty"`
	Width  string   `json:"width,omitempty"`
	Radius *float64 `json:"radius,omitempty"`
}

// Box is one positioned, styled content unit on the grid. Every group is
// optional; a nil group means "use the kind default".
//
// Box values are treated as immutable once stored: edits replace whole groups
// instead of writing through the pointers.
type Box struct {
	ID         string      `json:"id"`
	Kind       BoxKind     `json:"type"`
	Link       string      `json:"link,omitempty"`
	Text       *TextStyle  `json:"text,omitempty"`
	Image      *ImageStyle `json:"image,omitempty"`
	Background *Background `json:"background,omitempty"`
	Border     *Border     `json:"border,omitempty"`
}

// NewBox builds a box with the defaults for its kind.
func NewBox(id string, kind BoxKind) Box {
	box := Box{ID: id, Kind: kind}
	switch kind {
	case KindHeading:
		box.Text = &TextStyle{Align: "left", Content: "Heading"}
	case KindText:
		box.Text = &TextStyle{Align: "left", Content: "Text"}
	case KindMarkdown:
		box.Text = &TextStyle{Align: "left", Content: "### Markdown"}
	}
	return box
}

// Clone returns a deep copy of the box.
func (b Box) Clone() Box {
	out := b
	if b.Text != nil {
		text := *b.Text
		out.Text = &text
	}
	if b.Image != nil {
		image := *b.Image
		image.Radius = cloneFloat(b.Image.Radius)
		out.Image = &image
	}
	if b.Background != nil {
		bg := *b.Background
		bg.Opacity = cloneFloat(b.Background.Opacity)
		bg.Blur = cloneFloat(b.Background.Blur)
		out.Background = &bg
	}
	if b.Border != nil {
		border := *b.Border
		border.Radius = cloneFloat(b.Border.Radius)
		out.Border = &border
	}
	return out
}

// UnmarshalJSON accepts ids encoded as strings or numbers.
func (b *Box) UnmarshalJSON(data []byte) error {
	type boxAlias Box
	var raw struct {
		boxAlias
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Box(raw.boxAlias)
	b.ID = decodeID(raw.ID)
	return nil
}

// BoxSet is the box collection keyed by box id.
type BoxSet map[string]Box

// Clone returns a deep copy of the set.
func (s BoxSet) Clone() BoxSet {
	out := make(BoxSet, len(s))
	for id, box := range s {
		out[id] = box.Clone()
	}
	return out
}

// List returns the boxes ordered by id.
func (s BoxSet) List() []Box {
	out := make([]Box, 0, len(s))
	for _, box := range s {
		out = append(out, box.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnmarshalJSON decodes either a mapping of id to box or a sequence of boxes.
// Sequence entries without an id are dropped. Mapping entries without an id
// take their key. Entries that fail to decode are skipped.
func (s *BoxSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	out := BoxSet{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = out
		return nil
	}

	switch trimmed[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return err
		}
		for _, entry := range entries {
			var box Box
			if err := json.Unmarshal(entry, &box); err != nil {
				continue
			}
			id := strings.TrimSpace(box.ID)
			if id == "" {
				continue
			}
			box.ID = id
			out[id] = box
		}
	case '{':
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return err
		}
		for key, entry := range entries {
			if bytes.Equal(bytes.TrimSpace(entry), []byte("null")) {
				continue
			}
			var box Box
			if err := json.Unmarshal(entry, &box); err != nil {
				continue
			}
			id := strings.TrimSpace(box.ID)
			if id == "" {
				id = strings.TrimSpace(key)
			}
			if id == "" {
				continue
			}
			box.ID = id
			out[id] = box
		}
	default:
		return fmt.Errorf("boxes must be an object or an array")
	}
	*s = out
	return nil
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

// Float returns a pointer to v, for populating optional numeric fields.
func Float(v float64) *float64 {
	return &v
}

func decodeID(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return n.String()
	}
	return ""
}
