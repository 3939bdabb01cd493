package preview

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Result is the metadata shown on a link box.
type Result struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Empty reports whether nothing was found.
func (r Result) Empty() bool {
	return r.Title == "" && r.Description == "" && r.Image == ""
}

type page struct {
	meta       map[string]string // first content per property/name
	title      string
	touchIcon  string
	icon       string
	imageSrcs  []string
	titleFound bool
}

// Extract reads link-preview metadata from a parsed document. Relative image
// references are resolved against base when it is non-nil.
func Extract(doc *html.Node, base *url.URL) Result {
	p := &page{meta: map[string]string{}}
	p.walk(doc)

	result := Result{
		Title:       firstNonEmpty(p.meta["og:title"], p.meta["twitter:title"], p.title),
		Description: firstNonEmpty(p.meta["og:description"], p.meta["twitter:description"], p.meta["description"]),
		Image:       firstNonEmpty(p.meta["og:image"], p.meta["twitter:image"], p.touchIcon, preferredImage(p.imageSrcs), p.icon),
	}
	if result.Image != "" && base != nil {
		if ref, err := base.Parse(result.Image); err == nil {
			result.Image = ref.String()
		}
	}
	return result
}

func (p *page) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Meta:
			key := strings.ToLower(firstNonEmpty(attr(n, "property"), attr(n, "name")))
			if key != "" {
				if _, seen := p.meta[key]; !seen {
					if content := strings.TrimSpace(attr(n, "content")); content != "" {
						p.meta[key] = content
					}
				}
			}
		case atom.Title:
			if !p.titleFound {
				p.titleFound = true
				p.title = strings.TrimSpace(textContent(n))
			}
		case atom.Link:
			href := strings.TrimSpace(attr(n, "href"))
			if href == "" {
				break
			}
			for _, rel := range strings.Fields(strings.ToLower(attr(n, "rel"))) {
				switch rel {
				case "apple-touch-icon":
					if p.touchIcon == "" {
						p.touchIcon = href
					}
				case "icon":
					if p.icon == "" {
						p.icon = href
					}
				}
			}
		case atom.Img:
			if src := strings.TrimSpace(attr(n, "src")); src != "" {
				p.imageSrcs = append(p.imageSrcs, src)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

// preferredImage picks the first image that looks like a logo, else the first image.
func preferredImage(srcs []string) string {
	for _, hint := range []string{"logo", "brand", "icon"} {
		for _, src := range srcs {
			if strings.Contains(strings.ToLower(src), hint) {
				return src
			}
		}
	}
	if len(srcs) > 0 {
		return srcs[0]
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
