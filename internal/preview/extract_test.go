package preview

import (
	"net/url"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestExtract(t *testing.T) {
	base, _ := url.Parse("https://example.com/blog/post")

	tests := []struct {
		name string
		html string
		want Result
	}{
		{
			name: "open graph",
			html: `<html><head>
				<meta property="og:title" content="OG Title">
				<meta property="og:description" content="OG Desc">
				<meta property="og:image" content="/og.png">
				<meta name="twitter:title" content="Twitter Title">
				<title>Doc Title</title>
			</head></html>`,
			want: Result{Title: "OG Title", Description: "OG Desc", Image: "https://example.com/og.png"},
		},
		{
			name: "twitter fallbacks",
			html: `<html><head>
				<meta name="twitter:title" content="Twitter Title">
				<meta name="twitter:description" content="Twitter Desc">
				<meta name="twitter:image" content="https://cdn.example.com/t.png">
				<meta name="description" content="Plain Desc">
			</head></html>`,
			want: Result{Title: "Twitter Title", Description: "Twitter Desc", Image: "https://cdn.example.com/t.png"},
		},
		{
			name: "document title and meta description",
			html: `<html><head><title> Doc Title </title><meta name="description" content="Plain Desc"></head></html>`,
			want: Result{Title: "Doc Title", Description: "Plain Desc"},
		},
		{
			name: "apple touch icon before images",
			html: `<html><head><link rel="apple-touch-icon" href="touch.png"><link rel="icon" href="/favicon.ico"></head>
				<body><img src="/hero.jpg"></body></html>`,
			want: Result{Image: "https://example.com/blog/touch.png"},
		},
		{
			name: "logo image preferred",
			html: `<html><body><img src="/hero.jpg"><img src="/img/Brand-mark.svg"><img src="/static/logo.png"></body></html>`,
			want: Result{Image: "https://example.com/static/logo.png"},
		},
		{
			name: "first image without hints",
			html: `<html><body><img src="a.jpg"><img src="b.jpg"></body></html>`,
			want: Result{Image: "https://example.com/blog/a.jpg"},
		},
		{
			name: "favicon last",
			html: `<html><head><link rel="shortcut icon" href="/favicon.ico"></head><body></body></html>`,
			want: Result{Image: "https://example.com/favicon.ico"},
		},
		{
			name: "nothing",
			html: `<html><body><p>hi</p></body></html>`,
			want: Result{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := html.Parse(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("html.Parse() error = %v", err)
			}
			if got := Extract(doc, base); got != tt.want {
				t.Fatalf("Extract() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExtractWithoutBase(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<meta property="og:image" content="/x.png">`))
	if err != nil {
		t.Fatalf("html.Parse() error = %v", err)
	}
	if got := Extract(doc, nil); got.Image != "/x.png" {
		t.Fatalf("expected unresolved image, got %q", got.Image)
	}
}
