package fetcher

import (
	"strings"
	"testing"
)

func TestIsHTMLContentType(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"application/xhtml+xml", true},
		{"TEXT/HTML", true},
		{"application/json", false},
		{"image/png", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isHTMLContentType(tt.ct); got != tt.want {
			t.Errorf("isHTMLContentType(%q) = %v, want %v", tt.ct, got, tt.want)
		}
	}
}

func TestNeedsBrowser(t *testing.T) {
	longText := strings.Repeat("Plenty of readable article text here. ", 20)

	tests := []struct {
		name string
		body string
		want bool
	}{
		{
			name: "static article",
			body: "<html><body><p>" + longText + "</p></body></html>",
			want: false,
		},
		{
			name: "spa shell with empty root",
			body: `<html><body><div id="root"></div><p>` + longText + `</p></body></html>`,
			want: true,
		},
		{
			name: "empty next root",
			body: `<html><body><div id="__next"></div><p>` + longText + `</p></body></html>`,
			want: true,
		},
		{
			name: "barely any visible text",
			body: `<html><body><div id="app"><span>hi</span></div></body></html>`,
			want: true,
		},
		{
			name: "noscript javascript warning",
			body: "<html><body><noscript>Please enable JavaScript to view this site.</noscript><p>" + longText + "</p></body></html>",
			want: true,
		},
		{
			name: "script content is not visible text",
			body: `<html><body><script>var x = "` + longText + `";</script></body></html>`,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsBrowser([]byte(tt.body)); got != tt.want {
				t.Errorf("needsBrowser() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNeedsBrowser_ManyScriptsLittleText(t *testing.T) {
	someText := strings.Repeat("word ", 60) // ~300 chars, above the SPA floor
	var sb strings.Builder
	sb.WriteString("<html><head>")
	for i := 0; i < 12; i++ {
		sb.WriteString(`<script src="/bundle.js"></script>`)
	}
	sb.WriteString("</head><body><p>")
	sb.WriteString(someText)
	sb.WriteString("</p></body></html>")

	if !needsBrowser([]byte(sb.String())) {
		t.Error("expected script-heavy page with thin body text to need the browser")
	}
}

func TestExtractVisibleText(t *testing.T) {
	body := `<html><head><title>ignored</title><style>p{color:red}</style></head>
<body><script>var hidden = 1;</script><h1>Heading</h1><p>Body text.</p>
<noscript>enable javascript</noscript></body></html>`

	got := extractVisibleText([]byte(body))

	for _, want := range []string{"Heading", "Body text."} {
		if !strings.Contains(got, want) {
			t.Errorf("visible text missing %q: %q", want, got)
		}
	}
	for _, banned := range []string{"ignored", "color:red", "hidden", "enable javascript"} {
		if strings.Contains(got, banned) {
			t.Errorf("visible text should not contain %q: %q", banned, got)
		}
	}
}
