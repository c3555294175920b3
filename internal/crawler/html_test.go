package crawler

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html>
<html><head><title>Ignored Title</title><style>.x { color: red }</style></head>
<body>
<!-- <a href="/commented">hidden</a> -->
<script>var s = "<a href='/scripted'>x</a>";</script>
<h1>Hello &amp; welcome</h1><p>first</p><p>second</p>
<a href="/relative#frag">rel</a>
<A HREF="https://other.example/abs">abs</A>
<a href="mailto:someone@example.com">mail</a>
<a name="anchor-only">none</a>
<svg><a href="/in-svg">svg</a></svg>
<noscript><a href="/noscript">n</a></noscript>
<a href="../up.html">up</a>
</body></html>`

func TestStripBlockElements(t *testing.T) {
	out := StripBlockElements(page)

	assert.NotContains(t, out, "Ignored Title")
	assert.NotContains(t, out, "color: red")
	assert.NotContains(t, out, "commented")
	assert.NotContains(t, out, "scripted")
	assert.NotContains(t, out, "in-svg")
	assert.NotContains(t, out, "noscript")
	assert.Contains(t, out, `<a href="/relative#frag">`)
	assert.Contains(t, out, "Hello &amp; welcome")
}

func TestStripHTML(t *testing.T) {
	out := StripHTML(StripBlockElements(page))

	assert.NotContains(t, out, "<")
	assert.Contains(t, out, "Hello & welcome")
	assert.Equal(t, []string{"Hello", "&", "welcome", "first", "second"}, strings.Fields(out)[:5])
	assert.NotContains(t, out, "var s")
}

func TestListURLs(t *testing.T) {
	base, err := url.Parse("https://site.example/docs/index.html")
	require.NoError(t, err)

	links := ListURLs(base, StripBlockElements(page))
	got := make([]string, len(links))
	for i, l := range links {
		got[i] = l.String()
	}
	assert.Equal(t, []string{
		"https://site.example/relative",
		"https://other.example/abs",
		"https://site.example/up.html",
	}, got)
}

func TestListURLs_UnstrippedSeesEverything(t *testing.T) {
	base, _ := url.Parse("http://a.example/")
	links := ListURLs(base, `<a href="/x"></a><svg><a href="/y"/></svg>`)
	assert.Len(t, links, 2)
}

func TestStripBlockElements_UnclosedHeadEndsAtBody(t *testing.T) {
	doc := `<html><head><title>T</title><meta charset="utf-8"><body><p>hello rivers</p><a href="/next">next</a></body></html>`

	out := StripBlockElements(doc)
	assert.NotContains(t, out, "<title>")
	assert.Contains(t, out, "<body>")
	assert.Contains(t, out, "hello rivers")
	assert.Equal(t, []string{"hello", "rivers", "next"}, strings.Fields(StripHTML(doc)))

	base, err := url.Parse("https://site.example/")
	require.NoError(t, err)
	links := ListURLs(base, out)
	require.Len(t, links, 1)
	assert.Equal(t, "https://site.example/next", links[0].String())
}

func TestStripBlockElements_UnclosedHeadEndsAtContentTag(t *testing.T) {
	doc := `<head><title>T</title><style>p{}</style><p>body text</p>`

	assert.Equal(t, []string{"body", "text"}, strings.Fields(StripHTML(doc)))
}

func TestStripBlockElements_UnclosedBlockKeepsContent(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "noscript",
			doc:  `<body><p>before</p><noscript><p>after rivers</p></body>`,
			want: []string{"before", "after", "rivers"},
		},
		{
			name: "svg",
			doc:  `<body>before<svg><text>drawn</text><p>after</p>`,
			want: []string{"before", "drawn", "after"},
		},
		{
			name: "closed block still removed",
			doc:  `<body>before<noscript>hidden</noscript>after</body>`,
			want: []string{"before", "after"},
		},
		{
			name: "nested svg",
			doc:  `<svg><svg>inner</svg>still drawn</svg>kept`,
			want: []string{"kept"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, strings.Fields(StripHTML(tt.doc)))
		})
	}
}

func TestListURLs_AfterUnclosedNoscript(t *testing.T) {
	base, err := url.Parse("https://site.example/")
	require.NoError(t, err)
	doc := `<body><noscript><a href="/a">a</a><p>rest</p><a href="/b">b</a></body>`

	links := ListURLs(base, StripBlockElements(doc))
	require.Len(t, links, 2)
	assert.Equal(t, "https://site.example/a", links[0].String())
	assert.Equal(t, "https://site.example/b", links[1].String())
}
