package crawler

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockElements hold no indexable page content.
var blockElements = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Style:    true,
	atom.Script:   true,
	atom.Noscript: true,
	atom.Svg:      true,
}

// headContent may appear inside <head>. Any other start tag opens the body,
// so an unclosed head ends there.
var headContent = map[atom.Atom]bool{
	atom.Base:     true,
	atom.Link:     true,
	atom.Meta:     true,
	atom.Noscript: true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Template: true,
	atom.Title:    true,
}

type token struct {
	typ  html.TokenType
	atom atom.Atom
	raw  string
	text string
}

func tokenize(doc string) []token {
	var toks []token
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return toks
		}
		t := token{typ: tt, raw: string(z.Raw())}
		switch tt {
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			t.atom = atom.Lookup(name)
			// read noscript content as markup so an unclosed one does not
			// swallow the rest of the page as text
			if tt == html.StartTagToken && t.atom == atom.Noscript {
				z.NextIsNotRawText()
			}
		case html.TextToken:
			t.text = string(z.Text())
		}
		toks = append(toks, t)
	}
}

// closedLater marks each block start tag that has an end tag of the same
// name somewhere after it.
func closedLater(toks []token) []bool {
	closed := make([]bool, len(toks))
	seen := make(map[atom.Atom]bool)
	for i := len(toks) - 1; i >= 0; i-- {
		t := toks[i]
		switch {
		case t.typ == html.EndTagToken:
			seen[t.atom] = true
		case t.typ == html.StartTagToken && blockElements[t.atom]:
			closed[i] = seen[t.atom]
		}
	}
	return closed
}

func endsHead(t token) bool {
	switch t.typ {
	case html.EndTagToken:
		return t.atom == atom.Head
	case html.StartTagToken, html.SelfClosingTagToken:
		return !headContent[t.atom]
	}
	return false
}

// walk feeds every token outside block elements and comments to emit. A
// head ends at </head> or at the first tag that belongs in the body. The
// other block elements are dropped only when they are closed; an unclosed
// one keeps its content.
func walk(doc string, emit func(t token)) {
	toks := tokenize(doc)
	closed := closedLater(toks)

	var skipping atom.Atom
	depth := 0
	for i, t := range toks {
		if depth > 0 {
			if skipping != atom.Head || !endsHead(t) {
				if t.atom == skipping {
					switch t.typ {
					case html.StartTagToken:
						depth++
					case html.EndTagToken:
						depth--
					}
				}
				continue
			}
			depth = 0
			if t.typ == html.EndTagToken {
				continue
			}
		}

		switch t.typ {
		case html.CommentToken, html.DoctypeToken:
			continue
		case html.StartTagToken:
			if t.atom == atom.Head || (blockElements[t.atom] && closed[i]) {
				skipping, depth = t.atom, 1
				continue
			}
		case html.EndTagToken:
			if blockElements[t.atom] {
				continue
			}
		}
		emit(t)
	}
}

// StripBlockElements removes head, style, script, noscript and svg elements
// and comments, keeping the rest of the markup.
func StripBlockElements(doc string) string {
	var b strings.Builder
	walk(doc, func(t token) {
		b.WriteString(t.raw)
	})
	return b.String()
}

// StripHTML returns the unescaped text of doc with every tag replaced by a
// space. Block elements are dropped as in StripBlockElements.
func StripHTML(doc string) string {
	var b strings.Builder
	walk(doc, func(t token) {
		if t.typ == html.TextToken {
			b.WriteString(t.text)
			return
		}
		b.WriteByte(' ')
	})
	return b.String()
}

// ListURLs returns the absolute http(s) targets of every <a href> in doc, in
// document order, resolved against base with fragments removed.
func ListURLs(base *url.URL, doc string) []*url.URL {
	var links []*url.URL
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return links
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		switch atom.Lookup(name) {
		case atom.Noscript:
			z.NextIsNotRawText()
			continue
		case atom.A:
		default:
			continue
		}
		for hasAttr {
			var key, val []byte
			key, val, hasAttr = z.TagAttr()
			if string(key) != "href" {
				continue
			}
			if link := resolve(base, string(val)); link != nil {
				links = append(links, link)
			}
			break
		}
	}
}

func resolve(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil
	}
	u, err := base.Parse(href)
	if err != nil {
		return nil
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u
}
