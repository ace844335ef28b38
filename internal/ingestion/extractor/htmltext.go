package extractor

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Table: true, atom.Blockquote: true, atom.Pre: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Title: true,
}

var inlineWhitespace = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ", " ", " ")

// HTMLToText converts markup to plain text. Script and style bodies are
// dropped, block closers and <br> become newlines, table cells are separated
// by a space and entities are decoded by the tokenizer. Source line breaks
// outside <pre> are plain spacing, as in a browser.
func HTMLToText(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	skip, pre := 0, 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return Normalize(b.String())
		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := string(z.Text())
			if pre == 0 {
				text = inlineWhitespace.Replace(text)
			}
			b.WriteString(text)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch a := atom.Lookup(name); a {
			case atom.Script, atom.Style:
				skip++
			case atom.Pre:
				pre++
			case atom.Br:
				b.WriteByte('\n')
			case atom.Td, atom.Th:
				// separate cells without indenting the first one
				if str := b.String(); str != "" && !strings.HasSuffix(str, "\n") {
					b.WriteByte(' ')
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case a == atom.Script || a == atom.Style:
				if skip > 0 {
					skip--
				}
			case a == atom.Pre && pre > 0:
				pre--
				b.WriteByte('\n')
			case blockElements[a]:
				b.WriteByte('\n')
			}
		}
	}
}
