package bbcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

type handler func(p *parser, tok html.Token)

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"strong": simple("b"),
		"b":      (*parser).captureStart,
		"i":      simple("i"),
		"em":     simple("i"),
		"u":      simple("u"),
		"strike": simple("strike"),
		"s":      simple("strike"),
		"del":    simple("strike"),
		"sub":    simple("sub"),
		"sup":    simple("sup"),
		"center": block("center"),
		"br":     (*parser).lineBreak,
		"hr":     (*parser).rule,

		"ul": (*parser).unorderedList,
		"ol": (*parser).orderedList,
		"li": (*parser).listItem,

		"table": (*parser).tableStart,
		"tr":    (*parser).tableRow,
		"td":    (*parser).tableCell,
		"th":    (*parser).tableCell,

		"font": (*parser).font,
		"span": (*parser).span,
		"div":  (*parser).div,

		"dt": (*parser).captureStart,
		"dd": (*parser).definition,

		"img":     (*parser).image,
		"embed":   (*parser).embed,
		"marquee": (*parser).marquee,
		"a":       (*parser).link,
	}
}

func attr(tok html.Token, key string) (string, bool) {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func simple(tag string) handler {
	return func(p *parser, tok html.Token) {
		p.open(&element{tag: tag})
	}
}

func block(tag string) handler {
	return func(p *parser, tok html.Token) {
		p.open(&element{tag: tag, suffix: "\n"})
	}
}

func (p *parser) lineBreak(tok html.Token) {
	p.emit(text("\n"))
}

func (p *parser) rule(tok html.Token) {
	p.emit(&element{tag: "hr"})
}

func (p *parser) unorderedList(tok html.Token) {
	p.open(&element{tag: "list", close: "list:u", trimNewlines: true})
}

func (p *parser) orderedList(tok html.Token) {
	kind, ok := attr(tok, "type")
	if !ok || kind == "" {
		kind = "1"
	}
	p.open(&element{tag: "list", arg: "=" + Escape(kind), close: "list:o", trimNewlines: true})
}

func (p *parser) listItem(tok html.Token) {
	p.open(&element{tag: "*", close: "*:m", moveNewlines: true})
}

var literalTableAttrs = []string{"cellspacing", "cellpadding", "border", "align", "width"}

func openingTag(tok html.Token) string {
	var sb strings.Builder
	sb.WriteString("<" + tok.Data)
	for _, a := range tok.Attr {
		sb.WriteString(" " + a.Key + `="` + Escape(a.Val) + `"`)
	}
	sb.WriteString(">")
	return sb.String()
}

func (p *parser) tableStart(tok html.Token) {
	styled := true
	for _, key := range literalTableAttrs {
		if _, ok := attr(tok, key); !ok {
			styled = false
			break
		}
	}
	if styled {
		p.open(&literal{tag: "table", open: openingTag(tok), close: "</table>"})
		return
	}

	var args strings.Builder
	for _, key := range []string{"border", "cellspacing", "cellpadding"} {
		if v, ok := attr(tok, key); ok {
			fmt.Fprintf(&args, " %s=%s", key, v)
		}
	}
	p.open(&element{tag: "table", arg: args.String(), suffix: "\n"})
}

func (p *parser) tableRow(tok html.Token) {
	p.tablePart(tok, "tr")
}

func (p *parser) tableCell(tok html.Token) {
	p.tablePart(tok, "td")
}

func (p *parser) tablePart(tok html.Token, tag string) {
	t, ok := p.table()
	if !ok {
		return
	}
	if _, converted := t.(*element); converted {
		p.open(&element{tag: tag})
		return
	}
	p.open(&literal{tag: tok.Data, open: openingTag(tok), close: "</" + tok.Data + ">"})
}

func (p *parser) font(tok html.Token) {
	if color, ok := attr(tok, "color"); ok {
		p.open(&element{tag: "color", arg: "=" + Escape(color)})
	}
	if face, ok := attr(tok, "face"); ok {
		p.open(&element{tag: "font", arg: "=" + Escape(face)})
	}
}

var (
	fontSizePattern  = regexp.MustCompile(`font-size:\s*(\d+)px`)
	colorPattern     = regexp.MustCompile(`(?:^|;)\s*color:\s*([^;]+)`)
	textAlignPattern = regexp.MustCompile(`text-align:\s*center`)
)

func (p *parser) span(tok html.Token) {
	style, ok := attr(tok, "style")
	if !ok {
		return
	}
	if m := fontSizePattern.FindStringSubmatch(style); m != nil {
		px, _ := strconv.Atoi(m[1])
		p.open(&element{tag: "size", arg: "=" + strconv.Itoa(px*100/12)})
	}
	if m := colorPattern.FindStringSubmatch(style); m != nil {
		p.open(&element{tag: "color", arg: "=" + Escape(strings.TrimSpace(m[1]))})
	}
	if strings.Contains(style, "line-through") {
		p.open(&element{tag: "strike"})
	}
	if strings.Contains(style, "underline") {
		p.open(&element{tag: "u"})
	}
}

var alignments = map[string]bool{"left": true, "center": true, "right": true, "justify": true}

func (p *parser) div(tok html.Token) {
	if align, ok := attr(tok, "align"); ok {
		align = strings.ToLower(align)
		if alignments[align] {
			p.open(&element{tag: align, suffix: "\n"})
		}
		return
	}
	if style, ok := attr(tok, "style"); ok && textAlignPattern.MatchString(style) {
		p.open(&element{tag: "center", suffix: "\n"})
		return
	}
	if class, ok := attr(tok, "class"); ok && class == "spoiler_content hidden" {
		p.open(&element{tag: "spoiler", suffix: "\n"})
	}
}

var quoteAuthorPattern = regexp.MustCompile(`^\s*(.*?\S)\s+a écrit\s*:\s*$`)

func (p *parser) captureStart(tok html.Token) {
	p.open(&capture{tag: tok.Data})
}

func (p *parser) endCapture(c *capture) {
	if m := quoteAuthorPattern.FindStringSubmatch(c.children.plain()); m != nil {
		p.author = m[1]
		p.pending = c
		c.mode = captureHidden
		return
	}
	c.reveal()
}

// dropAuthor gives up on a quote author when something else comes before the
// quote, and shows the hidden caption again.
func (p *parser) dropAuthor() {
	if p.pending == nil {
		return
	}
	p.pending.reveal()
	p.pending = nil
	p.author = ""
}

func (p *parser) definition(tok html.Token) {
	class, _ := attr(tok, "class")
	switch class {
	case "quote":
		e := &element{tag: "quote", suffix: "\n"}
		if p.author != "" {
			e.arg = "=&quot;" + Escape(p.author) + "&quot;"
		}
		p.author = ""
		p.pending = nil
		p.open(e)
	case "code":
		p.open(&element{tag: "code", suffix: "\n"})
	}
}

func (p *parser) image(tok html.Token) {
	if id, ok := attr(tok, "longdesc"); ok && p.t.Smilies != nil {
		if s, ok := p.t.Smilies.Smiley(id); ok {
			p.emit(smiley(s))
			return
		}
	}
	src, ok := attr(tok, "src")
	if !ok || src == "" {
		return
	}
	e := &element{tag: "img"}
	e.add(text(src))
	p.emit(e)
}

func smiley(s Smiley) node {
	if s.File == "" {
		return text(s.Code)
	}
	code := Escape(s.Code)
	return raw(fmt.Sprintf(`<!-- s%s --><img src="{SMILIES_PATH}/%s" width="%d" height="%d" alt="%s" title="%s" /><!-- s%s -->`,
		code, Escape(s.File), s.Width, s.Height, code, Escape(s.Emotion), code))
}

func (p *parser) embed(tok html.Token) {
	width, okw := attr(tok, "width")
	height, okh := attr(tok, "height")
	src, oks := attr(tok, "src")
	if !okw || !okh || !oks {
		p.log.Warn("Unsupported embed", "src", src)
		return
	}
	e := &element{tag: "flash", arg: "=" + Escape(width) + "," + Escape(height)}
	e.add(text(src))
	p.emit(e)
}

func (p *parser) marquee(tok html.Token) {
	if direction, _ := attr(tok, "direction"); direction == "up" {
		p.open(&element{tag: "updown"})
		return
	}
	p.open(&element{tag: "scroll"})
}

func (p *parser) link(tok html.Token) {
	href, ok := attr(tok, "href")
	if !ok || href == "" {
		return
	}
	class, _ := attr(tok, "class")
	switch {
	case class == "postlink":
		p.open(&element{tag: "url", arg: "=" + Escape(p.rewrite(href))})
	case strings.HasPrefix(href, "mailto:"):
		p.open(&element{tag: "email", arg: "=" + Escape(strings.TrimPrefix(href, "mailto:"))})
	case strings.HasPrefix(href, "#"), strings.HasPrefix(href, "javascript:"):
	default:
		p.open(&magicLink{href: p.rewrite(href)})
	}
}
