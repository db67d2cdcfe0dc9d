package bbcode

import (
	"strings"
	"unicode/utf8"
)

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// Escape encodes text the way phpBB stores it in post_text.
func Escape(s string) string {
	return escaper.Replace(s)
}

type node interface {
	render(sb *strings.Builder, uid string)
}

type container interface {
	node
	add(n node)
}

type text string

func (t text) render(sb *strings.Builder, uid string) {
	sb.WriteString(Escape(string(t)))
}

type raw string

func (r raw) render(sb *strings.Builder, uid string) {
	sb.WriteString(string(r))
}

type children []node

func (c *children) add(n node) {
	*c = append(*c, n)
}

func (c children) render(sb *strings.Builder, uid string) {
	for _, n := range c {
		n.render(sb, uid)
	}
}

// plain concatenates the text below c, ignoring markup.
func (c children) plain() string {
	var sb strings.Builder
	for _, n := range c {
		switch n := n.(type) {
		case text:
			sb.WriteString(string(n))
		case *element:
			sb.WriteString(n.children.plain())
		case *literal:
			sb.WriteString(n.children.plain())
		case *magicLink:
			sb.WriteString(n.children.plain())
		case *capture:
			sb.WriteString(n.children.plain())
		}
	}
	return sb.String()
}

func (c children) onlyText() bool {
	for _, n := range c {
		if _, ok := n.(text); !ok {
			return false
		}
	}
	return true
}

// element is a bbcode tag pair. arg is written verbatim after the tag name,
// e.g. "=#ff0000" or " border=1".
type element struct {
	tag    string
	arg    string
	close  string
	suffix string

	// list items move their trailing newlines after the closing tag, lists
	// drop them
	moveNewlines bool
	trimNewlines bool

	children
}

func (e *element) render(sb *strings.Builder, uid string) {
	sb.WriteString("[" + e.tag + e.arg + ":" + uid + "]")

	var inner strings.Builder
	e.children.render(&inner, uid)
	body := inner.String()
	trailing := ""
	if e.moveNewlines || e.trimNewlines {
		trimmed := strings.TrimRight(body, "\n")
		if e.moveNewlines && trimmed != body {
			trailing = "\n"
		}
		body = trimmed
	}
	sb.WriteString(body)

	closing := e.close
	if closing == "" {
		closing = e.tag
	}
	sb.WriteString("[/" + closing + ":" + uid + "]")
	sb.WriteString(trailing)
	sb.WriteString(e.suffix)
}

// literal keeps an HTML element as markup.
type literal struct {
	tag   string
	open  string
	close string
	children
}

func (l *literal) render(sb *strings.Builder, uid string) {
	sb.WriteString(l.open)
	l.children.render(sb, uid)
	sb.WriteString(l.close)
}

type magicLink struct {
	href string
	children
}

const (
	linkLabelMax  = 55
	linkLabelHead = 39
	linkLabelTail = 10
)

func ellipsize(s string) string {
	if utf8.RuneCountInString(s) <= linkLabelMax {
		return s
	}
	r := []rune(s)
	return string(r[:linkLabelHead]) + " ... " + string(r[len(r)-linkLabelTail:])
}

func (m *magicLink) render(sb *strings.Builder, uid string) {
	var label string
	switch {
	case len(m.children) == 0:
		label = Escape(ellipsize(m.href))
	case m.children.onlyText():
		label = Escape(ellipsize(m.children.plain()))
	default:
		var inner strings.Builder
		m.children.render(&inner, uid)
		label = inner.String()
	}
	sb.WriteString(`<!-- m --><a class="postlink" href="` + Escape(m.href) + `">` + label + `</a><!-- m -->`)
}

const (
	captureHidden = iota
	captureBold
)

// capture holds the content of a <dt> or <b> until its end tag tells whether
// it names the author of the next quote.
type capture struct {
	tag  string
	mode int
	children
}

// reveal shows a bold caption as bold text. <dt> captions stay hidden.
func (c *capture) reveal() {
	if c.tag == "b" {
		c.mode = captureBold
	}
}

func (c *capture) render(sb *strings.Builder, uid string) {
	if c.mode != captureBold {
		return
	}
	b := &element{tag: "b", children: c.children}
	b.render(sb, uid)
}
