package bbcode

import (
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

type Smiley struct {
	Code    string
	File    string
	Emotion string
	Width   int
	Height  int
}

// SmileyTable resolves the longdesc attribute Forumactif puts on smilies.
type SmileyTable interface {
	Smiley(id string) (Smiley, bool)
}

type Rewriter interface {
	Rewrite(raw string) (string, bool)
}

type Transcoder struct {
	Smilies SmileyTable
	// Rewriter is nil when links are kept as they are.
	Rewriter Rewriter
	NewBase  string
	UID      func() string
	Logger   *slog.Logger
}

// Post is a text ready for the posts table.
type Post struct {
	Text     string
	UID      string
	Bitfield string
	Checksum string
}

func (t *Transcoder) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default().With("component", "bbcode")
}

func (t *Transcoder) Transcode(fragment string) Post {
	uid := NewUID()
	if t.UID != nil {
		uid = t.UID()
	}

	p := newParser(t)
	p.feed(fragment)

	var sb strings.Builder
	p.root.render(&sb, uid)
	out := sb.String()
	t.checkTags(out, uid)

	return Post{
		Text:     out,
		UID:      uid,
		Bitfield: Bitfield(out, uid),
		Checksum: Checksum(out),
	}
}

// checkTags warns about closing tags the target board has no bbcode for.
func (t *Transcoder) checkTags(out, uid string) {
	closing := regexp.MustCompile(`\[/([^\[\]:]+)(?::[a-z])?:` + regexp.QuoteMeta(uid) + `\]`)
	seen := map[string]bool{}
	for _, m := range closing.FindAllStringSubmatch(out, -1) {
		tag := m[1]
		if _, ok := Tags[tag]; ok || tag == "*" || seen[tag] {
			continue
		}
		seen[tag] = true
		t.logger().Warn("Unknown bbcode tag", "tag", tag)
	}
}

type frame struct {
	name   string
	opened int
	skip   bool
}

type parser struct {
	t      *Transcoder
	log    *slog.Logger
	root   *children
	cur    []container
	stack  []frame
	author string
	// caption naming author, hidden until the quote it belongs to opens
	pending *capture
	skip    int
}

func newParser(t *Transcoder) *parser {
	root := &children{}
	return &parser{
		t:    t,
		log:  t.logger(),
		root: root,
		cur:  []container{root},
	}
}

var voidTags = map[string]bool{
	"br": true, "img": true, "hr": true, "embed": true, "input": true,
	"meta": true, "link": true, "wbr": true, "source": true, "param": true,
}

var skippedTags = map[string]bool{
	"script": true, "style": true,
}

// structural tags that carry nothing worth converting
var ignoredTags = map[string]bool{
	"html": true, "head": true, "body": true, "tbody": true, "thead": true,
	"tfoot": true, "dl": true, "p": true, "cite": true, "blockquote": true,
	"object": true, "param": true, "noscript": true, "wbr": true, "meta": true,
	"link": true, "input": true, "source": true, "label": true, "form": true,
}

func (p *parser) feed(fragment string) {
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				p.log.Warn("Unreadable markup", "error", err)
			}
			for len(p.stack) > 0 {
				p.pop()
			}
			return
		case html.TextToken:
			if p.skip == 0 {
				p.emit(text(z.Token().Data))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			p.start(z.Token(), tt == html.SelfClosingTagToken)
		case html.EndTagToken:
			p.end(z.Token().Data)
		}
	}
}

func (p *parser) top() container {
	return p.cur[len(p.cur)-1]
}

func (p *parser) emit(n node) {
	if t, ok := n.(text); !ok || strings.TrimSpace(string(t)) != "" {
		p.dropAuthor()
	}
	p.top().add(n)
}

func (p *parser) open(c container) {
	p.emit(c)
	p.cur = append(p.cur, c)
}

func (p *parser) closeOne() {
	c := p.top()
	p.cur = p.cur[:len(p.cur)-1]
	if cp, ok := c.(*capture); ok {
		p.endCapture(cp)
	}
}

func (p *parser) start(tok html.Token, selfClosing bool) {
	name := tok.Data
	if skippedTags[name] && !selfClosing {
		p.skip++
		p.stack = append(p.stack, frame{name: name, skip: true})
		return
	}

	before := len(p.cur)
	if p.skip == 0 {
		if h, ok := handlers[name]; ok {
			h(p, tok)
		} else if !ignoredTags[name] {
			p.log.Warn("Unsupported tag", "tag", name)
		}
	}
	opened := len(p.cur) - before

	if selfClosing || voidTags[name] {
		for range opened {
			p.closeOne()
		}
		return
	}
	p.stack = append(p.stack, frame{name: name, opened: opened})
}

func (p *parser) end(name string) {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].name == name {
			for len(p.stack) > i {
				p.pop()
			}
			return
		}
	}
}

func (p *parser) pop() {
	f := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	for range f.opened {
		p.closeOne()
	}
	if f.skip {
		p.skip--
	}
}

// table returns the innermost open table, converted or literal.
func (p *parser) table() (container, bool) {
	for i := len(p.cur) - 1; i >= 0; i-- {
		switch c := p.cur[i].(type) {
		case *element:
			if c.tag == "table" {
				return c, true
			}
		case *literal:
			if c.tag == "table" {
				return c, true
			}
		}
	}
	return nil, false
}

func (p *parser) rewrite(href string) string {
	if p.t.Rewriter == nil {
		return href
	}
	if path, ok := p.t.Rewriter.Rewrite(href); ok {
		return p.t.NewBase + path
	}
	return href
}
