package bbcode

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const uid = "abcd1234"

type smileyMap map[string]Smiley

func (m smileyMap) Smiley(id string) (Smiley, bool) {
	s, ok := m[id]
	return s, ok
}

type prefixRewriter struct{}

func (prefixRewriter) Rewrite(raw string) (string, bool) {
	if strings.HasPrefix(raw, "http://old.example/t12-") {
		return "/viewtopic.php?t=12", true
	}
	return "", false
}

func newTranscoder() *Transcoder {
	return &Transcoder{
		UID:    func() string { return uid },
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// u replaces the placeholder "~" with the fixed uid to keep expectations short.
func u(s string) string {
	return strings.ReplaceAll(s, "~", uid)
}

func TestBold(t *testing.T) {
	post := newTranscoder().Transcode("<strong>hi</strong>")
	require.Equal(t, "[b:abcd1234]hi[/b:abcd1234]", post.Text)
	require.Equal(t, uid, post.UID)
	require.Equal(t, "QA==", post.Bitfield)
	require.Equal(t, "3807ef1be3bb43757eff1cc6b455a850", post.Checksum)
}

func TestQuoteAuthor(t *testing.T) {
	post := newTranscoder().Transcode(`<dl class="codebox"><dt>Alice a écrit:</dt><dd class="quote">Hello</dd></dl>`)
	require.Equal(t, u("[quote=&quot;Alice&quot;:~]Hello[/quote:~]\n"), post.Text)

	post = newTranscoder().Transcode(`<b>Bob a écrit:</b><dd class="quote"><strong>Yo</strong></dd>`)
	require.Equal(t, u("[quote=&quot;Bob&quot;:~][b:~]Yo[/b:~][/quote:~]\n"), post.Text)
	require.Equal(t, "wA==", post.Bitfield)

	post = newTranscoder().Transcode(`<dl><dt>Citation</dt><dd class="quote">Hello</dd></dl>`)
	require.Equal(t, u("[quote:~]Hello[/quote:~]\n"), post.Text)

	// a caption followed by something else is kept and names no later quote
	post = newTranscoder().Transcode(`<b>Alice a écrit:</b> bonjour <dd class="quote">later</dd>`)
	require.Equal(t, u("[b:~]Alice a écrit:[/b:~] bonjour [quote:~]later[/quote:~]\n"), post.Text)

	post = newTranscoder().Transcode(`<dl><dt>Alice a écrit:</dt></dl><img src="a.png"><dd class="quote">later</dd>`)
	require.Equal(t, u("[img:~]a.png[/img:~][quote:~]later[/quote:~]\n"), post.Text)
}

func TestBoldWithoutAuthor(t *testing.T) {
	post := newTranscoder().Transcode(`<b>important</b>`)
	require.Equal(t, u("[b:~]important[/b:~]"), post.Text)
}

func TestListNewlines(t *testing.T) {
	post := newTranscoder().Transcode("<ul><li>one\n</li><li>two</li></ul>")
	require.Equal(t, u("[list:~][*:~]one[/*:m:~]\n[*:~]two[/*:m:~][/list:u:~]"), post.Text)
	require.Equal(t, "AEA=", post.Bitfield)

	post = newTranscoder().Transcode(`<ol type="a"><li>x</li></ol>`)
	require.Equal(t, u("[list=a:~][*:~]x[/*:m:~][/list:o:~]"), post.Text)
}

func TestTables(t *testing.T) {
	post := newTranscoder().Transcode(`<table border="1" cellpadding="2"><tr><td>a</td></tr></table>`)
	require.Equal(t, u("[table border=1 cellpadding=2:~][tr:~][td:~]a[/td:~][/tr:~][/table:~]\n"), post.Text)
	require.Equal(t, "AAAc", post.Bitfield)

	post = newTranscoder().Transcode(`<table cellspacing="0" cellpadding="0" border="0" align="center" width="100%"><tr><td>a</td></tr></table>`)
	require.Equal(t, `<table cellspacing="0" cellpadding="0" border="0" align="center" width="100%"><tr><td>a</td></tr></table>`, post.Text)
	require.Empty(t, post.Bitfield)

	post = newTranscoder().Transcode(`<tr><td>orphan</td></tr>`)
	require.Equal(t, "orphan", post.Text)
}

func TestFormatting(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`<span style="font-size: 18px">big</span>`, "[size=150:~]big[/size:~]"},
		{`<span style="color: #FF0000">red</span>`, "[color=#FF0000:~]red[/color:~]"},
		{`<font color="blue" face="Arial">x</font>`, "[color=blue:~][font=Arial:~]x[/font:~][/color:~]"},
		{`<div align="right">r</div>`, "[right:~]r[/right:~]\n"},
		{`<div style="text-align:center">c</div>`, "[center:~]c[/center:~]\n"},
		{`<div class="spoiler_content hidden">s</div>`, "[spoiler:~]s[/spoiler:~]\n"},
		{`<dd class="code">a &lt; b</dd>`, "[code:~]a &lt; b[/code:~]\n"},
		{`<strike>x</strike><sup>2</sup><sub>i</sub>`, "[strike:~]x[/strike:~][sup:~]2[/sup:~][sub:~]i[/sub:~]"},
		{`a<br />b<hr>`, "a\nb[hr:~][/hr:~]"},
		{`<marquee direction="up">u</marquee><marquee>s</marquee>`, "[updown:~]u[/updown:~][scroll:~]s[/scroll:~]"},
		{`<embed src="http://v.example/x.swf" width="425" height="350">`, "[flash=425,350:~]http://v.example/x.swf[/flash:~]"},
		{`<img src="http://i.example/a.png?x=1&amp;y=2">`, "[img:~]http://i.example/a.png?x=1&amp;y=2[/img:~]"},
		{`<a href="mailto:a@example.org">mail</a>`, "[email=a@example.org:~]mail[/email:~]"},
		{`<a class="postlink" href="http://e.example/">e</a>`, "[url=http://e.example/:~]e[/url:~]"},
		{`Tom &amp; "Jerry"`, "Tom &amp; &quot;Jerry&quot;"},
		{`<blink>x</blink><i>y</i>`, "x[i:~]y[/i:~]"},
		{`<script>alert(1)</script>ok`, "ok"},
	}
	for _, c := range cases {
		post := newTranscoder().Transcode(c.in)
		require.Equal(t, u(c.want), post.Text, c.in)
	}
}

func TestUnbalancedMarkup(t *testing.T) {
	post := newTranscoder().Transcode(`<i><u>x</i> y</u>`)
	require.Equal(t, u("[i:~][u:~]x[/u:~][/i:~] y"), post.Text)

	post = newTranscoder().Transcode(`<i>open`)
	require.Equal(t, u("[i:~]open[/i:~]"), post.Text)
}

func TestSmilies(t *testing.T) {
	tr := newTranscoder()
	tr.Smilies = smileyMap{
		"1": {Code: ":)", File: "icon_e_smile.gif", Emotion: "Smile", Width: 15, Height: 17},
		"2": {Code: ":custom:"},
	}
	post := tr.Transcode(`<img src="x.gif" longdesc="1"> <img src="y.gif" longdesc="2"> <img src="z.gif" longdesc="3">`)
	require.Equal(t, u(`<!-- s:) --><img src="{SMILIES_PATH}/icon_e_smile.gif" width="15" height="17" alt=":)" title="Smile" /><!-- s:) --> :custom: [img:~]z.gif[/img:~]`), post.Text)
}

func TestLinks(t *testing.T) {
	long := "http://www.example.com/a/very/long/path/that/keeps/going/and/going/index.html"
	post := newTranscoder().Transcode(`<a href="` + long + `">` + long + `</a>`)
	require.Equal(t, `<!-- m --><a class="postlink" href="`+long+`">http://www.example.com/a/very/long/path ... index.html</a><!-- m -->`, post.Text)

	tr := newTranscoder()
	tr.Rewriter = prefixRewriter{}
	tr.NewBase = "http://new.example"
	post = tr.Transcode(`<a href="http://old.example/t12-hello">topic</a> <a class="postlink" href="http://old.example/t12-hello">t</a>`)
	require.Equal(t, u(`<!-- m --><a class="postlink" href="http://new.example/viewtopic.php?t=12">topic</a><!-- m --> [url=http://new.example/viewtopic.php?t=12:~]t[/url:~]`), post.Text)
}

func TestLinksKeptWithoutRewriter(t *testing.T) {
	tr := newTranscoder()
	tr.NewBase = "http://new.example"
	post := tr.Transcode(`<a href="http://old.example/t12-hello">topic</a> <a class="postlink" href="http://old.example/t12-hello">t</a>`)
	require.Equal(t, u(`<!-- m --><a class="postlink" href="http://old.example/t12-hello">topic</a><!-- m --> [url=http://old.example/t12-hello:~]t[/url:~]`), post.Text)
}

func TestUnknownTagWarning(t *testing.T) {
	var buf bytes.Buffer
	tr := newTranscoder()
	tr.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	tr.checkTags("[b:x]a[/b:x][list:x][*:x]i[/*:m:x][/list:u:x][spoiler:x]s[/spoiler:x]", "x")
	require.Empty(t, buf.String())

	tr.checkTags("[blink:x]a[/blink:x][blink:x]b[/blink:x][/b:y]", "x")
	require.Equal(t, 1, strings.Count(buf.String(), "Unknown bbcode tag"))
	require.Contains(t, buf.String(), "tag=blink")

	buf.Reset()
	tr.Transcode(`<strong>a</strong><ul><li>b</li></ul><table><tr><td>c</td></tr></table><font face="Arial">d</font>`)
	require.NotContains(t, buf.String(), "Unknown bbcode tag")
}

func TestBitfield(t *testing.T) {
	require.Equal(t, "AAAAEA==", Bitfield("[spoiler:x][/spoiler:x]", "x"))
	require.Equal(t, "", Bitfield("[b:y]no[/b:y]", "x"))
}

func TestCustomBBCodes(t *testing.T) {
	require.Len(t, CustomBBCodes, 15)
	for i, c := range CustomBBCodes {
		require.Equal(t, 13+i, c.ID)
		require.Equal(t, uint(c.ID), Tags[c.Tag])
	}

	strike := CustomBBCodes[0].Row()
	want := map[string]any{
		"bbcode_id":           13,
		"bbcode_tag":          "strike",
		"bbcode_helpline":     "Texte barré",
		"display_on_posting":  "0",
		"bbcode_match":        "[strike]{TEXT}[/strike]",
		"bbcode_tpl":          `<span style="text-decoration: line-through;">{TEXT}</span>`,
		"first_pass_match":    `!\[strike\](.*?)\[/strike\]!ies`,
		"first_pass_replace":  `'[strike:$uid]'.str_replace(array("\r\n", '\"', '\'', '(', ')'), array("\n", '"', '&#39;', '&#40;', '&#41;'), trim('${1}')).'[/strike:$uid]'`,
		"second_pass_match":   `!\[strike:$uid\](.*?)\[/strike:$uid\]!s`,
		"second_pass_replace": `<span style="text-decoration: line-through;">${1}</span>`,
	}
	if diff := cmp.Diff(want, map[string]any(strike)); diff != "" {
		t.Errorf("strike row mismatch (-want +got):\n%s", diff)
	}

	font := CustomBBCodes[5]
	require.Equal(t, `'[font=${1}:$uid]'.str_replace(array("\r\n", '\"', '\'', '(', ')'), array("\n", '"', '&#39;', '&#40;', '&#41;'), trim('${2}')).'[/font:$uid]'`, font.FirstPassReplace)
}

func TestNewUID(t *testing.T) {
	id := NewUID()
	require.Len(t, id, 8)
	for _, r := range id {
		require.Contains(t, uidAlphabet, string(r))
	}
}
