package bbcode

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"github.com/ToolmanP/forumactif-archiver/pkg/sqldump"
)

// Tags maps every bbcode known to the target board to its bbcode_id. Ids
// below 13 are built into phpBB, the others come from CustomBBCodes.
var Tags = map[string]uint{
	"quote":      0,
	"b":          1,
	"i":          2,
	"url":        3,
	"img":        4,
	"size":       5,
	"color":      6,
	"u":          7,
	"code":       8,
	"list":       9,
	"email":      10,
	"flash":      11,
	"attachment": 12,
}

const bitfieldBytes = 10

type CustomBBCode struct {
	ID                int
	Tag               string
	Helpline          string
	Match             string
	Template          string
	FirstPassMatch    string
	FirstPassReplace  string
	SecondPassMatch   string
	SecondPassReplace string
}

func (c CustomBBCode) Row() sqldump.Row {
	return sqldump.Row{
		"bbcode_id":           c.ID,
		"bbcode_tag":          c.Tag,
		"bbcode_helpline":     c.Helpline,
		"display_on_posting":  "0",
		"bbcode_match":        c.Match,
		"bbcode_tpl":          c.Template,
		"first_pass_match":    c.FirstPassMatch,
		"first_pass_replace":  c.FirstPassReplace,
		"second_pass_match":   c.SecondPassMatch,
		"second_pass_replace": c.SecondPassReplace,
	}
}

const firstPassCleanup = `str_replace(array("\r\n", '\"', '\'', '(', ')'), array("\n", '"', '&#39;', '&#40;', '&#41;'), trim('${%d}'))`

func textBBCode(id int, tag, helpline, tpl string) CustomBBCode {
	return CustomBBCode{
		ID:                id,
		Tag:               tag,
		Helpline:          helpline,
		Match:             fmt.Sprintf("[%s]{TEXT}[/%s]", tag, tag),
		Template:          tpl,
		FirstPassMatch:    fmt.Sprintf(`!\[%s\](.*?)\[/%s\]!ies`, tag, tag),
		FirstPassReplace:  fmt.Sprintf(`'[%s:$uid]'.`+firstPassCleanup+`.'[/%s:$uid]'`, tag, 1, tag),
		SecondPassMatch:   fmt.Sprintf(`!\[%s:$uid\](.*?)\[/%s:$uid\]!s`, tag, tag),
		SecondPassReplace: strings.ReplaceAll(tpl, "{TEXT}", "${1}"),
	}
}

const spoilerTemplate = `<div style="margin:20px; margin-top:5px"><div class="quotetitle"><b>Spoiler:</b> <input type="button" value="Show" style="width:45px;font-size:10px;margin:0px;padding:0px;" onclick="if (this.parentNode.parentNode.getElementsByTagName('div')[1].getElementsByTagName('div')[0].style.display != '') { this.parentNode.parentNode.getElementsByTagName('div')[1].getElementsByTagName('div')[0].style.display = '';        this.innerText = ''; this.value = 'Hide'; } else { this.parentNode.parentNode.getElementsByTagName('div')[1].getElementsByTagName('div')[0].style.display = 'none'; this.innerText = ''; this.value = 'Show'; }" /></div><div class="quotecontent"><div style="display: none;">{TEXT}</div></div></div>`

// CustomBBCodes are inserted in the bbcodes table so that the target board
// renders the tags Forumactif supports and phpBB does not.
var CustomBBCodes = []CustomBBCode{
	textBBCode(13, "strike", "Texte barré", `<span style="text-decoration: line-through;">{TEXT}</span>`),
	textBBCode(14, "left", "Texte aligné à gauche", `<div style="text-align: left;">{TEXT}</div>`),
	textBBCode(15, "center", "Texte aligné au centre", `<div style="text-align: center;">{TEXT}</div>`),
	textBBCode(16, "right", "Texte aligné à droite", `<div style="text-align: right;">{TEXT}</div>`),
	textBBCode(17, "justify", "Texte justifié", `<div style="text-align: justify;">{TEXT}</div>`),
	{
		ID:                18,
		Tag:               "font",
		Helpline:          "Modifier la police",
		Match:             "[font={SIMPLETEXT}]{TEXT}[/font]",
		Template:          `<span style="font-family: {SIMPLETEXT};">{TEXT}</span>`,
		FirstPassMatch:    `!\[font\=([a-zA-Z0-9-+.,_ ]+)\](.*?)\[/font\]!ies`,
		FirstPassReplace:  `'[font=${1}:$uid]'.` + fmt.Sprintf(firstPassCleanup, 2) + `.'[/font:$uid]'`,
		SecondPassMatch:   `!\[font\=([a-zA-Z0-9-+.,_ ]+):$uid\](.*?)\[/font:$uid\]!s`,
		SecondPassReplace: `<span style="font-family: ${1};">${2}</span>`,
	},
	textBBCode(19, "td", "Cellule de tableau", `<td>{TEXT}</td>`),
	textBBCode(20, "tr", "Ligne de tableau", `<tr>{TEXT}</tr>`),
	{
		ID:                21,
		Tag:               "table",
		Helpline:          "Tableau",
		Match:             "[table]{TEXT}[/table]",
		Template:          `<table>{TEXT}</table>`,
		FirstPassMatch:    `!\[table([a-zA-Z0-9-+.,_= ]*)\](.*?)\[/table\]!ies`,
		FirstPassReplace:  `'[table${1}:$uid]'.` + fmt.Sprintf(firstPassCleanup, 2) + `.'[/table:$uid]'`,
		SecondPassMatch:   `!\[table([a-zA-Z0-9-+.,_= ]*):$uid\](.*?)\[/table:$uid\]!s`,
		SecondPassReplace: `<table ${1}>${2}</table>`,
	},
	textBBCode(22, "updown", "Texte défilant verticalement", `<marquee height="60" scrollamount="1" direction="up" behavior="scroll">{TEXT}</marquee>`),
	{
		ID:                23,
		Tag:               "hr",
		Helpline:          "Ligne horizontale",
		Match:             "[hr][/hr]",
		Template:          `<hr />`,
		FirstPassMatch:    `!\[hr\]\[/hr\]!ies`,
		FirstPassReplace:  `'[hr:$uid][/hr:$uid]'`,
		SecondPassMatch:   `!\[hr:$uid\]\[/hr:$uid\]!s`,
		SecondPassReplace: `<hr />`,
	},
	textBBCode(24, "scroll", "Texte défilant horizontalement", `<marquee>{TEXT}</marquee>`),
	textBBCode(25, "sup", "Texte en exposant", `<sup>{TEXT}</sup>`),
	textBBCode(26, "sub", "Texte en indice", `<sub>{TEXT}</sub>`),
	textBBCode(27, "spoiler", "Spoiler", spoilerTemplate),
}

func init() {
	for _, c := range CustomBBCodes {
		Tags[c.Tag] = uint(c.ID)
	}
}

// Bitfield reports which tags are closed somewhere in text, the way phpBB
// caches it in bbcode_bitfield.
func Bitfield(text, uid string) string {
	bits := bitset.New(bitfieldBytes * 8)
	for tag, id := range Tags {
		closing := []string{"[/" + tag + ":" + uid + "]"}
		if tag == "list" {
			closing = []string{"[/list:u:" + uid + "]", "[/list:o:" + uid + "]"}
		}
		for _, c := range closing {
			if strings.Contains(text, c) {
				bits.Set(id)
			}
		}
	}

	buf := make([]byte, bitfieldBytes)
	for i, ok := bits.NextSet(0); ok; i, ok = bits.NextSet(i + 1) {
		buf[i/8] |= 0x80 >> (i % 8)
	}
	n := len(buf)
	for n > 0 && buf[n-1] == 0 {
		n--
	}
	return base64.StdEncoding.EncodeToString(buf[:n])
}

func Checksum(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

const uidAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewUID draws the 8 character tag phpBB appends to every bbcode of a text.
func NewUID() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = uidAlphabet[rand.IntN(len(uidAlphabet))]
	}
	return string(b)
}
