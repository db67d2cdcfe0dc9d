package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ToolmanP/forumactif-archiver/pkg/client"
	"github.com/ToolmanP/forumactif-archiver/pkg/utils"
)

var errUnreachable = errors.New("forum unreachable")

func key(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

// fakeForum serves canned pages. After failAfter requests every request
// fails, a negative value never fails.
type fakeForum struct {
	pages  map[string]string
	images map[string][]byte
	// requests answered from another address, as after a redirect
	moved map[string]string

	failAfter int
	calls     int
}

func (f *fakeForum) request() error {
	f.calls++
	if f.failAfter >= 0 && f.calls > f.failAfter {
		return errUnreachable
	}
	return nil
}

func (f *fakeForum) page(path string, params url.Values) (*client.Page, error) {
	if err := f.request(); err != nil {
		return nil, err
	}
	k := key(path, params)
	body, ok := f.pages[k]
	if !ok {
		return nil, fmt.Errorf("unexpected request %s", k)
	}
	final := k
	if m, ok := f.moved[k]; ok {
		final = m
	}
	u, err := url.Parse("http://forum.example.com" + final)
	if err != nil {
		return nil, err
	}
	return client.NewPage(u, 200, "text/html; charset=utf-8", []byte(body))
}

func (f *fakeForum) Get(ctx context.Context, path string, params url.Values) (*client.Page, error) {
	return f.page(path, params)
}

func (f *fakeForum) GetAdmin(ctx context.Context, path string, params url.Values) (*client.Page, error) {
	return f.page(path, params)
}

func (f *fakeForum) GetImage(ctx context.Context, raw string) ([]byte, error) {
	if err := f.request(); err != nil {
		return nil, err
	}
	data, ok := f.images[raw]
	if !ok {
		return nil, fmt.Errorf("unexpected image %s", raw)
	}
	return data, nil
}

type fakeOCR map[string]string

func (o fakeOCR) Text(ctx context.Context, path string) (string, error) {
	for suffix, text := range o {
		if strings.HasSuffix(path, suffix) {
			return text, nil
		}
	}
	return "", nil
}

// drawing returns a white png of the given size, with black pixels at the
// given columns.
func drawing(t *testing.T, w, h int, columns ...int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.White)
		}
	}
	for _, x := range columns {
		img.Set(x, h/2, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func userSearch(name string) url.Values {
	params := usersParams()
	params.Set("username", name)
	params.Set("submituser", "Ok")
	params.Set("sort", "user_id")
	params.Set("order", "ASC")
	return params
}

func memberRow(id int, name, style, regdate, lastvisit string, posts int) string {
	span := name
	if style != "" {
		span = fmt.Sprintf(`<span style="%s">%s</span>`, style, name)
	}
	return fmt.Sprintf(`<tr><td></td><td><a href="/u%d">MP</a></td><td><a href="/u%d">%s</a></td><td></td><td>%s</td><td>%s</td><td>%d</td></tr>`,
		id, id, span, regdate, lastvisit, posts)
}

func searchResult(rows ...string) string {
	return `<table summary="Liste des Utilisateurs"><tbody>` + strings.Join(rows, "") + `</tbody></table>`
}

func groupRow(href, style, name, desc, leader, kind string) string {
	return fmt.Sprintf(`<tr><td></td><td></td><td><a href="%s" style="%s">%s</a></td><td>%s</td><td>%s</td><td>1</td><td>%s</td></tr>`,
		href, style, name, desc, leader, kind)
}

func topicRow(id int, kind, title, status string, views int) string {
	strong := ""
	if kind != "" {
		strong = "<strong>" + kind + "</strong> "
	}
	return fmt.Sprintf(`<tr><td><img alt="%s"></td><td><div class="topictitle">%s<a href="/t%d-sujet">%s</a></div></td><td></td><td></td><td></td><td>%d</td></tr>`,
		status, strong, id, title, views)
}

func postRow(id int, author, title, date, body string) string {
	return fmt.Sprintf(`<tr class="post"><td><span class="name"><a name="%d"></a>%s</span></td><td><table><tr><td><span class="postdetails"><img src="/i.gif">Sujet: %s<img src="/i.gif">%s</span></td></tr></table><div class="postbody"><div>%s</div></div></td></tr>`,
		id, author, title, date, body)
}

func table(rows ...string) string {
	return "<table>" + strings.Join(rows, "") + "</table>"
}

func forumEdit(key string) url.Values {
	return url.Values{
		"part": {"general"},
		"sub":  {"general"},
		"mode": {"edit"},
		"fid":  {key},
	}
}

// newFakeForum builds a small forum: one category holding three forums, one
// of them nested, three members and a guest, two groups and a global
// announcement listed in two forums.
func newFakeForum(t *testing.T) *fakeForum {
	f := &fakeForum{
		pages:     map[string]string{},
		images:    map[string][]byte{},
		moved:     map[string]string{},
		failAfter: -1,
	}
	page := func(path string, params url.Values, body string) {
		f.pages[key(path, params)] = "<html><body>" + body + "</body></html>"
	}

	page(utils.STATISTICS_PATH, nil, `<table class="forumline">
<tr><td class="row2"><span>Messages</span></td><td class="row1"><span>4</span></td></tr>
<tr><td class="row2"><span>Nombre de sujets ouvert dans le forum</span></td><td class="row1"><span>3</span></td></tr>
<tr><td class="row2"><span>Nombre d'utilisateurs</span></td><td class="row1"><span>3</span></td></tr>
</table>`)
	f.pages["/"] = `<html><head><title>Mon forum</title><meta name="description" content="Un forum de test"></head><body></body></html>`

	smilies := smiliesParams()
	page(utils.ADMIN_PATH, smilies, "")
	smilies.Set("start", "0")
	page(utils.ADMIN_PATH, smilies, `<form id="smiliesList"><table>
<tr><th>Id</th><th>Code</th><th>Image</th><th>Émotion</th></tr>
<tr><td>1</td><td>:)</td><td><img src="http://img.example.com/smile.gif"></td><td>Sourire</td></tr>
<tr><td>2</td><td>:chat:</td><td><img src="http://img.example.com/chat.png"></td><td>Chat</td></tr>
</table></form>`)
	f.images["http://img.example.com/chat.png"] = drawing(t, 16, 16, 3)

	page(utils.ADMIN_PATH, usersParams(), "")
	page(utils.MEMBERLIST_PATH, nil, "")
	page(utils.MEMBERLIST_PATH, url.Values{
		"mode":     {"joined"},
		"order":    {""},
		"start":    {"0"},
		"username": {""},
	}, `<form action="/memberlist"></form><table class="forumline">
<tr><th>MP</th><th>Nom</th><th></th><th></th><th>Inscrit</th><th>Visite</th><th>Messages</th></tr>`+
		memberRow(1, "Admin", "color:#AA0000", "01/01/2010 - 10:00", "02/02/2012 - 11:00", 1)+
		memberRow(2, "Alice", "", "02/01/2010 - 10:00", "", 1)+
		memberRow(3, "Bob", "", "03/01/2010 - 10:00", "03/01/2010 - 12:00", 1)+
		`</table>`)

	page(utils.ADMIN_PATH, userSearch("Admin"), searchResult(`<tr><td>Admin</td><td>admin@example.com</td></tr>`))
	page(utils.ADMIN_PATH, userSearch("Alice"), searchResult(`<tr><td>Alice</td><td><img src="http://img.example.com/mail/alice.png"></td></tr>`))
	page(utils.ADMIN_PATH, userSearch("alice@example.com"), searchResult())
	page(utils.ADMIN_PATH, userSearch("Bob"), searchResult())
	f.images["http://img.example.com/mail/alice.png"] = drawing(t, 60, 10, 10, 20, 30)

	groups := usersParams()
	groups.Set("sub", "groups")
	page(utils.ADMIN_PATH, groups, table(
		"<tr><th>Groupe</th></tr>",
		groupRow("/g1-administrateurs", "color:#AA0000", "Administrateurs", "Les administrateurs", "Admin", "Groupe invisible"),
		groupRow("/g3-moderateurs", "color:#000", "Modérateurs", "Les modérateurs", "Alice", "Groupe ouvert"),
		groupRow("/g9-bob", "", "Bob", "Personal User", "Bob", "Groupe fermé"),
	))
	start := url.Values{"start": {"0"}}
	for _, g := range []struct {
		id      int
		members string
	}{
		{1, `<a href="/u1">Admin</a>`},
		{3, `<a href="/u2">Alice</a><a href="/u42">Fantôme</a><a href="/g3-moderateurs">Modérateurs</a>`},
	} {
		page(utils.BuildGroupPath(g.id), nil, "")
		page(utils.BuildGroupPath(g.id), start, g.members)
	}

	page(utils.FORUMLIST_PATH, nil, `<select>
<option value="-1">Sélectionner un forum</option>
<option value="c1">|--Général</option>
<option value="f1">|&nbsp;&nbsp;&nbsp;|--Annonces</option>
<option value="f2">|&nbsp;&nbsp;&nbsp;|&nbsp;&nbsp;&nbsp;|--Discussions</option>
<option value="f3">|&nbsp;&nbsp;&nbsp;|--Divers</option>
</select>`)
	page(utils.ADMIN_PATH, forumEdit("c1"), `<textarea name="description"></textarea>`)
	page(utils.ADMIN_PATH, forumEdit("f1"), `<textarea name="description">Les &lt;strong&gt;annonces&lt;/strong&gt;</textarea><input name="image" value="http://img.example.com/f1.png">`)
	page(utils.ADMIN_PATH, forumEdit("f2"), `<textarea name="description">On discute</textarea>`)
	page(utils.ADMIN_PATH, forumEdit("f3"), `<textarea name="description"></textarea>`)
	f.images["http://img.example.com/f1.png"] = drawing(t, 20, 20)

	forums := []struct {
		kind   string
		id     int
		topics string
	}{
		{"c", 1, ""},
		{"f", 1, table(
			topicRow(1, "Annonce globale:", "Bienvenue", "Pas de nouveaux messages", 42),
			topicRow(2, "", "Présentations", "Pas de nouveaux messages", 7),
		)},
		{"f", 2, table(
			topicRow(1, "Annonce globale:", "Bienvenue", "Pas de nouveaux messages", 42),
			topicRow(3, "Post-it:", "Règlement", "Ce sujet est verrouillé", 3),
		)},
		{"f", 3, ""},
	}
	for _, fo := range forums {
		page(utils.BuildForumPath(fo.kind, fo.id), nil, "")
		page(utils.BuildForumPagePath(fo.kind, fo.id, 0), nil, fo.topics)
	}

	topics := []struct {
		id    int
		posts string
	}{
		{1, table(postRow(1, "Admin", "Bienvenue", "14/02/2013 - 15:34", "Bienvenue à <strong>tous</strong>"))},
		{2, table(
			postRow(2, "Alice", "Présentations", "15/02/2013 - 09:00", "Bonjour"),
			postRow(3, "Visiteur", "Re: Présentations", "15/02/2013 - 10:30", "Salut"),
		)},
		{3, table(postRow(4, "Bob", "Règlement", "16/02/2013 - 08:00", "Soyez sages"))},
	}
	for _, to := range topics {
		page(utils.BuildTopicPath(to.id), nil, "")
		page(utils.BuildTopicPagePath(to.id, 0), nil, to.posts)
	}
	return f
}

var testNow = time.Date(2014, time.March, 10, 18, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T, f Fetcher) *Env {
	cfg := &utils.ArchiverConfig{
		URL:           "forum.example.com",
		AdminName:     "Admin",
		AdminPassword: "secret",
		TablePrefix:   "phpbb_",
		DefaultLang:   "fr",
		OutputDir:     t.TempDir(),
		ExportSmilies: true,
	}
	env := NewEnv(cfg, f)
	env.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	env.OCR = fakeOCR{"Alice.png": "alice@example.com"}
	env.Now = func() time.Time { return testNow }
	env.UID = func() string { return "uid00001" }
	env.Random = func() string { return "random" }
	env.Prompt = func(question string) (string, error) {
		if strings.Contains(question, "Bob") {
			return "bob@example.com", nil
		}
		return "", nil
	}
	return env
}
