package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/url"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ToolmanP/forumactif-archiver/pkg/sqldump"
	"github.com/ToolmanP/forumactif-archiver/pkg/utils"
)

var (
	forumTitlePattern = regexp.MustCompile(`\|--([^<]+)`)
	forumLevelPattern = regexp.MustCompile(`[|\x{a0}]\x{a0}{3}`)
)

// Forums builds the forum hierarchy from the jump box of the forum list,
// where the depth of each entry is given by its indentation.
type Forums struct{}

func (f *Forums) Kind() string { return "forums" }

func (f *Forums) Export(ctx context.Context, env *Env, n *Node) error {
	env.log().Info("Récupération des forums")
	page, err := env.Session.Get(ctx, utils.FORUMLIST_PATH, nil)
	if err != nil {
		return err
	}

	var (
		stack []*Forum
		left  = 1
		newid = 1
	)
	closeTo := func(level int) {
		for len(stack) > level {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top.Right = left
			left++
		}
	}

	var perr error
	page.Doc.Find("select option").EachWithBreak(func(i int, opt *goquery.Selection) bool {
		value, _ := opt.Attr("value")
		if value == "" || value == "-1" {
			return true
		}
		text := opt.Text()
		loc := forumTitlePattern.FindStringSubmatchIndex(text)
		id, err := strconv.Atoi(value[1:])
		if loc == nil || err != nil || (value[0] != 'f' && value[0] != 'c') {
			perr = newParsingError(page, "forum option "+value)
			return false
		}
		level := len(forumLevelPattern.FindAllStringIndex(text[:loc[0]], -1))

		closeTo(level)
		parent := 0
		if level > 0 && len(stack) > 0 {
			parent = stack[len(stack)-1].NewID
		}
		forum := &Forum{
			ID:       id,
			Type:     value[:1],
			NewID:    newid,
			ParentID: parent,
			Left:     left,
			Title:    strings.TrimSpace(text[loc[2]:loc[3]]),
		}
		newid++
		left++
		stack = append(stack, forum)
		n.Add(env, NewNode(forum))
		return true
	})
	if perr != nil {
		return perr
	}
	closeTo(0)
	return nil
}

func (f *Forums) Dump(env *Env, n *Node, w *sqldump.Writer) error { return nil }

type Forum struct {
	ID int `json:"id"`
	// "f" for a forum, "c" for a category
	Type        string `json:"type"`
	NewID       int    `json:"newid"`
	ParentID    int    `json:"parent_id"`
	Left        int    `json:"left_id"`
	Right       int    `json:"right_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

func (f *Forum) Kind() string { return "forum" }

func (f *Forum) Key() string { return forumKey(f.Type, f.ID) }

func (f *Forum) index(env *Env, n *Node) {
	env.forums[f.Key()] = f
}

func (f *Forum) forget(env *Env) {
	delete(env.forums, f.Key())
}

func (f *Forum) Export(ctx context.Context, env *Env, n *Node) error {
	env.log().Info("Récupération du forum", "forum", f.Key(), "title", f.Title)
	params := url.Values{
		"part": {"general"},
		"sub":  {"general"},
		"mode": {"edit"},
		"fid":  {f.Key()},
	}
	admin, err := env.Session.GetAdmin(ctx, utils.ADMIN_PATH, params)
	if err != nil {
		return err
	}
	f.Description = strings.TrimSpace(admin.Doc.Find("textarea").First().Text())
	icon, _ := admin.Doc.Find(`input[name="image"]`).First().Attr("value")
	f.Icon = ""
	if icon = strings.TrimSpace(icon); icon != "" {
		if f.Icon, err = f.downloadIcon(ctx, env, icon); err != nil {
			return err
		}
	}

	page, err := env.Session.Get(ctx, utils.BuildForumPath(f.Type, f.ID), nil)
	if err != nil {
		return err
	}
	for _, start := range utils.Pages(page.Body) {
		n.Add(env, NewNode(&ForumPage{Start: start}))
	}
	return nil
}

func (f *Forum) downloadIcon(ctx context.Context, env *Env, icon string) (string, error) {
	env.log().Debug("Téléchargement de l'icône du forum", "forum", f.NewID)
	data, err := env.Session.GetImage(ctx, icon)
	if err != nil {
		return "", err
	}
	var ext string
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		ext = "." + format
	} else {
		env.log().Warn("Format de l'icône du forum inconnu, utilisation de l'extension par défaut", "forum", f.NewID)
		if u, err := url.Parse(icon); err == nil {
			ext = path.Ext(u.Path)
		}
	}
	rel := path.Join("images", "forums", fmt.Sprintf("%d%s", f.NewID, ext))
	p, err := env.path("images", "forums", path.Base(rel))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", err
	}
	return rel, nil
}

// postedTopics counts the topics below n that hold at least one post, the
// others are left out of the dump.
func postedTopics(n *Node) int {
	count := 0
	n.Walk(func(d *Node) bool {
		if _, ok := d.Entity.(*Topic); ok && len(descendants[*Post](d)) > 0 {
			count++
		}
		return true
	})
	return count
}

func (f *Forum) Dump(env *Env, n *Node, w *sqldump.Writer) error {
	topics := postedTopics(n)
	posts := descendants[*Post](n)

	var last *Post
	for _, p := range posts {
		if last == nil || p.Time > last.Time || (p.Time == last.Time && p.ID > last.ID) {
			last = p
		}
	}
	lastPoster := noUser
	var lastID int
	var lastSubject string
	var lastTime int64
	if last != nil {
		lastPoster = env.poster(last.Author)
		lastID, lastSubject, lastTime = last.ID, last.Title, last.Time
	}

	forumType := 0
	if f.Type == "f" {
		forumType = 1
	}
	desc := env.Transcoder().Transcode(f.Description)
	w.Insert("forums", sqldump.Row{
		"forum_id":                 f.NewID,
		"parent_id":                f.ParentID,
		"left_id":                  f.Left,
		"right_id":                 f.Right,
		"forum_name":               f.Title,
		"forum_desc":               desc.Text,
		"forum_desc_uid":           desc.UID,
		"forum_desc_bitfield":      desc.Bitfield,
		"forum_type":               forumType,
		"forum_image":              f.Icon,
		"forum_posts":              len(posts),
		"forum_topics":             topics,
		"forum_topics_real":        topics,
		"forum_last_post_id":       lastID,
		"forum_last_poster_id":     lastPoster.ID,
		"forum_last_post_subject":  lastSubject,
		"forum_last_post_time":     lastTime,
		"forum_last_poster_name":   lastPoster.Name,
		"forum_last_poster_colour": lastPoster.Colour,
	})
	for _, acl := range defaultForumACL(f.NewID) {
		w.Insert("acl_groups", acl)
	}
	return nil
}

var topicTypes = map[string]int{
	"Post-it:":         1,
	"Annonce:":         2,
	"Annonce globale:": 3,
}

var topicLinkPattern = regexp.MustCompile(`^/t(\d+)-.*$`)

type ForumPage struct {
	Start int `json:"start"`
}

func (p *ForumPage) Kind() string { return "forumpage" }

func (p *ForumPage) Export(ctx context.Context, env *Env, n *Node) error {
	f, ok := ancestor[*Forum](n)
	if !ok {
		return nil
	}
	env.log().Debug("Récupération du forum", "forum", f.Key(), "start", p.Start)
	page, err := env.Session.Get(ctx, utils.BuildForumPagePath(f.Type, f.ID, p.Start), nil)
	if err != nil {
		return err
	}

	var perr error
	page.Doc.Find("div.topictitle").EachWithBreak(func(i int, div *goquery.Selection) bool {
		cols := div.Closest("tr").Find("td")
		link := div.Find("a").First()
		status, okStatus := cols.Eq(0).Find("img").Attr("alt")
		views, err := strconv.Atoi(strings.TrimSpace(cols.Eq(5).Text()))
		if link.Length() == 0 || !okStatus || err != nil {
			perr = newParsingError(page, "topic row")
			return false
		}
		href, _ := link.Attr("href")
		m := topicLinkPattern.FindStringSubmatch(cleanURL(href))
		if m == nil {
			env.log().Warn("Lien de sujet inconnu", "href", href)
			return true
		}
		id, _ := strconv.Atoi(m[1])
		if env.topics.Has(id) {
			// global announcements are listed in every forum
			env.log().Warn("Le sujet existe déjà", "topic", id)
			return true
		}

		locked := 0
		if strings.Contains(status, "verrouillé") {
			locked = 1
		}
		n.Add(env, NewNode(&Topic{
			ID:     id,
			Type:   topicTypes[strings.TrimSpace(div.Find("strong").First().Text())],
			Title:  strings.TrimSpace(link.Text()),
			Locked: locked,
			Views:  views,
		}))
		return true
	})
	return perr
}

func (p *ForumPage) Dump(env *Env, n *Node, w *sqldump.Writer) error { return nil }
