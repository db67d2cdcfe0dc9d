package worker

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ToolmanP/forumactif-archiver/pkg/sqldump"
	"github.com/ToolmanP/forumactif-archiver/pkg/utils"
)

type Topic struct {
	ID int `json:"id"`
	// 0 normal, 1 sticky, 2 announcement, 3 global announcement
	Type   int    `json:"type"`
	Title  string `json:"title"`
	Locked int    `json:"locked"`
	Views  int    `json:"views"`
}

func (t *Topic) Kind() string { return "topic" }

func (t *Topic) index(env *Env, n *Node) {
	env.topics.Add(t.ID)
}

func (t *Topic) forget(env *Env) {
	env.topics.Remove(t.ID)
}

func (t *Topic) Export(ctx context.Context, env *Env, n *Node) error {
	env.log().Info("Récupération du sujet", "topic", t.ID, "title", t.Title)
	env.Progress.Increment(utils.Topics)
	page, err := env.Session.Get(ctx, utils.BuildTopicPath(t.ID), nil)
	if err != nil {
		return err
	}
	for _, start := range utils.Pages(page.Body) {
		n.Add(env, NewNode(&TopicPage{Start: start}))
	}
	return nil
}

func (t *Topic) Dump(env *Env, n *Node, w *sqldump.Writer) error {
	posts := descendants[*Post](n)
	if len(posts) == 0 {
		env.log().Warn("Le sujet ne contient aucun message", "topic", t.ID)
		return nil
	}
	forum, _ := ancestor[*Forum](n)
	first, last := posts[0], posts[len(posts)-1]
	firstPoster, lastPoster := env.poster(first.Author), env.poster(last.Author)
	replies := len(posts) - 1

	forumID := 0
	if forum != nil {
		forumID = forum.NewID
	}
	w.Insert("topics", sqldump.Row{
		"topic_id":                  t.ID,
		"forum_id":                  forumID,
		"topic_title":               t.Title,
		"topic_poster":              firstPoster.ID,
		"topic_time":                first.Time,
		"topic_views":               t.Views,
		"topic_replies":             replies,
		"topic_replies_real":        replies,
		"topic_status":              t.Locked,
		"topic_type":                t.Type,
		"topic_first_post_id":       first.ID,
		"topic_first_poster_name":   firstPoster.Name,
		"topic_first_poster_colour": firstPoster.Colour,
		"topic_last_post_id":        last.ID,
		"topic_last_poster_id":      lastPoster.ID,
		"topic_last_poster_name":    lastPoster.Name,
		"topic_last_poster_colour":  lastPoster.Colour,
		"topic_last_post_subject":   last.Title,
		"topic_last_post_time":      last.Time,
	})

	var posted []int
	for _, p := range posts {
		if id := env.poster(p.Author).ID; !slices.Contains(posted, id) {
			posted = append(posted, id)
		}
	}
	for _, id := range posted {
		w.Insert("topics_posted", sqldump.Row{
			"user_id":      id,
			"topic_id":     t.ID,
			"topic_posted": 1,
		})
	}
	return nil
}

type TopicPage struct {
	Start int `json:"start"`
}

func (p *TopicPage) Kind() string { return "topicpage" }

func (p *TopicPage) Export(ctx context.Context, env *Env, n *Node) error {
	t, ok := ancestor[*Topic](n)
	if !ok {
		return nil
	}
	env.log().Debug("Récupération des messages", "topic", t.ID, "start", p.Start)
	page, err := env.Session.Get(ctx, utils.BuildTopicPagePath(t.ID, p.Start), nil)
	if err != nil {
		return err
	}

	now := env.now()
	var perr error
	page.Doc.Find("tr.post").EachWithBreak(func(i int, row *goquery.Selection) bool {
		name := row.Find("td span.name").First()
		id, err := strconv.Atoi(name.Find("a").AttrOr("name", ""))
		if err != nil {
			perr = newParsingError(page, "post anchor")
			return false
		}

		body, _ := row.Find("td div.postbody div").First().Html()
		if strings.TrimSpace(body) == "" {
			env.log().Warn("Le message semble être vide", "post", id, "topic", t.ID, "start", p.Start)
		}

		details := row.Find("table td span.postdetails").First().Contents()
		if details.Length() < 4 {
			perr = newParsingError(page, "post details")
			return false
		}
		title := strings.TrimSpace(details.Eq(1).Text())
		if strings.HasPrefix(title, "Sujet") {
			_, title, _ = strings.Cut(title, ":")
			title = strings.TrimSpace(title)
		}
		when, err := utils.ParseDate(details.Eq(3).Text(), now)
		if err != nil {
			perr = newParsingError(page, "post date")
			return false
		}

		n.Add(env, NewNode(&Post{
			ID:     id,
			Author: strings.TrimSpace(name.Text()),
			Text:   body,
			Title:  title,
			Time:   when,
		}))
		return true
	})
	return perr
}

func (p *TopicPage) Dump(env *Env, n *Node, w *sqldump.Writer) error { return nil }

type Post struct {
	ID     int    `json:"id"`
	Author string `json:"author"`
	// HTML as shown by Forumactif
	Text  string `json:"text"`
	Title string `json:"title"`
	Time  int64  `json:"time"`
}

func (p *Post) Kind() string { return "post" }

func (p *Post) index(env *Env, n *Node) {
	env.posts[p.Author] = append(env.posts[p.Author], p)
}

func (p *Post) forget(env *Env) {
	env.posts[p.Author] = slices.DeleteFunc(env.posts[p.Author], func(o *Post) bool { return o == p })
	if len(env.posts[p.Author]) == 0 {
		delete(env.posts, p.Author)
	}
}

func (p *Post) Export(ctx context.Context, env *Env, n *Node) error {
	env.Progress.Increment(utils.Posts)
	return nil
}

func (p *Post) Dump(env *Env, n *Node, w *sqldump.Writer) error {
	topicID, forumID := 0, 0
	if t, ok := ancestor[*Topic](n); ok {
		topicID = t.ID
	}
	if f, ok := ancestor[*Forum](n); ok {
		forumID = f.NewID
	}
	author := env.poster(p.Author)
	post := env.Transcoder().Transcode(p.Text)
	return w.Insert("posts", sqldump.Row{
		"post_id":         p.ID,
		"topic_id":        topicID,
		"forum_id":        forumID,
		"poster_id":       author.ID,
		"post_time":       p.Time,
		"poster_ip":       "::1",
		"post_username":   author.Name,
		"post_subject":    p.Title,
		"post_text":       post.Text,
		"post_checksum":   post.Checksum,
		"bbcode_bitfield": post.Bitfield,
		"bbcode_uid":      post.UID,
	})
}
