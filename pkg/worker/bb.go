package worker

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ToolmanP/forumactif-archiver/pkg/bbcode"
	"github.com/ToolmanP/forumactif-archiver/pkg/sqldump"
	"github.com/ToolmanP/forumactif-archiver/pkg/utils"
)

// ownedTables are rebuilt entirely from the export.
var ownedTables = []string{
	"bbcodes", "users", "user_group", "bots", "forums", "topics",
	"topics_posted", "posts", "privmsgs", "privmsgs_to",
}

// BB is the root of the tree, the forum itself.
type BB struct {
	Posts    int    `json:"posts"`
	Topics   int    `json:"topics"`
	Users    int    `json:"users"`
	SiteName string `json:"sitename"`
	SiteDesc string `json:"site_desc"`
}

func NewBB() *Node {
	return NewNode(&BB{})
}

func (b *BB) Kind() string { return "bb" }

func (b *BB) index(env *Env, n *Node) {
	env.bb = b
	env.Progress.SetTotal(utils.Users, b.Users)
	env.Progress.SetTotal(utils.Topics, b.Topics)
	env.Progress.SetTotal(utils.Posts, b.Posts)
}

func (b *BB) forget(env *Env) {}

// labels of the /statistics rows
const (
	statPosts  = "Messages"
	statTopics = "Nombre de sujets ouvert dans le forum"
	statUsers  = "Nombre d'utilisateurs"
)

func (b *BB) Export(ctx context.Context, env *Env, n *Node) error {
	env.log().Info("Récupération des statistiques")
	page, err := env.Session.Get(ctx, utils.STATISTICS_PATH, nil)
	if err != nil {
		return err
	}
	found := map[string]bool{}
	page.Doc.Find("table.forumline tr").Each(func(i int, row *goquery.Selection) {
		label := strings.TrimSpace(row.Find("td.row2 span").First().Text())
		value, err := strconv.Atoi(strings.TrimSpace(row.Find("td.row1 span").First().Text()))
		if err != nil {
			return
		}
		switch label {
		case statPosts:
			b.Posts = value
		case statTopics:
			b.Topics = value
		case statUsers:
			b.Users = value
		default:
			return
		}
		found[label] = true
	})
	for _, label := range []string{statPosts, statTopics, statUsers} {
		if !found[label] {
			return newParsingError(page, "statistics table")
		}
	}
	env.log().Debug("Statistiques", "posts", b.Posts, "topics", b.Topics, "users", b.Users)

	home, err := env.Session.Get(ctx, "/", nil)
	if err != nil {
		return err
	}
	b.SiteName = strings.TrimSpace(home.Doc.Find("title").First().Text())
	b.SiteDesc, _ = home.Doc.Find(`meta[name="description"]`).Attr("content")

	b.index(env, n)

	n.Add(env, NewNode(&Smilies{}))
	n.Add(env, NewNode(&Users{Count: NewCounter(firstUserID)}))
	n.Add(env, NewNode(&Groups{Count: NewCounter(firstGroupID)}))
	n.Add(env, NewNode(&Forums{}))
	return nil
}

func (b *BB) Dump(env *Env, n *Node, w *sqldump.Writer) error {
	users := descendants[*User](n)

	env.startDate = env.dumpTime
	var newest *User
	for _, u := range users {
		if u.Regdate > 0 && u.Regdate < env.startDate {
			env.startDate = u.Regdate
		}
		if newest == nil || u.Regdate > newest.Regdate || (u.Regdate == newest.Regdate && u.NewID > newest.NewID) {
			newest = u
		}
	}

	for _, table := range ownedTables {
		w.Truncate(table)
	}
	for _, c := range bbcode.CustomBBCodes {
		w.Insert("bbcodes", c.Row())
	}

	w.SetConfig("sitename", b.SiteName)
	w.SetConfig("site_desc", b.SiteDesc)
	w.SetConfig("board_startdate", env.startDate)
	w.SetConfig("default_lang", env.Config.DefaultLang)
	w.SetConfig("num_posts", len(descendants[*Post](n)))
	w.SetConfig("num_topics", len(descendants[*Topic](n)))
	w.SetConfig("num_users", len(users))
	if newest != nil {
		w.SetConfig("newest_user_id", newest.NewID)
		w.SetConfig("newest_username", newest.Name)
		w.SetConfig("newest_user_colour", newest.colour(env))
	}
	return nil
}
