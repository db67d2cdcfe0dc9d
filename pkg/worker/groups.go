package worker

import (
	"context"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ToolmanP/forumactif-archiver/pkg/sqldump"
	"github.com/ToolmanP/forumactif-archiver/pkg/utils"
)

var groupTypes = map[string]int{
	"Groupe fermé":     1,
	"Groupe invisible": 2,
	"Groupe ouvert":    4,
}

var (
	groupLinkPattern  = regexp.MustCompile(`^/g(\d+)-.*$`)
	groupColorPattern = regexp.MustCompile(`^color:#(.{3,6})$`)
)

type Groups struct {
	Count Counter `json:"count"`
}

func (g *Groups) Kind() string { return "groups" }

func (g *Groups) Export(ctx context.Context, env *Env, n *Node) error {
	env.log().Info("Récupération des groupes")
	g.Count.Reset()

	params := usersParams()
	params.Set("sub", "groups")
	page, err := env.Session.GetAdmin(ctx, utils.ADMIN_PATH, params)
	if err != nil {
		return err
	}

	var perr error
	page.Doc.Find("table tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cols := row.Find("td")
		if cols.Length() == 0 {
			return true
		}
		link := cols.Eq(2).Find("a").First()
		if cols.Length() < 7 || link.Length() == 0 {
			perr = newParsingError(page, "group row")
			return false
		}
		href, _ := link.Attr("href")
		m := groupLinkPattern.FindStringSubmatch(cleanURL(href))
		if m == nil {
			return true
		}
		id, _ := strconv.Atoi(m[1])

		description := strings.TrimSpace(cols.Eq(3).Text())
		// the groups are followed by personal user groups
		if description == "Personal User" {
			return false
		}

		colour := ""
		if style, ok := link.Attr("style"); ok {
			if m := groupColorPattern.FindStringSubmatch(style); m != nil && m[1] != "000" {
				colour = m[1]
			}
		}
		kind, ok := groupTypes[strings.TrimSpace(cols.Eq(6).Text())]
		if !ok {
			kind = 1
		}

		n.Add(env, NewNode(&Group{
			ID:          id,
			Name:        strings.TrimSpace(link.Text()),
			Description: description,
			Leader:      strings.TrimSpace(cols.Eq(4).Text()),
			Colour:      colour,
			Type:        kind,
		}))
		return true
	})
	return perr
}

func (g *Groups) Dump(env *Env, n *Node, w *sqldump.Writer) error { return nil }

type Group struct {
	ID          int    `json:"id"`
	NewID       int    `json:"newid"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Leader      string `json:"leader"`
	Colour      string `json:"colour"`
	Type        int    `json:"type"`
}

func (g *Group) Kind() string { return "group" }

func (g *Group) index(env *Env, n *Node) {
	env.groups[g.ID] = g
}

func (g *Group) forget(env *Env) {
	delete(env.groups, g.ID)
}

func (g *Group) Export(ctx context.Context, env *Env, n *Node) error {
	groups, _ := ancestor[*Groups](n)
	if g.NewID == 0 {
		if g.ID == 1 {
			// administrators, predefined in phpBB
			g.NewID = groupAdmins
			g.Leader = env.Config.AdminName
		} else if groups != nil {
			g.NewID = groups.Count.Next()
		}
	}
	env.log().Info("Récupération du groupe", "name", g.Name, "id", g.ID)

	page, err := env.Session.Get(ctx, utils.BuildGroupPath(g.ID), nil)
	if err != nil {
		return err
	}
	for _, start := range utils.Pages(page.Body) {
		n.Add(env, NewNode(&GroupPage{Start: start}))
	}
	return nil
}

func (g *Group) Dump(env *Env, n *Node, w *sqldump.Writer) error {
	if g.NewID < firstGroupID {
		return nil
	}
	display := 1
	if g.Type == 2 {
		display = 0
	}
	return w.Insert("groups", sqldump.Row{
		"group_id":      g.NewID,
		"group_type":    g.Type,
		"group_name":    g.Name,
		"group_desc":    g.Description,
		"group_display": display,
		"group_colour":  g.Colour,
	})
}

// GroupPage adds the group to the members it lists.
type GroupPage struct {
	Start int `json:"start"`
}

func (p *GroupPage) Kind() string { return "grouppage" }

func (p *GroupPage) Export(ctx context.Context, env *Env, n *Node) error {
	g, ok := ancestor[*Group](n)
	if !ok {
		return nil
	}
	env.log().Debug("Récupération du groupe", "id", g.ID, "start", p.Start)
	page, err := env.Session.Get(ctx, utils.BuildGroupPath(g.ID), url.Values{"start": {strconv.Itoa(p.Start)}})
	if err != nil {
		return err
	}
	page.Doc.Find("a").Each(func(i int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := userLinkPattern.FindStringSubmatch(cleanURL(href))
		if m == nil {
			return
		}
		id, _ := strconv.Atoi(m[1])
		u, ok := env.users[id]
		if !ok {
			env.log().Warn("Membre du groupe inconnu", "group", g.ID, "user", id)
			return
		}
		if !slices.Contains(u.Groups, g.ID) {
			u.Groups = append(u.Groups, g.ID)
		}
	})
	return nil
}

func (p *GroupPage) Dump(env *Env, n *Node, w *sqldump.Writer) error { return nil }
