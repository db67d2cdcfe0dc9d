package worker

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/ToolmanP/forumactif-archiver/pkg/client"
	"github.com/ToolmanP/forumactif-archiver/pkg/sqldump"
	"github.com/ToolmanP/forumactif-archiver/pkg/utils"
)

// How much an email address can be trusted.
const (
	TrustMissing = iota
	// read by OCR from an image that was cut
	TrustImplausible
	// read by OCR, not confirmed by a search
	TrustPlausible
	TrustVerified
)

const pmSubject = "Félicitations !"

const pmPost = `Félicitations !

Vous avez importé vos données avec succès. N'oubliez pas de
terminer l'importation en suivant la <a class="postlink"
href="https://roromis.github.io/Lalf-Forumactif/importation.html">documentation</a>.`

var (
	userLinkPattern  = regexp.MustCompile(`^/u(\d+)$`)
	userColorPattern = regexp.MustCompile(`^color:#(.{6})$`)
)

// poster is the resolved author of a post.
type poster struct {
	ID     int
	Name   string
	Colour string
}

// noUser stands for the last poster of an empty forum.
var noUser = poster{}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// encodeName converts s to the charset of the admin panel, which is what
// its search form expects.
func encodeName(charset, s string) string {
	if charset == "" {
		return s
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return s
	}
	out, err := enc.NewEncoder().String(s)
	if err != nil {
		return s
	}
	return out
}

func cleanFilename(name string) string {
	return strings.NewReplacer(
		"?", "", "<", "", ">", "", "|", "", "*", "", "/", "", `"`, "", `\`, "",
		":", ",", ";", ",",
	).Replace(name)
}

// cleanURL reduces a link to its path and query.
func cleanURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	out := u.EscapedPath()
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}

func usersParams() url.Values {
	return url.Values{
		"part": {"users_groups"},
		"sub":  {"users"},
	}
}

type Users struct {
	Count   Counter `json:"count"`
	Charset string  `json:"charset"`
}

func (u *Users) Kind() string { return "users" }

func (u *Users) Export(ctx context.Context, env *Env, n *Node) error {
	env.log().Info("Récupération des membres")
	u.Count.Reset()

	admin, err := env.Session.GetAdmin(ctx, utils.ADMIN_PATH, usersParams())
	if err != nil {
		return err
	}
	u.Charset = admin.Charset

	page, err := env.Session.Get(ctx, utils.MEMBERLIST_PATH, nil)
	if err != nil {
		return err
	}
	n.Add(env, NewNode(&AnonymousUser{}))
	for _, start := range utils.Pages(page.Body) {
		n.Add(env, NewNode(&UsersPage{Start: start}))
	}
	return nil
}

// Dump writes the bots phpBB creates on install.
func (u *Users) Dump(env *Env, n *Node, w *sqldump.Writer) error {
	for i, b := range bots {
		id := 3 + i
		w.Insert("users", sqldump.Row{
			"user_id":              id,
			"user_type":            2,
			"group_id":             groupBots,
			"user_regdate":         env.startDate,
			"username":             b.Name,
			"username_clean":       strings.ToLower(b.Name),
			"user_passchg":         env.dumpTime,
			"user_lastmark":        env.dumpTime,
			"user_lang":            env.Config.DefaultLang,
			"user_dateformat":      "D M d, Y g:i a",
			"user_style":           1,
			"user_colour":          botColour,
			"user_allow_pm":        0,
			"user_allow_massemail": 0,
		})
		w.Insert("user_group", sqldump.Row{
			"group_id":     groupBots,
			"user_id":      id,
			"user_pending": 0,
		})
		w.Insert("bots", sqldump.Row{
			"bot_name":  b.Name,
			"user_id":   id,
			"bot_agent": b.Agent,
			"bot_ip":    "",
		})
	}
	return nil
}

type UsersPage struct {
	Start int `json:"start"`
}

func (p *UsersPage) Kind() string { return "userspage" }

func (p *UsersPage) Export(ctx context.Context, env *Env, n *Node) error {
	env.log().Debug("Récupération des membres", "start", p.Start)
	params := url.Values{
		"mode":     {"joined"},
		"order":    {""},
		"start":    {strconv.Itoa(p.Start)},
		"username": {""},
	}
	page, err := env.Session.Get(ctx, utils.MEMBERLIST_PATH, params)
	if err != nil {
		return err
	}

	table := page.Doc.Find(`form[action="/memberlist"]`).First().NextAllFiltered("table.forumline").First()
	if table.Length() == 0 {
		return newParsingError(page, "member list table")
	}

	now := env.now()
	var perr error
	table.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cols := row.Find("td")
		if cols.Length() == 0 {
			return true
		}
		if cols.Length() < 7 {
			perr = newParsingError(page, "member row")
			return false
		}
		href, _ := cols.Eq(1).Find("a").Attr("href")
		m := userLinkPattern.FindStringSubmatch(cleanURL(href))
		if m == nil {
			return true
		}
		id, _ := strconv.Atoi(m[1])

		posts, err := strconv.Atoi(strings.TrimSpace(cols.Eq(6).Text()))
		if err != nil {
			perr = newParsingError(page, "member post count")
			return false
		}
		regdate, err := utils.ParseDate(cols.Eq(4).Text(), now)
		if err != nil {
			perr = newParsingError(page, "member registration date")
			return false
		}
		// members who never came back have no date
		lastvisit, _ := utils.ParseDate(cols.Eq(5).Text(), now)

		colour := ""
		if style, ok := cols.Eq(2).Find("a span").Attr("style"); ok {
			if m := userColorPattern.FindStringSubmatch(style); m != nil {
				colour = m[1]
			}
		}

		if _, dup := env.users[id]; dup {
			env.log().Warn("Le membre existe déjà", "id", id)
			return true
		}
		n.Add(env, NewNode(&User{
			ID:        id,
			Name:      strings.TrimSpace(cols.Eq(2).Text()),
			Posts:     posts,
			Regdate:   regdate,
			Lastvisit: lastvisit,
			Colour:    colour,
		}))
		return true
	})
	return perr
}

func (p *UsersPage) Dump(env *Env, n *Node, w *sqldump.Writer) error { return nil }

type User struct {
	ID        int    `json:"id"`
	NewID     int    `json:"newid"`
	Name      string `json:"name"`
	Mail      string `json:"mail"`
	Trust     int    `json:"trust"`
	Posts     int    `json:"posts"`
	Regdate   int64  `json:"regdate"`
	Lastvisit int64  `json:"lastvisit"`
	Colour    string `json:"colour"`
	// Forumactif ids of the groups, in the order they were scraped.
	Groups []int `json:"groups"`
}

func (u *User) Kind() string { return "user" }

func (u *User) index(env *Env, n *Node) {
	env.users[u.ID] = u
	env.usersByName[u.Name] = u
}

func (u *User) forget(env *Env) {
	delete(env.users, u.ID)
	if env.usersByName[u.Name] == u {
		delete(env.usersByName, u.Name)
	}
}

func (u *User) admin(env *Env) bool {
	return u.Name == env.Config.AdminName
}

func (u *User) Export(ctx context.Context, env *Env, n *Node) error {
	users, ok := ancestor[*Users](n)
	if !ok {
		return fmt.Errorf("user %d outside of the member list", u.ID)
	}
	if u.NewID == 0 {
		if u.admin(env) {
			u.NewID = adminID
		} else {
			u.NewID = users.Count.Next()
		}
	}
	env.log().Debug("Récupération du membre", "name", u.Name, "id", u.ID, "newid", u.NewID)
	env.Progress.Increment(utils.Users)
	return u.fetchMail(ctx, env, users.Charset)
}

func (u *User) search(ctx context.Context, env *Env, charset, username string) (*client.Page, *goquery.Selection, error) {
	params := usersParams()
	params.Set("username", encodeName(charset, username))
	params.Set("submituser", "Ok")
	params.Set("sort", "user_id")
	params.Set("order", "ASC")
	page, err := env.Session.GetAdmin(ctx, utils.ADMIN_PATH, params)
	if err != nil {
		return nil, nil, err
	}
	// a blocked account is sent back to the admin home page
	if page.URL != nil && page.URL.Query().Get("sub") != "users" {
		return nil, nil, ErrMemberPageBlocked
	}
	var found *goquery.Selection
	page.Doc.Find(`table[summary="Liste des Utilisateurs"] tbody tr`).EachWithBreak(func(i int, row *goquery.Selection) bool {
		cols := row.Find("td")
		if cols.Length() >= 2 && strings.TrimSpace(cols.Eq(0).Text()) == u.Name {
			found = cols
			return false
		}
		return true
	})
	return page, found, nil
}

// fetchMail reads the address from the admin user search. Forumactif
// sometimes draws it as an image, which is read by OCR.
func (u *User) fetchMail(ctx context.Context, env *Env, charset string) error {
	_, cols, err := u.search(ctx, env, charset, u.Name)
	if err != nil {
		return err
	}
	if cols == nil {
		env.log().Warn("Adresse e-mail introuvable", "name", u.Name)
		u.Mail, u.Trust = "", TrustMissing
		return nil
	}
	if mail := strings.TrimSpace(cols.Eq(1).Text()); mail != "" {
		u.Mail, u.Trust = mail, TrustVerified
		return nil
	}
	src, ok := cols.Eq(1).Find("img").Attr("src")
	if !ok {
		u.Mail, u.Trust = "", TrustMissing
		return nil
	}
	return u.readMail(ctx, env, charset, src)
}

func (u *User) readMail(ctx context.Context, env *Env, charset, src string) error {
	data, err := env.Session.GetImage(ctx, src)
	if err != nil {
		return err
	}
	path, err := env.path("usermails", cleanFilename(u.Name)+".png")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	mail, err := env.OCR.Text(ctx, path)
	if err != nil {
		return err
	}
	u.Mail = mail

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		env.log().Warn("Image de l'adresse e-mail illisible", "name", u.Name, "err", err)
		u.Trust = TrustImplausible
		return nil
	}
	if tooLong(img) {
		u.Trust = TrustImplausible
		return nil
	}

	_, cols, err := u.search(ctx, env, charset, mail)
	if err != nil {
		return err
	}
	if cols != nil {
		u.Trust = TrustVerified
	} else {
		u.Trust = TrustPlausible
	}
	return nil
}

func (u *User) groups(env *Env) []*Group {
	out := make([]*Group, 0, len(u.Groups))
	for _, id := range u.Groups {
		if g, ok := env.groups[id]; ok && g.NewID != 0 {
			out = append(out, g)
		}
	}
	return out
}

func (u *User) colour(env *Env) string {
	for _, g := range u.groups(env) {
		if g.NewID == groupAdmins {
			return adminColour
		}
	}
	return u.Colour
}

func postStats(posts []*Post) (count int, last int64) {
	for _, p := range posts {
		count++
		last = max(last, p.Time)
	}
	return count, last
}

func (u *User) Dump(env *Env, n *Node, w *sqldump.Writer) error {
	groups := u.groups(env)
	groupID := groupRegistered
	if len(groups) > 0 {
		groupID = groups[0].NewID
	}
	count, last := postStats(env.posts[u.Name])

	row := sqldump.Row{
		"user_id":            u.NewID,
		"group_id":           groupID,
		"user_regdate":       u.Regdate,
		"username":           u.Name,
		"username_clean":     strings.ToLower(u.Name),
		"user_password":      md5Hex(env.Random()),
		"user_pass_convert":  1,
		"user_email":         u.Mail,
		"user_email_hash":    sqldump.EmailHash(u.Mail),
		"user_lastvisit":     u.Lastvisit,
		"user_lastpost_time": last,
		"user_posts":         count,
		"user_lang":          env.Config.DefaultLang,
		"user_style":         1,
		"user_colour":        u.colour(env),
	}
	if u.admin(env) {
		row["user_type"] = 3
		row["user_password"] = md5Hex(env.Config.AdminPassword)
		row["user_rank"] = 1
		row["user_new_privmsg"] = 1
		row["user_unread_privmsg"] = 1
		row["user_last_privmsg"] = env.dumpTime
	}
	w.Insert("users", row)

	w.Insert("user_group", sqldump.Row{
		"group_id":     groupRegistered,
		"user_id":      u.NewID,
		"user_pending": 0,
	})
	for _, g := range groups {
		leader := 0
		if g.Leader == u.Name {
			leader = 1
		}
		w.Insert("user_group", sqldump.Row{
			"group_id":     g.NewID,
			"user_id":      u.NewID,
			"user_pending": 0,
			"group_leader": leader,
		})
	}

	if u.admin(env) {
		w.Insert("user_group", sqldump.Row{
			"group_id":     groupGlobalMods,
			"user_id":      u.NewID,
			"user_pending": 0,
		})
		return u.dumpWelcome(env, w)
	}
	return nil
}

// dumpWelcome leaves a private message in the administrator's inbox.
func (u *User) dumpWelcome(env *Env, w *sqldump.Writer) error {
	post := env.Transcoder().Transcode(pmPost)
	w.Insert("privmsgs", sqldump.Row{
		"msg_id":          1,
		"author_id":       u.NewID,
		"message_time":    env.dumpTime,
		"message_subject": pmSubject,
		"message_text":    post.Text,
		"bbcode_bitfield": post.Bitfield,
		"bbcode_uid":      post.UID,
		"to_address":      fmt.Sprintf("u_%d", u.NewID),
		"bcc_address":     "",
	})
	// inbox, then outbox
	for _, folder := range []int{-1, 0} {
		w.Insert("privmsgs_to", sqldump.Row{
			"msg_id":    1,
			"user_id":   u.NewID,
			"author_id": u.NewID,
			"folder_id": folder,
		})
	}
	return nil
}

// AnonymousUser owns the posts of guests and of deleted members.
type AnonymousUser struct{}

func (a *AnonymousUser) Kind() string { return "anonymous" }

func (a *AnonymousUser) Export(ctx context.Context, env *Env, n *Node) error { return nil }

func (a *AnonymousUser) Dump(env *Env, n *Node, w *sqldump.Writer) error {
	var posts []*Post
	for name, ps := range env.posts {
		if u, ok := env.usersByName[name]; !ok || u.NewID == 0 {
			posts = append(posts, ps...)
		}
	}
	count, last := postStats(posts)
	w.Insert("users", sqldump.Row{
		"user_id":              anonymousID,
		"user_type":            2,
		"group_id":             groupGuests,
		"username":             "Anonymous",
		"username_clean":       "anonymous",
		"user_regdate":         env.startDate,
		"user_lang":            env.Config.DefaultLang,
		"user_style":           1,
		"user_allow_massemail": 0,
		"user_lastpost_time":   last,
		"user_posts":           count,
	})
	return w.Insert("user_group", sqldump.Row{
		"group_id":     groupGuests,
		"user_id":      anonymousID,
		"user_pending": 0,
	})
}

// ConfirmEmails asks the operator about the addresses that could not be
// verified. Missing addresses are looked up twice more first.
func ConfirmEmails(ctx context.Context, env *Env, root *Node) error {
	var err error
	root.Walk(func(n *Node) bool {
		u, ok := n.Entity.(*User)
		if !ok {
			return true
		}
		users, _ := ancestor[*Users](n)
		for try := 0; try < 2 && u.Trust == TrustMissing && users != nil; try++ {
			if err = u.fetchMail(ctx, env, users.Charset); err != nil {
				return false
			}
		}
		if u.Trust == TrustVerified || env.Prompt == nil {
			return true
		}

		var question string
		switch u.Trust {
		case TrustMissing:
			question = fmt.Sprintf("L'adresse e-mail de %s est introuvable. Entrez-la : ", u.Name)
		case TrustImplausible:
			question = fmt.Sprintf("L'adresse e-mail de %s semble incomplète (%s). Entrez l'adresse correcte ou laissez vide pour la conserver : ", u.Name, u.Mail)
		default:
			question = fmt.Sprintf("L'adresse e-mail de %s n'a pas pu être vérifiée (%s). Entrez l'adresse correcte ou laissez vide pour la conserver : ", u.Name, u.Mail)
		}
		var answer string
		if answer, err = env.Prompt(question); err != nil {
			return false
		}
		if answer != "" {
			u.Mail = answer
		}
		if u.Mail != "" {
			u.Trust = TrustVerified
		}
		return true
	})
	return err
}
