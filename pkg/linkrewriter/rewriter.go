package linkrewriter

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
)

// ForumLookup translates a Forumactif forum key such as "f3" or "c2".
type ForumLookup interface {
	ForumID(key string) (int, bool)
}

type UserLookup interface {
	UserID(id int) (int, bool)
}

type rule struct {
	pattern  *regexp.Regexp
	required []string
	handle   func(r *Rewriter, m []string, query url.Values, fragment string) (string, bool)
}

func rules(handle func(r *Rewriter, m []string, query url.Values, fragment string) (string, bool), required []string, patterns ...string) []rule {
	out := make([]rule, len(patterns))
	for i, p := range patterns {
		out[i] = rule{
			pattern:  regexp.MustCompile(`^(?:` + p + `)$`),
			required: required,
			handle:   handle,
		}
	}
	return out
}

// table is walked in order, the first rule that yields a path wins.
var table = concat(
	rules(root, nil, ``, `/`, `/forum`),
	rules(forum, nil, `/([fc]\d+)-.*`, `/.*-([fc]\d+)/`, `/.*-([fc]\d+)\.htm`),
	rules(topic, nil, `/t(\d+)[-p].*`, `/.*-t(\d+)\.htm`, `/.*-t(\d+)-\d+\.htm`),
	rules(viewTopic, []string{"t"}, `/viewtopic\.forum`),
	rules(post, nil, `/.*-p(\d+)\.htm`),
	rules(viewPost, []string{"p"}, `/viewtopic\.forum`),
	rules(user, nil, `/u(\d+)(?:-.*)?`),
)

func concat(groups ...[]rule) []rule {
	var out []rule
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Rewriter maps links into the old forum to paths of the new one.
type Rewriter struct {
	host   string
	forums ForumLookup
	users  UserLookup
}

func New(host string, forums ForumLookup, users UserLookup) *Rewriter {
	return &Rewriter{
		host:   host,
		forums: forums,
		users:  users,
	}
}

// Rewrite returns the path on the new forum equivalent to raw, or false when
// raw is not a link into the old forum or has no equivalent.
func (r *Rewriter) Rewrite(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host != r.host {
		return "", false
	}
	query := u.Query()
	for _, rl := range table {
		m := rl.pattern.FindStringSubmatch(u.Path)
		if m == nil || !hasAll(query, rl.required) {
			continue
		}
		if path, ok := rl.handle(r, m, query, u.Fragment); ok {
			return path, true
		}
	}
	return "", false
}

func hasAll(query url.Values, keys []string) bool {
	for _, k := range keys {
		if !query.Has(k) {
			return false
		}
	}
	return true
}

func root(r *Rewriter, m []string, query url.Values, fragment string) (string, bool) {
	return "/", true
}

func forum(r *Rewriter, m []string, query url.Values, fragment string) (string, bool) {
	if r.forums == nil {
		return "", false
	}
	id, ok := r.forums.ForumID(m[1])
	if !ok {
		return "", false
	}
	return fmt.Sprintf("/viewforum.php?f=%d", id), true
}

func postPath(id int) string {
	return fmt.Sprintf("/viewtopic.php?p=%d#p%d", id, id)
}

func topic(r *Rewriter, m []string, query url.Values, fragment string) (string, bool) {
	if id, err := strconv.Atoi(fragment); err == nil {
		return postPath(id), true
	}
	return "/viewtopic.php?t=" + m[1], true
}

func viewTopic(r *Rewriter, m []string, query url.Values, fragment string) (string, bool) {
	id, err := strconv.Atoi(query.Get("t"))
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("/viewtopic.php?t=%d", id), true
}

func post(r *Rewriter, m []string, query url.Values, fragment string) (string, bool) {
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	return postPath(id), true
}

func viewPost(r *Rewriter, m []string, query url.Values, fragment string) (string, bool) {
	id, err := strconv.Atoi(query.Get("p"))
	if err != nil {
		return "", false
	}
	return postPath(id), true
}

func user(r *Rewriter, m []string, query url.Values, fragment string) (string, bool) {
	if r.users == nil {
		return "", false
	}
	old, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	id, ok := r.users.UserID(old)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("/memberlist.php?mode=viewprofile&u=%d", id), true
}
