package worker

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ToolmanP/forumactif-archiver/pkg/bbcode"
	"github.com/ToolmanP/forumactif-archiver/pkg/client"
	"github.com/ToolmanP/forumactif-archiver/pkg/linkrewriter"
	"github.com/ToolmanP/forumactif-archiver/pkg/utils"
)

// Fetcher is the authenticated access to the forum, see client.Session.
type Fetcher interface {
	Get(ctx context.Context, path string, params url.Values) (*client.Page, error)
	GetAdmin(ctx context.Context, path string, params url.Values) (*client.Page, error)
	GetImage(ctx context.Context, raw string) ([]byte, error)
}

// Prompt asks the operator a question and returns the answer.
type Prompt func(question string) (string, error)

// Env is what every node can reach while exporting or dumping. The lookup
// tables are rebuilt from the tree and never persisted.
type Env struct {
	Session  Fetcher
	Config   *utils.ArchiverConfig
	Logger   *slog.Logger
	Progress *utils.Progress
	OCR      OCR
	Prompt   Prompt
	Now      func() time.Time
	UID      func() string
	Random   func() string

	bb          *BB
	users       map[int]*User
	usersByName map[string]*User
	groups      map[int]*Group
	forums      map[string]*Forum
	topics      *utils.Set[int]
	smilies     map[string]bbcode.Smiley
	smileyOrder *Counter
	posts       map[string][]*Post

	dumpTime  int64
	startDate int64
}

func NewEnv(cfg *utils.ArchiverConfig, session Fetcher) *Env {
	env := &Env{
		Session: session,
		Config:  cfg,
		Logger:  slog.Default().With("component", "worker"),
		OCR:     &Gocr{Exe: cfg.Gocr},
		Now:     time.Now,
		UID:     bbcode.NewUID,
		Random:  randomString,
	}
	env.clear()
	return env
}

func (env *Env) clear() {
	env.bb = nil
	env.users = map[int]*User{}
	env.usersByName = map[string]*User{}
	env.groups = map[int]*Group{}
	env.forums = map[string]*Forum{}
	env.topics = utils.NewSet[int]()
	env.smilies = map[string]bbcode.Smiley{}
	env.smileyOrder = nil
	env.posts = map[string][]*Post{}
}

func randomString() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// StdinPrompt reads answers from in, one line each.
func StdinPrompt(in io.Reader, out io.Writer) Prompt {
	r := bufio.NewReader(in)
	return func(question string) (string, error) {
		fmt.Fprint(out, question)
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}

func (env *Env) log() *slog.Logger {
	if env.Logger == nil {
		return slog.Default()
	}
	return env.Logger
}

func (env *Env) now() time.Time {
	if env.Now == nil {
		return time.Now()
	}
	return env.Now()
}

// path returns a location under the output directory, creating its parent.
func (env *Env) path(elem ...string) (string, error) {
	p := filepath.Join(append([]string{env.Config.OutputDir}, elem...)...)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	return p, nil
}

func (env *Env) ForumID(key string) (int, bool) {
	f, ok := env.forums[key]
	if !ok || f.NewID == 0 {
		return 0, false
	}
	return f.NewID, true
}

func (env *Env) UserID(id int) (int, bool) {
	u, ok := env.users[id]
	if !ok || u.NewID == 0 {
		return 0, false
	}
	return u.NewID, true
}

func (env *Env) Smiley(id string) (bbcode.Smiley, bool) {
	s, ok := env.smilies[id]
	return s, ok
}

// poster resolves the author of a post. Unknown names, guests included, are
// attached to the anonymous user but keep their name.
func (env *Env) poster(name string) poster {
	if u, ok := env.usersByName[name]; ok && u.NewID != 0 {
		return poster{ID: u.NewID, Name: u.Name, Colour: u.colour(env)}
	}
	return poster{ID: anonymousID, Name: name}
}

func (env *Env) Transcoder() *bbcode.Transcoder {
	t := &bbcode.Transcoder{
		Smilies: env,
		UID:     env.UID,
	}
	if env.Config.RewriteLinks {
		t.Rewriter = linkrewriter.New(env.Config.URL, env, env)
		t.NewBase = env.Config.PhpbbURL
	}
	return t
}

// Rewriter returns the link rewriter backed by the current tree.
func (env *Env) Rewriter() *linkrewriter.Rewriter {
	return linkrewriter.New(env.Config.URL, env, env)
}

func forumKey(kind string, id int) string {
	return kind + strconv.Itoa(id)
}
