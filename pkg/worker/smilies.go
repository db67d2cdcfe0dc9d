package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ToolmanP/forumactif-archiver/pkg/bbcode"
	"github.com/ToolmanP/forumactif-archiver/pkg/sqldump"
	"github.com/ToolmanP/forumactif-archiver/pkg/utils"
)

func smiliesParams() url.Values {
	return url.Values{
		"part": {"themes"},
		"sub":  {"avatars"},
		"mode": {"smilies"},
	}
}

type Smilies struct {
	order Counter
}

func (s *Smilies) Kind() string { return "smilies" }

func (s *Smilies) index(env *Env, n *Node) {
	s.order = NewCounter(1)
	env.smileyOrder = &s.order
}

func (s *Smilies) forget(env *Env) {}

func (s *Smilies) Export(ctx context.Context, env *Env, n *Node) error {
	env.log().Info("Récupération des émoticones")
	page, err := env.Session.GetAdmin(ctx, utils.ADMIN_PATH, smiliesParams())
	if err != nil {
		return err
	}
	for _, start := range utils.Pages(page.Body) {
		n.Add(env, NewNode(&SmiliesPage{Start: start}))
	}
	return nil
}

func (s *Smilies) Dump(env *Env, n *Node, w *sqldump.Writer) error {
	s.order.Reset()
	w.Truncate("smilies")
	for _, d := range defaultSmilies {
		w.Insert("smilies", sqldump.Row{
			"code":               d.Code,
			"emotion":            d.Emotion,
			"smiley_url":         d.File,
			"smiley_width":       d.Width,
			"smiley_height":      d.Height,
			"smiley_order":       s.order.Next(),
			"display_on_posting": 0,
		})
	}
	return nil
}

type SmiliesPage struct {
	Start int `json:"start"`
}

func (p *SmiliesPage) Kind() string { return "smiliespage" }

func (p *SmiliesPage) Export(ctx context.Context, env *Env, n *Node) error {
	env.log().Debug("Récupération des émoticones", "start", p.Start)
	params := smiliesParams()
	params.Set("start", strconv.Itoa(p.Start))
	page, err := env.Session.GetAdmin(ctx, utils.ADMIN_PATH, params)
	if err != nil {
		return err
	}

	var perr error
	page.Doc.Find("form#smiliesList table tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cols := row.Find("td")
		if cols.Length() < 4 {
			return true
		}
		id, err := strconv.Atoi(strings.TrimSpace(cols.Eq(0).Text()))
		src, ok := cols.Eq(2).Find("img").Attr("src")
		if err != nil || !ok {
			perr = newParsingError(page, "smiley row")
			return false
		}
		code := strings.TrimSpace(cols.Eq(1).Text())
		emotion := strings.TrimSpace(cols.Eq(3).Text())

		if d, ok := findDefaultSmiley(code); ok {
			env.log().Debug("L'émoticone existe déjà dans phpbb", "code", code)
			n.Add(env, NewNode(&ExistingSmiley{ID: id, Code: d.Code, File: d.File, Emotion: d.Emotion, Width: d.Width, Height: d.Height}))
		} else {
			n.Add(env, NewNode(&Smiley{ID: id, Code: code, URL: src, Emotion: emotion}))
		}
		return true
	})
	return perr
}

func (p *SmiliesPage) Dump(env *Env, n *Node, w *sqldump.Writer) error { return nil }

// ExistingSmiley is a Forumactif smiley phpBB already ships.
type ExistingSmiley struct {
	ID      int    `json:"id"`
	Code    string `json:"code"`
	File    string `json:"smiley_url"`
	Emotion string `json:"emotion"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

func (s *ExistingSmiley) Kind() string { return "existingsmiley" }

func (s *ExistingSmiley) index(env *Env, n *Node) {
	env.smilies[strconv.Itoa(s.ID)] = bbcode.Smiley{Code: s.Code, File: s.File, Emotion: s.Emotion, Width: s.Width, Height: s.Height}
}

func (s *ExistingSmiley) forget(env *Env) {
	delete(env.smilies, strconv.Itoa(s.ID))
}

func (s *ExistingSmiley) Export(ctx context.Context, env *Env, n *Node) error { return nil }

func (s *ExistingSmiley) Dump(env *Env, n *Node, w *sqldump.Writer) error { return nil }

type Smiley struct {
	ID      int    `json:"id"`
	Code    string `json:"code"`
	URL     string `json:"url"`
	Emotion string `json:"emotion"`
	File    string `json:"smiley_url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

func (s *Smiley) Kind() string { return "smiley" }

func (s *Smiley) index(env *Env, n *Node) {
	env.smilies[strconv.Itoa(s.ID)] = bbcode.Smiley{Code: s.Code, File: s.File, Emotion: s.Emotion, Width: s.Width, Height: s.Height}
}

func (s *Smiley) forget(env *Env) {
	delete(env.smilies, strconv.Itoa(s.ID))
}

func (s *Smiley) Export(ctx context.Context, env *Env, n *Node) error {
	if !env.Config.ExportSmilies {
		return nil
	}
	env.log().Info("Téléchargement de l'émoticone", "code", s.Code)
	data, err := env.Session.GetImage(ctx, s.URL)
	if err != nil {
		return err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		env.log().Warn("Le format de l'émoticone est inconnu", "code", s.Code, "err", err)
		return nil
	}
	file := fmt.Sprintf("icon_exported_%d.%s", s.ID, format)
	path, err := env.path("images", "smilies", file)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	s.File, s.Width, s.Height = file, cfg.Width, cfg.Height
	s.index(env, n)
	return nil
}

func (s *Smiley) Dump(env *Env, n *Node, w *sqldump.Writer) error {
	if s.File == "" {
		// not downloaded, posts show its code
		return nil
	}
	order := env.smileyOrder.Next()
	return w.Insert("smilies", sqldump.Row{
		"code":               s.Code,
		"emotion":            s.Emotion,
		"smiley_url":         s.File,
		"smiley_width":       s.Width,
		"smiley_height":      s.Height,
		"smiley_order":       order,
		"display_on_posting": 0,
	})
}
