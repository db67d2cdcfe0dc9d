package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ToolmanP/forumactif-archiver/pkg/models"
	"github.com/ToolmanP/forumactif-archiver/pkg/sqldump"
	"github.com/ToolmanP/forumactif-archiver/pkg/storage"
	"github.com/ToolmanP/forumactif-archiver/pkg/utils"
)

var ErrIncomplete = errors.New("l'exportation n'est pas terminée, relancez le script avant de générer le fichier SQL")

// Archiver drives the export of the whole forum and keeps its state in a
// storage.Store between runs.
type Archiver struct {
	env   *Env
	store storage.Store
	root  *Node
}

func NewArchiver(env *Env, store storage.Store) *Archiver {
	return &Archiver{env: env, store: store}
}

func (a *Archiver) Env() *Env {
	return a.env
}

func (a *Archiver) Root() *Node {
	return a.root
}

// Load restores the saved tree, or starts a new one when nothing was saved.
func (a *Archiver) Load(ctx context.Context) error {
	blob, err := a.store.Load(ctx)
	if errors.Is(err, storage.ErrNoState) {
		a.env.log().Info("Aucune sauvegarde, démarrage d'une nouvelle exportation")
		a.root = NewBB()
		Index(a.env, a.root)
		return nil
	}
	if err != nil {
		return err
	}
	root, snap, err := Decode(blob)
	if err != nil {
		return err
	}
	a.env.log().Info("Chargement de la sauvegarde", "saved_at", snap.SavedAt)
	a.root = root
	Index(a.env, a.root)

	stats := a.Status()
	a.env.Progress.SetCurrent(utils.Users, stats.Users.Exported)
	a.env.Progress.SetCurrent(utils.Topics, stats.Topics.Exported)
	a.env.Progress.SetCurrent(utils.Posts, stats.Posts.Exported)
	return nil
}

func (a *Archiver) Save(ctx context.Context) error {
	blob, err := Encode(a.root, a.env.now())
	if err != nil {
		return err
	}
	a.env.log().Debug("Sauvegarde de l'état", "bytes", len(blob))
	return a.store.Save(ctx, blob)
}

// Export resumes the export, then settles the unverified email addresses.
// On failure the partial tree is saved and an *ExportError is returned.
func (a *Archiver) Export(ctx context.Context) error {
	if a.root == nil {
		if err := a.Load(ctx); err != nil {
			return err
		}
	}
	err := a.root.Export(ctx, a.env)
	if err == nil {
		err = ConfirmEmails(ctx, a.env, a.root)
	}
	if err != nil {
		a.env.log().Error("Exportation interrompue", "err", err)
		// the context may be cancelled already
		serr := a.Save(context.WithoutCancel(ctx))
		if serr != nil {
			a.env.log().Error("Impossible de sauvegarder l'état", "err", serr)
		}
		return &ExportError{Err: err, Saved: serr == nil}
	}
	a.env.log().Info("Exportation terminée")
	return a.Save(ctx)
}

// Dump writes the SQL script importing the exported tree into phpBB.
func (a *Archiver) Dump(w io.Writer) error {
	if a.root == nil || !a.root.Complete() {
		return ErrIncomplete
	}
	Index(a.env, a.root)
	a.env.dumpTime = a.env.now().Unix()
	sw := sqldump.NewWriter(w, a.env.Config.TablePrefix)
	if err := a.root.Dump(a.env, sw); err != nil {
		return err
	}
	return sw.Flush()
}

// WriteDump writes the script to phpbb.sql in the output directory and
// returns its path.
func (a *Archiver) WriteDump() (string, error) {
	p, err := a.env.path("phpbb.sql")
	if err != nil {
		return "", err
	}
	f, err := os.Create(p)
	if err != nil {
		return "", err
	}
	if err := a.Dump(f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p, nil
	}
	return abs, nil
}

func (a *Archiver) Status() models.Stats {
	var s models.Stats
	if a.root == nil {
		return s
	}
	s.Complete = a.root.Complete()
	if b, ok := a.root.Entity.(*BB); ok {
		s.Users.Total = b.Users
		s.Topics.Total = b.Topics
		s.Posts.Total = b.Posts
	}
	a.root.Walk(func(n *Node) bool {
		switch e := n.Entity.(type) {
		case *User:
			if n.Exported {
				s.Users.Exported++
				s.Trust[e.Trust]++
			}
		case *Group:
			s.Groups++
		case *Forum:
			s.Forums++
		case *Topic:
			if n.Exported {
				s.Topics.Exported++
			}
		case *Post:
			s.Posts.Exported++
		case *Smiley:
			s.Smilies++
		}
		return true
	})
	return s
}

// Reset forgets the saved state, the next export starts over.
func (a *Archiver) Reset(ctx context.Context) error {
	a.root = nil
	if err := a.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	return nil
}

func (a *Archiver) Close() error {
	return a.store.Close()
}
