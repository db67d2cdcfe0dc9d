package worker

import (
	"context"

	"github.com/ToolmanP/forumactif-archiver/pkg/sqldump"
)

// Entity is the per-kind behaviour of a Node. The set of kinds is closed,
// see newEntity.
type Entity interface {
	Kind() string
	// Export fetches what the entity needs and adds its children to n. It is
	// called again after a failure until it succeeds once.
	Export(ctx context.Context, env *Env, n *Node) error
	Dump(env *Env, n *Node, w *sqldump.Writer) error
}

// indexer is implemented by entities other nodes look up by key.
type indexer interface {
	index(env *Env, n *Node)
	forget(env *Env)
}

type Node struct {
	Exported bool
	Children []*Node
	Entity   Entity

	parent *Node
}

func NewNode(e Entity) *Node {
	return &Node{Entity: e}
}

func (n *Node) Parent() *Node {
	return n.parent
}

// Add appends child and registers it in the environment's lookup tables.
func (n *Node) Add(env *Env, child *Node) {
	child.parent = n
	n.Children = append(n.Children, child)
	if ix, ok := child.Entity.(indexer); ok {
		ix.index(env, child)
	}
}

// reset drops the children left over by an earlier, failed export.
func (n *Node) reset(env *Env) {
	for _, c := range n.Children {
		c.forget(env)
	}
	n.Children = nil
}

func (n *Node) forget(env *Env) {
	for _, c := range n.Children {
		c.forget(env)
	}
	if ix, ok := n.Entity.(indexer); ok {
		ix.forget(env)
	}
}

// Export runs the entity export once, then the export of every child in
// order. Nodes already exported are not fetched again, so calling Export on a
// reloaded tree resumes where the previous run stopped.
func (n *Node) Export(ctx context.Context, env *Env) error {
	if !n.Exported {
		if err := ctx.Err(); err != nil {
			return err
		}
		n.reset(env)
		if err := n.Entity.Export(ctx, env, n); err != nil {
			return err
		}
		n.Exported = true
	}
	for _, c := range n.Children {
		if err := c.Export(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) Dump(env *Env, w *sqldump.Writer) error {
	if err := n.Entity.Dump(env, n, w); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.Dump(env, w); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits n and its descendants depth first, stopping early when fn
// returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Complete reports whether every node of the tree has been exported.
func (n *Node) Complete() bool {
	return n.Walk(func(n *Node) bool { return n.Exported })
}

// ancestor returns the entity of the closest ancestor of kind T.
func ancestor[T Entity](n *Node) (T, bool) {
	for p := n.parent; p != nil; p = p.parent {
		if e, ok := p.Entity.(T); ok {
			return e, true
		}
	}
	var zero T
	return zero, false
}

// descendants collects the entities of kind T below n, in tree order.
func descendants[T Entity](n *Node) []T {
	var out []T
	for _, c := range n.Children {
		c.Walk(func(d *Node) bool {
			if e, ok := d.Entity.(T); ok {
				out = append(out, e)
			}
			return true
		})
	}
	return out
}

// Index registers every node of a tree loaded from a snapshot in env.
func Index(env *Env, root *Node) {
	env.clear()
	var visit func(parent, n *Node)
	visit = func(parent, n *Node) {
		n.parent = parent
		if ix, ok := n.Entity.(indexer); ok {
			ix.index(env, n)
		}
		for _, c := range n.Children {
			visit(n, c)
		}
	}
	visit(nil, root)
}
