package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ToolmanP/forumactif-archiver/pkg/models"
)

// SnapshotVersion changes whenever saved trees can no longer be read.
const SnapshotVersion = 1

func newEntity(kind string) (Entity, error) {
	switch kind {
	case "bb":
		return &BB{}, nil
	case "smilies":
		return &Smilies{}, nil
	case "smiliespage":
		return &SmiliesPage{}, nil
	case "smiley":
		return &Smiley{}, nil
	case "existingsmiley":
		return &ExistingSmiley{}, nil
	case "users":
		return &Users{}, nil
	case "userspage":
		return &UsersPage{}, nil
	case "user":
		return &User{}, nil
	case "anonymous":
		return &AnonymousUser{}, nil
	case "groups":
		return &Groups{}, nil
	case "group":
		return &Group{}, nil
	case "grouppage":
		return &GroupPage{}, nil
	case "forums":
		return &Forums{}, nil
	case "forum":
		return &Forum{}, nil
	case "forumpage":
		return &ForumPage{}, nil
	case "topic":
		return &Topic{}, nil
	case "topicpage":
		return &TopicPage{}, nil
	case "post":
		return &Post{}, nil
	}
	return nil, fmt.Errorf("unknown node kind %q", kind)
}

type nodeJSON struct {
	Kind     string          `json:"kind"`
	Exported bool            `json:"exported"`
	Data     json.RawMessage `json:"data"`
	Children []*Node         `json:"children,omitempty"`
}

func (n *Node) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(n.Entity)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nodeJSON{
		Kind:     n.Entity.Kind(),
		Exported: n.Exported,
		Data:     data,
		Children: n.Children,
	})
}

func (n *Node) UnmarshalJSON(b []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e, err := newEntity(raw.Kind)
	if err != nil {
		return err
	}
	if len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, e); err != nil {
			return fmt.Errorf("%s node: %w", raw.Kind, err)
		}
	}
	n.Entity = e
	n.Exported = raw.Exported
	n.Children = raw.Children
	for _, c := range n.Children {
		c.parent = n
	}
	return nil
}

// Encode serializes the whole tree.
func Encode(root *Node, now time.Time) ([]byte, error) {
	data, err := json.Marshal(root)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.Snapshot{
		Version: SnapshotVersion,
		SavedAt: now,
		Root:    data,
	})
}

func Decode(b []byte) (*Node, *models.Snapshot, error) {
	var s models.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, nil, fmt.Errorf("corrupted snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, nil, fmt.Errorf("snapshot version %d, expected %d", s.Version, SnapshotVersion)
	}
	root := &Node{}
	if err := json.Unmarshal(s.Root, root); err != nil {
		return nil, nil, fmt.Errorf("corrupted snapshot: %w", err)
	}
	return root, &s, nil
}
