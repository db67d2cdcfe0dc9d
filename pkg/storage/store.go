package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ToolmanP/forumactif-archiver/pkg/utils"
)

// ErrNoState is returned by Load when nothing was saved yet.
var ErrNoState = errors.New("no saved state")

// Store keeps the serialized export tree between runs.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	Reset(ctx context.Context) error
	Close() error
}

func Open(ctx context.Context, c utils.StateConfig) (Store, error) {
	switch c.Backend {
	case "", "file":
		return NewFileStore(c.Path), nil
	case "redis":
		return NewRedisStore(c.Redis, c.Key)
	case "mongo":
		return NewMongoStore(ctx, c.Mongo, c.Key)
	case "sqlite":
		return NewSQLiteStore(ctx, c.Path, c.Key)
	}
	return nil, fmt.Errorf("unknown state backend %q", c.Backend)
}
