package models

import (
	"encoding/json"
	"time"
)

// Snapshot is the saved state of an export, the whole node tree.
type Snapshot struct {
	Version int             `json:"version" bson:"version"`
	SavedAt time.Time       `json:"saved_at" bson:"saved_at"`
	Root    json.RawMessage `json:"root" bson:"root"`
}
