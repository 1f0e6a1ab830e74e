// Package store is the persistence boundary for tour projects: a key-value
// document store keyed by project identity. The generation and playback core
// never calls it directly; entrypoints use it as the source of truth for
// waypoints, segments, and version records.
package store

import (
	"context"
	"errors"

	"tourloop/types"
)

// ErrNotFound is returned when no project exists under the given ID.
var ErrNotFound = errors.New("project not found")

// Store persists tour projects as whole documents.
type Store interface {
	LoadProject(ctx context.Context, id string) (*types.Project, error)
	SaveProject(ctx context.Context, project *types.Project) error
}
