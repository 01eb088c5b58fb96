// Package snapshot implements the domain store interfaces over plain JSON
// documents on disk. Saves go through a write-temp-then-rename cycle so a
// crash mid-write never leaves a partially written snapshot, and unreadable
// documents load as empty rather than failing the caller.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mkruijs/positionbot/internal/domain"
)

const (
	ordersFile    = "orders.json"
	positionsFile = "positions.json"
)

// Store persists the order and position snapshots in a directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates the snapshot directory if needed and returns a Store over it.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create dir %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With(slog.String("component", "snapshot")),
	}, nil
}

// LoadOrders reads the order snapshot. A missing or corrupt file loads as an
// empty snapshot; it will be overwritten on the next successful save.
func (s *Store) LoadOrders(ctx context.Context) (domain.OrderSnapshot, error) {
	var snap domain.OrderSnapshot
	if !s.load(ctx, ordersFile, &snap) {
		return domain.OrderSnapshot{}, nil
	}
	return snap, nil
}

// SaveOrders atomically replaces the order snapshot.
func (s *Store) SaveOrders(ctx context.Context, snap domain.OrderSnapshot) error {
	return s.save(ctx, ordersFile, snap)
}

// LoadPositions reads the position snapshot with the same recovery behavior
// as LoadOrders.
func (s *Store) LoadPositions(ctx context.Context) (domain.PositionSnapshot, error) {
	var snap domain.PositionSnapshot
	if !s.load(ctx, positionsFile, &snap) {
		return domain.PositionSnapshot{}, nil
	}
	return snap, nil
}

// SavePositions atomically replaces the position snapshot.
func (s *Store) SavePositions(ctx context.Context, snap domain.PositionSnapshot) error {
	return s.save(ctx, positionsFile, snap)
}

func (s *Store) load(ctx context.Context, name string, dst any) bool {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WarnContext(ctx, "snapshot unreadable, starting empty",
				slog.String("path", path), slog.String("error", err.Error()))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.WarnContext(ctx, "snapshot corrupt, starting empty",
			slog.String("path", path), slog.String("error", err.Error()))
		return false
	}
	return true
}

func (s *Store) save(ctx context.Context, name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp for %s: %w", name, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: close %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: replace %s: %w", name, err)
	}

	s.logger.DebugContext(ctx, "snapshot saved", slog.String("path", path), slog.Int("bytes", len(data)))
	return nil
}

// Compile-time interface checks.
var (
	_ domain.OrderStore    = (*Store)(nil)
	_ domain.PositionStore = (*Store)(nil)
)
