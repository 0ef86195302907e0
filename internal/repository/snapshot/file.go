// Package snapshot persists the full watch set: a JSON file store for
// single-node deployments and a Postgres store for shared ones.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
	"go.uber.org/zap"
)

const envelopeVersion = 1

type envelope struct {
	Version int                    `json:"version"`
	Watches map[string]watch.Watch `json:"watches"`
}

type FileStore struct {
	path string
	log  *zap.Logger
}

var _ watch.SnapshotStore = (*FileStore)(nil)

func NewFile(path string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.L()
	}
	return &FileStore{
		path: path,
		log:  log.With(zap.String("component", "snapshot.file"), zap.String("path", path)),
	}
}

func (s *FileStore) Load(_ context.Context) ([]watch.Watch, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Info("no snapshot, starting empty")
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", watch.ErrCorruptSnapshot, err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", watch.ErrCorruptSnapshot, env.Version)
	}

	out := make([]watch.Watch, 0, len(env.Watches))
	for id, w := range env.Watches {
		if w.ID == "" {
			w.ID = id
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })

	s.log.Info("snapshot loaded", zap.Int("watches", len(out)))
	return out, nil
}

func (s *FileStore) Save(_ context.Context, watches []watch.Watch) error {
	env := envelope{Version: envelopeVersion, Watches: make(map[string]watch.Watch, len(watches))}
	for _, w := range watches {
		env.Watches[w.ID] = w
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	// Temp file plus rename keeps a crash from leaving a half-written
	// snapshot behind.
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
