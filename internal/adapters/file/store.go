package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/tree"
	"gopkg.in/yaml.v3"
)

// Format selects the snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Store implements ports.SnapshotStore using the local filesystem.
// It stores one snapshot file per owner in a configured directory.
type Store struct {
	BasePath string
	format   Format
}

// Option configures the Store.
type Option func(*Store)

// WithFormat selects the encoding of snapshot files. JSON by default.
func WithFormat(format Format) Option {
	return func(s *Store) {
		if format == FormatJSON || format == FormatYAML {
			s.format = format
		}
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".bindery/snapshots".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".bindery", "snapshots")
	}
	s := &Store{BasePath: basePath, format: FormatJSON}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ext() string {
	return "." + string(s.format)
}

func (s *Store) path(ownerID string) (string, error) {
	if ownerID == "" || ownerID == "." || ownerID == ".." || strings.ContainsAny(ownerID, `/\`) {
		return "", fmt.Errorf("invalid owner id %q", ownerID)
	}
	return filepath.Join(s.BasePath, ownerID+s.ext()), nil
}

func (s *Store) encode(root *tree.Object) ([]byte, error) {
	if s.format == FormatYAML {
		return yaml.Marshal(root)
	}
	return json.MarshalIndent(root, "", "  ")
}

func (s *Store) decode(data []byte) (*tree.Object, error) {
	if s.format == FormatYAML {
		root := tree.NewObject()
		if err := yaml.Unmarshal(data, root); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
		}
		return root, nil
	}
	v, err := tree.DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	root, ok := v.(*tree.Object)
	if !ok {
		return nil, domain.ErrInvalidSnapshot
	}
	return root, nil
}

// Save persists the snapshot atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, ownerID string, root *tree.Object) error {
	if root == nil {
		return domain.ErrInvalidSnapshot
	}
	destPath, err := s.path(ownerID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure snapshot directory: %w", err)
	}

	data, err := s.encode(root)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+ownerID+"-*"+s.ext())
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing snapshot for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot of ownerID.
func (s *Store) Load(ctx context.Context, ownerID string) (*tree.Object, error) {
	filePath, err := s.path(ownerID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrContextNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	root, err := s.decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %q: %w", ownerID, err)
	}
	return root, nil
}

// Delete removes the snapshot file.
func (s *Store) Delete(ctx context.Context, ownerID string) error {
	filePath, err := s.path(ownerID)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot file: %w", err)
	}
	return nil
}

// List returns the owner ids with a snapshot file, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	ext := s.ext()
	owners := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		owners = append(owners, strings.TrimSuffix(name, ext))
	}
	sort.Strings(owners)
	return owners, nil
}
