// Package modelfs stores local embedding model artifacts on disk, one
// directory per model id.
package modelfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ModelStore = (*Store)(nil)

// PartialSuffix marks an artifact that is still being downloaded.
const PartialSuffix = ".part"

// Store is a filesystem implementation of driven.ModelStore.
type Store struct {
	root string
}

// DefaultRoot returns <user config dir>/chatrag/models.
func DefaultRoot() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting config directory: %w", err)
	}
	return filepath.Join(base, "chatrag", "models"), nil
}

// NewStore creates a model store rooted at root.
// If root is empty, DefaultRoot is used.
func NewStore(root string) (*Store, error) {
	if root == "" {
		dir, err := DefaultRoot()
		if err != nil {
			return nil, err
		}
		root = dir
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("creating models directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the directory holding all model directories.
func (s *Store) Root() string {
	return s.root
}

// ArtifactPath returns the final path of a model file.
func (s *Store) ArtifactPath(modelID, fileName string) string {
	return filepath.Join(s.root, modelID, fileName)
}

func (s *Store) partialPath(modelID, fileName string) string {
	return s.ArtifactPath(modelID, fileName) + PartialSuffix
}

// Stat returns the size of a final artifact and whether it exists.
func (s *Store) Stat(modelID, fileName string) (int64, bool, error) {
	if err := checkNames(modelID, fileName); err != nil {
		return 0, false, err
	}
	info, err := os.Stat(s.ArtifactPath(modelID, fileName))
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if info.IsDir() {
		return 0, false, fmt.Errorf("%s is a directory", info.Name())
	}
	return info.Size(), true, nil
}

// OpenPartial opens the partial file for appending, truncating it unless
// resume is set. It returns the bytes already present.
func (s *Store) OpenPartial(modelID, fileName string, resume bool) (io.WriteCloser, int64, error) {
	if err := checkNames(modelID, fileName); err != nil {
		return nil, 0, err
	}
	if err := os.MkdirAll(filepath.Join(s.root, modelID), 0700); err != nil {
		return nil, 0, fmt.Errorf("creating model directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if resume {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(s.partialPath(modelID, fileName), flags, 0600)
	if err != nil {
		return nil, 0, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Commit renames the partial file into its final place.
func (s *Store) Commit(modelID, fileName string) error {
	if err := checkNames(modelID, fileName); err != nil {
		return err
	}
	return os.Rename(s.partialPath(modelID, fileName), s.ArtifactPath(modelID, fileName))
}

// DiscardPartial removes the partial file if present.
func (s *Store) DiscardPartial(modelID, fileName string) error {
	if err := checkNames(modelID, fileName); err != nil {
		return err
	}
	err := os.Remove(s.partialPath(modelID, fileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// RemoveModel deletes the model directory including partial files.
func (s *Store) RemoveModel(modelID string) error {
	if err := checkNames(modelID); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.root, modelID))
}

// checkNames rejects names that would escape the model directory.
func checkNames(names ...string) error {
	for _, n := range names {
		if n == "" || n == "." || n == ".." || strings.ContainsAny(n, `/\`) {
			return fmt.Errorf("invalid model path element %q", n)
		}
	}
	return nil
}
