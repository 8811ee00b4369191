package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/internal/store"
)

// Store persists the cart snapshot as a single JSON file. Writes go to a
// temporary file in the same directory and are renamed into place, so a
// reader never sees a partial snapshot.
type Store struct {
	path string
}

// New creates a file-backed cart store at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the snapshot. A missing file yields an empty cart.
func (s *Store) Load(_ context.Context) (domain.CartState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.EmptyCart(), nil
		}
		return domain.CartState{}, fmt.Errorf("read cart file: %w", err)
	}
	return store.Decode(data)
}

// Save atomically replaces the snapshot file.
func (s *Store) Save(ctx context.Context, state domain.CartState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := store.Encode(state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cart dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cart-*.json")
	if err != nil {
		return fmt.Errorf("create temp cart file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp cart file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cart file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename cart file: %w", err)
	}
	return nil
}
