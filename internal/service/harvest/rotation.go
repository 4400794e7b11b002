package harvest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// Rotation walks the configured niches across runs, keeping the position in
// a small state file.
type Rotation struct {
	path   string
	niches []string
}

// NewRotation creates a rotation over niches persisted at path.
func NewRotation(path string, niches []string) *Rotation {
	return &Rotation{path: path, niches: niches}
}

// Next returns the niche due now and its index. ErrRotationDone is returned
// once every niche has been processed.
func (r *Rotation) Next() (string, int, error) {
	if len(r.niches) == 0 {
		return "", 0, ErrNoNiches
	}
	idx, err := r.position()
	if err != nil {
		return "", 0, err
	}
	if idx >= len(r.niches) {
		return "", idx, ErrRotationDone
	}
	return r.niches[idx], idx, nil
}

// Advance records that the niche at index is done.
func (r *Rotation) Advance(index int) error {
	return r.write(index + 1)
}

// Reset starts the rotation over.
func (r *Rotation) Reset() error {
	return r.write(0)
}

func (r *Rotation) position() (int, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read niche state: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, nil
	}
	idx, err := strconv.Atoi(text)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("niche state %s: invalid index %q", r.path, text)
	}
	return idx, nil
}

func (r *Rotation) write(idx int) error {
	if err := os.WriteFile(r.path, []byte(strconv.Itoa(idx)), 0o644); err != nil {
		return fmt.Errorf("write niche state: %w", err)
	}
	return nil
}
