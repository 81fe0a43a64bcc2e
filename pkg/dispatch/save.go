package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matzehuels/trikot/pkg/errors"
	"github.com/matzehuels/trikot/pkg/invite"
	"github.com/matzehuels/trikot/pkg/render"
)

// FileSaver writes artifacts into Dir under their file name.
type FileSaver struct {
	Dir string
}

// Save writes a and verifies the file on disk has every byte.
func (s *FileSaver) Save(ctx context.Context, a *render.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := a.FileName
	if name == "" {
		name = invite.Answers{}.FileName()
	}
	if err := errors.ValidateFilename(name); err != nil {
		return "", err
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}

	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, ".trikot-*")
	if err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	if _, err := tmp.Write(a.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil || info.Size() != int64(len(a.Data)) {
		return "", ErrSilentNoop
	}
	return path, nil
}
