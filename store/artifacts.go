package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Screenshotter is anything that can write the current page to a file
type Screenshotter interface {
	Screenshot(ctx context.Context, path string) error
}

// Artifacts stores failure screenshots, the only output a run persists
type Artifacts struct {
	dir string
}

// NewArtifacts rooted at dir. The directory is created on first use.
func NewArtifacts(dir string) *Artifacts {
	return &Artifacts{dir: dir}
}

// Dir screenshots are written to
func (a *Artifacts) Dir() string {
	return a.dir
}

// Init creates the directory if it does not exist yet
func (a *Artifacts) Init() error {
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return errors.Wrapf(err, "creating artifact dir %s", a.dir)
	}
	return nil
}

// ScreenshotPath returns a new randomized file name in the artifact dir
func (a *Artifacts) ScreenshotPath() string {
	return filepath.Join(a.dir, fmt.Sprintf("screenshot-failed-%s.png", uuid.New().String()))
}

// CaptureFailure takes a screenshot with s and returns where it was written
func (a *Artifacts) CaptureFailure(ctx context.Context, s Screenshotter) (string, error) {
	if err := a.Init(); err != nil {
		return "", err
	}
	path := a.ScreenshotPath()
	if err := s.Screenshot(ctx, path); err != nil {
		return "", errors.Wrap(err, "capturing screenshot")
	}
	log.Info().Str("path", path).Msg("screenshot for failure saved")
	return path, nil
}
