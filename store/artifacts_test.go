package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gitlab.com/browserstep/mock"
	"gitlab.com/browserstep/store"
)

func TestCaptureFailureCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "errors")
	a := store.NewArtifacts(dir)
	sess := mock.MakeMockSession(`<html><body></body></html>`)

	path, err := a.CaptureFailure(context.Background(), sess)
	if err != nil {
		t.Fatalf("error capturing: %s\n", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("expected screenshot in %s got %s\n", dir, path)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "screenshot-failed-") || !strings.HasSuffix(base, ".png") {
		t.Fatalf("unexpected file name %s\n", base)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("screenshot missing: %s\n", err)
	}
}

func TestScreenshotPathsAreUnique(t *testing.T) {
	a := store.NewArtifacts(t.TempDir())
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		p := a.ScreenshotPath()
		if _, dup := seen[p]; dup {
			t.Fatalf("duplicate path %s\n", p)
		}
		seen[p] = struct{}{}
	}
}

type failingShooter struct{}

func (failingShooter) Screenshot(context.Context, string) error {
	return errors.New("target closed")
}

func TestCaptureFailureError(t *testing.T) {
	a := store.NewArtifacts(t.TempDir())
	if _, err := a.CaptureFailure(context.Background(), failingShooter{}); err == nil {
		t.Fatalf("expected screenshot error to be returned")
	}
}
