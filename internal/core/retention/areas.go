package retention

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/core/ports"
)

// Areas routes absolute paths to the file area that owns them.
type Areas struct {
	Uploads ports.FileArea
	Audio   ports.FileArea
}

func (a Areas) Remove(ctx context.Context, path string) error {
	switch {
	case a.Audio != nil && a.Audio.Contains(path):
		return a.Audio.Remove(ctx, path)
	case a.Uploads != nil && a.Uploads.Contains(path):
		return a.Uploads.Remove(ctx, path)
	default:
		return domain.WrapError(domain.ErrInvalidInput, "remove path", fmt.Errorf("%s is not inside a managed area", path))
	}
}

// RemoveAll deletes paths concurrently. Every path is attempted regardless of other
// failures; files already gone are not counted and not treated as failures.
func (a Areas) RemoveAll(ctx context.Context, paths []string) (int, error) {
	var (
		removed atomic.Int64
		g       errgroup.Group
	)
	errs := make([]error, len(paths))
	for i, path := range paths {
		g.Go(func() error {
			err := a.Remove(ctx, path)
			switch {
			case err == nil:
				removed.Add(1)
			case errors.Is(err, fs.ErrNotExist):
			default:
				errs[i] = fmt.Errorf("%s: %w", path, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return int(removed.Load()), domain.WrapError(domain.ErrIOFailure, "remove files", err)
	}
	return int(removed.Load()), nil
}
