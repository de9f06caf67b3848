package cmd

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ardnew/bloc/log"
)

// watchDebounce coalesces the bursts of events editors produce on save.
const watchDebounce = 100 * time.Millisecond

// watch renders sources, then renders again after any template or data file
// changes, until ctx is done. Render failures are logged and do not stop
// the loop.
func (r *Render) watch(ctx context.Context, sources []source) error {
	files := make(map[string]struct{})

	for _, src := range sources {
		if src.path == "" {
			return ErrWatch.Wrap(errors.New("standard input cannot be watched"))
		}

		files[src.path] = struct{}{}
	}

	for _, path := range r.Data.Data {
		resolved, err := resolvePath(path)
		if err != nil {
			return ErrWatch.Wrap(err).With(slog.String("file", path))
		}

		files[resolved] = struct{}{}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return ErrWatch.Wrap(err)
	}
	defer w.Close()

	// Directories are watched rather than files so that editors replacing
	// a file by rename are still seen.
	dirs := make(map[string]struct{})

	for path := range files {
		dir := filepath.Dir(path)
		if _, ok := dirs[dir]; ok {
			continue
		}

		if err := w.Add(dir); err != nil {
			return ErrWatch.Wrap(err).With(slog.String("dir", dir))
		}

		dirs[dir] = struct{}{}
	}

	rerender := func() {
		if err := r.render(ctx, sources); err != nil {
			log.ErrorContext(ctx, "render failed", slog.Any("error", err))
		}
	}

	rerender()

	log.InfoContext(ctx, "watching",
		slog.Int("files", len(files)),
		slog.Int("dirs", len(dirs)),
	)

	timer := time.NewTimer(watchDebounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if _, ok := files[filepath.Clean(event.Name)]; !ok {
				continue
			}

			log.DebugContext(ctx, "input changed",
				slog.String("file", event.Name),
				slog.String("op", event.Op.String()),
			)

			timer.Reset(watchDebounce)

		case <-timer.C:
			rerender()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			log.WarnContext(ctx, "watch error", slog.Any("error", err))
		}
	}
}

func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return filepath.EvalSymlinks(abs)
}
