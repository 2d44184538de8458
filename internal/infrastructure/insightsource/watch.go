package insightsource

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/placescope/placescope/internal/infrastructure/monitoring/logging"
	"github.com/placescope/placescope/pkg/errors"
)

// Watch blocks until ctx is done, invoking onChange with the original ref
// whenever a file-backed source is rewritten on disk.  URL refs are not
// watchable; callers re-fetch those on their refresh interval.  Watch
// returns nil immediately when neither source is file-backed.
//
// Parent directories are watched rather than the files themselves so that
// editors replacing the file via rename are still observed.
func (s *Source) Watch(ctx context.Context, onChange func(ref string)) error {
	refs := make(map[string]string)
	for _, ref := range []string{s.cfg.Insights, s.cfg.Districts} {
		if ref == "" || !isFileRef(ref) {
			continue
		}
		abs, err := filepath.Abs(ref)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "resolve source path")
		}
		refs[abs] = ref
	}
	if len(refs) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "create file watcher")
	}
	defer func() { _ = watcher.Close() }()

	dirs := make(map[string]struct{})
	for abs := range refs {
		dir := filepath.Dir(abs)
		if _, seen := dirs[dir]; seen {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "watch source directory")
		}
		dirs[dir] = struct{}{}
	}
	s.log.Info("watching file sources for changes", logging.Int("files", len(refs)))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}
			ref, watched := refs[abs]
			if !watched {
				continue
			}
			s.log.Info("source file changed", logging.String("path", ref))
			onChange(ref)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("file watcher error", logging.Err(err))
		}
	}
}
