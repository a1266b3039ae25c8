// Package hotreload watches a directory of markup files and feeds freshly
// compiled templates into a running virtual DOM as patches. The runtime swaps
// the skeleton under the same name and re-renders every component whose last
// render used it, so an edited file shows up without restarting the app.
package hotreload

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/gowade/loom/markup"
	"github.com/gowade/loom/vdom"
)

const markupExt = ".html"

// Patcher receives recompiled templates. *vdom.Dom satisfies it.
type Patcher interface {
	ApplyTemplatePatch(t *vdom.Template)
}

// Watcher recompiles markup files under one directory as they change.
type Watcher struct {
	dir    string
	prefix string
	target Patcher
	fs     *fsnotify.Watcher
}

// New builds a watcher over dir. Template names are prefix plus the file
// name without its extension, so card.html with prefix "app." patches the
// template "app.card".
func New(dir, prefix string, target Patcher) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, errors.Wrapf(err, "watching %s", dir)
	}
	return &Watcher{dir: dir, prefix: prefix, target: target, fs: fs}, nil
}

// CompileAll compiles every markup file currently in the directory and
// patches each into the target. Called before the app mounts, it seeds the
// runtime with file-defined templates.
func (w *Watcher) CompileAll() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return errors.Wrapf(err, "listing %s", w.dir)
	}
	var errs *multierror.Error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), markupExt) {
			continue
		}
		if err := w.compile(filepath.Join(w.dir, e.Name())); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// Run processes file events until ctx ends. A file that fails to compile is
// reported and skipped; the previous template stays live, so a half-saved
// edit never takes down the app.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, markupExt) {
				continue
			}
			if err := w.compile(event.Name); err != nil {
				glog.Errorf("hot reload: %v", err)
				continue
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			glog.Errorf("hot reload watcher: %v", err)
		}
	}
}

func (w *Watcher) compile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	name := w.prefix + strings.TrimSuffix(filepath.Base(path), markupExt)
	tpl, err := markup.Compile(name, f)
	if err != nil {
		return err
	}
	w.target.ApplyTemplatePatch(tpl)
	glog.V(1).Infof("recompiled %s as template %q", path, name)
	return nil
}
