package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/radovskyb/watcher"
	"github.com/rs/zerolog"
)

const (
	watchInterval  = 200 * time.Millisecond
	reloadDebounce = 150 * time.Millisecond
)

// A watchRule names the tasks to rerun when something below one of its
// directories changes.
type watchRule struct {
	dirs  []string
	tasks []string
}

func watchRules(conf *SiteConf) []watchRule {
	var rules []watchRule

	shared := watchRule{tasks: []string{"pages"}}
	for _, c := range conf.Collections {
		rules = append(rules, watchRule{dirs: []string{c.Src}, tasks: []string{"pages:" + c.Name}})
		shared.dirs = appendDir(shared.dirs, filepath.Dir(c.Layout))
		shared.dirs = appendDir(shared.dirs, c.PageSrc)
		if c.Pagination.ListPage != "" {
			shared.dirs = appendDir(shared.dirs, filepath.Dir(c.Pagination.ListPage))
		}
	}
	rules = append(rules, shared)

	assets := watchRule{tasks: []string{"copy"}}
	for _, p := range conf.Copy.Patterns {
		root, _, _ := strings.Cut(p, "/")
		if !strings.ContainsAny(root, "*?[{") {
			assets.dirs = appendDir(assets.dirs, filepath.Join(conf.Copy.Cwd, root))
		}
	}
	rules = append(rules, assets)

	rules = append(rules, watchRule{dirs: []string{conf.Styles.Src}, tasks: []string{"styles"}})
	return rules
}

func appendDir(dirs []string, dir string) []string {
	if dir == "" || dir == "." || slices.Contains(dirs, dir) {
		return dirs
	}
	return append(dirs, dir)
}

// affectedTasks returns the tasks to run for a change at path, in rule
// order. A full "pages" run makes the single-collection runs redundant.
func affectedTasks(rules []watchRule, path string) []string {
	var tasks []string
	for _, r := range rules {
		for _, dir := range r.dirs {
			if !isBelow(dir, path) {
				continue
			}
			for _, t := range r.tasks {
				if !slices.Contains(tasks, t) {
					tasks = append(tasks, t)
				}
			}
			break
		}
	}

	if slices.Contains(tasks, "pages") {
		tasks = slices.DeleteFunc(tasks, func(t string) bool { return strings.HasPrefix(t, "pages:") })
	}
	return tasks
}

func isBelow(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func ruleDirs(rules []watchRule) []string {
	var dirs []string
	for _, r := range rules {
		for _, d := range r.dirs {
			dirs = appendDir(dirs, d)
		}
	}
	return dirs
}

// watchDirs polls dirs recursively and calls onEvent for every change until
// ctx is cancelled. Directories that do not exist are skipped.
//
// Events are not filtered by kind: a new file in a polling cycle may only
// show up as a write on its parent directory.
func watchDirs(ctx context.Context, dirs []string, interval time.Duration, log zerolog.Logger, onEvent func(watcher.Event)) error {
	if interval < time.Millisecond {
		return fmt.Errorf("watch interval %v too short", interval)
	}

	w := watcher.New()
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write, watcher.Create, watcher.Remove, watcher.Rename, watcher.Move)

	watched := 0
	for _, dir := range dirs {
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := w.AddRecursive(dir); err != nil {
			return err
		}
		log.Info().Str("dir", dir).Msg("watching for changes")
		watched++
	}
	if watched == 0 {
		log.Warn().Strs("dirs", dirs).Msg("nothing to watch")
		<-ctx.Done()
		return nil
	}

	stopped := make(chan struct{})
	go func() {
		for {
			select {
			case ev := <-w.Event:
				onEvent(ev)
			case err := <-w.Error:
				log.Warn().Err(err).Msg("watcher")
			case <-w.Closed:
				return
			case <-stopped:
				return
			}
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		w.Wait()
		w.Close()
	}()

	err := w.Start(interval)
	close(stopped)
	if err != nil {
		w.Close()
	}
	return err
}
