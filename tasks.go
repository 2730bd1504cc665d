package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bep/debounce"
	"github.com/pkg/browser"
	"github.com/radovskyb/watcher"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type taskFunc func(ctx context.Context) error

// taskRunner runs named tasks. An alias runs its members in order and
// stops at the first failure.
type taskRunner struct {
	tasks   map[string]taskFunc
	aliases map[string][]string
	log     zerolog.Logger
}

func newTaskRunner(log zerolog.Logger) *taskRunner {
	return &taskRunner{
		tasks:   make(map[string]taskFunc),
		aliases: make(map[string][]string),
		log:     log,
	}
}

func (r *taskRunner) register(name string, fn taskFunc) {
	r.tasks[name] = fn
}

func (r *taskRunner) alias(name string, members ...string) {
	r.aliases[name] = members
}

func (r *taskRunner) Run(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := r.run(ctx, name, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *taskRunner) run(ctx context.Context, name string, stack []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if slices.Contains(stack, name) {
		return fmt.Errorf("%w: %v", ErrTaskCycle, strings.Join(append(stack, name), " -> "))
	}

	if members, ok := r.aliases[name]; ok {
		stack = append(stack, name)
		for _, m := range members {
			if err := r.run(ctx, m, stack); err != nil {
				return err
			}
		}
		return nil
	}

	fn, ok := r.tasks[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}

	start := time.Now()
	r.log.Info().Str("task", name).Msg("running")
	if err := fn(ctx); err != nil {
		return fmt.Errorf("task %v: %w", name, err)
	}
	r.log.Debug().Str("task", name).Dur("took", time.Since(start)).Msg("done")
	return nil
}

type pipeline struct {
	conf   *SiteConf
	drafts bool
	open   bool
	log    zerolog.Logger

	hub     *reloadHub
	git     gitRunner
	openURL func(url string) error
	// Background work started by tasks, e.g. the preview server.
	bg *errgroup.Group

	runner *taskRunner
}

type pipelineOptions struct {
	drafts bool
	open   bool
}

func newPipeline(conf *SiteConf, opts pipelineOptions, log zerolog.Logger) *pipeline {
	p := &pipeline{
		conf:    conf,
		drafts:  opts.drafts,
		open:    opts.open,
		log:     log,
		hub:     newReloadHub(log),
		git:     execGit{},
		openURL: browser.OpenURL,
		runner:  newTaskRunner(log),
	}

	r := p.runner
	r.register("clean", p.clean)
	r.register("pages", p.pages)
	for _, c := range conf.Collections {
		r.register("pages:"+c.Name, p.pagesOf(c.Name))
	}
	r.register("styles", p.styles)
	r.register("copy", p.copyAssets)
	r.register("connect", p.connect)
	r.register("open", p.openBrowser)
	r.register("watch", p.watch)
	r.register("gh-pages", p.publish)

	r.alias("build", "clean", "pages", "styles", "copy")
	r.alias("deploy", "build", "gh-pages")
	r.alias("server", "build", "connect", "open", "watch")
	r.alias("default", "server")

	return p
}

// Run runs the named tasks and then waits for background work they
// started.
func (p *pipeline) Run(ctx context.Context, names ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	p.bg = g
	g.Go(func() error {
		return p.runner.Run(ctx, names...)
	})
	return g.Wait()
}

func (p *pipeline) clean(context.Context) error {
	return Clean(p.conf, p.log)
}

func (p *pipeline) pages(context.Context) error {
	site, err := ReadSite(p.conf, p.drafts, p.log)
	if err != nil {
		return err
	}
	return site.RenderAll()
}

func (p *pipeline) pagesOf(name string) taskFunc {
	return func(context.Context) error {
		site, err := ReadSite(p.conf, p.drafts, p.log)
		if err != nil {
			return err
		}
		return site.RenderCollection(name)
	}
}

func (p *pipeline) styles(ctx context.Context) error {
	return newStyleCompiler(p.conf.Styles, p.log).Compile(ctx)
}

func (p *pipeline) copyAssets(context.Context) error {
	return CopyStaticFiles(p.conf, p.log)
}

func (p *pipeline) connect(ctx context.Context) error {
	srv := newPreviewServer(p.conf.Server, p.hub, p.log)
	p.bg.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	return nil
}

func (p *pipeline) openBrowser(context.Context) error {
	if !p.open {
		return nil
	}
	if err := p.openURL(p.conf.Server.OpenURL); err != nil {
		// Not being able to open a browser should not stop the server.
		p.log.Warn().Err(err).Str("url", p.conf.Server.OpenURL).Msg("could not open browser")
	}
	return nil
}

// watch reruns tasks when sources change and reloads open pages when the
// output changes. It returns when ctx is cancelled.
func (p *pipeline) watch(ctx context.Context) error {
	rules := watchRules(p.conf)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watchDirs(ctx, ruleDirs(rules), watchInterval, p.log, func(ev watcher.Event) {
			tasks := affectedTasks(rules, ev.Path)
			if len(tasks) == 0 {
				return
			}
			p.log.Info().Str("path", ev.Path).Strs("tasks", tasks).Msg("changed")
			if err := p.runner.Run(ctx, tasks...); err != nil {
				p.log.Error().Err(err).Msg("rebuild failed")
			}
		})
	})

	if p.conf.Server.LiveReloadEnabled() {
		reload := debounce.New(reloadDebounce)
		g.Go(func() error {
			return watchDirs(ctx, []string{p.conf.OutDir}, watchInterval, p.log, func(watcher.Event) {
				reload(p.hub.Broadcast)
			})
		})
	}

	return g.Wait()
}

func (p *pipeline) publish(ctx context.Context) error {
	return newPublisher(p.conf.Deploy, p.git, p.log).Publish(ctx)
}
