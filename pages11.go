// Package main implements pages11, a static site builder: markdown posts
// and pages rendered through html/template layouts, paginated post lists,
// an atom feed, asset copying and stylesheet compilation, a live-reloading
// preview server and deployment to a git branch.
//
// Run it next to a pages11.yaml (see example/). All keys are optional:
//
//	pages11 build      clean, pages, styles, copy
//	pages11 deploy     build, then push the output to the deploy branch
//	pages11            build, serve on :5455, open a browser, watch
//
// Code blocks come out as <pre><code class="language-X"> with CRLF line
// endings for the in-browser highlighter. Typescript blocks are followed by
// an xp-code-play widget.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	flags := pflag.NewFlagSet("pages11", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintln(stderr, "Usage: pages11 [flags] [task...]")
		fmt.Fprintln(stderr, "\nTasks: build, deploy, server (default), clean, pages, pages:NAME, styles, copy, connect, open, watch, gh-pages")
		fmt.Fprintln(stderr, "\nFlags:")
		flags.PrintDefaults()
	}
	confPath := flags.StringP("config", "c", "pages11.yaml", "Path to the site configuration file")
	drafts := flags.Bool("drafts", false, "Include posts with draft: true")
	verbose := flags.BoolP("verbose", "v", false, "Log debug output")
	noOpen := flags.Bool("no-open", false, "Do not open a browser for the server task")
	if err := flags.Parse(args); err != nil {
		return err
	}

	log := newLogger(stderr, *verbose)

	// Error ignored: maxprocs.Set only fails on an invalid GOMAXPROCS, in
	// which case the runtime default applies.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		log.Debug().Msgf(format, args...)
	}))

	// A missing .env is fine.
	_ = godotenv.Load()

	conf, err := readConf(*confPath)
	if err != nil {
		log.Error().Err(err).Str("config", *confPath).Msg("reading configuration")
		return err
	}

	tasks := flags.Args()
	if len(tasks) == 0 {
		tasks = []string{"default"}
	}

	p := newPipeline(conf, pipelineOptions{drafts: *drafts, open: !*noOpen}, log)
	if err := p.Run(ctx, tasks...); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("failed")
		return err
	}
	return nil
}
