package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
)

// styleCompiler writes the stylesheets under src to dest: plain CSS is
// minified, Sass entry points are handed to the sass binary.
type styleCompiler struct {
	src, dest string
	sass      string
	min       *minify.M
	log       zerolog.Logger
}

func newStyleCompiler(conf StylesConf, log zerolog.Logger) *styleCompiler {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	return &styleCompiler{
		src:  conf.Src,
		dest: conf.Dest,
		sass: conf.Sass,
		min:  m,
		log:  log,
	}
}

func (sc *styleCompiler) Compile(ctx context.Context) error {
	if _, err := os.Stat(sc.src); errors.Is(err, fs.ErrNotExist) {
		sc.log.Warn().Str("dir", sc.src).Msg("no styles directory")
		return nil
	}

	var sassFiles []string
	err := filepath.WalkDir(sc.src, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		switch filepath.Ext(path) {
		case ".css":
			return sc.minifyFile(path)
		case ".scss", ".sass":
			// Partials are only compiled through their importers.
			if !strings.HasPrefix(d.Name(), "_") {
				sassFiles = append(sassFiles, path)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(sassFiles) == 0 {
		return nil
	}
	sassBin, err := exec.LookPath(sc.sass)
	if err != nil {
		sc.log.Warn().Str("sass", sc.sass).Int("files", len(sassFiles)).Msg("sass not found, skipping sass files")
		return nil
	}
	for _, f := range sassFiles {
		if err := sc.compileSass(ctx, sassBin, f); err != nil {
			return err
		}
	}
	return nil
}

func (sc *styleCompiler) outPath(path string) (string, error) {
	rel, err := filepath.Rel(sc.src, path)
	if err != nil {
		return "", err
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ".css"
	return filepath.Join(sc.dest, rel), nil
}

func (sc *styleCompiler) minifyFile(path string) error {
	out, err := sc.outPath(path)
	if err != nil {
		return err
	}
	in, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var b bytes.Buffer
	if err := sc.min.Minify("text/css", &b, bytes.NewReader(in)); err != nil {
		return fmt.Errorf("minify %v: %w", path, err)
	}
	sc.log.Debug().Str("src", path).Str("dest", out).Msg("minified")
	return writeFile(out, b.Bytes())
}

func (sc *styleCompiler) compileSass(ctx context.Context, sassBin, path string) error {
	out, err := sc.outPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), os.FileMode(0775)); err != nil {
		return err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, sassBin, "--no-source-map", path, out)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sass %v: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	sc.log.Debug().Str("src", path).Str("dest", out).Msg("compiled")
	return nil
}
