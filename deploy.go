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

	"github.com/otiai10/copy"
	"github.com/rs/zerolog"
)

// gitRunner runs one git command in dir and returns its combined output.
type gitRunner interface {
	Git(ctx context.Context, dir string, args ...string) (string, error)
}

type execGit struct{}

func (execGit) Git(ctx context.Context, dir string, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("git %v: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(out.String()))
	}
	return out.String(), nil
}

// publisher pushes a built site to a branch of a git repository, replacing
// whatever the branch held before.
type publisher struct {
	conf DeployConf
	git  gitRunner
	log  zerolog.Logger
}

func newPublisher(conf DeployConf, git gitRunner, log zerolog.Logger) *publisher {
	return &publisher{conf: conf, git: git, log: log}
}

func (p *publisher) Publish(ctx context.Context) error {
	if p.conf.Repo == "" {
		return ErrNoDeployRepo
	}
	if _, err := os.Stat(p.conf.Base); err != nil {
		return fmt.Errorf("deploy base %v: %w", p.conf.Base, err)
	}

	work, err := os.MkdirTemp("", "pages11-deploy-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(work)

	if err := p.checkout(ctx, work); err != nil {
		return err
	}
	if err := replaceTree(p.conf.Base, work); err != nil {
		return err
	}

	if _, err := p.git.Git(ctx, work, "add", "-A"); err != nil {
		return err
	}
	status, err := p.git.Git(ctx, work, "status", "--porcelain")
	if err != nil {
		return err
	}
	if strings.TrimSpace(status) == "" {
		p.log.Info().Str("branch", p.conf.Branch).Msg("nothing to deploy")
		return nil
	}
	if _, err := p.git.Git(ctx, work, "commit", "-m", p.conf.Message); err != nil {
		return err
	}
	if _, err := p.git.Git(ctx, work, "push", "origin", p.conf.Branch); err != nil {
		return err
	}

	p.log.Info().Str("repo", p.conf.Repo).Str("branch", p.conf.Branch).Msg("deployed")
	return nil
}

// checkout clones the deploy branch into dir, or starts it as an orphan
// branch when the repository does not have it yet.
func (p *publisher) checkout(ctx context.Context, dir string) error {
	_, err := p.git.Git(ctx, dir, "clone", "--depth", "1", "--branch", p.conf.Branch, "--single-branch", p.conf.Repo, ".")
	if err == nil {
		return nil
	}
	p.log.Info().Err(err).Str("branch", p.conf.Branch).Msg("branch not cloned, starting a new one")

	steps := [][]string{
		{"init"},
		{"remote", "add", "origin", p.conf.Repo},
		{"checkout", "--orphan", p.conf.Branch},
	}
	for _, args := range steps {
		if _, err := p.git.Git(ctx, dir, args...); err != nil {
			return err
		}
	}
	return nil
}

// replaceTree empties work except for its .git directory and copies base
// into it.
func replaceTree(base, work string) error {
	entries, err := os.ReadDir(work)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(work, e.Name())); err != nil {
			return err
		}
	}
	return copy.Copy(base, work)
}
