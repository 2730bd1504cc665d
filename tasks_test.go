package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingRunner(calls *[]string, names ...string) *taskRunner {
	r := newTaskRunner(zerolog.Nop())
	for _, n := range names {
		r.register(n, func(context.Context) error {
			*calls = append(*calls, n)
			return nil
		})
	}
	return r
}

func TestTaskRunnerAliases(t *testing.T) {
	var calls []string
	r := recordingRunner(&calls, "clean", "pages", "styles", "copy", "connect", "open", "watch", "gh-pages")
	r.alias("build", "clean", "pages", "styles", "copy")
	r.alias("deploy", "build", "gh-pages")
	r.alias("server", "build", "connect", "open", "watch")
	r.alias("default", "server")

	tests := []struct {
		task string
		want []string
	}{
		{"build", []string{"clean", "pages", "styles", "copy"}},
		{"deploy", []string{"clean", "pages", "styles", "copy", "gh-pages"}},
		{"server", []string{"clean", "pages", "styles", "copy", "connect", "open", "watch"}},
		{"default", []string{"clean", "pages", "styles", "copy", "connect", "open", "watch"}},
		{"copy", []string{"copy"}},
	}

	for _, tt := range tests {
		t.Run(tt.task, func(t *testing.T) {
			calls = nil
			require.NoError(t, r.Run(context.Background(), tt.task))
			assert.Equal(t, tt.want, calls)
		})
	}
}

func TestTaskRunnerErrors(t *testing.T) {
	var calls []string
	r := recordingRunner(&calls, "a", "c")
	r.register("fail", func(context.Context) error { return errors.New("boom") })
	r.alias("stops", "a", "fail", "c")
	r.alias("loop", "a", "loop2")
	r.alias("loop2", "loop")

	assert.ErrorIs(t, r.Run(context.Background(), "nope"), ErrUnknownTask)
	assert.ErrorIs(t, r.Run(context.Background(), "loop"), ErrTaskCycle)

	calls = nil
	err := r.Run(context.Background(), "stops")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task fail: boom")
	assert.Equal(t, []string{"a"}, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls = nil
	assert.ErrorIs(t, r.Run(ctx, "a"), context.Canceled)
	assert.Empty(t, calls)
}

func TestPipelineBuild(t *testing.T) {
	dir, conf := newTestSite(t)
	writeTree(t, dir, map[string]string{
		"src/styles/main.css": "a {  color : blue ; }",
		"src/images/logo.png": "png",
		"dist/stale.html":     "left over from an old build",
	})

	p := newPipeline(conf, pipelineOptions{}, zerolog.Nop())
	require.NoError(t, p.Run(context.Background(), "build"))

	dist := filepath.Join(dir, "dist")
	assert.NoFileExists(t, filepath.Join(dist, "stale.html"))
	assert.FileExists(t, filepath.Join(dist, "posts", "first", "index.html"))
	assert.FileExists(t, filepath.Join(dist, "pages", "about", "index.html"))
	assert.FileExists(t, filepath.Join(dist, "images", "logo.png"))
	// copy runs after styles and must leave the minified css alone.
	assert.Equal(t, "a{color:blue}", readFile(t, filepath.Join(dist, "styles", "main.css")))
}

func TestPipelinePagesOfOneCollection(t *testing.T) {
	dir, conf := newTestSite(t)

	p := newPipeline(conf, pipelineOptions{}, zerolog.Nop())
	require.NoError(t, p.Run(context.Background(), "pages:articles"))

	assert.FileExists(t, filepath.Join(dir, "dist", "pages", "about", "index.html"))
	assert.NoDirExists(t, filepath.Join(dir, "dist", "posts"))
}

func TestPipelineDeploy(t *testing.T) {
	_, conf := newTestSite(t)
	conf.Deploy.Repo = "https://example.com/site.git"

	git := &fakeGit{status: "A index.html\n"}
	p := newPipeline(conf, pipelineOptions{}, zerolog.Nop())
	p.git = git
	require.NoError(t, p.Run(context.Background(), "deploy"))

	assert.Contains(t, git.calls, "push origin master")
	assert.Contains(t, git.tree, "posts/first/index.html")
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestPipelineServer(t *testing.T) {
	_, conf := newTestSite(t)
	conf.Server.Host = "127.0.0.1"
	conf.Server.Port = freePort(t)
	base := "http://127.0.0.1:" + strconv.Itoa(conf.Server.Port)

	var opened atomic.Value
	p := newPipeline(conf, pipelineOptions{open: true}, zerolog.Nop())
	p.openURL = func(url string) error {
		opened.Store(url)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, "default") }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/posts/first/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, conf.Server.OpenURL, opened.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not stop")
	}
}
