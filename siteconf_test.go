package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfDefaults(t *testing.T) {
	conf, err := parseConf([]byte(""), "/site")
	require.NoError(t, err)

	assert.Equal(t, "/site/dist", conf.OutDir)
	require.Len(t, conf.Collections, 2)

	posts := conf.Collections[0]
	assert.Equal(t, "posts", posts.Name)
	assert.Equal(t, "/site/posts", posts.Src)
	assert.Equal(t, "/site/dist", posts.Dest)
	assert.Equal(t, "/site/src/layouts/post.html", posts.Layout)
	assert.Equal(t, "posts/:title/", posts.URL)
	assert.Equal(t, ".md", posts.Ext)
	assert.Equal(t, "/", posts.Data["baseUrl"])
	assert.Equal(t, 1, posts.Pagination.PostsPerPage)
	assert.Equal(t, "/site/src/pages/index.html", posts.Pagination.ListPage)

	articles := conf.Collections[1]
	assert.Equal(t, "articles", articles.Name)
	assert.Equal(t, "/site/pages", articles.Src)
	assert.Equal(t, "/site/dist/pages", articles.Dest)
	assert.Equal(t, ":title/", articles.URL)
	assert.Equal(t, "/pages/", articles.Data["baseUrl"])
	assert.Zero(t, articles.Pagination.PostsPerPage)

	assert.Equal(t, "0.0.0.0:5455", conf.Server.Addr())
	assert.Equal(t, []string{"/site/.tmp", "/site/dist"}, conf.Server.Bases)
	assert.True(t, conf.Server.LiveReloadEnabled())
	assert.Equal(t, "http://localhost:5455", conf.Server.OpenURL)

	assert.Equal(t, "/site/src/styles", conf.Styles.Src)
	assert.Equal(t, "/site/dist/styles", conf.Styles.Dest)
	assert.Equal(t, "/site/src", conf.Copy.Cwd)
	assert.Contains(t, conf.Copy.Patterns, "CNAME")

	assert.Equal(t, "/site/dist", conf.Deploy.Base)
	assert.Equal(t, "master", conf.Deploy.Branch)
	assert.Equal(t, "Updates", conf.Deploy.Message)
	assert.Empty(t, conf.Deploy.Repo)
}

func TestParseConfOverrides(t *testing.T) {
	raw := `
outDir: public
collections:
  - name: notes
    src: notes
    dest: public/notes
    layout: layouts/note.html
    url: ":title.html"
server:
  port: 8080
  liveReload: false
code:
  languages: [go, sql]
  fallback: go
`
	conf, err := parseConf([]byte(raw), "/site")
	require.NoError(t, err)

	assert.Equal(t, "/site/public", conf.OutDir)
	require.Len(t, conf.Collections, 1)
	assert.Equal(t, "/", conf.Collections[0].Data["baseUrl"])
	assert.Equal(t, 8080, conf.Server.Port)
	assert.False(t, conf.Server.LiveReloadEnabled())
	assert.Equal(t, []string{"/site/.tmp", "/site/public"}, conf.Server.Bases)
	assert.Equal(t, []string{"go", "sql"}, conf.Code.Languages)
	assert.Equal(t, "go", conf.Code.Fallback)
}

func TestParseConfEnv(t *testing.T) {
	t.Setenv("PAGES11_PORT", "9000")
	t.Setenv("PAGES11_DEPLOY_REPO", "git@example.com:site.git")
	t.Setenv("PAGES11_DEPLOY_BRANCH", "gh-pages")

	conf, err := parseConf(nil, "/site")
	require.NoError(t, err)
	assert.Equal(t, 9000, conf.Server.Port)
	assert.Equal(t, "http://localhost:9000", conf.Server.OpenURL)
	assert.Equal(t, "git@example.com:site.git", conf.Deploy.Repo)
	assert.Equal(t, "gh-pages", conf.Deploy.Branch)
}

func TestParseConfInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not yaml", "outDir: [unclosed"},
		{"no name", "collections:\n  - src: a\n    dest: b\n    layout: c\n    url: ':title/'\n"},
		{"no title placeholder", "collections:\n  - name: a\n    src: a\n    dest: b\n    layout: c\n    url: 'static/'\n"},
		{"negative page size", "collections:\n  - name: a\n    src: a\n    dest: b\n    layout: c\n    url: ':title/'\n    pagination:\n      postsPerPage: -1\n"},
		{"duplicate", "collections:\n  - {name: a, src: a, dest: b, layout: c, url: ':title/'}\n  - {name: a, src: a, dest: b, layout: c, url: ':title/'}\n"},
		{"bad port", "server:\n  port: 70000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConf([]byte(tt.raw), "/site")
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseConfInvalidEnvPort(t *testing.T) {
	t.Setenv("PAGES11_PORT", "http")
	_, err := parseConf(nil, "/site")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestReadConfRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pages11.yaml")
	require.NoError(t, os.WriteFile(path, []byte("outDir: out\n"), 0o644))

	conf, err := readConf(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out"), conf.OutDir)
}

func TestReadExampleConf(t *testing.T) {
	conf, err := readConf(filepath.Join("example", "pages11.yaml"))
	require.NoError(t, err)
	assert.Len(t, conf.Collections, 2)
	assert.Equal(t, "http://example.com/", conf.Feed.BaseUrl)
}

func TestOpenURLFollowsPort(t *testing.T) {
	conf, err := parseConf([]byte("server:\n  port: 8080\n"), "/site")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", conf.Server.OpenURL)

	t.Setenv("PAGES11_PORT", "9100")
	conf, err = parseConf([]byte("server:\n  port: 8080\n  open: http://example.test/\n"), "/site")
	require.NoError(t, err)
	assert.Equal(t, 9100, conf.Server.Port)
	assert.Equal(t, "http://example.test/", conf.Server.OpenURL)
}
