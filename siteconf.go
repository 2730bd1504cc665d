package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

type SiteConf struct {
	OutDir      string           `yaml:"outDir"`
	Collections []CollectionConf `yaml:"collections"`
	Feed        FeedConf         `yaml:"feed"`
	Styles      StylesConf       `yaml:"styles"`
	Copy        CopyConf         `yaml:"copy"`
	Server      ServerConf       `yaml:"server"`
	Deploy      DeployConf       `yaml:"deploy"`
	Code        CodeConf         `yaml:"code"`
}

// A CollectionConf describes one directory of markdown content and where
// and how its pages are written.
type CollectionConf struct {
	Name   string `yaml:"name"`
	Src    string `yaml:"src"`
	Ext    string `yaml:"ext"`
	Dest   string `yaml:"dest"`
	Layout string `yaml:"layout"`
	// Output path of each post relative to Dest. ":title" is replaced by
	// the post slug.
	URL        string         `yaml:"url"`
	PageSrc    string         `yaml:"pageSrc"`
	Data       map[string]any `yaml:"data"`
	Pagination PaginationConf `yaml:"pagination"`
}

type PaginationConf struct {
	PostsPerPage int    `yaml:"postsPerPage"`
	ListPage     string `yaml:"listPage"`
}

type FeedConf struct {
	Title     string `yaml:"title"`
	Author    string `yaml:"author"`
	AuthorUri string `yaml:"authorUri"`
	BaseUrl   string `yaml:"baseUrl"`
	// Collection whose posts go into the feed.
	Collection string `yaml:"collection"`
}

type StylesConf struct {
	Src  string `yaml:"src"`
	Dest string `yaml:"dest"`
	Sass string `yaml:"sass"`
}

type CopyConf struct {
	Cwd      string   `yaml:"cwd"`
	Dest     string   `yaml:"dest"`
	Patterns []string `yaml:"patterns"`
}

type ServerConf struct {
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	Bases      []string `yaml:"bases"`
	LiveReload *bool    `yaml:"liveReload"`
	OpenURL    string   `yaml:"open"`
}

func (s ServerConf) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

func (s ServerConf) LiveReloadEnabled() bool {
	return s.LiveReload == nil || *s.LiveReload
}

type DeployConf struct {
	Base    string `yaml:"base"`
	Branch  string `yaml:"branch"`
	Repo    string `yaml:"repo"`
	Message string `yaml:"message"`
}

type CodeConf struct {
	Languages []string `yaml:"languages"`
	Fallback  string   `yaml:"fallback"`
}

func defaultCollections() []CollectionConf {
	return []CollectionConf{
		{
			Name:    "posts",
			Src:     "posts",
			Dest:    "dist",
			Layout:  "src/layouts/post.html",
			URL:     "posts/:title/",
			PageSrc: "src/pages",
			Data:    map[string]any{"baseUrl": "/"},
			Pagination: PaginationConf{
				PostsPerPage: 1,
				ListPage:     "src/pages/index.html",
			},
		},
		{
			Name:   "articles",
			Src:    "pages",
			Dest:   "dist/pages",
			Layout: "src/layouts/post.html",
			URL:    ":title/",
			Data:   map[string]any{"baseUrl": "/pages/"},
			Pagination: PaginationConf{
				ListPage: "src/pages/index.html",
			},
		},
	}
}

func readConf(fileName string) (*SiteConf, error) {
	rawConf, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	return parseConf(rawConf, filepath.Dir(fileName))
}

func parseConf(rawConf []byte, baseDir string) (*SiteConf, error) {
	conf := SiteConf{}
	if err := yaml.Unmarshal(rawConf, &conf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	// Environment first: defaults such as the open URL depend on the
	// final port.
	if err := conf.applyEnv(); err != nil {
		return nil, err
	}
	conf.applyDefaults()
	if err := conf.validate(); err != nil {
		return nil, err
	}

	// Relative paths are relative to the configuration file, not the
	// working directory.
	conf.OutDir = normalizePath(conf.OutDir, baseDir)
	for i := range conf.Collections {
		c := &conf.Collections[i]
		c.Src = normalizePath(c.Src, baseDir)
		c.Dest = normalizePath(c.Dest, baseDir)
		c.Layout = normalizePath(c.Layout, baseDir)
		c.PageSrc = normalizePath(c.PageSrc, baseDir)
		c.Pagination.ListPage = normalizePath(c.Pagination.ListPage, baseDir)
	}
	conf.Styles.Src = normalizePath(conf.Styles.Src, baseDir)
	conf.Styles.Dest = normalizePath(conf.Styles.Dest, baseDir)
	conf.Copy.Cwd = normalizePath(conf.Copy.Cwd, baseDir)
	conf.Copy.Dest = normalizePath(conf.Copy.Dest, baseDir)
	for i, b := range conf.Server.Bases {
		conf.Server.Bases[i] = normalizePath(b, baseDir)
	}
	conf.Deploy.Base = normalizePath(conf.Deploy.Base, baseDir)

	return &conf, nil
}

// Populate with defaults
func (conf *SiteConf) applyDefaults() {
	if conf.OutDir == "" {
		conf.OutDir = "dist"
	}
	if conf.Collections == nil {
		conf.Collections = defaultCollections()
	}
	for i := range conf.Collections {
		c := &conf.Collections[i]
		if c.Ext == "" {
			c.Ext = ".md"
		}
		if c.Data == nil {
			c.Data = map[string]any{}
		}
		if _, ok := c.Data["baseUrl"]; !ok {
			c.Data["baseUrl"] = "/"
		}
	}

	if conf.Feed.Collection == "" {
		conf.Feed.Collection = "posts"
	}

	if conf.Styles.Src == "" {
		conf.Styles.Src = "src/styles"
	}
	if conf.Styles.Dest == "" {
		conf.Styles.Dest = filepath.Join(conf.OutDir, "styles")
	}
	if conf.Styles.Sass == "" {
		conf.Styles.Sass = "sass"
	}

	if conf.Copy.Cwd == "" {
		conf.Copy.Cwd = "src"
	}
	if conf.Copy.Dest == "" {
		conf.Copy.Dest = conf.OutDir
	}
	if conf.Copy.Patterns == nil {
		conf.Copy.Patterns = []string{
			"images/**",
			"scripts/**",
			"styles/**.css",
			"styles/fonts/**",
			"styles/**/**",
			"CNAME",
		}
	}

	if conf.Server.Host == "" {
		conf.Server.Host = "0.0.0.0"
	}
	if conf.Server.Port == 0 {
		conf.Server.Port = 5455
	}
	if conf.Server.Bases == nil {
		conf.Server.Bases = []string{".tmp", conf.OutDir}
	}
	if conf.Server.OpenURL == "" {
		conf.Server.OpenURL = "http://localhost:" + strconv.Itoa(conf.Server.Port)
	}

	if conf.Deploy.Base == "" {
		conf.Deploy.Base = conf.OutDir
	}
	if conf.Deploy.Branch == "" {
		conf.Deploy.Branch = "master"
	}
	if conf.Deploy.Message == "" {
		conf.Deploy.Message = "Updates"
	}
}

// applyEnv lets the environment (or a .env file) override settings that
// differ between machines.
func (conf *SiteConf) applyEnv() error {
	if v, ok := os.LookupEnv("PAGES11_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PAGES11_PORT=%q", ErrInvalidConfig, v)
		}
		conf.Server.Port = port
	}
	if v, ok := os.LookupEnv("PAGES11_HOST"); ok {
		conf.Server.Host = v
	}
	if v, ok := os.LookupEnv("PAGES11_DEPLOY_REPO"); ok {
		conf.Deploy.Repo = v
	}
	if v, ok := os.LookupEnv("PAGES11_DEPLOY_BRANCH"); ok {
		conf.Deploy.Branch = v
	}
	return nil
}

func (conf *SiteConf) validate() error {
	seen := make(map[string]bool)
	for _, c := range conf.Collections {
		switch {
		case c.Name == "":
			return fmt.Errorf("%w: collection without a name", ErrInvalidConfig)
		case seen[c.Name]:
			return fmt.Errorf("%w: duplicate collection %q", ErrInvalidConfig, c.Name)
		case c.Src == "" || c.Dest == "" || c.Layout == "":
			return fmt.Errorf("%w: collection %q needs src, dest and layout", ErrInvalidConfig, c.Name)
		case !strings.Contains(c.URL, ":title"):
			return fmt.Errorf("%w: url of collection %q has no :title", ErrInvalidConfig, c.Name)
		case c.Pagination.PostsPerPage < 0:
			return fmt.Errorf("%w: negative postsPerPage in collection %q", ErrInvalidConfig, c.Name)
		}
		seen[c.Name] = true
	}
	if conf.Server.Port < 1 || conf.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalidConfig, conf.Server.Port)
	}
	return nil
}

func normalizePath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
