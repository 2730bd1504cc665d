package main

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/otiai10/copy"
	"github.com/rs/zerolog"
)

type collection struct {
	conf  *CollectionConf
	posts posts
	// Site-relative URL of the collection destination, ending in "/".
	baseURL string
}

type Site struct {
	conf        *SiteConf
	log         zerolog.Logger
	collections []*collection
	engine      *templateEngine
	renderCache map[string]template.HTML
}

func ReadSite(conf *SiteConf, drafts bool, log zerolog.Logger) (*Site, error) {
	code := newCodeRenderer(
		withLanguages(conf.Code.Languages, conf.Code.Fallback),
		withCodeLogger(log),
	)

	thisSite := Site{
		conf:        conf,
		log:         log,
		engine:      newTemplateEngine(newMarkdownRenderer(code)),
		renderCache: make(map[string]template.HTML),
	}

	for i := range conf.Collections {
		c, err := thisSite.readCollection(&conf.Collections[i], drafts)
		if err != nil {
			return nil, err
		}
		thisSite.collections = append(thisSite.collections, c)
	}

	return &thisSite, nil
}

func (s *Site) readCollection(cc *CollectionConf, drafts bool) (*collection, error) {
	c := &collection{
		conf:    cc,
		posts:   make(posts, 0, 100),
		baseURL: collectionURL(s.conf.OutDir, cc.Dest),
	}

	files, err := findPostFiles(cc.Src, cc.Ext, s.log)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Warn().Str("collection", cc.Name).Str("src", cc.Src).Msg("source directory does not exist")
		return c, nil
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string)
	for _, f := range files {
		p, err := readPostFromFile(f)
		if err != nil {
			return nil, err
		}
		if p.Draft && !drafts {
			s.log.Debug().Str("path", f).Msg("skipping draft")
			continue
		}
		p.URL = c.baseURL + postPath(cc.URL, p)
		if other, ok := seen[p.URL]; ok {
			s.log.Warn().Str("url", p.URL).Str("path", f).Str("other", other).Msg("two posts share a URL")
		}
		seen[p.URL] = f
		c.posts = append(c.posts, p)
	}

	// Order posts by date, newest first.
	sort.SliceStable(c.posts, func(i, j int) bool { return c.posts[i].Date.After(c.posts[j].Date) })

	return c, nil
}

// collectionURL is the site-relative URL of dest, the output directory of a
// collection.
func collectionURL(outDir, dest string) string {
	rel, err := filepath.Rel(outDir, dest)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "/"
	}
	return "/" + filepath.ToSlash(rel) + "/"
}

func (s *Site) collection(name string) (*collection, bool) {
	for _, c := range s.collections {
		if c.conf.Name == name {
			return c, true
		}
	}
	return nil, false
}

func (s *Site) RenderAll() error {
	for _, c := range s.collections {
		if err := s.renderCollection(c); err != nil {
			return err
		}
	}
	return s.RenderAtom()
}

func (s *Site) RenderCollection(name string) error {
	c, ok := s.collection(name)
	if !ok {
		return fmt.Errorf("%w: no collection %q", ErrInvalidConfig, name)
	}
	return s.renderCollection(c)
}

func (s *Site) renderCollection(c *collection) error {
	cc := c.conf
	tp := templateParam{Data: cc.Data, Collection: cc.Name}
	s.log.Info().Str("collection", cc.Name).Int("posts", len(c.posts)).Str("dest", cc.Dest).Msg("rendering")

	for _, p := range c.posts {
		var b bytes.Buffer
		err := s.engine.renderPost(s.layoutFor(cc, p), tp, p, s.body(p), &b)
		if err != nil {
			return err
		}
		if err := writeFile(outputFile(cc.Dest, postPath(cc.URL, p)), b.Bytes()); err != nil {
			return err
		}
	}

	if cc.Pagination.ListPage != "" {
		for _, lp := range paginate(c.posts, cc.Pagination.PostsPerPage, c.baseURL) {
			var b bytes.Buffer
			err := s.engine.renderPostList(cc.Pagination.ListPage, tp, s.rendered(lp.Posts), lp.Pagination, &b)
			if err != nil {
				return err
			}
			if err := writeFile(filepath.Join(cc.Dest, filepath.FromSlash(lp.Path)), b.Bytes()); err != nil {
				return err
			}
		}
	}

	return s.renderStandalonePages(c, tp)
}

// renderStandalonePages renders every template under the collection's
// pageSrc, except the list page, to the same relative path under dest.
func (s *Site) renderStandalonePages(c *collection, tp templateParam) error {
	cc := c.conf
	if cc.PageSrc == "" {
		return nil
	}
	if _, err := os.Stat(cc.PageSrc); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return filepath.WalkDir(cc.PageSrc, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".html" || path == cc.Pagination.ListPage {
			return nil
		}
		rel, err := filepath.Rel(cc.PageSrc, path)
		if err != nil {
			return err
		}

		var b bytes.Buffer
		if err := s.engine.renderPage(path, tp, s.rendered(c.posts), groupByCategory(c.posts), &b); err != nil {
			return err
		}
		return writeFile(filepath.Join(cc.Dest, rel), b.Bytes())
	})
}

func (s *Site) layoutFor(cc *CollectionConf, p *post) string {
	if p.Layout == "" {
		return cc.Layout
	}
	return normalizePath(p.Layout, filepath.Dir(cc.Layout))
}

func (s *Site) body(p *post) template.HTML {
	body, ok := s.renderCache[p.Path]
	if !ok {
		body = s.engine.renderBody(p)
		s.renderCache[p.Path] = body
	}
	return body
}

func (s *Site) rendered(ps posts) []renderedPost {
	out := make([]renderedPost, len(ps))
	for i, p := range ps {
		out[i] = renderedPost{post: p, Content: s.body(p)}
	}
	return out
}

// outputFile maps an expanded URL pattern to a file under dest. Directory
// URLs get an index.html.
func outputFile(dest, urlPath string) string {
	f := filepath.Join(dest, filepath.FromSlash(urlPath))
	if urlPath == "" || strings.HasSuffix(urlPath, "/") {
		f = filepath.Join(f, "index.html")
	}
	return f
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), os.FileMode(0775)); err != nil {
		return err
	}
	return os.WriteFile(path, data, os.FileMode(0664))
}

func Clean(conf *SiteConf, log zerolog.Logger) error {
	log.Info().Str("dir", conf.OutDir).Msg("cleaning")
	return os.RemoveAll(conf.OutDir)
}

// CopyStaticFiles copies the files under copy.cwd that match one of the
// copy patterns.
func CopyStaticFiles(conf *SiteConf, log zerolog.Logger) error {
	srcDir, dest := conf.Copy.Cwd, conf.Copy.Dest
	if _, err := os.Stat(srcDir); errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("dir", srcDir).Msg("nothing to copy")
		return nil
	}

	log.Info().Str("src", srcDir).Str("dest", dest).Msg("copying static files")
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if !matchesAny(conf.Copy.Patterns, filepath.ToSlash(rel)) {
			return nil
		}
		// The styles task writes these, minified or compiled.
		if isStylesheet(path) && isBelow(conf.Styles.Src, path) {
			return nil
		}
		return copy.Copy(path, filepath.Join(dest, rel))
	})
}

func isStylesheet(path string) bool {
	switch filepath.Ext(path) {
	case ".css", ".scss", ".sass":
		return true
	}
	return false
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
