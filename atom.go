package main

import (
	"path/filepath"
	"strings"
	"time"

	atom "github.com/thomas11/atomgenerator"
)

const categoriesOutDir = "categories"

func (s *Site) RenderAtom() error {
	conf := s.conf.Feed
	if conf.BaseUrl == "" {
		s.log.Debug().Msg("no feed base URL, skipping atom feeds")
		return nil
	}
	c, ok := s.collection(conf.Collection)
	if !ok {
		s.log.Warn().Str("collection", conf.Collection).Msg("feed collection does not exist")
		return nil
	}

	filePath := filepath.Join(s.conf.OutDir, "index.xml")
	if err := s.renderAndSaveFeed(conf.Title, "", filePath, c.posts); err != nil {
		return err
	}

	return s.renderAndSaveCategoriesAtom(c.posts)
}

func (s *Site) renderFeed(title, relUrl string, ps posts) ([]byte, error) {
	feedUrl := strings.TrimSuffix(s.conf.Feed.BaseUrl, "/") + "/" + strings.TrimPrefix(relUrl, "/")

	feed := atom.Feed{
		Title:   title,
		Link:    feedUrl,
		PubDate: time.Now(),
	}
	feed.AddAuthor(atom.Author{
		Name: s.conf.Feed.Author,
		Uri:  s.conf.Feed.AuthorUri,
	})

	for _, p := range ps {
		feed.AddEntry(s.entryForPost(p))
	}

	errs := feed.Validate()
	if len(errs) > 0 {
		for _, e := range errs {
			s.log.Error().Err(e).Str("feed", title).Msg("atom feed is not valid")
		}
		return nil, errs[0]
	}

	return feed.GenXml()
}

func (s *Site) entryForPost(p *post) *atom.Entry {
	e := &atom.Entry{
		Title:       p.Title,
		Description: p.Blurb,
		Link:        strings.TrimSuffix(s.conf.Feed.BaseUrl, "/") + p.URL,
		PubDate:     p.Date,
		Content:     string(s.body(p)),
	}

	for _, cat := range p.Categories {
		e.AddCategory(atom.Category{Term: cat.String()})
	}

	return e
}

func (s *Site) renderAndSaveFeed(title, relUrl, filePath string, ps posts) error {
	atomXml, err := s.renderFeed(title, relUrl, ps)
	if err != nil {
		return err
	}

	return writeFile(filePath, atomXml)
}

func (s *Site) renderAndSaveCategoriesAtom(ps posts) error {
	for _, catPosts := range groupByCategory(ps) {
		category := catPosts.Category
		title := s.conf.Feed.Title + ` Category "` + category.String() + `."`
		urlPath := categoriesOutDir + "/" + category.Id() + "/"
		filePath := filepath.Join(s.conf.OutDir, categoriesOutDir, category.Id()+".xml")

		if err := s.renderAndSaveFeed(title, urlPath, filePath, catPosts.Posts); err != nil {
			return err
		}
	}
	return nil
}
