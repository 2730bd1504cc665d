package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
)

const dateStampFormat = "2006-01-02"

var frontMatterDateFormats = []string{
	dateStampFormat,
	"2006-01-02 15:04",
	time.RFC3339,
}

var frontMatterDelim = []byte("---")

type frontMatter struct {
	Title      string   `yaml:"title"`
	Date       any      `yaml:"date"`
	Slug       string   `yaml:"slug"`
	Blurb      string   `yaml:"blurb"`
	Layout     string   `yaml:"layout"`
	Categories []string `yaml:"categories"`
	Draft      bool     `yaml:"draft"`
}

var knownFrontMatterKeys = map[string]bool{
	"title": true, "date": true, "slug": true, "blurb": true,
	"layout": true, "categories": true, "draft": true,
}

func findPostFiles(dir, fileExtension string, log zerolog.Logger) ([]string, error) {
	files := make([]string, 0, 100)

	walkFunc := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			log.Warn().Err(err).Str("path", path).Msg("skipping")
			return nil
		}

		if !d.IsDir() && strings.HasSuffix(path, fileExtension) {
			files = append(files, path)
		}
		return nil
	}

	err := filepath.WalkDir(dir, walkFunc)
	return files, err
}

func readPostFromFile(path string) (*post, error) {
	fileContent, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fileBaseName := filepath.Base(path)
	fileBaseName = fileBaseName[:len(fileBaseName)-len(filepath.Ext(fileBaseName))]

	p, err := parsePost(fileBaseName, fileContent)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// parsePost reads a post made of a YAML front matter block between two
// "---" lines followed by the markdown body.
func parsePost(id string, content []byte) (*post, error) {
	header, body, ok := splitFrontMatter(content)
	if !ok {
		return nil, ErrNoFrontMatter
	}

	var fm frontMatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoFrontMatter, err)
	}
	if strings.TrimSpace(fm.Title) == "" {
		return nil, ErrMissingTitle
	}

	var all map[string]any
	if err := yaml.Unmarshal(header, &all); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoFrontMatter, err)
	}

	p := &post{
		Title:      fm.Title,
		ID:         id,
		Slug:       fm.Slug,
		Blurb:      fm.Blurb,
		Body:       body,
		Categories: make([]category, 0, len(fm.Categories)),
		Draft:      fm.Draft,
		Layout:     fm.Layout,
		Params:     make(map[string]any),
	}
	if p.Slug == "" {
		p.Slug = slugify(p.Title)
	}
	for _, c := range fm.Categories {
		if c = strings.TrimSpace(c); c != "" {
			p.Categories = append(p.Categories, category(c))
		}
	}
	for k, v := range all {
		if !knownFrontMatterKeys[k] {
			p.Params[k] = v
		}
	}

	date, err := parseFrontMatterDate(fm.Date)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		if d, err := extractDateFromFilename(id, dateStampFormat); err == nil {
			date = *d
		}
	}
	p.Date = date

	return p, nil
}

func splitFrontMatter(content []byte) (header, body []byte, ok bool) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	line, rest, found := bytes.Cut(content, []byte("\n"))
	if !found || !isDelimiter(line) {
		return nil, nil, false
	}

	for offset := 0; offset < len(rest); {
		line, _, _ := bytes.Cut(rest[offset:], []byte("\n"))
		next := min(offset+len(line)+1, len(rest))
		if isDelimiter(line) {
			return rest[:offset], rest[next:], true
		}
		offset = next
	}
	return nil, nil, false
}

// isDelimiter accepts "---" and longer runs of dashes, which some editors
// insert.
func isDelimiter(line []byte) bool {
	line = bytes.TrimRight(line, " \t\r")
	return len(line) >= len(frontMatterDelim) && len(bytes.Trim(line, "-")) == 0
}

func parseFrontMatterDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return d, nil
	case string:
		if d == "" {
			return time.Time{}, nil
		}
		for _, layout := range frontMatterDateFormats {
			if t, err := time.Parse(layout, d); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, d)
	default:
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, v)
	}
}

func extractDateFromFilename(filename string, dateStampFormat string) (*time.Time, error) {
	if len(filename) < len(dateStampFormat)+1 {
		return nil, fmt.Errorf("%w: %v has no date stamp", ErrInvalidDate, filename)
	}

	dateStr := filename[:len(dateStampFormat)]
	date, err := time.Parse(dateStampFormat, dateStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, filename)
	}
	return &date, nil
}
