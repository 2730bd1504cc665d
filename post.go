package main

import (
	"strings"
	"time"
	"unicode"
)

type post struct {
	Title, ID, Slug, Blurb string
	Date                   time.Time
	Path                   string
	Body                   []byte
	Categories             []category
	Draft                  bool
	// Overrides the collection layout when set.
	Layout string
	// Site-relative URL, filled in when the post is placed in a collection.
	URL string
	// Front matter keys not otherwise known.
	Params map[string]any
}

// Called from templates
func (p *post) FormatDate() string {
	return formatDate(p.Date)
}

// Called from templates
func (p *post) FormatDateShort() string {
	return formatDateShort(p.Date)
}

type posts []*post

func (ps posts) earliestDate() time.Time {
	t := time.Now()
	for _, a := range ps {
		if a.Date.Before(t) {
			t = a.Date
		}
	}
	return t
}

func (ps posts) latestDate() time.Time {
	var t time.Time
	for _, a := range ps {
		if a.Date.After(t) {
			t = a.Date
		}
	}
	return t
}

// slugify lowercases the title and joins its runs of letters and digits
// with dashes.
func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// postPath expands the collection URL pattern for p.
func postPath(pattern string, p *post) string {
	return strings.ReplaceAll(pattern, ":title", p.Slug)
}
