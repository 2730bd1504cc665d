package main

import (
	"path"
	"strconv"
)

type pageLink struct {
	Number  int
	URL     string
	Current bool
}

type pagination struct {
	Current, Total   int
	PrevURL, NextURL string
	Pages            []pageLink
}

type listPage struct {
	// File path relative to the collection destination.
	Path       string
	Posts      posts
	Pagination pagination
}

// paginate splits ps into list pages of perPage posts. The first page is
// the collection index, page n lives under page/n/.
func paginate(ps posts, perPage int, baseURL string) []listPage {
	if perPage <= 0 {
		return nil
	}

	total := (len(ps) + perPage - 1) / perPage
	if total == 0 {
		total = 1
	}

	links := make([]pageLink, total)
	for i := range links {
		links[i] = pageLink{Number: i + 1, URL: listPageURL(baseURL, i+1)}
	}

	pages := make([]listPage, total)
	for i := range pages {
		n := i + 1
		lo, hi := i*perPage, min((i+1)*perPage, len(ps))
		if lo > hi {
			lo = hi
		}

		pg := pagination{Current: n, Total: total, Pages: make([]pageLink, total)}
		copy(pg.Pages, links)
		pg.Pages[i].Current = true
		if n > 1 {
			pg.PrevURL = links[i-1].URL
		}
		if n < total {
			pg.NextURL = links[i+1].URL
		}

		pages[i] = listPage{
			Path:       listPagePath(n),
			Posts:      ps[lo:hi],
			Pagination: pg,
		}
	}
	return pages
}

func listPagePath(n int) string {
	if n == 1 {
		return "index.html"
	}
	return path.Join("page", strconv.Itoa(n), "index.html")
}

func listPageURL(baseURL string, n int) string {
	if n == 1 {
		return baseURL
	}
	return baseURL + "page/" + strconv.Itoa(n) + "/"
}
