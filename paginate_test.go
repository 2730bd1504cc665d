package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePosts(titles ...string) posts {
	ps := make(posts, len(titles))
	for i, t := range titles {
		ps[i] = &post{Title: t, Slug: slugify(t)}
	}
	return ps
}

func TestPaginateOnePerPage(t *testing.T) {
	ps := makePosts("A", "B", "C")
	pages := paginate(ps, 1, "/")
	require.Len(t, pages, 3)

	assert.Equal(t, "index.html", pages[0].Path)
	assert.Equal(t, "page/2/index.html", pages[1].Path)
	assert.Equal(t, "page/3/index.html", pages[2].Path)

	first := pages[0].Pagination
	assert.Equal(t, 1, first.Current)
	assert.Equal(t, 3, first.Total)
	assert.Empty(t, first.PrevURL)
	assert.Equal(t, "/page/2/", first.NextURL)
	assert.True(t, first.Pages[0].Current)
	assert.False(t, first.Pages[1].Current)

	last := pages[2].Pagination
	assert.Equal(t, "/page/2/", last.PrevURL)
	assert.Empty(t, last.NextURL)
	assert.Equal(t, "C", pages[2].Posts[0].Title)
}

func TestPaginateUneven(t *testing.T) {
	pages := paginate(makePosts("A", "B", "C", "D", "E"), 2, "/blog/")
	require.Len(t, pages, 3)
	assert.Len(t, pages[0].Posts, 2)
	assert.Len(t, pages[2].Posts, 1)
	assert.Equal(t, "/blog/page/3/", pages[1].Pagination.NextURL)
}

func TestPaginateDisabled(t *testing.T) {
	assert.Nil(t, paginate(makePosts("A"), 0, "/"))
}

func TestPaginateEmptyCollection(t *testing.T) {
	pages := paginate(nil, 1, "/")
	require.Len(t, pages, 1)
	assert.Empty(t, pages[0].Posts)
	assert.Equal(t, "index.html", pages[0].Path)
}
