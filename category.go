package main

import (
	"cmp"
	"slices"
)

type category string

func (c category) String() string { return string(c) }

func (c category) Id() string { return slugify(c.String()) }

type categoryWithPosts struct {
	Category category
	Posts    posts
}

func (c categoryWithPosts) EarliestDateFormatted() string {
	return formatDateShort(c.Posts.earliestDate())
}

func (c categoryWithPosts) LatestDateFormatted() string {
	return formatDateShort(c.Posts.latestDate())
}

// Posts grouped by category. Create using groupByCategory, which sorts by
// number of posts per category, then by newest post.
type postsByCategory []categoryWithPosts

func (pc *postsByCategory) addPost(c category, a *post) {
	for i, cat := range *pc {
		if cat.Category == c {
			cat.Posts = append(cat.Posts, a)
			(*pc)[i] = cat
			return
		}
	}

	*pc = append(*pc, categoryWithPosts{c, posts{a}})
}

func groupByCategory(ps posts) postsByCategory {
	byCat := make(postsByCategory, 0, 20)

	for _, p := range ps {
		for _, cat := range p.Categories {
			byCat.addPost(cat, p)
		}
	}

	slices.SortFunc(byCat, func(a, b categoryWithPosts) int {
		// More posts = comes first (descending order)
		if c := cmp.Compare(len(b.Posts), len(a.Posts)); c != 0 {
			return c
		}
		// If equal post count, newer comes first
		return b.Posts.latestDate().Compare(a.Posts.latestDate())
	})

	return byCat
}
