package main

import (
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"time"
)

func formatDate(d time.Time) string {
	return d.Format("January 2, 2006")
}

func formatDateShort(d time.Time) string {
	return d.Format("Jan 2, 2006")
}

var templateFuncs = template.FuncMap{
	"formatDate":      formatDate,
	"formatDateShort": formatDateShort,
}

// renderedPost is a post together with its HTML body.
type renderedPost struct {
	*post
	Content template.HTML
}

type templateParam struct {
	// Collection data from the site configuration, e.g. baseUrl.
	Data       map[string]any
	Collection string
}

type postTemplateParam struct {
	templateParam
	Post    *post
	Content template.HTML
}

type listTemplateParam struct {
	templateParam
	Posts      []renderedPost
	Pagination pagination
}

type pageTemplateParam struct {
	templateParam
	Posts      []renderedPost
	Categories postsByCategory
}

type templateEngine struct {
	toHtml        renderer
	templateCache map[string]*template.Template
}

func newTemplateEngine(r renderer) *templateEngine {
	return &templateEngine{
		toHtml:        r,
		templateCache: make(map[string]*template.Template),
	}
}

func (te *templateEngine) renderBody(p *post) template.HTML {
	return template.HTML(te.toHtml.render(p.Body))
}

func (te *templateEngine) renderPost(layout string, tp templateParam, p *post, body template.HTML, w io.Writer) error {
	return te.execute(layout, w, postTemplateParam{
		templateParam: tp,
		Post:          p,
		Content:       body,
	})
}

func (te *templateEngine) renderPostList(listPage string, tp templateParam, ps []renderedPost, pg pagination, w io.Writer) error {
	return te.execute(listPage, w, listTemplateParam{
		templateParam: tp,
		Posts:         ps,
		Pagination:    pg,
	})
}

func (te *templateEngine) renderPage(file string, tp templateParam, ps []renderedPost, cats postsByCategory, w io.Writer) error {
	return te.execute(file, w, pageTemplateParam{
		templateParam: tp,
		Posts:         ps,
		Categories:    cats,
	})
}

func (te *templateEngine) execute(file string, w io.Writer, data any) error {
	t, err := te.getTemplate(file)
	if err != nil {
		return err
	}
	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("%w: %v: %w", ErrTemplate, file, err)
	}
	return nil
}

func (te *templateEngine) getTemplate(file string) (*template.Template, error) {
	t, ok := te.templateCache[file]
	if !ok {
		var err error
		t, err = template.New(filepath.Base(file)).Funcs(templateFuncs).ParseFiles(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
		}
		te.templateCache[file] = t
	}
	return t, nil
}
