package main

import (
	"html"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

const (
	// Substituted for a code block without a language tag. It is not a
	// known language, so untagged blocks end up with the fallback.
	missingLanguage = "undefined"

	defaultFallbackLanguage = "javascript"

	// Code blocks in this language get the interactive playground widget.
	playLanguage = "typescript"
)

var defaultLanguages = []string{
	"markup",
	"css",
	"clike",
	"javascript",
	"java",
	"php",
	"coffeescript",
	"scss",
	"bash",
	"c",
	"cpp",
	"typescript",
	"csharp",
}

// languageSet is the ordered list of language classes the page scripts know
// how to highlight.
type languageSet struct {
	langs    []string
	fallback string
}

func newLanguageSet(langs []string, fallback string) languageSet {
	if len(langs) == 0 {
		langs = defaultLanguages
	}
	if fallback == "" {
		fallback = defaultFallbackLanguage
	}
	return languageSet{langs: slices.Clone(langs), fallback: fallback}
}

func (s languageSet) contains(lang string) bool {
	return slices.Contains(s.langs, lang)
}

func (s languageSet) normalize(tag string) string {
	if tag == "" {
		tag = missingLanguage
	}
	if !s.contains(tag) {
		return s.fallback
	}
	return tag
}

type codeRenderer struct {
	langs languageSet
	log   zerolog.Logger
}

type codeOption func(*codeRenderer)

func withLanguages(langs []string, fallback string) codeOption {
	return func(r *codeRenderer) { r.langs = newLanguageSet(langs, fallback) }
}

func withCodeLogger(l zerolog.Logger) codeOption {
	return func(r *codeRenderer) { r.log = l }
}

func newCodeRenderer(opts ...codeOption) *codeRenderer {
	r := &codeRenderer{
		langs: newLanguageSet(nil, ""),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// highlight is handed every code block before it is rendered. Highlighting
// itself happens in the browser, so the code is returned unchanged.
func (r *codeRenderer) highlight(code string) string {
	r.log.Debug().Str("code", code).Msg("code block")
	return code
}

// render turns a code block into the markup the page scripts expect: CRLF
// line endings inside a language-classed <pre><code>, followed by a
// playground widget for typescript.
func (r *codeRenderer) render(code, lang string) string {
	lang = r.langs.normalize(lang)

	var b strings.Builder
	b.WriteString(`<pre><code class="language-`)
	b.WriteString(lang)
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(toCRLF(code)))
	b.WriteString(`</code></pre>`)

	if lang == playLanguage {
		b.WriteString(`<div xp-code-play="`)
		b.WriteString(lang)
		b.WriteString(`"><pre>`)
		b.WriteString(html.EscapeString(code))
		b.WriteString(`</pre></div>`)
	}
	return b.String()
}

// toCRLF converts line feeds to CRLF pairs without doubling the ones that
// are already CRLF.
func toCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
