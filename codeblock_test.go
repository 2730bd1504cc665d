package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLanguage(t *testing.T) {
	langs := newLanguageSet(nil, "")

	tests := []struct {
		name string
		tag  string
		want string
	}{
		{"missing tag", "", "javascript"},
		{"unknown tag", "ruby", "javascript"},
		{"known tag", "typescript", "typescript"},
		{"baseline", "javascript", "javascript"},
		{"case sensitive", "TypeScript", "javascript"},
		{"placeholder is unknown", "undefined", "javascript"},
		{"bash", "bash", "bash"},
		{"csharp", "csharp", "csharp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := langs.normalize(tt.tag)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, langs.normalize(got), "normalize must be idempotent")
			assert.True(t, langs.contains(got))
		})
	}
}

func TestNormalizeCustomLanguages(t *testing.T) {
	langs := newLanguageSet([]string{"go", "sql"}, "go")

	assert.Equal(t, "sql", langs.normalize("sql"))
	assert.Equal(t, "go", langs.normalize("javascript"))
	assert.Equal(t, "go", langs.normalize(""))
}

func TestRenderCodeBlock(t *testing.T) {
	r := newCodeRenderer()

	tests := []struct {
		name string
		code string
		lang string
		want string
	}{
		{
			name: "typescript gets the playground widget",
			code: "let x = 1;\nlet y = 2;",
			lang: "typescript",
			want: `<pre><code class="language-typescript">let x = 1;` + "\r\n" + `let y = 2;</code></pre>` +
				`<div xp-code-play="typescript"><pre>let x = 1;` + "\n" + `let y = 2;</pre></div>`,
		},
		{
			name: "missing tag falls back to javascript",
			code: "echo hi",
			lang: "",
			want: `<pre><code class="language-javascript">echo hi</code></pre>`,
		},
		{
			name: "code is escaped",
			code: "<script>",
			lang: "bash",
			want: `<pre><code class="language-bash">&lt;script&gt;</code></pre>`,
		},
		{
			name: "empty code",
			code: "",
			lang: "css",
			want: `<pre><code class="language-css"></code></pre>`,
		},
		{
			name: "existing CRLF is not doubled",
			code: "a\r\nb\nc",
			lang: "c",
			want: "<pre><code class=\"language-c\">a\r\nb\r\nc</code></pre>",
		},
		{
			name: "unicode passes through",
			code: "ünïcødé → 日本",
			lang: "java",
			want: `<pre><code class="language-java">ünïcødé → 日本</code></pre>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.render(tt.code, tt.lang))
		})
	}
}

func TestRenderWidgetOnlyForTypescript(t *testing.T) {
	r := newCodeRenderer()
	samples := []string{
		"",
		"plain",
		"a & b < c",
		`<div xp-code-play="typescript">`,
		"line\nline\r\nline",
	}

	for _, s := range samples {
		out := r.render(s, "typescript")
		assert.Equal(t, 1, strings.Count(out, `xp-code-play="typescript"`), "sample %q", s)
		assert.Contains(t, out, `<pre>`+htmlEscape(s)+`</pre></div>`)

		for _, lang := range []string{"", "bash", "ruby", "javascript"} {
			assert.NotContains(t, r.render(s, lang), "<div xp-code-play")
		}
	}
}

func TestRenderLineEndings(t *testing.T) {
	r := newCodeRenderer()
	out := r.render("a\nb\n\nc\n", "php")

	body := strings.TrimSuffix(strings.TrimPrefix(out, `<pre><code class="language-php">`), `</code></pre>`)
	assert.Equal(t, "a\r\nb\r\n\r\nc\r\n", body)
	assert.Equal(t, 4, strings.Count(body, "\r\n"))
	assert.Equal(t, toCRLF(body), body, "converting twice changes nothing")
}

func TestHighlightIsIdentity(t *testing.T) {
	r := newCodeRenderer()
	for _, s := range []string{"", "x := 1", "<b>&</b>"} {
		assert.Equal(t, s, r.highlight(s))
	}
}

func htmlEscape(s string) string {
	return strings.NewReplacer(`&`, "&amp;", `'`, "&#39;", `<`, "&lt;", `>`, "&gt;", `"`, "&#34;").Replace(s)
}
