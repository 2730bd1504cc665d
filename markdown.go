package main

import (
	"bytes"
	"io"
	"strings"

	"github.com/russross/blackfriday/v2"
)

const htmlFlags = blackfriday.UseXHTML |
	blackfriday.Smartypants |
	blackfriday.SmartypantsFractions |
	blackfriday.SmartypantsLatexDashes

const extensions = blackfriday.NoIntraEmphasis |
	blackfriday.Tables |
	blackfriday.FencedCode |
	blackfriday.Autolink |
	blackfriday.Strikethrough |
	blackfriday.SpaceHeadings

type renderer interface {
	render(in []byte) string
}

func newMarkdownRenderer(code *codeRenderer) renderer {
	r := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{Flags: htmlFlags})
	return &blackfridayHtmlRenderer{
		r:          &codeBlockRenderer{Renderer: r, code: code},
		extensions: extensions,
	}
}

type blackfridayHtmlRenderer struct {
	r          blackfriday.Renderer
	extensions blackfriday.Extensions
}

func (b *blackfridayHtmlRenderer) render(in []byte) string {
	return string(blackfriday.Run(in, blackfriday.WithRenderer(b.r), blackfriday.WithExtensions(b.extensions)))
}

// codeBlockRenderer hands fenced and indented code blocks to the code
// renderer and everything else to the wrapped blackfriday renderer.
type codeBlockRenderer struct {
	blackfriday.Renderer
	code *codeRenderer
}

func (c *codeBlockRenderer) RenderNode(w io.Writer, node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
	if node.Type != blackfriday.CodeBlock {
		return c.Renderer.RenderNode(w, node, entering)
	}

	// blackfriday keeps the newline that precedes the closing fence.
	code := string(bytes.TrimSuffix(node.Literal, []byte("\n")))
	code = c.code.highlight(code)

	io.WriteString(w, c.code.render(code, infoLanguage(node.Info)))
	io.WriteString(w, "\n")
	return blackfriday.GoToNext
}

// infoLanguage returns the first word of a fence info string, so
// "```ts title=x" is tagged "ts".
func infoLanguage(info []byte) string {
	fields := strings.Fields(string(info))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
