package extract

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

type markdownExtractor struct{}

var frontMatterRegex = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---\r?\n?`)

func (markdownExtractor) Extract(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	body := stripFrontMatter(data)
	text := markdownToText(body)
	return []Page{{Number: 1, Text: text}}, nil
}

// stripFrontMatter removes a leading YAML front-matter block. The block
// is only stripped when it parses as YAML; otherwise the fence lines
// are treated as document text.
func stripFrontMatter(data []byte) []byte {
	m := frontMatterRegex.FindSubmatch(data)
	if m == nil {
		return data
	}
	var meta map[string]any
	if err := yaml.Unmarshal(m[1], &meta); err != nil {
		return data
	}
	return data[len(m[0]):]
}

// markdownToText walks the goldmark AST and collects the plain text of
// every node, dropping markup.
func markdownToText(source []byte) string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(gmtext.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				if _, ok := n.(*ast.Document); !ok {
					b.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.AutoLink:
			b.Write(v.URL(source))
		case *ast.FencedCodeBlock:
			writeCodeLines(&b, source, v)
		case *ast.CodeBlock:
			writeCodeLines(&b, source, v)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func writeCodeLines(b *strings.Builder, source []byte, n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.Write(line.Value(source))
	}
}
