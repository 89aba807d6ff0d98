package preview

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

var lexerNames = map[string]string{
	"html":  "html",
	"react": "react",
	"vue":   "vue",
}

var formatter = chromahtml.New(
	chromahtml.WithLineNumbers(true),
	chromahtml.TabWidth(2),
)

// Highlight renders code as a highlighted HTML fragment. Unknown languages
// fall back to content analysis and then to plain text.
func Highlight(code, language string) (template.HTML, error) {
	lexer := lexerFor(code, language)

	style := styles.Get("github-dark")
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenise code: %w", err)
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "", fmt.Errorf("format code: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func lexerFor(code, language string) chroma.Lexer {
	var lexer chroma.Lexer
	if name, ok := lexerNames[strings.ToLower(language)]; ok {
		lexer = lexers.Get(name)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}
