// Package preview decides whether generated markup is worth rendering live
// and produces highlighted source for the code tab.
//
// The check is a heuristic. It flags documents whose head and body are both
// empty, which is what a browser shows for non-HTML output or markup that
// fails to load. It can miss broken pages that still produce elements.
package preview

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Result is the outcome of a preview check.
type Result struct {
	Failed bool
	Reason string
}

// Fallback reasons.
const (
	ReasonEmptyDocument   = "The generated code produced an empty document."
	ReasonUninspectable   = "The generated code could not be inspected."
	ReasonUnsupportedType = "Live preview is only available for HTML."
)

// Check inspects code as an HTML document. Blank input never fails.
func Check(code string) (res Result) {
	if strings.TrimSpace(code) == "" {
		return Result{}
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Preview inspection panicked", "error", fmt.Sprint(r))
			res = Result{Failed: true, Reason: ReasonUninspectable}
		}
	}()

	doc, err := html.Parse(strings.NewReader(code))
	if err != nil {
		return Result{Failed: true, Reason: ReasonUninspectable}
	}

	head := findElement(doc, atom.Head)
	body := findElement(doc, atom.Body)
	if head == nil || body == nil {
		return Result{Failed: true, Reason: ReasonUninspectable}
	}

	if elementChildren(head) == 0 && elementChildren(body) == 0 {
		return Result{Failed: true, Reason: ReasonEmptyDocument}
	}
	return Result{}
}

// CheckFor runs Check for HTML targets. Other targets have no live preview.
func CheckFor(code, language string) Result {
	if !strings.EqualFold(language, "HTML") {
		return Result{Failed: true, Reason: ReasonUnsupportedType}
	}
	return Check(code)
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func elementChildren(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			count++
		}
	}
	return count
}
