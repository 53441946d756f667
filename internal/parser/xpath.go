package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// xpathMatcher evaluates a compiled XPath expression relative to the card.
type xpathMatcher struct {
	expr      *xpath.Expr
	attribute string
}

func newXPathMatcher(expr, attribute string) (*xpathMatcher, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile xpath %q: %w", expr, err)
	}
	return &xpathMatcher{expr: compiled, attribute: attribute}, nil
}

func (m *xpathMatcher) first(card *goquery.Selection) (string, bool) {
	if card.Length() == 0 {
		return "", false
	}
	node := htmlquery.QuerySelector(card.Get(0), m.expr)
	if node == nil {
		return "", false
	}
	return nodeValue(node, m.attribute)
}

func nodeValue(node *html.Node, attribute string) (string, bool) {
	switch attribute {
	case "", "text":
		return normalizeSpace(htmlquery.InnerText(node)), true
	case "html", "innerHTML":
		return strings.TrimSpace(htmlquery.OutputHTML(node, false)), true
	default:
		for _, a := range node.Attr {
			if a.Key == attribute {
				return strings.TrimSpace(a.Val), true
			}
		}
		return "", false
	}
}

// xpathString renders s as an XPath string literal, using concat() when s
// contains both quote kinds.
func xpathString(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		quoted = append(quoted, `"`+p+`"`)
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
