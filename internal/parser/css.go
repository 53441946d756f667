package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// cssMatcher reads text or an attribute from the first node matching a
// compiled CSS selector.
type cssMatcher struct {
	sel       cascadia.Selector
	attribute string
}

func newCSSMatcher(selector, attribute string) (*cssMatcher, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compile css %q: %w", selector, err)
	}
	return &cssMatcher{sel: sel, attribute: attribute}, nil
}

func (m *cssMatcher) first(card *goquery.Selection) (string, bool) {
	node := card.FindMatcher(m.sel).First()
	if node.Length() == 0 {
		return "", false
	}
	return selectionValue(node, m.attribute)
}

func selectionValue(sel *goquery.Selection, attribute string) (string, bool) {
	switch attribute {
	case "", "text":
		return normalizeSpace(sel.Text()), true
	case "html", "innerHTML":
		h, err := sel.Html()
		return strings.TrimSpace(h), err == nil
	default:
		v, ok := sel.Attr(attribute)
		return strings.TrimSpace(v), ok
	}
}

// cssString quotes s for use inside a double-quoted CSS attribute value.
func cssString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
