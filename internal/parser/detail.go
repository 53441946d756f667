package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"github.com/rs/zerolog"

	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/logging"
)

// labelLookup finds the value node for one configured label.
type labelLookup struct {
	key   string
	label string
	css   *cssMatcher
	xpath *xpath.Expr
}

// DetailParser extracts the labeled attribute rows of a detail page.
type DetailParser struct {
	kind       string
	lookups    []labelLookup
	collectAll bool
	rowSel     string
	rowLabel   string
	rowValue   string
	logger     zerolog.Logger
}

// NewDetailParser compiles one lookup per configured label by substituting
// the label into the value template. The template locates the value node
// adjacent to the label node.
func NewDetailParser(cfg *config.DetailConfig, logger zerolog.Logger) (*DetailParser, error) {
	p := &DetailParser{
		kind:       cfg.Kind,
		collectAll: cfg.CollectAll,
		rowSel:     cfg.RowSelector,
		rowLabel:   cfg.RowLabel,
		rowValue:   cfg.RowValue,
		logger:     logging.Component(logger, "detail_parser"),
	}

	for _, l := range cfg.Labels {
		lk := labelLookup{key: l.Key, label: l.Label}
		switch cfg.Kind {
		case "xpath":
			expr, err := xpath.Compile(fmt.Sprintf(cfg.ValueTemplate, xpathString(l.Label)))
			if err != nil {
				return nil, fmt.Errorf("detail label %q: %w", l.Label, err)
			}
			lk.xpath = expr
		default:
			m, err := newCSSMatcher(fmt.Sprintf(cfg.ValueTemplate, cssString(l.Label)), "")
			if err != nil {
				return nil, fmt.Errorf("detail label %q: %w", l.Label, err)
			}
			lk.css = m
		}
		p.lookups = append(p.lookups, lk)
	}
	return p, nil
}

// Keys returns the attribute keys this parser always reports.
func (p *DetailParser) Keys() []string {
	keys := make([]string, 0, len(p.lookups))
	for _, lk := range p.lookups {
		keys = append(keys, lk.key)
	}
	return keys
}

// Parse returns one entry per configured label: the trimmed value, or nil when
// the row is missing. With collect-all enabled every other labeled row is
// added under its visible label.
func (p *DetailParser) Parse(body []byte) (map[string]*string, error) {
	attrs := make(map[string]*string, len(p.lookups))

	switch p.kind {
	case "xpath":
		root, err := htmlquery.Parse(bytes.NewReader(body))
		if err != nil {
			return attrs, err
		}
		for _, lk := range p.lookups {
			attrs[lk.key] = nil
			if node := htmlquery.QuerySelector(root, lk.xpath); node != nil {
				if v, _ := nodeValue(node, ""); v != "" {
					attrs[lk.key] = &v
				}
			}
		}
	default:
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return attrs, err
		}
		for _, lk := range p.lookups {
			attrs[lk.key] = nil
			if v, ok := lk.css.first(doc.Selection); ok && v != "" {
				attrs[lk.key] = &v
			}
		}
		if p.collectAll {
			p.collectRows(doc, attrs)
		}
	}

	return attrs, nil
}

// collectRows adds every labeled row not already covered by a lookup.
func (p *DetailParser) collectRows(doc *goquery.Document, attrs map[string]*string) {
	known := make(map[string]bool, len(p.lookups))
	for _, lk := range p.lookups {
		known[lk.label] = true
	}

	doc.Find(p.rowSel).Each(func(_ int, row *goquery.Selection) {
		labelNode := row.Find(p.rowLabel).First()
		label, ok := labelNode.Attr("title")
		if !ok || strings.TrimSpace(label) == "" {
			label = labelNode.Text()
		}
		label = normalizeSpace(label)
		if label == "" || known[label] {
			return
		}
		if _, exists := attrs[label]; exists {
			return
		}
		value := normalizeSpace(row.Find(p.rowValue).First().Text())
		if value == "" {
			attrs[label] = nil
			return
		}
		attrs[label] = &value
	})
}
