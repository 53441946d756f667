// Package parser turns listing cards and detail pages into product values.
//
// Card extraction is driven by a declarative rule table: every rule names a
// record key, a CSS or XPath selector evaluated relative to the card and an
// optional attribute. The key decides the coercion: price text is parsed,
// links are resolved against the base URL. Rules sharing a key are composed
// in table order. A selector that matches nothing yields an absent value.
package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/logging"
	"github.com/IshaanNene/PriceHound/internal/types"
)

// Record keys understood by the extractor.
const (
	KeyTitle       = "title"
	KeyPrice       = "price"
	KeyRatingCount = "rating_count"
	KeyLink        = "link"
)

// matcher evaluates one compiled rule against a card node.
type matcher interface {
	// first returns the value of the first matching node.
	first(card *goquery.Selection) (string, bool)
}

type compiledRule struct {
	config.FieldRule
	m matcher
}

// Extractor applies a card rule table.
type Extractor struct {
	rules      []compiledRule
	base       *url.URL
	currencies []string
	logger     zerolog.Logger
}

// NewExtractor compiles the rule table in src. Rules whose selector does not
// compile are logged once and always yield absent values.
func NewExtractor(src *config.SourceConfig, logger zerolog.Logger) (*Extractor, error) {
	base, err := url.Parse(src.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", src.BaseURL, err)
	}

	e := &Extractor{
		base:       base,
		currencies: src.CurrencySuffixes,
		logger:     logging.Component(logger, "extractor"),
	}

	for _, rule := range src.Fields {
		var (
			m   matcher
			err error
		)
		switch rule.Kind {
		case "xpath":
			m, err = newXPathMatcher(rule.Selector, rule.Attribute)
		default:
			m, err = newCSSMatcher(rule.Selector, rule.Attribute)
		}
		if err != nil {
			e.logger.Warn().Err(err).Str("key", rule.Key).Str("selector", rule.Selector).
				Msg("invalid selector, field will be absent")
			m = nil
		}
		e.rules = append(e.rules, compiledRule{FieldRule: rule, m: m})
	}
	return e, nil
}

// Extract builds one Product from a card node. It never fails: missing
// fields are left absent.
func (e *Extractor) Extract(card *goquery.Selection, pageURL string, position int) *types.Product {
	p := types.NewProduct(position)
	parts := make(map[string][]string, 4)
	selectors := make(map[string]string, 4)

	for _, rule := range e.rules {
		if rule.m == nil {
			continue
		}
		v, ok := rule.m.first(card)
		if !ok || v == "" {
			continue
		}
		parts[rule.Key] = append(parts[rule.Key], v)
		if _, seen := selectors[rule.Key]; !seen {
			selectors[rule.Key] = rule.Selector
		}
	}

	if title := parts[KeyTitle]; len(title) > 0 {
		p.Title = types.StringPtr(strings.Join(title, " "))
	}

	if raw := parts[KeyPrice]; len(raw) > 0 {
		price, err := ParsePrice(raw[0], e.currencies)
		if err != nil {
			p.RawPrice = raw[0]
			perr := &types.ParseError{URL: pageURL, Selector: selectors[KeyPrice], Raw: raw[0], Err: err}
			e.logger.Warn().Err(perr).Int("position", position).Msg("price left absent")
		} else {
			p.Price = types.FloatPtr(price)
		}
	}

	if rc := parts[KeyRatingCount]; len(rc) > 0 {
		p.RatingCount = types.StringPtr(rc[0])
	}

	if link := parts[KeyLink]; len(link) > 0 {
		if abs, ok := e.resolve(link[0]); ok {
			p.Link = abs
		}
	}

	return p
}

// resolve makes href absolute against the base URL.
func (e *Extractor) resolve(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := e.base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	abs.Fragment = ""
	return abs.String(), true
}

// normalizeSpace collapses runs of whitespace into single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
