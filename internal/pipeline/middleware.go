package pipeline

import (
	"html"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/IshaanNene/PriceHound/internal/logging"
	"github.com/IshaanNene/PriceHound/internal/types"
)

// Middleware normalizes a product in place. Middlewares never drop records:
// every card yields exactly one product.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process normalizes the product.
	Process(p *types.Product) error
}

// Chain runs middlewares in order.
type Chain struct {
	middlewares []Middleware
	logger      zerolog.Logger
}

// NewChain creates an empty chain.
func NewChain(logger zerolog.Logger) *Chain {
	return &Chain{logger: logging.Component(logger, "middleware")}
}

// DefaultChain returns the normalizing chain used by the scrape pipeline.
func DefaultChain(logger zerolog.Logger) *Chain {
	c := NewChain(logger)
	c.Use(NewHTMLSanitizeMiddleware())
	c.Use(&TrimMiddleware{})
	return c
}

// Use adds a middleware to the chain.
func (c *Chain) Use(mw Middleware) {
	c.middlewares = append(c.middlewares, mw)
	c.logger.Debug().Str("name", mw.Name()).Int("position", len(c.middlewares)).Msg("middleware added")
}

// Process runs the product through every middleware. A failing middleware is
// logged and skipped; the product is kept.
func (c *Chain) Process(p *types.Product) {
	for _, mw := range c.middlewares {
		if err := mw.Process(p); err != nil {
			c.logger.Warn().Err(err).Str("stage", mw.Name()).Int("position", p.Position).Msg("middleware failed, keeping product")
		}
	}
}

// Len returns the number of middlewares in the chain.
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// TrimMiddleware trims text values and turns empty ones into absent values.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(p *types.Product) error {
	p.Title = trimOrNil(p.Title)
	p.RatingCount = trimOrNil(p.RatingCount)
	for k, v := range p.Attributes {
		p.Attributes[k] = trimOrNil(v)
	}
	return nil
}

func trimOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// HTMLSanitizeMiddleware strips leftover tags and decodes entities in text values.
type HTMLSanitizeMiddleware struct {
	stripRe *regexp.Regexp
}

func NewHTMLSanitizeMiddleware() *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(p *types.Product) error {
	p.Title = m.clean(p.Title)
	for k, v := range p.Attributes {
		p.Attributes[k] = m.clean(v)
	}
	return nil
}

func (m *HTMLSanitizeMiddleware) clean(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := html.UnescapeString(m.stripRe.ReplaceAllString(*s, ""))
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return &cleaned
}
