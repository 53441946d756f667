package index

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/IshaanNene/PriceHound/internal/types"
)

// MemoryBackend is an in-process index with the same query semantics as the
// Elasticsearch backend: AUTO fuzziness per term, best-field scoring with
// boosts, the non-negative price filter and range buckets over every match.
type MemoryBackend struct {
	mu      sync.RWMutex
	name    string
	created bool
	docs    []storedDoc
}

type storedDoc struct {
	id  string
	doc types.Document
}

// NewMemoryBackend creates an empty memory index.
func NewMemoryBackend(name string) *MemoryBackend {
	return &MemoryBackend{name: name}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) EnsureSchema(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = true
	return nil
}

func (m *MemoryBackend) WriteBatch(_ context.Context, docs []types.Document) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = true
	for _, d := range docs {
		m.docs = append(m.docs, storedDoc{id: uuid.NewString(), doc: d})
	}
	return len(docs), nil
}

func (m *MemoryBackend) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

func (m *MemoryBackend) Drop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = nil
	m.created = false
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

type scored struct {
	storedDoc
	score float64
}

func (m *MemoryBackend) Search(ctx context.Context, q Query) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.created {
		return nil, &types.StorageError{Backend: m.Name(), Err: fmt.Errorf("index %q does not exist", m.name)}
	}

	// Casers are stateful; each search gets its own.
	fold := cases.Fold()
	matchAll := strings.TrimSpace(q.Text) == ""
	terms := analyze(fold, q.Text)
	fields := parseFields(q.Fields)

	var matches []scored
	for _, sd := range m.docs {
		if !hasNonNegative(sd.doc.Prices) {
			continue
		}
		score := 1.0
		if !matchAll {
			score = 0
			for _, f := range fields {
				if s := f.boost * fieldScore(fold, f.name, sd.doc, q.Text, terms); s > score {
					score = s
				}
			}
			if score == 0 {
				continue
			}
		}
		matches = append(matches, scored{storedDoc: sd, score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	res := &SearchResult{Total: int64(len(matches))}
	for _, b := range q.Buckets {
		bucket := Bucket{Key: b.Key, From: b.From, To: b.To}
		for _, sd := range matches {
			if inRange(sd.doc.Prices, b.From, b.To) {
				bucket.Count++
			}
		}
		res.Buckets = append(res.Buckets, bucket)
	}

	size := q.Size
	if size > len(matches) || size < 0 {
		size = len(matches)
	}
	for _, sd := range matches[:size] {
		res.Hits = append(res.Hits, Hit{ID: sd.id, Score: sd.score, Document: sd.doc})
	}
	return res, nil
}

// fieldScore scores one field. Text fields sum the best match of every query
// term; keyword fields compare the whole query with the whole value.
// Attributes are stored but not searchable.
func fieldScore(fold cases.Caser, field string, doc types.Document, raw string, terms []string) float64 {
	switch field {
	case "product_name":
		if doc.ProductName == nil {
			return 0
		}
		tokens := analyze(fold, *doc.ProductName)
		total := 0.0
		for _, term := range terms {
			best := 0.0
			for _, tok := range tokens {
				if s := similarity(term, tok); s > best {
					best = s
				}
			}
			total += best
		}
		return total
	case "rating_count":
		if doc.RatingCount == nil {
			return 0
		}
		return similarity(raw, *doc.RatingCount)
	default:
		return 0
	}
}

// analyze splits text into case-folded tokens on anything that is not a
// letter or digit.
func analyze(fold cases.Caser, text string) []string {
	text = fold.String(norm.NFC.String(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// AutoFuzziness is the edit distance allowed for a term: none up to two
// characters, one up to five, two beyond.
func AutoFuzziness(term string) int {
	switch n := utf8.RuneCountInString(term); {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// similarity is 1 for an exact match, less for each edit, and 0 beyond the
// allowed fuzziness.
func similarity(term, candidate string) float64 {
	if term == "" {
		return 0
	}
	if term == candidate {
		return 1
	}
	maxEdits := AutoFuzziness(term)
	d := matchr.DamerauLevenshtein(term, candidate)
	if d > maxEdits {
		return 0
	}
	return 1 - float64(d)/float64(maxEdits+1)
}

type boostedField struct {
	name  string
	boost float64
}

// parseFields reads "name^boost" field specs.
func parseFields(specs []string) []boostedField {
	out := make([]boostedField, 0, len(specs))
	for _, s := range specs {
		name, boostText, found := strings.Cut(s, "^")
		boost := 1.0
		if found {
			if b, err := strconv.ParseFloat(boostText, 64); err == nil && b > 0 {
				boost = b
			}
		}
		out = append(out, boostedField{name: name, boost: boost})
	}
	return out
}

func hasNonNegative(prices []float64) bool {
	for _, p := range prices {
		if p >= 0 {
			return true
		}
	}
	return false
}

// inRange reports whether any price falls in [from, to).
func inRange(prices []float64, from, to *float64) bool {
	for _, p := range prices {
		if from != nil && p < *from {
			continue
		}
		if to != nil && p >= *to {
			continue
		}
		return true
	}
	return false
}
