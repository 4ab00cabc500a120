// Package search filters and ranks conversations with BM25 relevance
// scoring.
//
// A search is two passes: a streaming filter pass that discards
// non-matches without buffering them, then a scoring pass over the
// buffered matches, which form the corpus for document-frequency
// statistics. Because BM25 depends on corpus-wide statistics, results
// can only be ordered after every match has been seen; the limit is
// applied strictly after ranking ("top N by relevance", never "first N
// encountered").
package search

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/norwick/ekko/internal/models"
)

// BM25 parameters, the conventional defaults.
const (
	k1 = 1.5
	b  = 0.75
)

// defaultSnippetWidth bounds extracted snippets, in runes.
const defaultSnippetWidth = 160

// Stream is a lazy source of conversations, satisfied by
// provider.Cursor.
type Stream interface {
	Next() bool
	Conversation() models.Conversation
	Err() error
}

// Engine ranks conversations against queries. The zero value is not
// usable; construct with NewEngine.
type Engine struct {
	snippetWidth int
}

// NewEngine returns an engine with the default snippet width.
func NewEngine() *Engine {
	return &Engine{snippetWidth: defaultSnippetWidth}
}

// WithSnippetWidth returns an engine whose snippets are capped at
// width runes.
func (e *Engine) WithSnippetWidth(width int) *Engine {
	if width <= 0 {
		width = defaultSnippetWidth
	}
	return &Engine{snippetWidth: width}
}

// document is one buffered match with its precomputed token statistics.
type document struct {
	conv   models.Conversation
	tokens map[string]int
	length int
}

// Search drains the stream, filters, scores, orders, and truncates.
// The returned slice is the caller's; the engine keeps no state across
// calls. Identical stream content and query always produce identical
// output.
func (e *Engine) Search(s Stream, query models.SearchQuery) ([]models.SearchResult, error) {
	terms := queryTerms(query)

	// Pass 1: streaming filters. Only survivors are buffered.
	var corpus []document
	var totalLen int
	for s.Next() {
		conv := s.Conversation()
		if !e.matches(conv, query, terms) {
			continue
		}
		// The scored document is always the full conversation text; the
		// role filter narrows keyword matching, never the document.
		doc := document{conv: conv, tokens: make(map[string]int)}
		for _, tok := range tokenize(roleText(conv, "")) {
			doc.tokens[tok]++
			doc.length++
		}
		totalLen += doc.length
		corpus = append(corpus, doc)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if len(corpus) == 0 {
		return nil, nil
	}

	// Pass 2: BM25 over the buffered corpus.
	n := len(corpus)
	avgdl := float64(totalLen) / float64(n)
	df := make(map[string]int, len(terms))
	for _, t := range terms {
		for _, doc := range corpus {
			if doc.tokens[t] > 0 {
				df[t]++
			}
		}
	}

	results := make([]models.SearchResult, 0, n)
	for _, doc := range corpus {
		raw := bm25(doc, terms, df, n, avgdl)
		results = append(results, models.SearchResult{
			Conversation:      doc.conv,
			Score:             raw / (raw + 1),
			MatchedMessageIDs: matchedMessages(doc.conv, query.RoleFilter, terms),
			Snippet:           e.snippet(doc.conv, terms),
		})
	}

	orderResults(results, query)
	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

// minIDF floors the inverse document frequency. The corpus here is the
// filtered match set, so a query term routinely appears in every
// buffered document, where the raw Robertson IDF turns negative and
// would invert the ranking. The floor keeps term frequency and length
// normalization ordering such documents instead.
const minIDF = 1e-3

// bm25 computes the raw relevance of one document against the query
// terms.
func bm25(doc document, terms []string, df map[string]int, n int, avgdl float64) float64 {
	var score float64
	for _, t := range terms {
		tf := float64(doc.tokens[t])
		if tf == 0 {
			continue
		}
		idf := math.Log((float64(n) - float64(df[t]) + 0.5) / (float64(df[t]) + 0.5))
		if idf < minIDF {
			idf = minIDF
		}
		norm := tf * (k1 + 1) / (tf + k1*(1-b+b*float64(doc.length)/avgdl))
		score += idf * norm
	}
	return score
}

// matches applies every filter computable without corpus statistics.
func (e *Engine) matches(conv models.Conversation, q models.SearchQuery, terms []string) bool {
	if q.TitleFilter != "" &&
		!strings.Contains(strings.ToLower(conv.Title), strings.ToLower(q.TitleFilter)) {
		return false
	}
	if !q.FromDate.IsZero() && conv.CreatedAt.Before(q.FromDate) {
		return false
	}
	if !q.ToDate.IsZero() && conv.CreatedAt.After(q.ToDate) {
		return false
	}
	if q.MinMessages > 0 && conv.MessageCount() < q.MinMessages {
		return false
	}
	if q.MaxMessages > 0 && conv.MessageCount() > q.MaxMessages {
		return false
	}

	// Exclusions and phrases apply to the whole conversation text, even
	// under a role filter: presence anywhere in the document counts.
	text := strings.ToLower(roleText(conv, ""))
	tokens := tokenSet(text)

	for _, ex := range q.ExcludeKeywords {
		if tokens[strings.ToLower(ex)] {
			return false
		}
	}
	for _, phrase := range q.Phrases {
		if !strings.Contains(text, strings.ToLower(phrase)) {
			return false
		}
	}
	if len(q.Keywords) == 0 {
		return true
	}

	// Only keyword matching is restricted to the filtered role.
	matchTokens := tokens
	if q.RoleFilter != "" {
		matchTokens = tokenSet(roleText(conv, q.RoleFilter))
	}
	hits := 0
	for _, kw := range q.Keywords {
		if matchTokens[strings.ToLower(kw)] {
			hits++
		}
	}
	if q.Mode() == models.MatchAll {
		return hits == len(q.Keywords)
	}
	return hits > 0
}

// roleText joins message contents, restricted to one role when the
// query asks for it. The empty role joins everything.
func roleText(conv models.Conversation, role models.Role) string {
	var sb strings.Builder
	for _, m := range conv.Messages {
		if role != "" && m.Role != role {
			continue
		}
		if m.Content == "" {
			continue
		}
		sb.WriteString(m.Content)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// matchedMessages returns the ids of messages (within the allowed
// role) containing at least one query term, in message order.
func matchedMessages(conv models.Conversation, role models.Role, terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	var out []string
	for _, m := range conv.Messages {
		if role != "" && m.Role != role {
			continue
		}
		tokens := tokenSet(strings.ToLower(m.Content))
		for _, t := range terms {
			if tokens[t] {
				out = append(out, m.ID)
				break
			}
		}
	}
	return out
}

// snippet extracts a bounded window around the first query-term
// occurrence across the conversation's messages, in message order.
// Terms are located by substring, not token boundary, so the snippet
// may anchor inside a longer word containing the term.
func (e *Engine) snippet(conv models.Conversation, terms []string) string {
	if len(terms) == 0 {
		return ""
	}
	for _, m := range conv.Messages {
		// Lowering rune by rune keeps the rune count identical to the
		// original, so rune offsets found here address m.Content too.
		// Whole-string ToLower does not guarantee that.
		lower := lowerRunes(m.Content)
		best := -1
		for _, t := range terms {
			if idx := strings.Index(lower, t); idx >= 0 && (best < 0 || idx < best) {
				best = idx
			}
		}
		if best < 0 {
			continue
		}
		return window([]rune(m.Content), utf8.RuneCountInString(lower[:best]), e.snippetWidth)
	}
	return ""
}

// lowerRunes lowercases each rune in place, preserving the rune count.
func lowerRunes(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return string(runes)
}

// window cuts width runes around the rune offset center, with ellipses
// marking truncation. Rune-based so multi-byte text is never split.
func window(runes []rune, center, width int) string {
	start := center - width/4
	if start < 0 {
		start = 0
	}
	end := start + width
	if end > len(runes) {
		end = len(runes)
		if start = end - width; start < 0 {
			start = 0
		}
	}

	out := string(runes[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}

// queryTerms flattens keywords and phrase tokens into the lowercase
// term list used for scoring, matched-message collection, and
// snippets.
func queryTerms(q models.SearchQuery) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(t string) {
		t = strings.ToLower(t)
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, kw := range q.Keywords {
		add(kw)
	}
	for _, p := range q.Phrases {
		for _, tok := range tokenize(p) {
			add(tok)
		}
	}
	return out
}

// tokenize lowercases and splits on any non-letter, non-digit rune.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isWordRune(r)
	})
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokenize(s) {
		set[t] = true
	}
	return set
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r > 127
}

// orderResults sorts by the requested field, score-descending by
// default, always breaking ties by conversation id ascending so the
// ordering is total and reproducible.
func orderResults(results []models.SearchResult, q models.SearchQuery) {
	desc := q.SortOrder != models.SortAsc
	if q.SortOrder == "" && q.SortBy == models.SortTitle {
		desc = false
	}

	less := func(i, j models.SearchResult) int {
		switch q.SortBy {
		case models.SortDate:
			switch {
			case i.Conversation.CreatedAt.Before(j.Conversation.CreatedAt):
				return -1
			case i.Conversation.CreatedAt.After(j.Conversation.CreatedAt):
				return 1
			}
		case models.SortTitle:
			a, bt := strings.ToLower(i.Conversation.Title), strings.ToLower(j.Conversation.Title)
			switch {
			case a < bt:
				return -1
			case a > bt:
				return 1
			}
		case models.SortMessageCount:
			switch {
			case i.Conversation.MessageCount() < j.Conversation.MessageCount():
				return -1
			case i.Conversation.MessageCount() > j.Conversation.MessageCount():
				return 1
			}
		default:
			switch {
			case i.Score < j.Score:
				return -1
			case i.Score > j.Score:
				return 1
			}
		}
		return 0
	}

	sort.SliceStable(results, func(i, j int) bool {
		c := less(results[i], results[j])
		if desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return results[i].Conversation.ID < results[j].Conversation.ID
	})
}
