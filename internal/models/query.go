package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/norwick/ekko/internal/apperr"
)

// MatchMode controls how multiple keywords combine.
type MatchMode string

// Match modes.
const (
	MatchAll MatchMode = "all"
	MatchAny MatchMode = "any"
)

// SortField selects the primary ordering of search results.
type SortField string

// Sort fields.
const (
	SortRelevance    SortField = "relevance"
	SortDate         SortField = "date"
	SortTitle        SortField = "title"
	SortMessageCount SortField = "messages"
)

// SortOrder selects ascending or descending ordering.
type SortOrder string

// Sort orders.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SearchQuery describes one search over an export. Constructed once per
// query and never mutated afterwards.
//
// Zero values mean "unset": an empty TitleFilter matches everything,
// zero dates disable the date bounds, zero message bounds disable the
// count filter, Limit 0 returns all matches.
type SearchQuery struct {
	Keywords        []string  `json:"keywords,omitempty"`
	Phrases         []string  `json:"phrases,omitempty"`
	ExcludeKeywords []string  `json:"exclude_keywords,omitempty"`
	TitleFilter     string    `json:"title_filter,omitempty"`
	FromDate        time.Time `json:"from_date,omitempty"`
	ToDate          time.Time `json:"to_date,omitempty"`
	MinMessages     int       `json:"min_messages,omitempty"`
	MaxMessages     int       `json:"max_messages,omitempty"`
	RoleFilter      Role      `json:"role_filter,omitempty"`
	MatchMode       MatchMode `json:"match_mode,omitempty"`
	SortBy          SortField `json:"sort_by,omitempty"`
	SortOrder       SortOrder `json:"sort_order,omitempty"`
	Limit           int       `json:"limit,omitempty"`
}

// Validate checks the query's internal consistency. Failures carry
// apperr.ErrValidation so callers can match the taxonomy tier.
func (q SearchQuery) Validate() error {
	err := validation.ValidateStruct(&q,
		validation.Field(&q.MinMessages, validation.Min(0)),
		validation.Field(&q.MaxMessages, validation.Min(0)),
		validation.Field(&q.Limit, validation.Min(1)),
		validation.Field(&q.RoleFilter, validation.In(RoleUser, RoleAssistant, RoleSystem)),
		validation.Field(&q.MatchMode, validation.In(MatchAll, MatchAny)),
		validation.Field(&q.SortBy, validation.In(SortRelevance, SortDate, SortTitle, SortMessageCount)),
		validation.Field(&q.SortOrder, validation.In(SortAsc, SortDesc)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if q.MaxMessages > 0 && q.MinMessages > q.MaxMessages {
		return fmt.Errorf("%w: min_messages (%d) exceeds max_messages (%d)",
			apperr.ErrValidation, q.MinMessages, q.MaxMessages)
	}
	if !q.FromDate.IsZero() && !q.ToDate.IsZero() && q.FromDate.After(q.ToDate) {
		return fmt.Errorf("%w: from_date is after to_date", apperr.ErrValidation)
	}
	return nil
}

// Mode returns the effective match mode, defaulting to MatchAny.
func (q SearchQuery) Mode() MatchMode {
	if q.MatchMode == MatchAll {
		return MatchAll
	}
	return MatchAny
}

// SearchResult wraps a matched conversation with its normalized
// relevance score in [0, 1), the ids of the messages that matched, and
// a snippet around the first match. Results order by score descending
// with conversation id ascending as the tie-break, so identical inputs
// always produce identical output.
type SearchResult struct {
	Conversation      Conversation `json:"conversation"`
	Score             float64      `json:"score"`
	MatchedMessageIDs []string     `json:"matched_message_ids,omitempty"`
	Snippet           string       `json:"snippet,omitempty"`
}
