// Package decode incrementally reads a top-level JSON array, yielding
// one raw element at a time so peak memory is bounded by the largest
// single element rather than the file.
package decode

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/norwick/ekko/internal/apperr"
)

// Cursor is a single-use, forward-only reader over the elements of a
// JSON array. It never seeks; re-reading requires a new Cursor over a
// fresh reader.
//
// A Cursor must not be shared between goroutines.
type Cursor struct {
	dec   *json.Decoder
	err   error
	done  bool
	index int
}

// New prepares a cursor over r. The opening bracket is consumed
// eagerly, so a source that is not a JSON array fails here, before any
// element is yielded. The failure carries apperr.ErrDecodeFailure.
func New(r io.Reader) (*Cursor, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: reading top-level token: %v", apperr.ErrDecodeFailure, err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '[' {
		return nil, fmt.Errorf("%w: top-level value is %v, want array", apperr.ErrDecodeFailure, tok)
	}
	return &Cursor{dec: dec}, nil
}

// Next returns the next raw element and true, or nil and false when the
// array is exhausted or the stream breaks. After Next returns false,
// Err distinguishes clean end from mid-stream corruption.
//
// Elements are returned as raw bytes even when their shape is
// unexpected; deciding whether to skip a structurally odd element is
// the caller's policy, not the decoder's.
func (c *Cursor) Next() (json.RawMessage, bool) {
	if c.done {
		return nil, false
	}
	if !c.dec.More() {
		// Consume the closing bracket so truncation is detected.
		if _, err := c.dec.Token(); err != nil {
			c.err = fmt.Errorf("%w: closing array: %v", apperr.ErrDecodeFailure, err)
		}
		c.done = true
		return nil, false
	}

	var raw json.RawMessage
	if err := c.dec.Decode(&raw); err != nil {
		// Invalid JSON mid-array cannot be resynchronized; this is a
		// structural failure, not a skippable record.
		c.err = fmt.Errorf("%w: element %d: %v", apperr.ErrDecodeFailure, c.index, err)
		c.done = true
		return nil, false
	}
	c.index++
	return raw, true
}

// Err returns the structural error that terminated the stream, if any.
func (c *Cursor) Err() error { return c.err }

// Index returns the number of elements yielded so far. It doubles as
// the positional index of the next element.
func (c *Cursor) Index() int { return c.index }

// First reads only the first element of the array in r. It is used to
// peek at a source's structural shape without consuming the caller's
// stream. An empty array returns (nil, nil).
func First(r io.Reader) (json.RawMessage, error) {
	cur, err := New(r)
	if err != nil {
		return nil, err
	}
	raw, ok := cur.Next()
	if !ok {
		return nil, cur.Err()
	}
	return raw, nil
}
