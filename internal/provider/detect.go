package provider

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/norwick/ekko/internal/apperr"
	"github.com/norwick/ekko/internal/decode"
)

// Detect peeks at the first record of the export at path and returns
// the adapter whose schema matches its structural shape: a node
// mapping marks an OpenAI tree export, a chat_messages array a Claude
// linear export. Sources matching neither (or empty arrays, which
// carry no shape at all) fail with apperr.ErrUnsupportedSchema.
func Detect(path string) (*Adapter, error) {
	f, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	first, err := decode.First(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, fmt.Errorf("provider: empty export: %w", apperr.ErrUnsupportedSchema)
	}

	var probe struct {
		Mapping      json.RawMessage `json:"mapping"`
		ChatMessages json.RawMessage `json:"chat_messages"`
	}
	if err := json.Unmarshal(first, &probe); err != nil {
		return nil, fmt.Errorf("provider: first record is not an object: %w", apperr.ErrUnsupportedSchema)
	}

	switch {
	case len(probe.Mapping) > 0:
		return NewOpenAI(), nil
	case len(probe.ChatMessages) > 0:
		return NewClaude(), nil
	default:
		return nil, fmt.Errorf("provider: unrecognized record shape: %w", apperr.ErrUnsupportedSchema)
	}
}

// ByName returns the adapter for an explicitly configured variant,
// bypassing detection. Empty and "auto" defer to Detect at call sites.
func ByName(name string) (*Adapter, error) {
	switch name {
	case "openai":
		return NewOpenAI(), nil
	case "claude":
		return NewClaude(), nil
	default:
		return nil, fmt.Errorf("provider: unknown provider %q: %w", name, apperr.ErrUnsupportedSchema)
	}
}
