package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/norwick/ekko/internal/models"
	"github.com/norwick/ekko/internal/slug"
)

// writeConcurrency bounds parallel file writes in WriteConversations.
const writeConcurrency = 4

// WriteConversations writes one Markdown transcript per conversation
// into dir, named <slug>-<id-prefix>.md so distinct conversations with
// identical titles never collide. Returns the written paths in input
// order.
func WriteConversations(ctx context.Context, dir string, convs []models.Conversation) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: mkdir %s: %w", dir, err)
	}

	paths := make([]string, len(convs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(writeConcurrency)

	for i, conv := range convs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, fileName(conv))
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("export: create %s: %w", path, err)
			}
			werr := ConversationMarkdown(f, conv)
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				return fmt.Errorf("export: write %s: %w", path, werr)
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func fileName(c models.Conversation) string {
	idPart := c.ID
	if len(idPart) > 8 {
		idPart = idPart[:8]
	}
	return fmt.Sprintf("%s-%s.md", slug.Make(c.Title), idPart)
}
