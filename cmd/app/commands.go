package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/norwick/ekko/internal"
	"github.com/norwick/ekko/internal/export"
	"github.com/norwick/ekko/internal/models"
	"github.com/norwick/ekko/internal/provider"
	"github.com/norwick/ekko/internal/thread"
	pkgconfig "github.com/norwick/ekko/pkg/config"
)

// sourceFlags are shared by every command that reads an export file.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "file",
			Aliases:  []string{"f"},
			Usage:    "Path to the conversation export file (JSON array)",
			Required: true,
			Sources:  cli.EnvVars("EKKO_SOURCE"),
		},
		&cli.StringFlag{
			Name:    "provider",
			Usage:   "Export provider: auto, openai, or claude",
			Value:   internal.ProviderAuto,
			Sources: cli.EnvVars("EKKO_PROVIDER"),
		},
	}
}

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "phrase", Usage: "Exact phrase that must appear (repeatable)"},
		&cli.StringSliceFlag{Name: "exclude", Usage: "Keyword that disqualifies a match (repeatable)"},
		&cli.StringFlag{Name: "title", Usage: "Case-insensitive title substring filter"},
		&cli.StringFlag{Name: "from", Usage: "Earliest creation date (YYYY-MM-DD, inclusive)"},
		&cli.StringFlag{Name: "to", Usage: "Latest creation date (YYYY-MM-DD, inclusive)"},
		&cli.IntFlag{Name: "min-messages", Usage: "Minimum message count"},
		&cli.IntFlag{Name: "max-messages", Usage: "Maximum message count"},
		&cli.StringFlag{Name: "role", Usage: "Restrict keyword matching to one role: user, assistant, system"},
		&cli.StringFlag{Name: "match", Usage: "Keyword combination: any (default) or all", Value: string(models.MatchAny)},
		&cli.StringFlag{Name: "sort", Usage: "Sort field: relevance, date, title, messages", Value: string(models.SortRelevance)},
		&cli.StringFlag{Name: "order", Usage: "Sort order: asc or desc"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum number of results", Value: 20},
	}
}

// adapterFor resolves the provider variant for the command's flags.
func adapterFor(cmd *cli.Command) (*provider.Adapter, string, error) {
	source := cmd.String("file")
	adapter, err := internal.ResolveAdapter(cmd.String("provider"), source)
	if err != nil {
		return nil, "", err
	}
	return adapter, source, nil
}

// observer reports skipped records and scan progress through slog, so
// the CLI never loses a dropped record silently.
func observer() *provider.Observer {
	return &provider.Observer{
		Progress: func(count int) {
			slog.Debug("scan progress", slog.Int("records", count))
		},
		Skip: func(id, reason string) {
			slog.Warn("record skipped", slog.String("id", id), slog.String("reason", reason))
		},
	}
}

// buildQuery assembles a SearchQuery from command flags and positional
// keyword arguments.
func buildQuery(cmd *cli.Command) (models.SearchQuery, error) {
	query := models.SearchQuery{
		Keywords:        cmd.Args().Slice(),
		Phrases:         cmd.StringSlice("phrase"),
		ExcludeKeywords: cmd.StringSlice("exclude"),
		TitleFilter:     cmd.String("title"),
		MinMessages:     int(cmd.Int("min-messages")),
		MaxMessages:     int(cmd.Int("max-messages")),
		RoleFilter:      models.Role(cmd.String("role")),
		MatchMode:       models.MatchMode(cmd.String("match")),
		SortBy:          models.SortField(cmd.String("sort")),
		SortOrder:       models.SortOrder(cmd.String("order")),
		Limit:           int(cmd.Int("limit")),
	}

	var err error
	if query.FromDate, err = parseDate(cmd.String("from")); err != nil {
		return query, err
	}
	if query.ToDate, err = parseDate(cmd.String("to")); err != nil {
		return query, err
	}
	if !query.ToDate.IsZero() {
		// Inclusive day bound: anything created on the "to" day matches.
		query.ToDate = query.ToDate.Add(24*time.Hour - time.Nanosecond)
	}
	return query, query.Validate()
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List conversations in the export",
		Flags: append(sourceFlags(),
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of conversations to list"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			adapter, source, err := adapterFor(cmd)
			if err != nil {
				return err
			}
			cur, err := adapter.StreamConversations(source, observer())
			if err != nil {
				return err
			}
			defer cur.Close()

			limit := int(cmd.Int("limit"))
			count := 0
			for cur.Next() {
				if limit > 0 && count >= limit {
					break
				}
				c := cur.Conversation()
				fmt.Printf("%s\t%s\t%d messages\t%s\n",
					c.ID, c.Title, c.MessageCount(), c.CreatedAt.Format("2006-01-02"))
				count++
			}
			if err := cur.Err(); err != nil {
				return err
			}
			fmt.Printf("%d conversations\n", count)
			return nil
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search conversations, ranked by relevance",
		ArgsUsage: "[keywords...]",
		Flags: append(append(sourceFlags(), queryFlags()...),
			&cli.StringFlag{Name: "format", Usage: "Output format: markdown, csv, or json", Value: export.FormatMarkdown},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			adapter, source, err := adapterFor(cmd)
			if err != nil {
				return err
			}
			query, err := buildQuery(cmd)
			if err != nil {
				return err
			}
			render, err := export.ByFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			results, err := adapter.Search(source, query, observer())
			if err != nil {
				return err
			}
			return render(os.Stdout, results)
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one conversation (or one message) by id or id prefix",
		ArgsUsage: "<conversation-id>",
		Flags: append(sourceFlags(),
			&cli.StringFlag{Name: "message", Usage: "Show a single message by id instead"},
			&cli.BoolFlag{Name: "threads", Usage: "Print every root-to-leaf thread instead of the transcript"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			adapter, source, err := adapterFor(cmd)
			if err != nil {
				return err
			}

			if msgID := cmd.String("message"); msgID != "" {
				msg, conv, err := adapter.GetMessageByID(source, msgID, cmd.Args().First(), observer())
				if err != nil {
					return err
				}
				fmt.Printf("conversation: %s (%s)\n", conv.Title, conv.ID)
				fmt.Printf("message %s [%s] %s\n\n%s\n",
					msg.ID, msg.Role, msg.Timestamp.Format(time.RFC3339), msg.Content)
				return nil
			}

			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("conversation id is required")
			}
			conv, err := adapter.GetConversationByID(source, id, observer())
			if err != nil {
				return err
			}

			if cmd.Bool("threads") {
				tree := thread.New(conv)
				for i, path := range tree.AllThreads() {
					ids := make([]string, len(path))
					for j, m := range path {
						ids[j] = m.ID
					}
					fmt.Printf("thread %d (%d messages): %s\n", i+1, len(path), strings.Join(ids, " -> "))
				}
				return nil
			}
			return export.ConversationMarkdown(os.Stdout, conv)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write matching conversations as Markdown transcripts, one file each",
		ArgsUsage: "[keywords...]",
		Flags: append(append(sourceFlags(), queryFlags()...),
			&cli.StringFlag{Name: "out", Usage: "Output directory", Value: "./exports"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			adapter, source, err := adapterFor(cmd)
			if err != nil {
				return err
			}
			query, err := buildQuery(cmd)
			if err != nil {
				return err
			}

			results, err := adapter.Search(source, query, observer())
			if err != nil {
				return err
			}
			convs := make([]models.Conversation, len(results))
			for i, r := range results {
				convs[i] = r.Conversation
			}

			paths, err := export.WriteConversations(ctx, cmd.String("out"), convs)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			fmt.Printf("%d conversations written\n", len(paths))
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the export over MCP (stdio transport)",
		Flags: append(sourceFlags()[:1],
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("EKKO_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "provider",
				Usage:   "Export provider: auto, openai, or claude",
				Sources: cli.EnvVars("EKKO_PROVIDER"),
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := internal.NewDefaultConfig()
			configPath := cmd.String("config")
			if _, err := os.Stat(configPath); err == nil {
				if err := pkgconfig.Load(configPath, cfg); err != nil {
					return fmt.Errorf("failed to parse config: %w", err)
				}
			}
			if p := cmd.String("provider"); p != "" {
				cfg.Source.Provider = p
			}

			opts := []internal.Option{
				internal.WithConfig(cfg),
				internal.WithSource(cmd.String("file")),
			}
			if err := internal.Run(ctx, opts...); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
	}
}
