package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/urfave/cli/v3"

	"github.com/skosovsky/convo"
	anthropicadapter "github.com/skosovsky/convo/adapter/anthropic"
	"github.com/skosovsky/convo/ext/otelconvo"
	"github.com/skosovsky/convo/fileregistry"
	"github.com/skosovsky/convo/manifest"
	"github.com/skosovsky/convo/remoteregistry"
	gitfetcher "github.com/skosovsky/convo/remoteregistry/git"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := &cli.Command{
		Name:      "convo",
		Usage:     "Translate conversation manifests to the Anthropic Messages format",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelWarn.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "load conversations by id from this directory",
			},
			&cli.StringFlag{
				Name:  "remote",
				Usage: "load conversations by id from this base URL",
			},
			&cli.StringFlag{
				Name:  "git",
				Usage: "load conversations by id from this Git repository URL",
			},
			&cli.StringFlag{
				Name:  "git-branch",
				Usage: "branch for --git",
				Value: "main",
			},
			&cli.StringFlag{
				Name:  "git-dir",
				Usage: "manifest directory inside the --git repository",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "access token for --remote or --git",
				Sources: cli.EnvVars("CONVO_REMOTE_TOKEN"),
			},
		},
		Commands: []*cli.Command{
			formatCommand(),
			requestCommand(),
			toolsCommand(),
		},
	}
	return cmd.Run(ctx, args)
}

func formatCommand() *cli.Command {
	return &cli.Command{
		Name:      "format",
		Usage:     "Print the system prompt and wire messages",
		ArgsUsage: "<manifest.yaml | id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			conv, logger, err := load(ctx, cmd)
			if err != nil {
				return err
			}
			formatted, err := anthropicadapter.Format(conv.Messages)
			if err != nil {
				return err
			}
			logger.DebugContext(ctx, "formatted conversation",
				slog.String("id", conv.ID), slog.Int("messages", len(formatted.Messages)))
			return writeJSON(cmd.Root().Writer, formatted)
		},
	}
}

func requestCommand() *cli.Command {
	return &cli.Command{
		Name:      "request",
		Usage:     "Print the full Messages API request body",
		ArgsUsage: "<manifest.yaml | id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "model",
				Usage: "model used when the manifest sets none",
				Value: string(anthropic.ModelClaudeSonnet4_5_20250929),
			},
			&cli.Int64Flag{
				Name:  "max-tokens",
				Usage: "max_tokens used when the manifest sets none",
				Value: 1024,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			conv, logger, err := load(ctx, cmd)
			if err != nil {
				return err
			}
			pa := otelconvo.Wrap(anthropicadapter.New(
				anthropicadapter.WithModel(anthropic.Model(cmd.String("model"))),
				anthropicadapter.WithMaxTokens(cmd.Int64("max-tokens")),
				anthropicadapter.WithLogger(logger),
			), otelconvo.WithProviderName("anthropic"))
			params, err := pa.Translate(ctx, conv)
			if err != nil {
				return err
			}
			return writeJSON(cmd.Root().Writer, params)
		},
	}
}

func toolsCommand() *cli.Command {
	return &cli.Command{
		Name:      "tools",
		Usage:     "Print the canonical tool definitions",
		ArgsUsage: "<manifest.yaml | id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			conv, _, err := load(ctx, cmd)
			if err != nil {
				return err
			}
			tools := conv.Tools
			if tools == nil {
				tools = []convo.ToolDefinition{}
			}
			return writeJSON(cmd.Root().Writer, tools)
		},
	}
}

// load resolves the single argument through a registry source when one is set, otherwise
// reads it as a manifest file path.
func load(ctx context.Context, cmd *cli.Command) (*convo.Conversation, *slog.Logger, error) {
	root := cmd.Root()
	logger, err := newLogger(root.ErrWriter, root.String("log-level"), root.String("log-format"))
	if err != nil {
		return nil, nil, err
	}
	if cmd.Args().Len() != 1 {
		return nil, nil, fmt.Errorf("%s: expected exactly one argument, got %d", cmd.Name, cmd.Args().Len())
	}
	arg := cmd.Args().First()

	reg, err := registryFor(root, logger)
	if err != nil {
		return nil, nil, err
	}
	if reg == nil {
		conv, err := manifest.ParseFile(arg)
		return conv, logger, err
	}
	conv, err := reg.GetConversation(ctx, arg)
	return conv, logger, err
}

// registryFor returns the registry selected by --dir, --remote or --git, or nil for none.
func registryFor(root *cli.Command, logger *slog.Logger) (convo.Registry, error) {
	dir, remote, repo := root.String("dir"), root.String("remote"), root.String("git")
	set := 0
	for _, v := range []string{dir, remote, repo} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return nil, errors.New("--dir, --remote and --git are mutually exclusive")
	}
	switch {
	case dir != "":
		return fileregistry.New(dir), nil
	case remote != "":
		fetcher, err := remoteregistry.NewHTTPFetcher(remote, remoteregistry.WithAuthToken(root.String("token")))
		if err != nil {
			return nil, err
		}
		return remoteregistry.New(fetcher, remoteregistry.WithLogger(logger)), nil
	case repo != "":
		fetcher, err := gitfetcher.NewFetcher(repo,
			gitfetcher.WithBranch(root.String("git-branch")),
			gitfetcher.WithDir(root.String("git-dir")),
			gitfetcher.WithAuth(root.String("token")),
			gitfetcher.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return remoteregistry.New(fetcher, remoteregistry.WithLogger(logger)), nil
	}
	return nil, nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
