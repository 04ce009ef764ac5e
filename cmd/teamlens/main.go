package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teamlenshq/teamlens/combined"
	"github.com/teamlenshq/teamlens/internal/config"
	"github.com/teamlenshq/teamlens/mcp"
	"github.com/teamlenshq/teamlens/platform/atlassian"
	"github.com/teamlenshq/teamlens/platform/github"
	"github.com/teamlenshq/teamlens/platform/msgraph"
	"github.com/teamlenshq/teamlens/platform/slack"
	"github.com/teamlenshq/teamlens/tool"
)

var rootCmd = &cobra.Command{
	Use:   "teamlens",
	Short: "An MCP server for workplace tools",
	Long: `teamlens is an MCP server that exposes Slack, Outlook, Atlassian, and
GitHub as tools an LLM can call. Platforms are connected by providing
credentials in the config file or environment; only connected platforms
register their tools.

It serves the protocol over two transports: a stdio JSON-RPC channel
(the stdio subcommand) and a stateless streamable HTTP endpoint (the
http subcommand).`,
	SilenceUsage: true,
}

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve MCP over stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		logger := newLogger()
		registry, err := buildRegistry(ctx, logger)
		if err != nil {
			return err
		}

		server := mcp.NewServer(registry, serverInfo(), mcp.WithLogger(logger))
		transport := mcp.NewStdioTransport(server, os.Stdin, os.Stdout, logger)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return transport.Run(ctx)
		})
		return g.Wait()
	},
}

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Serve MCP over streamable HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		logger := newLogger()
		registry, err := buildRegistry(ctx, logger)
		if err != nil {
			return err
		}

		server := &http.Server{
			Addr:    addr,
			Handler: mcp.NewStreamableHandler(registry, serverInfo(), logger),
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("listening", "addr", addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func serverInfo() mcp.ServerInfo {
	return mcp.ServerInfo{Name: "teamlens", Version: version}
}

// buildRegistry loads the config and registers a tool set for each
// connected platform, plus the cross-platform activity tool.
func buildRegistry(ctx context.Context, logger *slog.Logger) (*tool.Registry, error) {
	cfg, err := config.LoadFile(ctx, configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retries
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.HTTPClient.Timeout = timeout
	retryClient.Logger = logger
	httpClient := retryClient.StandardClient()

	var platforms []*tool.Set

	if cfg.Slack.Connected() {
		opts := []slack.ClientOption{slack.WithHTTPClient(httpClient), slack.WithLogger(logger)}
		if cfg.Slack.BaseURL != "" {
			opts = append(opts, slack.WithBaseURL(cfg.Slack.BaseURL))
		}
		platforms = append(platforms, slack.NewToolSet(slack.NewClient(cfg.Slack.Token, opts...)))
	}
	if cfg.Azure.Connected() {
		opts := []msgraph.ClientOption{msgraph.WithHTTPClient(httpClient), msgraph.WithLogger(logger)}
		if cfg.Azure.BaseURL != "" {
			opts = append(opts, msgraph.WithBaseURL(cfg.Azure.BaseURL))
		}
		platforms = append(platforms, msgraph.NewToolSet(msgraph.NewClient(cfg.Azure.Token, opts...)))
	}
	if cfg.Atlassian.Connected() {
		opts := []atlassian.ClientOption{atlassian.WithHTTPClient(httpClient), atlassian.WithLogger(logger)}
		if cfg.Atlassian.BaseURL != "" {
			opts = append(opts, atlassian.WithBaseURL(cfg.Atlassian.BaseURL))
		}
		platforms = append(platforms, atlassian.NewToolSet(atlassian.NewClient(cfg.Atlassian.Token, opts...)))
	}
	if cfg.GitHub.Connected() {
		opts := []github.ClientOption{github.WithHTTPClient(httpClient), github.WithLogger(logger)}
		if cfg.GitHub.BaseURL != "" {
			opts = append(opts, github.WithBaseURL(cfg.GitHub.BaseURL))
		}
		platforms = append(platforms, github.NewToolSet(github.NewClient(cfg.GitHub.Token, opts...)))
	}

	logger.Info("platforms connected", "count", len(platforms))

	sets := append([]*tool.Set{}, platforms...)
	sets = append(sets, combined.NewToolSet(platforms...))

	return tool.NewRegistry(sets, logger), nil
}

var (
	configPath string
	verbose    bool
	retries    int
	timeout    time.Duration
	addr       string

	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "teamlens.yaml", "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging to stderr")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 3, "Maximum number of retries for failed requests")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "HTTP request timeout")

	httpCmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on")

	rootCmd.AddCommand(stdioCmd, httpCmd)
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built at: %s)", version, commit, date)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
