package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/nao1215/spider/internal/config"
	"github.com/nao1215/spider/internal/crawler"
	"github.com/nao1215/spider/internal/interrupt"
	"github.com/nao1215/spider/internal/tor"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl pages from a seed URL and save them",
		Long: `Crawl fetches the seed URL, follows the links found on every page up to
the given depth and saves each page to the database with the seed as parent.

A URL without a scheme is fetched over https. Links carrying a query string
are not followed.

Examples:
  # Crawl the seed and the pages it links to
  spider crawl https://example.com

  # Crawl two levels deep with 10 concurrent requests
  spider crawl -d 2 --concur 10 example.com

  # Show a spinner instead of log lines
  spider crawl -s https://example.com

  # Save to PostgreSQL and remember the credentials
  spider crawl --db-type postgresql --db-user spider --db-pwd secret \
    --db-host localhost --db-name spider --db-update https://example.com

  # Route requests through an embedded Tor daemon
  spider crawl --tor http://exampleonion.onion`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	flags := cmd.Flags()
	flags.IntP("depth", "d", config.DefaultDepth,
		"Maximum link depth; 0 fetches only the seed")
	flags.Int("concur", config.DefaultConcurrency,
		"Maximum number of concurrent requests")
	flags.Bool("no-cache", false,
		"Fetch a page every time it is linked instead of once per crawl")
	flags.Bool("no-logtime", false,
		"Do not log the elapsed time of each page")
	flags.BoolP("silent", "s", false,
		"Hide log lines and show a spinner")
	flags.Bool("no-overwrite", false,
		"Keep the stored HTML of pages that were already saved")
	flags.DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout of each request")
	flags.String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with each request")

	// Proxy flags
	flags.Bool("use-proxy", false,
		"Route requests through infrastructure.proxy_host or SPIDER_PROXY")
	flags.String("proxy", "",
		"Route requests through this proxy (http, https, socks5 or socks5h URL)")
	flags.Bool("tor", false,
		"Start an embedded Tor daemon and route requests through it")
	flags.Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
	cmd.MarkFlagsMutuallyExclusive("tor", "proxy")
	cmd.MarkFlagsMutuallyExclusive("tor", "use-proxy")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	silent, err := cmd.Flags().GetBool("silent")
	if err != nil {
		return err
	}
	s, err := newSession(cmd, silent)
	if err != nil {
		return err
	}
	if err := applyCrawlFlags(cmd, s.cfg); err != nil {
		return err
	}
	s.cfg.Seed = args[0]

	if err := s.cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingCredentials) {
			s.requireDatabase()
			return nil
		}
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := s.persistCredentials(cmd); err != nil {
		return err
	}

	ctx, guard := interrupt.Guard(cmd.Context())
	defer guard.Stop()

	stats, err := runCrawl(ctx, cmd, s)
	if err != nil && !guard.Interrupted() {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Done. (crawled: %d, total calls: %d)\n", stats.Successful, stats.Attempts)

	if guard.Interrupted() {
		return guard.Err()
	}
	return nil
}

// applyCrawlFlags copies the crawl flags over cfg. Concurrency and timeout
// only override the config file when they were set explicitly.
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if cfg.Depth, err = flags.GetInt("depth"); err != nil {
		return err
	}
	if flags.Changed("concur") {
		if cfg.Concurrency, err = flags.GetInt("concur"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return err
		}
	}

	noCache, err := flags.GetBool("no-cache")
	if err != nil {
		return err
	}
	noLogTime, err := flags.GetBool("no-logtime")
	if err != nil {
		return err
	}
	noOverwrite, err := flags.GetBool("no-overwrite")
	if err != nil {
		return err
	}
	cfg.UseCache = !noCache
	cfg.LogTime = !noLogTime
	cfg.Overwrite = !noOverwrite

	if cfg.UseProxy, err = flags.GetBool("use-proxy"); err != nil {
		return err
	}
	if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
		return err
	}
	if cfg.Tor, err = flags.GetBool("tor"); err != nil {
		return err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return err
	}
	return nil
}

// runCrawl wires the fetcher, the store and the spider and runs one crawl.
func runCrawl(ctx context.Context, cmd *cobra.Command, s *session) (crawler.Stats, error) {
	cfg, logger := s.cfg, s.logger

	proxyURL := cfg.ProxyURL()
	if cfg.Tor {
		daemon, err := startEmbeddedTor(ctx, cmd, cfg, logger)
		if err != nil {
			return crawler.Stats{}, err
		}
		defer func() {
			logger.Info("stopping embedded Tor daemon...")
			if err := daemon.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}()
		if proxyURL, err = daemon.ProxyURL(); err != nil {
			return crawler.Stats{}, err
		}
	}

	fetcher, err := crawler.NewFetcher(
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithProxy(proxyURL),
	)
	if err != nil {
		return crawler.Stats{}, err
	}

	store, _, err := s.openStore()
	if err != nil {
		return crawler.Stats{}, err
	}

	opts := []crawler.SpiderOption{
		crawler.WithMaxDepth(cfg.Depth),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithCache(cfg.UseCache),
		crawler.WithLogTime(cfg.LogTime),
		crawler.WithLogger(logger),
	}
	if cfg.Silent {
		spin := newProgressSpinner(cmd)
		spin.Start()
		defer spin.Stop()
		opts = append(opts, crawler.WithProgress(func(st crawler.Stats) {
			spin.Lock()
			spin.Suffix = fmt.Sprintf(" crawling %s (crawled: %d, total calls: %d)", cfg.Seed, st.Successful, st.Attempts)
			spin.Unlock()
		}))
	}

	return crawler.NewSpider(fetcher, store, opts...).Crawl(ctx, cfg.Seed)
}

// newProgressSpinner creates the spinner shown by --silent.
func newProgressSpinner(cmd *cobra.Command) *spinner.Spinner {
	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	spin.Suffix = " crawling..."
	return spin
}

// startEmbeddedTor starts the Tor daemon and verifies its SOCKS proxy.
func startEmbeddedTor(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*tor.Daemon, error) {
	out := cmd.ErrOrStderr()
	fmt.Fprintln(out, "Starting embedded Tor daemon...")
	fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	daemon := tor.NewDaemon(tor.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := daemon.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	logger.Info("embedded Tor daemon started",
		"socksAddr", daemon.SocksAddr(),
		"controlAddr", daemon.ControlAddr(),
	)

	if status := tor.CheckProxy(ctx, daemon.SocksAddr()); status != tor.ProxyStatusOK {
		_ = daemon.Stop() //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("embedded Tor proxy check failed: %w", status.Err())
	}
	return daemon, nil
}
