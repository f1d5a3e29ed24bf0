package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/spider/internal/config"
	"github.com/nao1215/spider/internal/crawler"
	"github.com/nao1215/spider/internal/report"
)

// NewCatchCmd creates the catch command.
func NewCatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catch <url>",
		Short: "Print the pages saved by a crawl",
		Long: `Catch prints the pages saved under a seed URL, in the order they were
saved. Give the seed as it was given to crawl: an address without a scheme
gets "https://", so "example.com" selects the pages of
"spider crawl example.com".

Examples:
  # Print the first 10 pages
  spider catch https://example.com

  # Print 50 pages as a Markdown table
  spider catch -n 50 --format markdown example.com

  # Print pages as JSON
  spider catch --format json https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runCatchCmd,
	}

	cmd.Flags().IntP("limit", "n", config.DefaultCatchLimit,
		"Maximum number of pages to print")
	cmd.Flags().StringP("format", "f", string(report.FormatText),
		"Output format: "+strings.Join(report.Formats(), ", "))

	return cmd
}

// runCatchCmd executes the catch command.
func runCatchCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	writer, err := report.NewWriter(report.Format(format), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	seed, err := crawler.ParseSeed(args[0])
	if err != nil {
		return err
	}

	s, err := newSession(cmd, false)
	if err != nil {
		return err
	}
	if !s.requireDatabase() {
		return nil
	}
	if err := s.persistCredentials(cmd); err != nil {
		return err
	}

	catch, err := s.catch(cmd.Context(), seed.String(), limit)
	if err != nil {
		return err
	}
	_, err = writer.Write(catch)
	return err
}

// catch reads up to limit entries saved under parent.
func (s *session) catch(ctx context.Context, parent string, limit int) (*report.Catch, error) {
	store, _, err := s.openStore()
	if err != nil {
		return nil, err
	}
	if err := store.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", store.Name(), err)
	}
	defer func() {
		if err := store.Disconnect(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to disconnect from database", "error", err)
		}
	}()

	entries, err := store.Get(ctx, parent, limit)
	if err != nil {
		return nil, err
	}
	return &report.Catch{Parent: parent, Limit: limit, Entries: entries}, nil
}
