package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/spider/internal/database"
)

// Cobweb actions.
const (
	cobwebDrop   = "drop"
	cobwebCreate = "create"
	cobwebCount  = "count"
)

// NewCobwebCmd creates the cobweb command.
func NewCobwebCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cobweb <drop|create|count>",
		Short: "Manage the page table",
		Long: `Cobweb manages the table the crawled pages are saved to.

  drop    delete the table and every stored HTML file
  create  create the table
  count   print the number of saved pages

drop fails when the table does not exist and create fails when it already
exists.

Examples:
  spider cobweb count
  spider cobweb drop
  spider cobweb create --db-type mysql --db-user spider --db-host localhost --db-name spider`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{cobwebDrop, cobwebCreate, cobwebCount},
		RunE:      runCobwebCmd,
	}

	cmd.Flags().BoolP("silent", "s", false, "Only print errors")

	return cmd
}

// runCobwebCmd executes the cobweb command.
func runCobwebCmd(cmd *cobra.Command, args []string) error {
	silent, err := cmd.Flags().GetBool("silent")
	if err != nil {
		return err
	}
	s, err := newSession(cmd, silent)
	if err != nil {
		return err
	}
	if !s.requireDatabase() {
		return nil
	}
	if err := s.persistCredentials(cmd); err != nil {
		return err
	}

	store, files, err := s.openStore()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := store.Connect(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", store.Name(), err)
	}
	defer func() {
		if err := store.Disconnect(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to disconnect from database", "error", err)
		}
	}()

	out := cmd.OutOrStdout()
	switch args[0] {
	case cobwebDrop:
		if err := store.DropTable(ctx, false); err != nil {
			return err
		}
		if err := files.DropAll(); err != nil {
			return fmt.Errorf("failed to delete stored pages: %w", err)
		}
		s.logger.Info("dropped page table", "backend", store.Name(), "files", files.Dir())
		fmt.Fprintln(out, "Table was dropped successfully.")
	case cobwebCreate:
		if err := store.CreateTable(ctx, false); err != nil {
			return err
		}
		s.logger.Info("created page table", "backend", store.Name())
		fmt.Fprintln(out, "Table was created successfully.")
	case cobwebCount:
		n, err := countPages(ctx, store)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Found %d entries in the database.\n", n)
	}
	return nil
}

func countPages(ctx context.Context, store database.Store) (int64, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}
