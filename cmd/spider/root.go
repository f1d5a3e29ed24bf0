package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/spider/internal/interrupt"
	"github.com/nao1215/spider/internal/log"
)

// NewRootCmd creates the root command for spider.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spider",
		Short: "Depth-bounded concurrent web crawler",
		Long: `spider crawls web pages starting from a seed URL, following links up to a
given depth with a bounded number of concurrent requests. Every page is saved
to a database (sqlite, postgresql, mysql or redis) together with a copy of
its HTML in local files.

Database credentials come from the config file, SPIDER_* environment
variables or the --db-* flags. Use --db-update to store the flags in the
config file as defaults.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	flags := cmd.PersistentFlags()
	flags.String(flagDBType, "", "Database type: sqlite, postgresql, mysql or redis (default sqlite)")
	flags.String(flagDBUser, "", "Database user")
	flags.String(flagDBPassword, "", "Database password")
	flags.String(flagDBHost, "", "Database host, optionally host:port")
	flags.String(flagDBName, "", "Database name (redis: logical database number)")
	flags.Bool(flagDBUpdate, false, "Store the database credentials in the config file as defaults")
	flags.StringP(flagConfig, "c", "",
		"Configuration file path (default: ./.spider.yaml or $XDG_CONFIG_HOME/spider/config.yaml)")
	flags.String(flagDataDir, "",
		"Directory of the sqlite database and stored pages (default: $XDG_DATA_HOME/spider)")
	flags.BoolP(flagVerbose, "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewCatchCmd())
	cmd.AddCommand(NewCobwebCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return 0
	}

	var intErr *interrupt.Error
	if errors.As(err, &intErr) {
		fmt.Fprintln(stderr, "Interrupted.")
		return intErr.ExitCode()
	}
	fmt.Fprintln(stderr, "Error:", log.MaskURLCredentials(err.Error()))
	return 1
}
