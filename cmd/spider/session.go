package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/spider/internal/config"
	"github.com/nao1215/spider/internal/database"
	"github.com/nao1215/spider/internal/filestore"
	"github.com/nao1215/spider/internal/log"
)

// Persistent flag names.
const (
	flagDBType     = "db-type"
	flagDBUser     = "db-user"
	flagDBPassword = "db-pwd"
	flagDBHost     = "db-host"
	flagDBName     = "db-name"
	flagDBUpdate   = "db-update"
	flagConfig     = "config"
	flagDataDir    = "data-dir"
	flagVerbose    = "verbose"
)

// dbFlags lists the flags holding database credentials.
var dbFlags = []string{flagDBType, flagDBUser, flagDBPassword, flagDBHost, flagDBName}

// session is the configuration and logger shared by one command run.
type session struct {
	cfg    *config.Config
	logger *slog.Logger

	// file is the loaded config file, nil when none was found.
	file *config.File

	// filePath is the path of file, "" when none was found.
	filePath string
}

// newSession builds the configuration in precedence order: defaults, the
// config file, the environment (after loading .env), then flags.
func newSession(cmd *cobra.Command, silent bool) (*session, error) {
	if err := config.LoadDotEnv(config.DefaultEnvFile); err != nil {
		return nil, err
	}

	cfg := config.NewConfig()
	s := &session{cfg: cfg}

	configPath, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath = configPath

	// An explicit --config that does not exist is an error; a missing
	// default file just means defaults.
	if path := config.FindConfigFile(configPath); path != "" {
		f, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.ApplyFile(f)
		s.file, s.filePath = f, path
	} else if configPath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if err := applyPersistentFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.Silent = silent

	s.logger = newLogger(cmd.ErrOrStderr(), cfg)
	return s, nil
}

// applyPersistentFlags copies the global flags that were set over cfg.
func applyPersistentFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	targets := map[string]*string{
		flagDBType:     &cfg.Database.Type,
		flagDBUser:     &cfg.Database.Username,
		flagDBPassword: &cfg.Database.Password,
		flagDBHost:     &cfg.Database.Host,
		flagDBName:     &cfg.Database.Name,
		flagDataDir:    &cfg.DataDir,
	}
	for name, target := range targets {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*target = v
	}

	var err error
	if cfg.UpdateCredentials, err = flags.GetBool(flagDBUpdate); err != nil {
		return err
	}
	if cfg.Verbose, err = flags.GetBool(flagVerbose); err != nil {
		return err
	}
	return nil
}

// newLogger writes colored output to terminals and plain text elsewhere.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return log.NewLogger(w, log.Options{
		Level: log.LevelFor(cfg.Silent, cfg.Verbose),
		Color: isTerminal(w),
	})
}

// isTerminal reports whether w is a character device such as a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// requireDatabase reports whether the backend has the credentials it
// needs. When it does not, the command is skipped with a warning.
func (s *session) requireDatabase() bool {
	err := s.cfg.ValidateDatabase()
	if err == nil {
		return true
	}
	s.logger.Warn("Cannot process your command without database login credentials. "+
		"Provide them with --db-type, --db-user, --db-pwd, --db-host and --db-name, "+
		"the SPIDER_DB_* environment variables or the config file. "+
		"Credentials given as flags are stored to the config file when it has none.",
		"error", err)
	return false
}

// persistCredentials stores the database credentials in the config file
// when --db-update is set, or when the file has no database section and
// credentials were given as flags.
func (s *session) persistCredentials(cmd *cobra.Command) error {
	provided := false
	for _, name := range dbFlags {
		provided = provided || cmd.Flags().Changed(name)
	}
	emptyFile := s.file == nil || s.file.Database.IsZero()
	if !s.cfg.UpdateCredentials && !(emptyFile && provided) {
		return nil
	}

	path := s.filePath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	out := config.File{}
	if s.file != nil {
		out = *s.file
	}
	out.Database = s.cfg.Database

	if err := config.SaveFile(path, &out); err != nil {
		return fmt.Errorf("failed to save database credentials: %w", err)
	}
	s.file, s.filePath = &out, path
	s.logger.Info("saved database credentials", "path", path, "type", out.Database.Type)
	return nil
}

// openStore builds the configured backend. It is not connected yet.
func (s *session) openStore() (database.Store, *filestore.FileStore, error) {
	files := filestore.New(s.cfg.FilesDir())
	db := s.cfg.Database

	store, err := database.DefaultRegistry().Open(
		database.Credentials{
			Type:     db.Type,
			Username: db.Username,
			Password: db.Password,
			Host:     db.Host,
			Name:     db.Name,
		},
		database.Options{
			Content:   files,
			Overwrite: s.cfg.Overwrite,
			DataDir:   s.cfg.DataDir,
			Logger:    s.logger,
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, files, nil
}
