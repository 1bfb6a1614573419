package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/white6md/taskboard/internal/adapters/client/httpapi"
	"github.com/white6md/taskboard/internal/adapters/storage/sqlite"
	"github.com/white6md/taskboard/internal/app"
	"github.com/white6md/taskboard/internal/config"
	"github.com/white6md/taskboard/internal/domain"
	"github.com/white6md/taskboard/internal/platform"
	"github.com/white6md/taskboard/internal/tui"
)

// Environment variables read by the CLI itself.
const (
	envConfigPath = "TASKBOARD_CONFIG"
	envDBPath     = "TASKBOARD_DB_PATH"
	envDevMode    = "TASKBOARD_DEV_MODE"
	envAppName    = "TASKBOARD_APP_NAME"
)

var version = "dev"

// program is the part of a bubbletea program the CLI drives.
type program interface {
	Run() (tea.Model, error)
}

var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// bootstrapInput feeds first-run server prompts.
var bootstrapInput io.Reader = os.Stdin

func main() {
	root := newRootCommand(os.Stdout, os.Stderr)
	if err := fang.Execute(context.Background(), root, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// run executes one CLI invocation without fang styling.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globalFlags holds persistent flag values shared by every command.
type globalFlags struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// newRootCommand builds the command tree. The root command launches the board TUI.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "Kanban board for a remote project",
		Long:          "taskboard shows a project's tasks as a kanban board and persists column moves to the server.",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), flags, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config TOML")
	pf.StringVar(&flags.dbPath, "db", "", "path to the local board cache database")
	pf.StringVar(&flags.appName, "app", "taskboard", "application name for default paths")
	pf.BoolVar(&flags.devMode, "dev", false, "use -dev paths and write a workspace log file")

	root.AddCommand(
		newPathsCommand(flags),
		newExportCommand(flags, stderr),
		newImportCommand(flags, stderr),
		newStatsCommand(flags, stderr),
		newMoveCommand(flags, stderr),
		newActivityCommand(flags, stderr),
	)
	return root
}

// resolvedPaths is the outcome of flag, environment, and platform path resolution.
type resolvedPaths struct {
	appName      string
	devMode      bool
	platform     platform.Paths
	configPath   string
	dbPath       string
	dbOverridden bool
}

// resolvePaths applies flag > environment > platform default precedence.
func resolvePaths(flags *globalFlags) (resolvedPaths, error) {
	out := resolvedPaths{appName: strings.TrimSpace(flags.appName), devMode: flags.devMode}
	if v := strings.TrimSpace(os.Getenv(envAppName)); v != "" && out.appName == "taskboard" {
		out.appName = v
	}
	if out.appName == "" {
		out.appName = "taskboard"
	}
	if v, ok := parseBoolEnv(envDevMode); ok && !flags.devMode {
		out.devMode = v
	}

	paths, err := platform.DefaultPathsWithOptions(platform.Options{AppName: out.appName, DevMode: out.devMode})
	if err != nil {
		return resolvedPaths{}, fmt.Errorf("resolve paths: %w", err)
	}
	out.platform = paths

	out.configPath = strings.TrimSpace(flags.configPath)
	if out.configPath == "" {
		out.configPath = strings.TrimSpace(os.Getenv(envConfigPath))
	}
	if out.configPath == "" {
		out.configPath = paths.ConfigPath
	}

	out.dbPath = strings.TrimSpace(flags.dbPath)
	if out.dbPath == "" {
		out.dbPath = strings.TrimSpace(os.Getenv(envDBPath))
	}
	out.dbOverridden = out.dbPath != ""
	if out.dbPath == "" {
		out.dbPath = paths.DBPath
	}
	return out, nil
}

// loadConfig reads .env files and the TOML config, then applies overrides.
func loadConfig(paths resolvedPaths) (config.Config, error) {
	// The workspace .env is loaded first so it wins over the per-user one.
	for _, envPath := range []string{".env", paths.platform.EnvPath} {
		if err := config.LoadDotEnv(envPath); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load(paths.configPath, config.Default(paths.dbPath))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %q: %w", paths.configPath, err)
	}
	if paths.dbOverridden {
		cfg.Database.Path = paths.dbPath
	}
	return cfg.ApplyEnv(os.LookupEnv), nil
}

// session holds the resources one command works with.
type session struct {
	paths  resolvedPaths
	cfg    config.Config
	logger *runtimeLogger
	repo   *sqlite.Repository
	svc    *app.Service
}

// sessionOptions tunes how a command opens its session.
type sessionOptions struct {
	// prepare runs after the config is loaded and before anything is opened.
	prepare     func(resolvedPaths, config.Config) (config.Config, error)
	muteConsole bool
}

// openSession resolves configuration and opens the cache and the move client.
func openSession(flags *globalFlags, stderr io.Writer, opts sessionOptions) (*session, error) {
	paths, err := resolvePaths(flags)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(paths)
	if err != nil {
		return nil, err
	}
	if opts.prepare != nil {
		if cfg, err = opts.prepare(paths, cfg); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(cfg.Server.ProjectID) == "" {
		return nil, fmt.Errorf("%w: set server.project_id in %s or %s", app.ErrMissingProject, paths.configPath, config.EnvProjectID)
	}

	logger, err := newRuntimeLogger(stderr, paths.appName, paths.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, err
	}
	logger.SetConsoleEnabled(!opts.muteConsole)
	logger.Info(
		"startup configuration resolved",
		"app", paths.appName,
		"dev_mode", paths.devMode,
		"config_path", paths.configPath,
		"db_path", cfg.Database.Path,
		"base_url", cfg.Server.BaseURL,
		"project_id", cfg.Server.ProjectID,
		"dev_log_path", logger.DevLogPath(),
	)

	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "path", cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open board cache: %w", err)
	}

	persister, err := newMovePersister(cfg, logger)
	if err != nil {
		_ = repo.Close()
		_ = logger.Close()
		return nil, err
	}

	svc := app.NewService(repo, persister, uuid.NewString, time.Now, app.ServiceConfig{
		ProjectID:       cfg.Server.ProjectID,
		DoneStatus:      cfg.DoneStatus(),
		Labels:          cfg.StatusLabels(),
		NotifyOnSuccess: cfg.Notify.OnSuccess,
		EmptyLayout:     cfg.EmptyLayout(cfg.Server.ProjectID),
	})
	return &session{paths: paths, cfg: cfg, logger: logger, repo: repo, svc: svc}, nil
}

// Close releases the cache and the log file.
func (s *session) Close() {
	if s == nil {
		return
	}
	if err := s.repo.Close(); err != nil {
		s.logger.Warn("sqlite close failed", "err", err)
	}
	_ = s.logger.Close()
}

// newMovePersister builds the HTTP move client wrapped with logging.
func newMovePersister(cfg config.Config, logger *runtimeLogger) (app.MovePersister, error) {
	lp := &loggingPersister{logger: logger}
	if strings.TrimSpace(cfg.Server.BaseURL) == "" {
		logger.Warn("server.base_url is not set; moves will be rolled back")
		return lp, nil
	}
	client, err := httpapi.New(httpapi.Options{
		BaseURL:    cfg.Server.BaseURL,
		CSRFToken:  cfg.Server.CSRFToken,
		CSRFHeader: cfg.Server.CSRFHeader,
		Timeout:    cfg.RequestTimeout(),
		Trace:      cfg.Server.TraceHTTP,
	})
	if err != nil {
		return nil, fmt.Errorf("build move client: %w", err)
	}
	lp.next = client
	return lp, nil
}

// loggingPersister logs every move request and its outcome.
type loggingPersister struct {
	next   app.MovePersister
	logger *runtimeLogger
}

// MoveTask forwards one status change to the server.
func (p *loggingPersister) MoveTask(ctx context.Context, projectID, taskID string, status domain.Status) error {
	if p.next == nil {
		return fmt.Errorf("%w: server.base_url is not configured", app.ErrTransportFailure)
	}
	p.logger.Debug("move request", "project_id", projectID, "task_id", taskID, "status", status)
	started := time.Now()
	err := p.next.MoveTask(ctx, projectID, taskID, status)
	if err != nil {
		p.logger.Warn("move request failed", "task_id", taskID, "status", status, "elapsed", time.Since(started), "err", err)
		return err
	}
	p.logger.Info("move request accepted", "task_id", taskID, "status", status, "elapsed", time.Since(started))
	return nil
}

// journaledService logs each resolution before writing it to the move journal.
type journaledService struct {
	*app.Service
	logger *runtimeLogger
}

// RecordResolution logs and journals one resolved move.
func (s journaledService) RecordResolution(ctx context.Context, res app.Resolution, settled *domain.BoardLayout) error {
	s.logger.Info(
		"move resolved",
		"task_id", res.Attempt.TaskID,
		"attempt_id", res.Attempt.ID,
		"from", res.Attempt.From,
		"to", res.Attempt.To,
		"outcome", res.Outcome,
	)
	if err := s.Service.RecordResolution(ctx, res, settled); err != nil {
		s.logger.Error("move journal write failed", "task_id", res.Attempt.TaskID, "err", err)
		return err
	}
	return nil
}

// runTUI launches the interactive board.
func runTUI(ctx context.Context, flags *globalFlags, stderr io.Writer) error {
	sess, err := openSession(flags, stderr, sessionOptions{
		prepare: func(paths resolvedPaths, cfg config.Config) (config.Config, error) {
			return ensureServerBootstrap(paths, cfg, bootstrapInput, stderr)
		},
		muteConsole: true,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	keys := sess.cfg.Keys
	m := tui.NewModel(
		journaledService{Service: sess.svc, logger: sess.logger},
		tui.WithTitle(sess.paths.appName),
		tui.WithNotifyDismiss(sess.cfg.NotifyDismissAfter()),
		tui.WithKeyConfig(tui.KeyConfig{
			MoveTaskLeft:  keys.MoveTaskLeft,
			MoveTaskRight: keys.MoveTaskRight,
			ReorderUp:     keys.ReorderUp,
			ReorderDown:   keys.ReorderDown,
			EditTask:      keys.EditTask,
			CopyTask:      keys.CopyTask,
		}),
	)
	sess.logger.Info("starting tui", "project_id", sess.svc.ProjectID())
	if _, err := programFactory(m).Run(); err != nil {
		sess.logger.Error("tui run failed", "err", err)
		return fmt.Errorf("run tui: %w", err)
	}
	sess.logger.Info("tui exited")
	return nil
}

// parseBoolEnv parses one boolean environment variable. ok is false when unset or invalid.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
