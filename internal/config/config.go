package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/white6md/taskboard/internal/domain"
)

// Environment variables that override file values.
const (
	EnvBaseURL   = "TASKBOARD_BASE_URL"
	EnvProjectID = "TASKBOARD_PROJECT_ID"
	EnvCSRFToken = "TASKBOARD_CSRF_TOKEN"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Board    BoardConfig    `toml:"board"`
	Notify   NotifyConfig   `toml:"notify"`
	Logging  LoggingConfig  `toml:"logging"`
	Keys     KeyConfig      `toml:"keys"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type ServerConfig struct {
	BaseURL    string `toml:"base_url"`
	ProjectID  string `toml:"project_id"`
	CSRFToken  string `toml:"csrf_token"`
	CSRFHeader string `toml:"csrf_header"`
	Timeout    string `toml:"timeout"`
	TraceHTTP  bool   `toml:"trace_http"`
}

type BoardConfig struct {
	DoneStatus string         `toml:"done_status"`
	Columns    []ColumnConfig `toml:"columns"`
}

// ColumnConfig declares one lane. Label is the status tag text shown on cards.
type ColumnConfig struct {
	Status string `toml:"status"`
	Name   string `toml:"name"`
	Label  string `toml:"label"`
}

type NotifyConfig struct {
	OnSuccess    bool   `toml:"on_success"`
	DismissAfter string `toml:"dismiss_after"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// KeyConfig overrides task action keys. Empty values keep the built-in bindings.
type KeyConfig struct {
	MoveTaskLeft  string `toml:"move_task_left"`
	MoveTaskRight string `toml:"move_task_right"`
	ReorderUp     string `toml:"reorder_up"`
	ReorderDown   string `toml:"reorder_down"`
	EditTask      string `toml:"edit_task"`
	CopyTask      string `toml:"copy_task"`
}

func defaultColumns() []ColumnConfig {
	return []ColumnConfig{
		{Status: "todo", Name: "To Do", Label: "To do"},
		{Status: "in_progress", Name: "In Progress", Label: "In progress"},
		{Status: "done", Name: "Done", Label: "Completed"},
	}
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Server: ServerConfig{
			CSRFHeader: "X-CSRFToken",
			Timeout:    "10s",
		},
		Board: BoardConfig{
			DoneStatus: "done",
			Columns:    defaultColumns(),
		},
		Notify: NotifyConfig{
			OnSuccess:    false,
			DismissAfter: "4s",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".taskboard/log",
			},
		},
		Keys: KeyConfig{
			MoveTaskLeft:  "[",
			MoveTaskRight: "]",
			ReorderUp:     "K",
			ReorderDown:   "J",
			EditTask:      "e",
			CopyTask:      "y",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	// Declared columns replace the default lanes instead of merging into them.
	cfg.Board.Columns = nil
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	if len(cfg.Board.Columns) == 0 {
		cfg.Board.Columns = append([]ColumnConfig(nil), defaults.Board.Columns...)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from a .env file into the process environment.
// A missing file is not an error. Variables already set are left untouched.
func LoadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides server values from TASKBOARD_* variables.
func (c Config) ApplyEnv(lookup func(string) (string, bool)) Config {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvBaseURL); ok && strings.TrimSpace(v) != "" {
		c.Server.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvProjectID); ok && strings.TrimSpace(v) != "" {
		c.Server.ProjectID = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvCSRFToken); ok {
		c.Server.CSRFToken = strings.TrimSpace(v)
	}
	return c
}

func (c Config) Validate() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if _, err := parseDuration("server.timeout", c.Server.Timeout); err != nil {
		return err
	}
	if _, err := parseDuration("notify.dismiss_after", c.Notify.DismissAfter); err != nil {
		return err
	}

	if len(c.Board.Columns) == 0 {
		return errors.New("board.columns must include at least one column")
	}
	seenStatus := map[domain.Status]struct{}{}
	for idx, col := range c.Board.Columns {
		status, err := domain.ParseStatus(col.Status)
		if err != nil {
			return fmt.Errorf("board.columns[%d].status %q: %w", idx, col.Status, err)
		}
		if strings.TrimSpace(col.Name) == "" {
			return fmt.Errorf("board.columns[%d].name is required", idx)
		}
		if _, ok := seenStatus[status]; ok {
			return fmt.Errorf("board.columns[%d].status is duplicated: %s", idx, status)
		}
		seenStatus[status] = struct{}{}
	}
	done, err := domain.ParseStatus(c.Board.DoneStatus)
	if err != nil {
		return fmt.Errorf("board.done_status %q: %w", c.Board.DoneStatus, err)
	}
	if _, ok := seenStatus[done]; !ok {
		return fmt.Errorf("board.done_status references unknown column %q", done)
	}

	seenKeys := map[string]string{}
	for _, binding := range []struct{ name, value string }{
		{"keys.move_task_left", c.Keys.MoveTaskLeft},
		{"keys.move_task_right", c.Keys.MoveTaskRight},
		{"keys.reorder_up", c.Keys.ReorderUp},
		{"keys.reorder_down", c.Keys.ReorderDown},
		{"keys.edit_task", c.Keys.EditTask},
		{"keys.copy_task", c.Keys.CopyTask},
	} {
		if binding.value == "" {
			continue
		}
		if prev, ok := seenKeys[binding.value]; ok {
			return fmt.Errorf("%s reuses key %q already bound by %s", binding.name, binding.value, prev)
		}
		seenKeys[binding.value] = binding.name
	}

	if level := strings.TrimSpace(c.Logging.Level); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error", "fatal":
		default:
			return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
		}
	}
	return nil
}

// DoneStatus returns the normalized terminal status.
func (c Config) DoneStatus() domain.Status {
	status, err := domain.ParseStatus(c.Board.DoneStatus)
	if err != nil {
		return domain.StatusDone
	}
	return status
}

// StatusLabels returns card tag text per configured status.
func (c Config) StatusLabels() domain.StatusLabels {
	labels := domain.DefaultStatusLabels()
	for _, col := range c.Board.Columns {
		status, err := domain.ParseStatus(col.Status)
		if err != nil {
			continue
		}
		if label := strings.TrimSpace(col.Label); label != "" {
			labels[status] = label
		}
	}
	return labels
}

// EmptyLayout returns a board with the configured lanes and no cards.
func (c Config) EmptyLayout(projectID string) domain.BoardLayout {
	layout := domain.BoardLayout{ProjectID: projectID, Columns: make([]domain.ColumnLayout, 0, len(c.Board.Columns))}
	for _, col := range c.Board.Columns {
		status, err := domain.ParseStatus(col.Status)
		if err != nil {
			continue
		}
		layout.Columns = append(layout.Columns, domain.ColumnLayout{
			Status: status,
			Name:   strings.TrimSpace(col.Name),
			Cards:  []domain.CardLayout{},
		})
	}
	return layout
}

// RequestTimeout returns the move call timeout, zero meaning none.
func (c Config) RequestTimeout() time.Duration {
	d, _ := parseDuration("server.timeout", c.Server.Timeout)
	return d
}

// NotifyDismissAfter returns how long a notification stays visible.
func (c Config) NotifyDismissAfter() time.Duration {
	d, _ := parseDuration("notify.dismiss_after", c.Notify.DismissAfter)
	return d
}

func parseDuration(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be >= 0", field, raw)
	}
	return d, nil
}

// UpsertServer writes server connection values into the TOML file at path,
// keeping every other table as it was.
func UpsertServer(path, baseURL, projectID string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("config path is required")
	}
	doc := map[string]any{}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(content, &doc); err != nil {
			return fmt.Errorf("decode toml: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("read config: %w", err)
	}

	server, _ := doc["server"].(map[string]any)
	if server == nil {
		server = map[string]any{}
	}
	if v := strings.TrimSpace(baseURL); v != "" {
		server["base_url"] = v
	}
	if v := strings.TrimSpace(projectID); v != "" {
		server["project_id"] = v
	}
	doc["server"] = server

	out, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
