package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/white6md/taskboard/internal/app"
	"github.com/white6md/taskboard/internal/config"
	"github.com/white6md/taskboard/internal/domain"
)

// TestMain sets deterministic environment defaults for CLI tests.
func TestMain(m *testing.M) {
	_ = os.Setenv(envDevMode, "false")
	for _, key := range []string{config.EnvBaseURL, config.EnvProjectID, config.EnvCSRFToken, envConfigPath, envDBPath, envAppName} {
		_ = os.Unsetenv(key)
	}
	os.Exit(m.Run())
}

type fakeProgram struct {
	runErr error
}

func (f fakeProgram) Run() (tea.Model, error) {
	return nil, f.runErr
}

// scriptedProgram drives a model through a scripted interaction instead of a terminal.
type scriptedProgram struct {
	model tea.Model
	runFn func(tea.Model) (tea.Model, error)
}

func (p scriptedProgram) Run() (tea.Model, error) {
	if p.runFn == nil {
		return p.model, nil
	}
	return p.runFn(p.model)
}

// applyModelMsg applies one message and any resulting command chain.
func applyModelMsg(t *testing.T, model tea.Model, msg tea.Msg) tea.Model {
	t.Helper()
	updated, cmd := model.Update(msg)
	return applyModelCmd(t, updated, cmd)
}

// applyModelCmd executes one command chain to completion (bounded for safety).
func applyModelCmd(t *testing.T, model tea.Model, cmd tea.Cmd) tea.Model {
	t.Helper()
	out := model
	currentCmd := cmd
	for i := 0; i < 8 && currentCmd != nil; i++ {
		msg := currentCmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, inner := range batch {
				out = applyModelCmd(t, out, inner)
			}
			return out
		}
		updated, nextCmd := out.Update(msg)
		out = updated
		currentCmd = nextCmd
	}
	return out
}

// moveServer records move requests and answers with a fixed status code.
type moveServer struct {
	*httptest.Server
	mu    sync.Mutex
	paths []string
}

func newMoveServer(t *testing.T, status int) *moveServer {
	t.Helper()
	s := &moveServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.paths = append(s.paths, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *moveServer) requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

// writeConfig writes a config file for one test project.
func writeConfig(t *testing.T, path, baseURL, projectID string) {
	t.Helper()
	content := fmt.Sprintf(`
[server]
base_url = %q
project_id = %q
timeout = "2s"

[notify]
dismiss_after = "0s"

[logging]
level = "error"
`, baseURL, projectID)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

// sampleLayoutJSON returns a three-card export for project 7.
func sampleLayoutJSON(t *testing.T) []byte {
	t.Helper()
	layout := domain.BoardLayout{
		ProjectID: "7",
		Columns: []domain.ColumnLayout{
			{Status: "todo", Name: "To Do", Cards: []domain.CardLayout{
				{TaskID: "t1", Title: "Write docs", Due: "2026-11-01"},
				{TaskID: "t2", Title: "Fix login"},
			}},
			{Status: "in_progress", Name: "In Progress", Cards: []domain.CardLayout{}},
			{Status: "done", Name: "Done", Cards: []domain.CardLayout{{TaskID: "t3", Title: "Ship v1"}}},
		},
	}
	encoded, err := json.Marshal(layout)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return encoded
}

// cliEnv prepares a config, database path, and imported sample board.
func cliEnv(t *testing.T, baseURL string) []string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	dbPath := filepath.Join(dir, "taskboard.db")
	writeConfig(t, cfgPath, baseURL, "7")

	inPath := filepath.Join(dir, "board.json")
	if err := os.WriteFile(inPath, sampleLayoutJSON(t), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	base := []string{"--config", cfgPath, "--db", dbPath}
	if err := run(context.Background(), append([]string{"import", "--in", inPath}, base...), io.Discard, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}
	return base
}

func runCapture(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out, io.Discard)
	return out.String(), err
}

func TestRunVersion(t *testing.T) {
	out, err := runCapture(t, "--version")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out, "taskboard version dev") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestRunStartsProgram(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	started := false
	programFactory = func(_ tea.Model) program {
		started = true
		return fakeProgram{}
	}

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	writeConfig(t, cfgPath, "http://127.0.0.1:1", "7")
	var errOut bytes.Buffer
	if err := run(context.Background(), []string{"--config", cfgPath, "--db", filepath.Join(dir, "t.db")}, io.Discard, &errOut); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !started {
		t.Fatal("expected program to run")
	}
	if errOut.Len() != 0 {
		t.Fatalf("expected console muted while tui runs, got %q", errOut.String())
	}
}

func TestRunProgramError(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(_ tea.Model) program { return fakeProgram{runErr: errors.New("boom")} }

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	writeConfig(t, cfgPath, "http://127.0.0.1:1", "7")
	err := run(context.Background(), []string{"--config", cfgPath, "--db", filepath.Join(dir, "t.db")}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "run tui") {
		t.Fatalf("expected wrapped program error, got %v", err)
	}
}

func TestRunInvalidFlag(t *testing.T) {
	if _, err := runCapture(t, "--definitely-not-a-flag"); err == nil {
		t.Fatal("expected invalid flag error")
	}
}

func TestRunUnknownCommand(t *testing.T) {
	_, err := runCapture(t, "unknown-command")
	if err == nil || !strings.Contains(err.Error(), "unknown-command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestRunRequiresProject(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	writeConfig(t, cfgPath, "", "")
	_, err := runCapture(t, "stats", "--config", cfgPath, "--db", filepath.Join(dir, "t.db"))
	if !errors.Is(err, app.ErrMissingProject) {
		t.Fatalf("expected ErrMissingProject, got %v", err)
	}
}

func TestRunImportStatsAndExport(t *testing.T) {
	base := cliEnv(t, "")

	out, err := runCapture(t, append([]string{"stats"}, base...)...)
	if err != nil {
		t.Fatalf("run(stats) error = %v", err)
	}
	for _, want := range []string{"total: 3", "done: 1", "active: 2", "progress: 33%", "column todo: 2", "column in_progress: 0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in stats output\n%s", want, out)
		}
	}

	out, err = runCapture(t, append([]string{"export"}, base...)...)
	if err != nil {
		t.Fatalf("run(export) error = %v", err)
	}
	var exported domain.BoardLayout
	if err := json.Unmarshal([]byte(out), &exported); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, out)
	}
	if exported.ProjectID != "7" || len(exported.Columns) != 3 || len(exported.Columns[0].Cards) != 2 {
		t.Fatalf("unexpected export %+v", exported)
	}
	if exported.Columns[0].Cards[0].Due != "2026-11-01" {
		t.Fatalf("expected card details kept, got %+v", exported.Columns[0].Cards[0])
	}
}

func TestRunImportRejectsProjectMismatch(t *testing.T) {
	base := cliEnv(t, "")
	inPath := filepath.Join(t.TempDir(), "other.json")
	if err := os.WriteFile(inPath, []byte(`{"project_id":"99","columns":[{"status":"todo","name":"To Do","cards":[]}]}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := runCapture(t, append([]string{"import", "--in", inPath}, base...)...); err == nil {
		t.Fatal("expected project mismatch error")
	}
}

func TestRunImportRequiresInput(t *testing.T) {
	if _, err := runCapture(t, "import"); err == nil || !strings.Contains(err.Error(), "--in") {
		t.Fatalf("expected --in error, got %v", err)
	}
}

func TestRunMoveSettlesAndJournals(t *testing.T) {
	srv := newMoveServer(t, http.StatusOK)
	base := cliEnv(t, srv.URL)

	out, err := runCapture(t, append([]string{"move", "t1", "done"}, base...)...)
	if err != nil {
		t.Fatalf("run(move) error = %v", err)
	}
	if !strings.Contains(out, "moved t1 from todo to done") {
		t.Fatalf("unexpected move output %q", out)
	}
	if got := srv.requests(); len(got) != 1 || got[0] != "POST /projects/7/tasks/t1/move" {
		t.Fatalf("unexpected server requests %#v", got)
	}

	out, err = runCapture(t, append([]string{"stats"}, base...)...)
	if err != nil {
		t.Fatalf("run(stats) error = %v", err)
	}
	if !strings.Contains(out, "done: 2") || !strings.Contains(out, "progress: 67%") {
		t.Fatalf("expected settled move cached\n%s", out)
	}

	out, err = runCapture(t, append([]string{"activity", "--limit", "5"}, base...)...)
	if err != nil {
		t.Fatalf("run(activity) error = %v", err)
	}
	if !strings.Contains(out, "t1  todo -> done  settled") {
		t.Fatalf("unexpected activity output %q", out)
	}
}

func TestRunMoveSameColumnIsNoop(t *testing.T) {
	srv := newMoveServer(t, http.StatusOK)
	base := cliEnv(t, srv.URL)
	out, err := runCapture(t, append([]string{"move", "t1", "todo"}, base...)...)
	if err != nil {
		t.Fatalf("run(move) error = %v", err)
	}
	if !strings.Contains(out, "already in todo") || len(srv.requests()) != 0 {
		t.Fatalf("expected no-op move, out=%q requests=%#v", out, srv.requests())
	}
}

func TestRunMoveFailureRollsBack(t *testing.T) {
	srv := newMoveServer(t, http.StatusInternalServerError)
	base := cliEnv(t, srv.URL)

	_, err := runCapture(t, append([]string{"move", "t2", "done"}, base...)...)
	if !errors.Is(err, app.ErrServerRejection) {
		t.Fatalf("expected server rejection, got %v", err)
	}

	out, err := runCapture(t, append([]string{"stats"}, base...)...)
	if err != nil {
		t.Fatalf("run(stats) error = %v", err)
	}
	if !strings.Contains(out, "column todo: 2") || !strings.Contains(out, "done: 1") {
		t.Fatalf("expected board unchanged after rollback\n%s", out)
	}
	out, err = runCapture(t, append([]string{"activity"}, base...)...)
	if err != nil {
		t.Fatalf("run(activity) error = %v", err)
	}
	if !strings.Contains(out, "t2  todo -> done  rolled_back") {
		t.Fatalf("expected rollback journaled, got %q", out)
	}
}

func TestRunMoveWithoutServerRollsBack(t *testing.T) {
	base := cliEnv(t, "")
	_, err := runCapture(t, append([]string{"move", "t1", "done"}, base...)...)
	if !errors.Is(err, app.ErrTransportFailure) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestRunActivityRejectsBadLimit(t *testing.T) {
	base := cliEnv(t, "")
	if _, err := runCapture(t, append([]string{"activity", "--limit", "0"}, base...)...); err == nil {
		t.Fatal("expected limit error")
	}
}

func TestRunActivityEmpty(t *testing.T) {
	base := cliEnv(t, "")
	out, err := runCapture(t, append([]string{"activity"}, base...)...)
	if err != nil {
		t.Fatalf("run(activity) error = %v", err)
	}
	if strings.TrimSpace(out) != "no moves recorded" {
		t.Fatalf("unexpected activity output %q", out)
	}
}

func TestRunTUIKeyboardMovePersistsAndJournals(t *testing.T) {
	srv := newMoveServer(t, http.StatusOK)
	base := cliEnv(t, srv.URL)

	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(m tea.Model) program {
		return scriptedProgram{
			model: m,
			runFn: func(model tea.Model) (tea.Model, error) {
				model = applyModelCmd(t, model, model.Init())
				model = applyModelMsg(t, model, tea.WindowSizeMsg{Width: 140, Height: 36})
				model = applyModelMsg(t, model, tea.KeyPressMsg{Code: ']', Text: "]"})
				return model, nil
			},
		}
	}
	if err := run(context.Background(), base, io.Discard, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := srv.requests(); len(got) != 1 || got[0] != "POST /projects/7/tasks/t1/move" {
		t.Fatalf("unexpected server requests %#v", got)
	}

	out, err := runCapture(t, append([]string{"activity"}, base...)...)
	if err != nil {
		t.Fatalf("run(activity) error = %v", err)
	}
	if !strings.Contains(out, "t1  todo -> in_progress  settled") {
		t.Fatalf("expected tui move journaled, got %q", out)
	}
	out, err = runCapture(t, append([]string{"stats"}, base...)...)
	if err != nil {
		t.Fatalf("run(stats) error = %v", err)
	}
	if !strings.Contains(out, "column in_progress: 1") {
		t.Fatalf("expected settled board cached\n%s", out)
	}
}

func TestRunTUIBootstrapPromptsAndPersists(t *testing.T) {
	origFactory := programFactory
	origInput := bootstrapInput
	t.Cleanup(func() {
		programFactory = origFactory
		bootstrapInput = origInput
	})
	programFactory = func(_ tea.Model) program { return fakeProgram{} }
	bootstrapInput = strings.NewReader("not a url\nhttp://localhost:9\n\n42\n")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	var errOut bytes.Buffer
	if err := run(context.Background(), []string{"--config", cfgPath, "--db", filepath.Join(dir, "t.db")}, io.Discard, &errOut); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	for _, want := range []string{"taskboard setup required", "invalid server base url", "project id is required"} {
		if !strings.Contains(errOut.String(), want) {
			t.Fatalf("expected %q in prompt output\n%s", want, errOut.String())
		}
	}

	cfg, err := config.Load(cfgPath, config.Default(filepath.Join(dir, "t.db")))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.BaseURL != "http://localhost:9" || cfg.Server.ProjectID != "42" {
		t.Fatalf("expected bootstrap values persisted, got %+v", cfg.Server)
	}
}

func TestRunTUIBootstrapCancelled(t *testing.T) {
	origInput := bootstrapInput
	t.Cleanup(func() { bootstrapInput = origInput })
	bootstrapInput = strings.NewReader("")

	dir := t.TempDir()
	err := run(context.Background(), []string{"--config", filepath.Join(dir, "config.toml"), "--db", filepath.Join(dir, "t.db")}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "bootstrap cancelled") {
		t.Fatalf("expected bootstrap cancellation, got %v", err)
	}
}

func TestRunPathsCommand(t *testing.T) {
	out, err := runCapture(t, "paths", "--app", "taskboard-test", "--config", "/tmp/custom.toml", "--db", "/tmp/custom.db")
	if err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	for _, want := range []string{"app: taskboard-test", "dev_mode: false", "config: /tmp/custom.toml", "db: /tmp/custom.db", "data_dir: "} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in paths output\n%s", want, out)
		}
	}
}

func TestRunPathsUsesEnvironment(t *testing.T) {
	t.Setenv(envConfigPath, "/tmp/env-config.toml")
	t.Setenv(envDBPath, "/tmp/env.db")
	t.Setenv(envDevMode, "true")
	out, err := runCapture(t, "paths")
	if err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	for _, want := range []string{"dev_mode: true", "config: /tmp/env-config.toml", "db: /tmp/env.db"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in paths output\n%s", want, out)
		}
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		raw    string
		wantV  bool
		wantOK bool
	}{
		{raw: "", wantV: false, wantOK: false},
		{raw: "true", wantV: true, wantOK: true},
		{raw: "0", wantV: false, wantOK: true},
		{raw: "maybe", wantV: false, wantOK: false},
	}
	for _, tc := range tests {
		t.Setenv("TASKBOARD_TEST_BOOL", tc.raw)
		v, ok := parseBoolEnv("TASKBOARD_TEST_BOOL")
		if v != tc.wantV || ok != tc.wantOK {
			t.Fatalf("parseBoolEnv(%q) = %t,%t want %t,%t", tc.raw, v, ok, tc.wantV, tc.wantOK)
		}
	}
}

func TestRunDevModeCreatesWorkspaceLogFile(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(_ tea.Model) program { return fakeProgram{} }

	workspace := t.TempDir()
	t.Chdir(workspace)
	if err := os.WriteFile(filepath.Join(workspace, "go.mod"), []byte("module example.com/ws\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfgPath := filepath.Join(workspace, "config.toml")
	writeConfig(t, cfgPath, "http://127.0.0.1:1", "7")
	var errOut bytes.Buffer
	if err := run(context.Background(), []string{"--dev", "--db", filepath.Join(workspace, "t.db"), "--config", cfgPath}, io.Discard, &errOut); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if errOut.Len() != 0 {
		t.Fatalf("expected tui logs kept off stderr, got %q", errOut.String())
	}

	logDir := filepath.Join(workspace, ".taskboard", "log")
	entries, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".log") {
		t.Fatalf("expected one .log file in %s, got %v", logDir, entries)
	}
}

func TestWorkspaceRootFromUsesNearestMarker(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if got := workspaceRootFrom(nested); got != root {
		t.Fatalf("workspaceRootFrom() = %q want %q", got, root)
	}
}

func TestDevLogFilePathUsesAbsoluteDir(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	got, err := devLogFilePath(dir, "my app/dev", now)
	if err != nil {
		t.Fatalf("devLogFilePath() error = %v", err)
	}
	want := filepath.Join(dir, "my-app-dev-20261016.log")
	if got != want {
		t.Fatalf("devLogFilePath() = %q want %q", got, want)
	}
}

func TestSanitizeLogFileStem(t *testing.T) {
	if got := sanitizeLogFileStem("  "); got != "taskboard" {
		t.Fatalf("expected fallback stem, got %q", got)
	}
	if got := sanitizeLogFileStem("/a:b\\"); got != "a-b" {
		t.Fatalf("unexpected stem %q", got)
	}
}

func TestRuntimeLoggerCanMuteConsoleSink(t *testing.T) {
	var console bytes.Buffer
	logger, err := newRuntimeLogger(&console, "taskboard", false, config.LoggingConfig{Level: "info"}, nil)
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}
	logger.SetConsoleEnabled(false)
	logger.Info("hidden")
	if console.Len() != 0 {
		t.Fatalf("expected muted console, got %q", console.String())
	}
	logger.SetConsoleEnabled(true)
	logger.Info("visible", "task_id", "t1")
	if !strings.Contains(console.String(), "visible") || !strings.Contains(console.String(), "t1") {
		t.Fatalf("expected console output, got %q", console.String())
	}
}

func TestRuntimeLoggerWritesDevFile(t *testing.T) {
	dir := t.TempDir()
	now := func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }
	logger, err := newRuntimeLogger(io.Discard, "taskboard", true, config.LoggingConfig{
		Level:   "debug",
		DevFile: config.DevFileConfig{Enabled: true, Dir: dir},
	}, now)
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}
	logger.Debug("move request", "task_id", "t9")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	content, err := os.ReadFile(logger.DevLogPath())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "task_id=t9") {
		t.Fatalf("expected logfmt entry, got %q", content)
	}
}

func TestRuntimeLoggerRejectsBadLevel(t *testing.T) {
	if _, err := newRuntimeLogger(io.Discard, "taskboard", false, config.LoggingConfig{Level: "loud"}, nil); err == nil {
		t.Fatal("expected level error")
	}
}
