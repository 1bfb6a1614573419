package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/white6md/taskboard/internal/app"
	"github.com/white6md/taskboard/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// defaultEventLimit caps move journal listings when no limit is requested.
const defaultEventLimit = 50

// Repository stores cached board layouts and the move journal.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Every pooled connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)
	return newRepository(db)
}

func newRepository(db *sql.DB) (*Repository, error) {
	repo := &Repository{db: db, now: time.Now}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the schema.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS boards (
			project_id TEXT PRIMARY KEY,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS board_columns (
			project_id TEXT NOT NULL,
			status TEXT NOT NULL,
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY(project_id, status),
			FOREIGN KEY(project_id) REFERENCES boards(project_id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS board_cards (
			project_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			status TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			due TEXT NOT NULL DEFAULT '',
			assignee TEXT NOT NULL DEFAULT '',
			PRIMARY KEY(project_id, task_id),
			FOREIGN KEY(project_id, status) REFERENCES board_columns(project_id, status) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS move_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			attempt_id TEXT NOT NULL,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			outcome TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_board_cards_lane ON board_cards(project_id, status, position);`,
		`CREATE INDEX IF NOT EXISTS idx_move_events_project_created_at ON move_events(project_id, created_at DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// SaveLayout replaces the cached layout for one project.
func (r *Repository) SaveLayout(ctx context.Context, layout domain.BoardLayout) error {
	if err := layout.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range []string{
		`DELETE FROM board_cards WHERE project_id = ?`,
		`DELETE FROM board_columns WHERE project_id = ?`,
		`DELETE FROM boards WHERE project_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, layout.ProjectID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO boards(project_id, updated_at) VALUES(?, ?)`, layout.ProjectID, ts(r.now())); err != nil {
		return err
	}
	for colPos, col := range layout.Columns {
		status, _ := domain.ParseStatus(string(col.Status))
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO board_columns(project_id, status, name, position)
			VALUES(?, ?, ?, ?)
		`, layout.ProjectID, string(status), strings.TrimSpace(col.Name), colPos); err != nil {
			return err
		}
		for cardPos, card := range col.Cards {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO board_cards(project_id, task_id, status, position, title, description, due, assignee)
				VALUES(?, ?, ?, ?, ?, ?, ?, ?)
			`, layout.ProjectID, strings.TrimSpace(card.TaskID), string(status), cardPos, card.Title, card.Description, card.Due, card.Assignee); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// LoadLayout returns the cached layout for one project.
func (r *Repository) LoadLayout(ctx context.Context, projectID string) (domain.BoardLayout, error) {
	var updatedRaw string
	err := r.db.QueryRowContext(ctx, `SELECT updated_at FROM boards WHERE project_id = ?`, projectID).Scan(&updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BoardLayout{}, app.ErrNotFound
	}
	if err != nil {
		return domain.BoardLayout{}, err
	}

	layout := domain.BoardLayout{ProjectID: projectID}
	colRows, err := r.db.QueryContext(ctx, `
		SELECT status, name
		FROM board_columns
		WHERE project_id = ?
		ORDER BY position ASC
	`, projectID)
	if err != nil {
		return domain.BoardLayout{}, err
	}
	index := map[domain.Status]int{}
	for colRows.Next() {
		var col domain.ColumnLayout
		var status string
		if err := colRows.Scan(&status, &col.Name); err != nil {
			_ = colRows.Close()
			return domain.BoardLayout{}, err
		}
		col.Status = domain.Status(status)
		col.Cards = []domain.CardLayout{}
		index[col.Status] = len(layout.Columns)
		layout.Columns = append(layout.Columns, col)
	}
	if err := colRows.Close(); err != nil {
		return domain.BoardLayout{}, err
	}
	if err := colRows.Err(); err != nil {
		return domain.BoardLayout{}, err
	}

	cardRows, err := r.db.QueryContext(ctx, `
		SELECT task_id, status, title, description, due, assignee
		FROM board_cards
		WHERE project_id = ?
		ORDER BY status ASC, position ASC
	`, projectID)
	if err != nil {
		return domain.BoardLayout{}, err
	}
	defer cardRows.Close()
	for cardRows.Next() {
		card, status, err := scanCard(cardRows)
		if err != nil {
			return domain.BoardLayout{}, err
		}
		pos, ok := index[status]
		if !ok {
			return domain.BoardLayout{}, fmt.Errorf("%w: %s", domain.ErrUnknownColumn, status)
		}
		layout.Columns[pos].Cards = append(layout.Columns[pos].Cards, card)
	}
	return layout, cardRows.Err()
}

// AppendMoveEvent records one resolved move attempt.
func (r *Repository) AppendMoveEvent(ctx context.Context, event domain.MoveEvent) error {
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO move_events(project_id, task_id, attempt_id, from_status, to_status, outcome, detail, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`, event.ProjectID, event.TaskID, event.AttemptID, string(event.FromStatus), string(event.ToStatus), string(event.Outcome), event.Detail, ts(occurred))
	return err
}

// ListMoveEvents returns the newest journal entries for one project.
func (r *Repository) ListMoveEvents(ctx context.Context, projectID string, limit int) ([]domain.MoveEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, task_id, attempt_id, from_status, to_status, outcome, detail, created_at
		FROM move_events
		WHERE project_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.MoveEvent, 0)
	for rows.Next() {
		var (
			event      domain.MoveEvent
			fromRaw    string
			toRaw      string
			outcomeRaw string
			createdRaw string
		)
		if err := rows.Scan(&event.ID, &event.ProjectID, &event.TaskID, &event.AttemptID, &fromRaw, &toRaw, &outcomeRaw, &event.Detail, &createdRaw); err != nil {
			return nil, err
		}
		event.FromStatus = domain.Status(fromRaw)
		event.ToStatus = domain.Status(toRaw)
		event.Outcome = domain.MoveOutcome(outcomeRaw)
		event.OccurredAt = parseTS(createdRaw)
		out = append(out, event)
	}
	return out, rows.Err()
}

// scanner represents a row source shared by sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanCard handles scan card.
func scanCard(s scanner) (domain.CardLayout, domain.Status, error) {
	var (
		card   domain.CardLayout
		status string
	)
	if err := s.Scan(&card.TaskID, &status, &card.Title, &card.Description, &card.Due, &card.Assignee); err != nil {
		return domain.CardLayout{}, "", err
	}
	return card, domain.Status(status), nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
