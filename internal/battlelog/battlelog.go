// Package battlelog keeps a history of reported battles in SQLite so
// moderation and stats queries don't have to replay ladder files.
package battlelog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tt1717/battleserver/internal/logger"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

const schema = `
CREATE TABLE IF NOT EXISTS battles (
    id        TEXT PRIMARY KEY,
    format    TEXT NOT NULL,
    p1        TEXT NOT NULL,
    p2        TEXT NOT NULL,
    p1_score  REAL NOT NULL,
    winner    TEXT NOT NULL,
    rated     INTEGER NOT NULL,
    played_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_battles_format ON battles(format);
CREATE INDEX IF NOT EXISTS idx_battles_p1 ON battles(p1);
CREATE INDEX IF NOT EXISTS idx_battles_p2 ON battles(p2);
`

// Battle is one recorded battle result.
type Battle struct {
	ID       string
	Format   string
	P1       string
	P2       string
	P1Score  float64
	Winner   string
	Rated    bool
	PlayedAt time.Time
}

// Filter narrows a Recent query.
type Filter struct {
	Format string
	Player string
	Limit  int
}

// Store wraps the battle history database.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// Open opens (and if needed creates) the battle history database.
func Open(path string) (*Store, error) {
	log := logger.Default().WithPrefix("battlelog")

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", path)
	log.Info("opening battle log: %s", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Error("failed to open battle log: %v", err)
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite best practice for single writer

	if _, err := db.Exec(schema); err != nil {
		log.Error("failed to create battle log schema: %v", err)
		db.Close()
		return nil, err
	}

	log.Info("battle log ready")
	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert records one battle, assigning an id if the caller didn't.
func (s *Store) Insert(ctx context.Context, b Battle) error {
	log := logger.FromContext(ctx)

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.PlayedAt.IsZero() {
		b.PlayedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO battles (id, format, p1, p2, p1_score, winner, rated, played_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, b.ID, b.Format, b.P1, b.P2, b.P1Score, b.Winner, b.Rated, b.PlayedAt)
	if err != nil {
		log.Error("failed to insert battle: %v", err)
		return err
	}
	log.Debug("battle recorded: id=%s format=%s %s vs %s", b.ID, b.Format, b.P1, b.P2)
	return nil
}

// Recent returns battles newest first, narrowed by the filter.
func (s *Store) Recent(ctx context.Context, filter Filter) ([]Battle, error) {
	log := logger.FromContext(ctx)

	query := sqlBuilder.
		Select("id", "format", "p1", "p2", "p1_score", "winner", "rated", "played_at").
		From("battles").
		OrderBy("played_at DESC", "id")

	if filter.Format != "" {
		query = query.Where(squirrel.Eq{"format": filter.Format})
	}
	if filter.Player != "" {
		query = query.Where(squirrel.Or{
			squirrel.Eq{"p1": filter.Player},
			squirrel.Eq{"p2": filter.Player},
		})
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query = query.Limit(uint64(limit))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to query battles: %v", err)
		return nil, err
	}
	defer rows.Close()

	var battles []Battle
	for rows.Next() {
		var b Battle
		if err := rows.Scan(&b.ID, &b.Format, &b.P1, &b.P2, &b.P1Score, &b.Winner, &b.Rated, &b.PlayedAt); err != nil {
			log.Error("failed to scan battle row: %v", err)
			return nil, err
		}
		battles = append(battles, b)
	}
	return battles, rows.Err()
}
