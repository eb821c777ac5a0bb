package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Local SQLite driver

	"go-shortlink/types"
)

// SQLStorage implements the Storage interface on SQLite or a libsql (Turso) database.
type SQLStorage struct {
	db         *sql.DB
	table      string
	visitsMode types.VisitsMode
	logger     *zap.Logger
}

// NewSQLStorage opens dbURL, picking the libsql driver for remote URLs, and creates the table.
func NewSQLStorage(ctx context.Context, dbURL, table string, visitsMode types.VisitsMode, logger *zap.Logger) (*SQLStorage, error) {
	if err := validTableName(table); err != nil {
		return nil, err
	}

	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, unavailable("open", err)
	}
	if driverName == "sqlite" {
		// A :memory: database lives and dies with its single connection.
		db.SetMaxOpenConns(1)
	}

	s, err := newSQLStorage(ctx, db, table, visitsMode, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newSQLStorage(ctx context.Context, db *sql.DB, table string, visitsMode types.VisitsMode, logger *zap.Logger) (*SQLStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, unavailable("ping", err)
	}

	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		link_og TEXT NOT NULL,
		link_short TEXT NOT NULL,
		visits TEXT NOT NULL,
		"timestamp" TEXT NOT NULL
	)`, table)
	if _, err := db.ExecContext(ctx, query); err != nil {
		return nil, unavailable("migrate", err)
	}

	return &SQLStorage{db: db, table: table, visitsMode: visitsMode, logger: logger}, nil
}

// PutIfAbsent inserts link, relying on the primary key to reject a taken id.
func (s *SQLStorage) PutIfAbsent(ctx context.Context, link types.ShortLink) (types.ShortLink, error) {
	record := types.NewRecord(link, s.visitsMode)
	visits, err := json.Marshal(record.Visits)
	if err != nil {
		return types.ShortLink{}, err
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, link_og, link_short, visits, "timestamp")
		VALUES (?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`, s.table)
	res, err := s.db.ExecContext(ctx, query, record.ID, record.LinkOG, record.LinkShort, string(visits), record.Timestamp)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.ShortLink{}, ctxErr
		}
		s.logger.Error("Insert failed", zap.String("id", link.ID), zap.Error(err))
		return types.ShortLink{}, unavailable("insert", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return types.ShortLink{}, unavailable("rows affected", err)
	}
	if n == 0 {
		s.logger.Warn("Attempt to create duplicate id", zap.String("id", link.ID))
		return types.ShortLink{}, ErrIDExists
	}
	return link, nil
}

// Get loads the link stored under id.
func (s *SQLStorage) Get(ctx context.Context, id string) (types.ShortLink, bool, error) {
	query := fmt.Sprintf(`SELECT id, link_og, link_short, visits, "timestamp" FROM %s WHERE id = ?`, s.table)

	var (
		record types.Record
		visits string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&record.ID, &record.LinkOG, &record.LinkShort, &visits, &record.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ShortLink{}, false, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.ShortLink{}, false, ctxErr
		}
		return types.ShortLink{}, false, unavailable("select", err)
	}

	if err := json.Unmarshal([]byte(visits), &record.Visits); err != nil {
		return types.ShortLink{}, false, fmt.Errorf("decoding visits for %q: %w", id, err)
	}
	link, err := record.ShortLink()
	if err != nil {
		return types.ShortLink{}, false, fmt.Errorf("decoding record %q: %w", id, err)
	}
	return link, true, nil
}

// Close releases the database handle.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}
