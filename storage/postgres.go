package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"go-shortlink/types"
)

// linkRow is the relational shape of types.Record.
type linkRow struct {
	ID        string `gorm:"column:id;primaryKey;size:16"`
	LinkOG    string `gorm:"column:link_og;not null"`
	LinkShort string `gorm:"column:link_short;not null"`
	Visits    string `gorm:"column:visits;not null"`
	Timestamp string `gorm:"column:timestamp;not null"`
}

func newLinkRow(record types.Record) (linkRow, error) {
	visits, err := json.Marshal(record.Visits)
	if err != nil {
		return linkRow{}, err
	}
	return linkRow{
		ID:        record.ID,
		LinkOG:    record.LinkOG,
		LinkShort: record.LinkShort,
		Visits:    string(visits),
		Timestamp: record.Timestamp,
	}, nil
}

func (r linkRow) record() (types.Record, error) {
	record := types.Record{
		ID:        r.ID,
		LinkOG:    r.LinkOG,
		LinkShort: r.LinkShort,
		Timestamp: r.Timestamp,
	}
	if err := json.Unmarshal([]byte(r.Visits), &record.Visits); err != nil {
		return types.Record{}, err
	}
	return record, nil
}

// PostgresStorage implements the Storage interface on PostgreSQL through gorm.
type PostgresStorage struct {
	db         *gorm.DB
	table      string
	visitsMode types.VisitsMode
	logger     *zap.Logger
}

// NewPostgresStorage connects to dsn, configures the pool and migrates the table.
func NewPostgresStorage(ctx context.Context, dsn, table string, visitsMode types.VisitsMode, logger *zap.Logger) (*PostgresStorage, error) {
	if err := validTableName(table); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, unavailable("open", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, unavailable("pool", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.WithContext(ctx).Table(table).AutoMigrate(&linkRow{}); err != nil {
		sqlDB.Close()
		return nil, unavailable("migrate", err)
	}

	logger.Info("Connected to PostgreSQL", zap.String("table", table))
	return &PostgresStorage{db: db, table: table, visitsMode: visitsMode, logger: logger}, nil
}

// PutIfAbsent inserts link with ON CONFLICT DO NOTHING; zero affected rows means the id is taken.
func (s *PostgresStorage) PutIfAbsent(ctx context.Context, link types.ShortLink) (types.ShortLink, error) {
	row, err := newLinkRow(types.NewRecord(link, s.visitsMode))
	if err != nil {
		return types.ShortLink{}, err
	}

	res := s.db.WithContext(ctx).
		Table(s.table).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.ShortLink{}, ctxErr
		}
		s.logger.Error("Insert failed", zap.String("id", link.ID), zap.Error(res.Error))
		return types.ShortLink{}, unavailable("insert", res.Error)
	}
	if res.RowsAffected == 0 {
		s.logger.Warn("Attempt to create duplicate id", zap.String("id", link.ID))
		return types.ShortLink{}, ErrIDExists
	}
	return link, nil
}

// Get loads the link stored under id.
func (s *PostgresStorage) Get(ctx context.Context, id string) (types.ShortLink, bool, error) {
	var row linkRow
	err := s.db.WithContext(ctx).Table(s.table).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ShortLink{}, false, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.ShortLink{}, false, ctxErr
		}
		return types.ShortLink{}, false, unavailable("select", err)
	}

	record, err := row.record()
	if err != nil {
		return types.ShortLink{}, false, fmt.Errorf("decoding visits for %q: %w", id, err)
	}
	link, err := record.ShortLink()
	if err != nil {
		return types.ShortLink{}, false, fmt.Errorf("decoding record %q: %w", id, err)
	}
	return link, true, nil
}

// Close releases the connection pool.
func (s *PostgresStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
