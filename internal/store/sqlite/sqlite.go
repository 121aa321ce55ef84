package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"tradeboard/internal/model"
	"tradeboard/internal/store"
)

const memoryPath = ":memory:"

//go:embed migrations/*.sql
var embedMigrations embed.FS

var migrateMu sync.Mutex

type Store struct {
	db *sqlx.DB
}

// New opens the database at path and applies pending migrations. An empty
// path or ":memory:" opens a private in-memory database.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: connecting: %w", err)
	}
	// A second connection to ":memory:" would see a different, empty database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	st := NewWithDB(db)
	if err := st.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

// NewWithDB wraps an already migrated connection.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func dsn(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == memoryPath {
		return memoryPath
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func (s *Store) migrate(ctx context.Context) error {
	// goose keeps its base FS and dialect in package state.
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		return fmt.Errorf("sqlite: setting migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db.DB, "migrations"); err != nil {
		return fmt.Errorf("sqlite: applying migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ReplaceShipments swaps the whole dataset in one transaction and records the load.
func (s *Store) ReplaceShipments(ctx context.Context, source string, shipments []model.Shipment) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM shipments`); err != nil {
		return fmt.Errorf("sqlite: clearing shipments: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO shipments (
			id, importer_name, importer_website, importer_country,
			exporter_name, exporter_website, exporter_country,
			shipment_date, commodity_name, industry_sector, weight_metric_tonnes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite: preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := range shipments {
		shipment := shipments[i]
		_, err = stmt.ExecContext(
			ctx,
			shipment.ID,
			shipment.ImporterName,
			shipment.ImporterWebsite,
			shipment.ImporterCountry,
			shipment.ExporterName,
			shipment.ExporterWebsite,
			shipment.ExporterCountry,
			shipment.ShipmentDate,
			shipment.CommodityName,
			shipment.IndustrySector,
			shipment.WeightMetricTonnes,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting shipment %s: %w", shipment.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO dataset_loads (source, records, loaded_at) VALUES (?, ?, ?)`,
		source, len(shipments), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording load: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (s *Store) LastLoad(ctx context.Context) (model.DatasetLoad, error) {
	var row dbDatasetLoad
	err := s.db.GetContext(ctx, &row, `
		SELECT source, records, loaded_at
		FROM dataset_loads
		ORDER BY id DESC
		LIMIT 1
	`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DatasetLoad{}, store.ErrNotFound
		}
		return model.DatasetLoad{}, fmt.Errorf("sqlite: reading last load: %w", err)
	}
	return row.toModel()
}

var _ store.Store = (*Store)(nil)
