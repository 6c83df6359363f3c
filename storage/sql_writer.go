package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/utils"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ev_subsidies (
		year             INTEGER      NOT NULL,
		region           TEXT         NOT NULL,
		manufacturer     TEXT         NOT NULL,
		model            TEXT         NOT NULL DEFAULT '',
		model_detail     TEXT         NOT NULL DEFAULT '',
		national_subsidy INTEGER,
		local_subsidy    INTEGER,
		total_subsidy    INTEGER,
		recovered        BOOLEAN      NOT NULL DEFAULT FALSE,
		scraped_at       TIMESTAMP    NOT NULL,
		PRIMARY KEY (year, region, manufacturer, model_detail)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ev_subsidies_region       ON ev_subsidies (region)`,
	`CREATE INDEX IF NOT EXISTS idx_ev_subsidies_manufacturer ON ev_subsidies (manufacturer)`,
	`CREATE TABLE IF NOT EXISTS national_subsidies (
		year         INTEGER NOT NULL,
		category     TEXT    NOT NULL,
		manufacturer TEXT    NOT NULL,
		model        TEXT    NOT NULL,
		amount       INTEGER NOT NULL,
		recovered    BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (year, manufacturer, model)
	)`,
}

const upsertVehicle = `
	INSERT INTO ev_subsidies (year, region, manufacturer, model, model_detail,
		national_subsidy, local_subsidy, total_subsidy, recovered, scraped_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (year, region, manufacturer, model_detail) DO UPDATE SET
		model            = excluded.model,
		national_subsidy = excluded.national_subsidy,
		local_subsidy    = excluded.local_subsidy,
		total_subsidy    = excluded.total_subsidy,
		recovered        = excluded.recovered,
		scraped_at       = excluded.scraped_at
`

const upsertNational = `
	INSERT INTO national_subsidies (year, category, manufacturer, model, amount, recovered)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (year, manufacturer, model) DO UPDATE SET
		category  = excluded.category,
		amount    = excluded.amount,
		recovered = excluded.recovered
`

// SQLWriter stores cleaned vehicles in PostgreSQL or SQLite; the latest scrape wins
type SQLWriter struct {
	db     *sql.DB
	driver string
	logger *utils.Logger
}

// ParseDSN picks the driver for a DATABASE_URL: postgres:// URLs use lib/pq,
// sqlite: URLs and bare file paths use the pure-Go SQLite driver
func ParseDSN(dsn string) (driver, source string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DriverPostgres, dsn
	case strings.HasPrefix(dsn, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "sqlite:"):
		return DriverSQLite, strings.TrimPrefix(dsn, "sqlite:")
	default:
		return DriverSQLite, dsn
	}
}

// NewSQLWriter opens the database named by dsn and pings it
func NewSQLWriter(dsn string, logger *utils.Logger) (*SQLWriter, error) {
	driver, source := ParseDSN(dsn)
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	if driver == DriverSQLite {
		// one writer at a time keeps SQLite out of SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Minute * 5)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	logger.Info("Connected to %s successfully", driver)
	return &SQLWriter{db: db, driver: driver, logger: logger}, nil
}

// NewSQLWriterFromDB wraps an already opened database
func NewSQLWriterFromDB(db *sql.DB, driver string, logger *utils.Logger) *SQLWriter {
	return &SQLWriter{db: db, driver: driver, logger: logger}
}

// CreateTables creates the subsidy tables and indexes if they don't exist
func (w *SQLWriter) CreateTables(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	w.logger.Info("Table 'ev_subsidies' is ready")
	return nil
}

// rebind turns $N placeholders into SQLite's ?N form
func (w *SQLWriter) rebind(query string) string {
	if w.driver != DriverSQLite {
		return query
	}
	return strings.ReplaceAll(query, "$", "?")
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

const rowSavepoint = "row_upsert"

// execRow runs one statement under a savepoint so a failing row leaves the
// transaction usable. rowErr is the row's own failure; err means the
// transaction itself can no longer be trusted.
func execRow(ctx context.Context, tx *sql.Tx, stmt *sql.Stmt, args ...interface{}) (rowErr, err error) {
	if _, err = tx.ExecContext(ctx, "SAVEPOINT "+rowSavepoint); err != nil {
		return nil, fmt.Errorf("failed to set savepoint: %w", err)
	}
	if _, rowErr = stmt.ExecContext(ctx, args...); rowErr != nil {
		if _, err = tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+rowSavepoint); err != nil {
			return rowErr, fmt.Errorf("failed to roll back row: %w", err)
		}
		return rowErr, nil
	}
	if _, err = tx.ExecContext(ctx, "RELEASE SAVEPOINT "+rowSavepoint); err != nil {
		return nil, fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil, nil
}

// WriteRegion upserts one region's vehicles in a single transaction; failing rows are skipped
func (w *SQLWriter) WriteRegion(ctx context.Context, year int, region models.Region, vehicles []models.Vehicle) (err error) {
	if len(vehicles) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, w.rebind(upsertVehicle))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, v := range vehicles {
		var execErr error
		execErr, err = execRow(ctx, tx, stmt,
			year,
			region.Name,
			v.Manufacturer,
			v.Model,
			v.ModelDetail,
			nullInt(v.NationalSubsidy),
			nullInt(v.LocalSubsidy),
			nullInt(v.TotalSubsidy),
			v.Recovered,
			v.ScrapedAt,
		)
		if err != nil {
			return err
		}
		if execErr != nil {
			w.logger.Warn("Skipping upsert for '%s': %v", v.Key(), execErr)
			continue
		}
		written++
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.logger.Debug("Upserted %d/%d vehicles for %s", written, len(vehicles), region.Name)
	return nil
}

// WriteAll upserts every region of a cleaned crawl
func (w *SQLWriter) WriteAll(ctx context.Context, year int, regions map[string][]models.Vehicle) error {
	total := 0
	for name, vehicles := range regions {
		if err := w.WriteRegion(ctx, year, models.Region{Name: name}, vehicles); err != nil {
			return err
		}
		total += len(vehicles)
	}
	w.logger.Info("Upserted %d vehicles across %d regions into %s", total, len(regions), w.driver)
	return nil
}

// WriteNational upserts the national subsidy table rows
func (w *SQLWriter) WriteNational(ctx context.Context, year int, rows []models.NationalSubsidy) (err error) {
	if len(rows) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, w.rebind(upsertNational))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		var execErr error
		execErr, err = execRow(ctx, tx, stmt, year, r.Category, r.Manufacturer, r.Model, r.Amount, r.Recovered)
		if err != nil {
			return err
		}
		if execErr != nil {
			w.logger.Warn("Skipping national row '%s %s': %v", r.Manufacturer, r.Model, execErr)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	w.logger.Info("Upserted %d national rows", len(rows))
	return nil
}

// Close closes the database connection
func (w *SQLWriter) Close() {
	if w.db != nil {
		_ = w.db.Close()
	}
}
