package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "scraperapi.db"

// ErrMissingURL is returned when a record without a URL is saved.
// The URL is the key of both card tables.
var ErrMissingURL = errors.New("record has no URL")

// CardDB provides SQLite-based storage for captured cards, extracted
// details and run history.
type CardDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CardDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so that API reads do not block
	// on a running scrape.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CardDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CardDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc creates it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CardDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CardDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CardDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CardDB) createTables() error {
	schema := `
	-- Raw captures hold the snapshot text of each card page
	CREATE TABLE IF NOT EXISTS raw_captures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bank TEXT NOT NULL,
		card_name TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		raw_text TEXT NOT NULL,
		fingerprint TEXT,
		snapshot_count INTEGER DEFAULT 0,
		snapshots TEXT,
		captured_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_raw_bank ON raw_captures(bank);

	-- Card details hold the latest extracted record of each card
	CREATE TABLE IF NOT EXISTS card_details (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bank TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		card_name TEXT,
		annual_fee TEXT,
		milestone_duration TEXT,
		milestone_amount TEXT,
		milestone_reward TEXT,
		reward_points_program TEXT,
		fees_and_charges TEXT,
		card_benefits TEXT,
		llm_failed INTEGER DEFAULT 0,
		extracted_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_details_bank ON card_details(bank);

	-- Runs record every scrape, successful or not
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		banks TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		card_count INTEGER DEFAULT 0,
		failed_count INTEGER DEFAULT 0,
		error TEXT
	);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRawCapture inserts or replaces the raw capture of a card page.
func (cdb *CardDB) SaveRawCapture(ctx context.Context, raw *model.CardRawData) error {
	if raw.URL == "" {
		return ErrMissingURL
	}

	snapshotsJSON, err := json.Marshal(raw.Snapshots)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshots: %w", err)
	}

	capturedAt := raw.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	query := `
	INSERT INTO raw_captures (bank, card_name, url, raw_text, fingerprint, snapshot_count, snapshots, captured_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		bank = excluded.bank,
		card_name = excluded.card_name,
		raw_text = excluded.raw_text,
		fingerprint = excluded.fingerprint,
		snapshot_count = excluded.snapshot_count,
		snapshots = excluded.snapshots,
		captured_at = excluded.captured_at
	`

	_, err = cdb.db.ExecContext(ctx, query,
		raw.Bank,
		raw.CardName,
		raw.URL,
		raw.RawText,
		raw.Fingerprint(),
		len(raw.Snapshots),
		string(snapshotsJSON),
		formatTimestamp(capturedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save raw capture: %w", err)
	}

	return nil
}

// GetRawCapture retrieves the raw capture of a card page.
// It returns nil without error when the URL was never captured.
func (cdb *CardDB) GetRawCapture(ctx context.Context, url string) (*model.CardRawData, error) {
	query := `
	SELECT bank, card_name, url, raw_text, snapshots, captured_at
	FROM raw_captures
	WHERE url = ?
	`

	var raw model.CardRawData
	var snapshotsJSON sql.NullString
	var capturedAt string

	err := cdb.db.QueryRowContext(ctx, query, url).Scan(
		&raw.Bank,
		&raw.CardName,
		&raw.URL,
		&raw.RawText,
		&snapshotsJSON,
		&capturedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raw capture: %w", err)
	}

	raw.CapturedAt = parseTimestamp(capturedAt)

	if snapshotsJSON.Valid && snapshotsJSON.String != "" {
		if err := json.Unmarshal([]byte(snapshotsJSON.String), &raw.Snapshots); err != nil {
			return nil, fmt.Errorf("failed to parse snapshots: %w", err)
		}
	}

	return &raw, nil
}

// SaveCardDetails inserts or replaces the extracted record of a card.
// Nil fields are stored as NULL so that "not found" survives a round trip.
func (cdb *CardDB) SaveCardDetails(ctx context.Context, d *model.CardDetails) error {
	if d.URL == "" {
		return ErrMissingURL
	}

	query := `
	INSERT INTO card_details (
		bank, url, card_name, annual_fee, milestone_duration, milestone_amount,
		milestone_reward, reward_points_program, fees_and_charges, card_benefits,
		llm_failed, extracted_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		bank = excluded.bank,
		card_name = excluded.card_name,
		annual_fee = excluded.annual_fee,
		milestone_duration = excluded.milestone_duration,
		milestone_amount = excluded.milestone_amount,
		milestone_reward = excluded.milestone_reward,
		reward_points_program = excluded.reward_points_program,
		fees_and_charges = excluded.fees_and_charges,
		card_benefits = excluded.card_benefits,
		llm_failed = excluded.llm_failed,
		extracted_at = excluded.extracted_at
	`

	_, err := cdb.db.ExecContext(ctx, query,
		d.Bank,
		d.URL,
		nullString(d.CardName),
		nullString(d.AnnualFee),
		nullString(d.MilestoneDuration),
		nullString(d.MilestoneAmount),
		nullString(d.MilestoneReward),
		nullString(d.RewardPointsProgram),
		nullString(d.FeesAndCharges),
		nullString(d.CardBenefits),
		d.LLMFailed,
		formatTimestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save card details: %w", err)
	}

	return nil
}

// ListCardDetails returns the stored records of bank, or of every bank when
// bank is empty, ordered by bank then card name.
func (cdb *CardDB) ListCardDetails(ctx context.Context, bank string) ([]*model.CardDetails, error) {
	query := `
	SELECT bank, url, card_name, annual_fee, milestone_duration, milestone_amount,
		milestone_reward, reward_points_program, fees_and_charges, card_benefits, llm_failed
	FROM card_details
	WHERE 1=1
	`
	args := make([]any, 0, 1)

	if bank != "" {
		query += " AND bank = ?"
		args = append(args, bank)
	}

	query += " ORDER BY bank, card_name"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list card details: %w", err)
	}
	defer rows.Close()

	results := make([]*model.CardDetails, 0)
	for rows.Next() {
		var d model.CardDetails
		var fields [8]sql.NullString

		err := rows.Scan(
			&d.Bank,
			&d.URL,
			&fields[0],
			&fields[1],
			&fields[2],
			&fields[3],
			&fields[4],
			&fields[5],
			&fields[6],
			&fields[7],
			&d.LLMFailed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card details: %w", err)
		}

		d.CardName = stringPtr(fields[0])
		d.AnnualFee = stringPtr(fields[1])
		d.MilestoneDuration = stringPtr(fields[2])
		d.MilestoneAmount = stringPtr(fields[3])
		d.MilestoneReward = stringPtr(fields[4])
		d.RewardPointsProgram = stringPtr(fields[5])
		d.FeesAndCharges = stringPtr(fields[6])
		d.CardBenefits = stringPtr(fields[7])

		results = append(results, &d)
	}

	return results, rows.Err()
}

// Run is one recorded scrape.
type Run struct {
	ID          int64           `json:"id"`
	Banks       []string        `json:"banks"`
	Status      model.RunStatus `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at,omitzero"`
	CardCount   int             `json:"card_count"`
	FailedCount int             `json:"failed_count"`
	Error       string          `json:"error,omitempty"`
}

// StartRun records the start of a scrape and returns its ID.
func (cdb *CardDB) StartRun(ctx context.Context, banks []string) (int64, error) {
	banksJSON, err := json.Marshal(banks)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize banks: %w", err)
	}

	query := `
	INSERT INTO runs (banks, status, started_at)
	VALUES (?, ?, ?)
	`

	result, err := cdb.db.ExecContext(ctx, query,
		string(banksJSON),
		string(model.StatusRunning),
		formatTimestamp(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}

	return result.LastInsertId()
}

// FinishRun records the outcome of a scrape.
func (cdb *CardDB) FinishRun(ctx context.Context, id int64, status model.RunStatus, cardCount, failedCount int, errMsg string) error {
	query := `
	UPDATE runs
	SET status = ?, finished_at = ?, card_count = ?, failed_count = ?, error = ?
	WHERE id = ?
	`

	result, err := cdb.db.ExecContext(ctx, query,
		string(status),
		formatTimestamp(time.Now()),
		cardCount,
		failedCount,
		errMsg,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %d not found", id)
	}

	return nil
}

// GetRun retrieves a run by ID. It returns nil without error for unknown IDs.
func (cdb *CardDB) GetRun(ctx context.Context, id int64) (*Run, error) {
	rows, err := cdb.db.QueryContext(ctx, runSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanRun(rows)
}

// ListRuns returns the most recent runs, newest first. A non-positive limit
// returns every run.
func (cdb *CardDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := runSelect + " ORDER BY id DESC"
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

const runSelect = `
	SELECT id, banks, status, started_at, finished_at, card_count, failed_count, error
	FROM runs`

func scanRun(rows *sql.Rows) (*Run, error) {
	var run Run
	var banksJSON, status, startedAt string
	var finishedAt, errMsg sql.NullString

	err := rows.Scan(
		&run.ID,
		&banksJSON,
		&status,
		&startedAt,
		&finishedAt,
		&run.CardCount,
		&run.FailedCount,
		&errMsg,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if err := json.Unmarshal([]byte(banksJSON), &run.Banks); err != nil {
		return nil, fmt.Errorf("failed to parse run banks: %w", err)
	}
	run.Status = model.RunStatus(status)
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	run.Error = errMsg.String

	return &run, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return model.String(ns.String)
}

// formatTimestamp renders t the way parseTimestamp reads it back.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",  // SQLite default datetime format
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",  // ISO 8601 without timezone
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
