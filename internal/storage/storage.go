// Package storage provides SQLite-backed persistence for detector state,
// the cooldown ledger, and the evaluation log.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"coinsentry/internal/models"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db         *sql.DB
	maxRecords int
}

// New opens or creates the SQLite database at dbPath. An empty dbPath
// defaults to $TMPDIR/coinsentry/data.db. maxRecords caps the evaluation
// log; older rows are rotated out on append.
func New(maxRecords int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "coinsentry", "data.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, maxRecords: maxRecords}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS detector_state (
			asset_id       TEXT PRIMARY KEY,
			dynamic_ath    REAL,
			ema50_position TEXT NOT NULL DEFAULT '',
			updated_at     INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cooldowns (
			key      TEXT PRIMARY KEY,
			fired_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS evaluations (
			id         TEXT PRIMARY KEY,
			asset_id   TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			score      REAL NOT NULL,
			payload    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_asset ON evaluations(asset_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveDetectorStates writes the whole state map in one transaction so the
// durable copy always matches the end of a completed cycle.
func (s *Storage) SaveDetectorStates(states map[string]models.DetectorState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for assetID, state := range states {
		var ath sql.NullFloat64
		if state.DynamicATH != nil {
			ath = sql.NullFloat64{Float64: *state.DynamicATH, Valid: true}
		}
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO detector_state
				(asset_id, dynamic_ath, ema50_position, updated_at)
			VALUES (?,?,?,?)`,
			assetID, ath, string(state.EMA50Position), state.UpdatedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("failed to save state for %s: %w", assetID, err)
		}
	}
	return tx.Commit()
}

// LoadDetectorStates returns all persisted detector states. An empty
// database yields an empty map; that is the expected first-run condition.
func (s *Storage) LoadDetectorStates() (map[string]models.DetectorState, error) {
	rows, err := s.db.Query(`
		SELECT asset_id, dynamic_ath, ema50_position, updated_at
		FROM detector_state`)
	if err != nil {
		return nil, fmt.Errorf("failed to query detector states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]models.DetectorState)
	for rows.Next() {
		state, err := scanDetectorState(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan detector state: %w", err)
		}
		states[state.AssetID] = state
	}
	return states, rows.Err()
}

// SaveCooldown records a confirmed alert dispatch under its ledger key.
func (s *Storage) SaveCooldown(key string, firedAt time.Time) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO cooldowns (key, fired_at) VALUES (?,?)`,
		key, firedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save cooldown: %w", err)
	}
	return nil
}

// LoadCooldowns returns the persisted cooldown ledger.
func (s *Storage) LoadCooldowns() (map[string]time.Time, error) {
	rows, err := s.db.Query(`SELECT key, fired_at FROM cooldowns`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cooldowns: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var key string
		var firedAtNano int64
		if err := rows.Scan(&key, &firedAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan cooldown: %w", err)
		}
		out[key] = time.Unix(0, firedAtNano)
	}
	return out, rows.Err()
}

// AppendEvaluation appends one structured record for an evaluated asset.
// Records are independent inserts; a crash mid-write cannot damage
// previously appended rows.
func (s *Storage) AppendEvaluation(rec *models.EvaluationRecord) error {
	payload, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation: %w", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`
		INSERT INTO evaluations (id, asset_id, created_at, score, payload)
		VALUES (?,?,?,?,?)`,
		rec.ID, rec.AssetID, rec.Timestamp.UnixNano(), rec.Score, string(payload),
	); err != nil {
		return fmt.Errorf("failed to insert evaluation: %w", err)
	}

	if s.maxRecords > 0 {
		if _, err := tx.Exec(`
			DELETE FROM evaluations WHERE id NOT IN (
				SELECT id FROM evaluations ORDER BY created_at DESC LIMIT ?
			)`, s.maxRecords); err != nil {
			return fmt.Errorf("failed to rotate evaluations: %w", err)
		}
	}
	return tx.Commit()
}

// RecentEvaluations returns up to k records for one asset, newest first.
func (s *Storage) RecentEvaluations(assetID string, k int) ([]models.EvaluationRecord, error) {
	rows, err := s.db.Query(`
		SELECT payload FROM evaluations
		WHERE asset_id = ? ORDER BY created_at DESC LIMIT ?`, assetID, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var records []models.EvaluationRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		var rec models.EvaluationRecord
		if err := sonic.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evaluation: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanDetectorState(scan func(...any) error) (models.DetectorState, error) {
	var state models.DetectorState
	var ath sql.NullFloat64
	var position string
	var updatedAtNano int64

	if err := scan(&state.AssetID, &ath, &position, &updatedAtNano); err != nil {
		return state, err
	}
	if ath.Valid {
		v := ath.Float64
		state.DynamicATH = &v
	}
	state.EMA50Position = models.EMAPosition(position)
	state.UpdatedAt = time.Unix(0, updatedAtNano)
	return state, nil
}
