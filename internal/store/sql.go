package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"catalog-sync-service/internal/database"
)

// SQLStore keeps sync bookkeeping in SQLite or MySQL. Timestamps are stored
// as Unix milliseconds so both dialects share one schema.
type SQLStore struct {
	db *database.Database
}

func NewSQLStore(ctx context.Context, db *database.Database) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, []string{
		`CREATE TABLE IF NOT EXISTS sync_state (
			table_name VARCHAR(64) NOT NULL PRIMARY KEY,
			last_sync_time BIGINT NULL,
			rows_synced BIGINT NOT NULL DEFAULT 0,
			sync_direction VARCHAR(32) NOT NULL DEFAULT '',
			status VARCHAR(32) NOT NULL DEFAULT '',
			error_message TEXT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conflicts (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			table_name VARCHAR(64) NOT NULL,
			primary_key_value VARCHAR(255) NOT NULL,
			local_data TEXT NULL,
			cloud_data TEXT NULL,
			conflict_type VARCHAR(32) NOT NULL,
			detected_at BIGINT NOT NULL,
			resolved BOOLEAN NOT NULL DEFAULT FALSE,
			resolution_strategy VARCHAR(32) NULL,
			resolved_at BIGINT NULL,
			resolved_data TEXT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sync_history (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			started_at BIGINT NOT NULL,
			completed_at BIGINT NULL,
			direction VARCHAR(32) NOT NULL,
			tables_synced VARCHAR(255) NOT NULL,
			total_rows BIGINT NOT NULL DEFAULT 0,
			conflicts_detected INTEGER NOT NULL DEFAULT 0,
			status VARCHAR(32) NOT NULL,
			error_message TEXT NULL
		)`,
	})
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func fromNullMillis(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := fromMillis(ms.Int64)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scanner interface {
	Scan(dest ...any) error
}

const syncStateColumns = `table_name, last_sync_time, rows_synced, sync_direction, status, error_message, updated_at`

func scanSyncState(row scanner) (*SyncState, error) {
	var (
		state     SyncState
		lastSync  sql.NullInt64
		errMsg    sql.NullString
		updatedAt int64
	)
	err := row.Scan(
		&state.TableName,
		&lastSync,
		&state.RowsSynced,
		&state.SyncDirection,
		&state.Status,
		&errMsg,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	state.LastSyncTime = fromNullMillis(lastSync)
	state.ErrorMessage = errMsg.String
	state.UpdatedAt = fromMillis(updatedAt)
	return &state, nil
}

func (s *SQLStore) GetSyncState(ctx context.Context, tableName string) (*SyncState, error) {
	row := s.db.DB.QueryRowContext(ctx, `SELECT `+syncStateColumns+` FROM sync_state WHERE table_name = ?`, tableName)

	state, err := scanSyncState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *SQLStore) ListSyncStates(ctx context.Context) ([]*SyncState, error) {
	rows, err := s.db.DB.QueryContext(ctx, `SELECT `+syncStateColumns+` FROM sync_state ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []*SyncState
	for rows.Next() {
		state, err := scanSyncState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

func (s *SQLStore) UpdateSyncState(ctx context.Context, state *SyncState) error {
	query := `REPLACE INTO sync_state (` + syncStateColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	state.UpdatedAt = time.Now().UTC()
	_, err := s.db.DB.ExecContext(ctx, query,
		state.TableName,
		nullMillis(state.LastSyncTime),
		state.RowsSynced,
		state.SyncDirection,
		state.Status,
		nullString(state.ErrorMessage),
		millis(state.UpdatedAt),
	)

	return err
}

const conflictColumns = `id, table_name, primary_key_value, local_data, cloud_data, conflict_type, detected_at, resolved, resolution_strategy, resolved_at, resolved_data`

func scanConflict(row scanner) (*Conflict, error) {
	var (
		c                          Conflict
		local, cloud, resolvedData []byte
		detectedAt                 int64
		strategy                   sql.NullString
		resolvedAt                 sql.NullInt64
	)
	err := row.Scan(
		&c.ID,
		&c.TableName,
		&c.PrimaryKeyValue,
		&local,
		&cloud,
		&c.ConflictType,
		&detectedAt,
		&c.Resolved,
		&strategy,
		&resolvedAt,
		&resolvedData,
	)
	if err != nil {
		return nil, err
	}
	c.LocalData = local
	c.CloudData = cloud
	c.ResolvedData = resolvedData
	c.DetectedAt = fromMillis(detectedAt)
	c.ResolutionStrategy = strategy.String
	c.ResolvedAt = fromNullMillis(resolvedAt)
	return &c, nil
}

func (s *SQLStore) CreateConflict(ctx context.Context, conflict *Conflict) error {
	query := `INSERT INTO conflicts (id, table_name, primary_key_value, local_data, cloud_data, conflict_type, detected_at, resolved)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.DB.ExecContext(ctx, query,
		conflict.ID,
		conflict.TableName,
		conflict.PrimaryKeyValue,
		string(conflict.LocalData),
		string(conflict.CloudData),
		conflict.ConflictType,
		millis(conflict.DetectedAt),
		conflict.Resolved,
	)

	return err
}

func (s *SQLStore) GetConflict(ctx context.Context, id string) (*Conflict, error) {
	row := s.db.DB.QueryRowContext(ctx, `SELECT `+conflictColumns+` FROM conflicts WHERE id = ?`, id)

	c, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SQLStore) ListConflicts(ctx context.Context, resolved bool, limit, offset int) ([]*Conflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM conflicts WHERE resolved = ? ORDER BY detected_at DESC LIMIT ? OFFSET ?`

	rows, err := s.db.DB.QueryContext(ctx, query, resolved, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conflicts []*Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

func (s *SQLStore) ResolveConflict(ctx context.Context, id string, strategy string, resolvedData []byte) error {
	query := `UPDATE conflicts SET resolved = ?, resolution_strategy = ?, resolved_data = ?, resolved_at = ? WHERE id = ?`

	_, err := s.db.DB.ExecContext(ctx, query, true, strategy, string(resolvedData), millis(time.Now()), id)
	return err
}

func (s *SQLStore) CreateSyncHistory(ctx context.Context, history *SyncHistory) error {
	query := `INSERT INTO sync_history (id, started_at, completed_at, direction, tables_synced, total_rows, conflicts_detected, status, error_message)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.DB.ExecContext(ctx, query,
		history.ID,
		millis(history.StartedAt),
		nullMillis(history.CompletedAt),
		history.Direction,
		history.TablesSynced,
		history.TotalRows,
		history.ConflictsDetected,
		history.Status,
		nullString(history.ErrorMessage),
	)

	return err
}

func (s *SQLStore) UpdateSyncHistory(ctx context.Context, history *SyncHistory) error {
	query := `UPDATE sync_history SET completed_at = ?, total_rows = ?, conflicts_detected = ?, status = ?, error_message = ? WHERE id = ?`

	_, err := s.db.DB.ExecContext(ctx, query,
		nullMillis(history.CompletedAt),
		history.TotalRows,
		history.ConflictsDetected,
		history.Status,
		nullString(history.ErrorMessage),
		history.ID,
	)

	return err
}

func (s *SQLStore) GetSyncHistory(ctx context.Context, limit, offset int) ([]*SyncHistory, error) {
	query := `SELECT id, started_at, completed_at, direction, tables_synced, total_rows, conflicts_detected, status, error_message
			  FROM sync_history ORDER BY started_at DESC LIMIT ? OFFSET ?`

	rows, err := s.db.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*SyncHistory
	for rows.Next() {
		var (
			h           SyncHistory
			startedAt   int64
			completedAt sql.NullInt64
			errMsg      sql.NullString
		)
		err := rows.Scan(
			&h.ID,
			&startedAt,
			&completedAt,
			&h.Direction,
			&h.TablesSynced,
			&h.TotalRows,
			&h.ConflictsDetected,
			&h.Status,
			&errMsg,
		)
		if err != nil {
			return nil, err
		}
		h.StartedAt = fromMillis(startedAt)
		h.CompletedAt = fromNullMillis(completedAt)
		h.ErrorMessage = errMsg.String
		history = append(history, &h)
	}

	return history, rows.Err()
}
