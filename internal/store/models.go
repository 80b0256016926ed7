package store

import (
	"encoding/json"
	"time"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

type SyncState struct {
	TableName     string     `db:"table_name" json:"table_name"`
	LastSyncTime  *time.Time `db:"last_sync_time" json:"last_sync_time,omitempty"`
	RowsSynced    int64      `db:"rows_synced" json:"rows_synced"`
	SyncDirection string     `db:"sync_direction" json:"sync_direction"`
	Status        string     `db:"status" json:"status"`
	ErrorMessage  string     `db:"error_message" json:"error_message,omitempty"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

type Conflict struct {
	ID                 string          `db:"id" json:"id"`
	TableName          string          `db:"table_name" json:"table_name"`
	PrimaryKeyValue    string          `db:"primary_key_value" json:"primary_key_value"`
	LocalData          json.RawMessage `db:"local_data" json:"local_data"`
	CloudData          json.RawMessage `db:"cloud_data" json:"cloud_data"`
	ConflictType       string          `db:"conflict_type" json:"conflict_type"`
	DetectedAt         time.Time       `db:"detected_at" json:"detected_at"`
	Resolved           bool            `db:"resolved" json:"resolved"`
	ResolutionStrategy string          `db:"resolution_strategy" json:"resolution_strategy,omitempty"`
	ResolvedAt         *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedData       json.RawMessage `db:"resolved_data" json:"resolved_data,omitempty"`
}

type SyncHistory struct {
	ID                string     `db:"id" json:"id"`
	StartedAt         time.Time  `db:"started_at" json:"started_at"`
	CompletedAt       *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Direction         string     `db:"direction" json:"direction"`
	TablesSynced      string     `db:"tables_synced" json:"tables_synced"`
	TotalRows         int64      `db:"total_rows" json:"total_rows"`
	ConflictsDetected int        `db:"conflicts_detected" json:"conflicts_detected"`
	Status            string     `db:"status" json:"status"`
	ErrorMessage      string     `db:"error_message" json:"error_message,omitempty"`
}
