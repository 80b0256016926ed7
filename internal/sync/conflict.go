package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"catalog-sync-service/internal/config"
	"catalog-sync-service/internal/store"
)

const conflictDataMismatch = "data_mismatch"

type ConflictManager struct {
	store    store.Store
	strategy string
}

func NewConflictManager(store store.Store, strategy string) *ConflictManager {
	return &ConflictManager{
		store:    store,
		strategy: strategy,
	}
}

// KeepLocal reports whether a pending local row wins over the remote copy.
func (cm *ConflictManager) KeepLocal() bool {
	return cm.strategy == config.ResolutionPreservePending
}

// NewConflict captures both sides of a row that was edited locally and
// changed remotely before the edit reached the cloud.
func (cm *ConflictManager) NewConflict(table, pk string, localData, cloudData any) *store.Conflict {
	localBytes, _ := json.Marshal(localData)
	cloudBytes, _ := json.Marshal(cloudData)

	return &store.Conflict{
		ID:              uuid.New().String(),
		TableName:       table,
		PrimaryKeyValue: pk,
		LocalData:       json.RawMessage(localBytes),
		CloudData:       json.RawMessage(cloudBytes),
		ConflictType:    conflictDataMismatch,
		DetectedAt:      time.Now().UTC(),
	}
}

// Record stores the conflict. Under remote_wins it is stored already resolved
// with the cloud data, since the caller overwrites the local row.
func (cm *ConflictManager) Record(ctx context.Context, conflict *store.Conflict) error {
	if err := cm.store.CreateConflict(ctx, conflict); err != nil {
		return err
	}
	if cm.KeepLocal() {
		return nil
	}
	return cm.store.ResolveConflict(ctx, conflict.ID, cm.strategy, conflict.CloudData)
}
