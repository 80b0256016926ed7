package sync

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"catalog-sync-service/internal/catalog"
	"catalog-sync-service/internal/logger"
	"catalog-sync-service/internal/remote"
)

// deletePending removes tombstoned products remotely, then locally. A failed
// remote delete leaves the tombstone in place for the next run.
func (m *Manager) deletePending(ctx context.Context, runID string) phaseResult {
	var res phaseResult

	tombstones, err := m.products.ListDeleted(ctx)
	if err != nil {
		logger.Log.Error("Failed to list deleted products", zap.String("runID", runID), zap.Error(err))
		res.err = err
		return res
	}

	for _, p := range tombstones {
		if err := ctx.Err(); err != nil {
			res.err = err
			return res
		}

		if err := m.productTable.Delete(ctx, remote.ProductKey(p.Code)); err != nil {
			logger.Log.Error("Failed to delete product remotely",
				zap.String("runID", runID),
				zap.String("code", p.Code),
				zap.Error(err),
			)
			res.failed++
			continue
		}

		if err := m.products.DeletePhysical(ctx, p.Code); err != nil {
			logger.Log.Error("Failed to purge product locally",
				zap.String("runID", runID),
				zap.String("code", p.Code),
				zap.Error(err),
			)
			res.failed++
			continue
		}

		logger.Log.Info("Product deleted", zap.String("runID", runID), zap.String("code", p.Code))
		res.ok++
	}
	return res
}

// pushProducts upserts every live local product and marks it synced.
func (m *Manager) pushProducts(ctx context.Context, runID string) phaseResult {
	var res phaseResult

	products, err := m.products.List(ctx)
	if err != nil {
		logger.Log.Error("Failed to list products", zap.String("runID", runID), zap.Error(err))
		res.err = err
		return res
	}

	for _, p := range products {
		if err := ctx.Err(); err != nil {
			res.err = err
			return res
		}

		if err := m.productTable.Put(ctx, remote.EncodeProduct(p)); err != nil {
			logger.Log.Error("Failed to upload product",
				zap.String("runID", runID),
				zap.String("code", p.Code),
				zap.Error(err),
			)
			res.failed++
			continue
		}

		if !p.Synced {
			if err := m.products.MarkSynced(ctx, p.Code); err != nil {
				logger.Log.Error("Failed to mark product synced",
					zap.String("runID", runID),
					zap.String("code", p.Code),
					zap.Error(err),
				)
				res.failed++
				continue
			}
		}

		logger.Log.Debug("Product uploaded", zap.String("runID", runID), zap.String("code", p.Code))
		res.ok++
	}
	return res
}

// pullProducts overwrites local rows with the remote scan. Tombstoned codes
// are never resurrected; unsynced local edits are reported as conflicts.
func (m *Manager) pullProducts(ctx context.Context, runID string) phaseResult {
	var res phaseResult

	items, err := m.productTable.Scan(ctx)
	if err != nil {
		logger.Log.Error("Failed to scan remote products", zap.String("runID", runID), zap.Error(err))
		res.err = err
		return res
	}

	tombstones, err := m.products.ListDeleted(ctx)
	if err != nil {
		logger.Log.Error("Failed to list deleted products", zap.String("runID", runID), zap.Error(err))
		res.err = err
		return res
	}
	pending := make(map[string]struct{}, len(tombstones))
	for _, p := range tombstones {
		pending[p.Code] = struct{}{}
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			res.err = err
			return res
		}

		incoming := remote.DecodeProduct(item)
		if incoming.Code == "" {
			logger.Log.Warn("Skipping remote product without code", zap.String("runID", runID))
			res.failed++
			continue
		}
		if _, ok := pending[incoming.Code]; ok {
			logger.Log.Debug("Skipping product pending deletion", zap.String("runID", runID), zap.String("code", incoming.Code))
			continue
		}

		local, err := m.products.Get(ctx, incoming.Code)
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			local = nil
		case err != nil:
			logger.Log.Error("Failed to read local product",
				zap.String("runID", runID),
				zap.String("code", incoming.Code),
				zap.Error(err),
			)
			res.failed++
			continue
		}

		if local != nil {
			if local.Synced && local.SameContent(*incoming) {
				res.ok++
				continue
			}
			if !local.Synced && !local.SameContent(*incoming) {
				res.conflicts++
				m.recordConflict(ctx, runID, TableProducts, incoming.Code, local, incoming)
				if m.conflicts.KeepLocal() {
					continue
				}
			}
		}

		if err := m.products.Insert(ctx, incoming); err != nil {
			logger.Log.Error("Failed to store downloaded product",
				zap.String("runID", runID),
				zap.String("code", incoming.Code),
				zap.Error(err),
			)
			res.failed++
			continue
		}
		res.ok++
	}

	logger.Log.Debug("Remote products downloaded", zap.String("runID", runID), zap.Int("items", len(items)))
	return res
}

func (m *Manager) pushUsers(ctx context.Context, runID string) phaseResult {
	var res phaseResult

	users, err := m.users.List(ctx)
	if err != nil {
		logger.Log.Error("Failed to list users", zap.String("runID", runID), zap.Error(err))
		res.err = err
		return res
	}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			res.err = err
			return res
		}

		if err := m.userTable.Put(ctx, remote.EncodeUser(u)); err != nil {
			logger.Log.Error("Failed to upload user",
				zap.String("runID", runID),
				zap.Int64("userID", u.ID),
				zap.Error(err),
			)
			res.failed++
			continue
		}

		if !u.Synced {
			if err := m.users.MarkSynced(ctx, u.ID); err != nil {
				logger.Log.Error("Failed to mark user synced",
					zap.String("runID", runID),
					zap.Int64("userID", u.ID),
					zap.Error(err),
				)
				res.failed++
				continue
			}
		}
		res.ok++
	}
	return res
}

func (m *Manager) pullUsers(ctx context.Context, runID string) phaseResult {
	var res phaseResult

	items, err := m.userTable.Scan(ctx)
	if err != nil {
		logger.Log.Error("Failed to scan remote users", zap.String("runID", runID), zap.Error(err))
		res.err = err
		return res
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			res.err = err
			return res
		}

		incoming := remote.DecodeUser(item)
		if incoming.ID == 0 {
			logger.Log.Warn("Skipping remote user without id", zap.String("runID", runID))
			res.failed++
			continue
		}

		local, err := m.users.Get(ctx, incoming.ID)
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			local = nil
		case err != nil:
			logger.Log.Error("Failed to read local user",
				zap.String("runID", runID),
				zap.Int64("userID", incoming.ID),
				zap.Error(err),
			)
			res.failed++
			continue
		}

		if local != nil {
			if local.Synced && local.SameContent(*incoming) {
				res.ok++
				continue
			}
			if !local.Synced && !local.SameContent(*incoming) {
				res.conflicts++
				m.recordConflict(ctx, runID, TableUsers, strconv.FormatInt(incoming.ID, 10), local, incoming)
				if m.conflicts.KeepLocal() {
					continue
				}
			}
		}

		// The local bcrypt hash survives as long as the shared digest is unchanged.
		if local != nil && local.Password == incoming.Password {
			incoming.LocalHash = local.LocalHash
		}

		if err := m.users.Upsert(ctx, incoming); err != nil {
			logger.Log.Error("Failed to store downloaded user",
				zap.String("runID", runID),
				zap.Int64("userID", incoming.ID),
				zap.Error(err),
			)
			res.failed++
			continue
		}
		res.ok++
	}
	return res
}

func (m *Manager) recordConflict(ctx context.Context, runID, table, pk string, local, cloud any) {
	conflict := m.conflicts.NewConflict(table, pk, local, cloud)
	logger.Log.Warn("Conflict detected",
		zap.String("runID", runID),
		zap.String("table", table),
		zap.String("key", pk),
		zap.Bool("keptLocal", m.conflicts.KeepLocal()),
	)
	if err := m.conflicts.Record(ctx, conflict); err != nil {
		logger.Log.Error("Failed to record conflict", zap.String("runID", runID), zap.Error(err))
	}
}
