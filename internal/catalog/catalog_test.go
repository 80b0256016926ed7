package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-sync-service/internal/config"
	"catalog-sync-service/internal/database"
)

func setupTestDB(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.NewDatabase(config.DatabaseConnection{Driver: database.DriverSQLite, FilePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func laptop() *Product {
	return &Product{
		Code:            "P001",
		Description:     "Laptop Lenovo IdeaPad 3",
		ManufactureDate: "2024-01-15",
		Cost:            750.00,
		Stock:           10,
		ImageURI:        "https://img.example/p001.png",
	}
}

func TestProductValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Product)
		wantErr bool
	}{
		{"valid", func(p *Product) {}, false},
		{"missing code", func(p *Product) { p.Code = " " }, true},
		{"missing description", func(p *Product) { p.Description = "" }, true},
		{"bad date", func(p *Product) { p.ManufactureDate = "15/01/2024" }, true},
		{"negative cost", func(p *Product) { p.Cost = -1 }, true},
		{"negative stock", func(p *Product) { p.Stock = -3 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := laptop()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProductRepository_InsertGetUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(setupTestDB(t))

	p := laptop()
	require.NoError(t, repo.Insert(ctx, p))

	got, err := repo.Get(ctx, "P001")
	require.NoError(t, err)
	assert.Equal(t, *p, *got)

	got.Stock = 4
	got.Synced = true
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.Get(ctx, "P001")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Stock)
	assert.True(t, got.Synced)

	// Insert replaces by code
	replacement := laptop()
	replacement.Description = "Laptop Lenovo IdeaPad 5"
	require.NoError(t, repo.Insert(ctx, replacement))

	got, err = repo.Get(ctx, "P001")
	require.NoError(t, err)
	assert.Equal(t, "Laptop Lenovo IdeaPad 5", got.Description)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProductRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(setupTestDB(t))

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	p := laptop()
	p.Code = "missing"
	assert.ErrorIs(t, repo.Update(ctx, p), ErrNotFound)
	assert.ErrorIs(t, repo.MarkDeleted(ctx, "missing"), ErrNotFound)
}

func TestProductRepository_SoftDeleteLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(setupTestDB(t))

	a := laptop()
	b := laptop()
	b.Code = "P002"
	b.Description = "Mouse inalambrico"
	require.NoError(t, repo.Insert(ctx, a))
	require.NoError(t, repo.Insert(ctx, b))
	require.NoError(t, repo.MarkSynced(ctx, "P001"))

	require.NoError(t, repo.MarkDeleted(ctx, "P001"))

	live, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "P002", live[0].Code)

	deleted, err := repo.ListDeleted(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "P001", deleted[0].Code)
	assert.False(t, deleted[0].Synced)

	require.NoError(t, repo.DeletePhysical(ctx, "P001"))
	_, err = repo.Get(ctx, "P001")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))

	byron := &User{FirstName: "Byron", LastName: "Condolo", Password: "hash-1"}
	ruth := &User{FirstName: "Ruth", LastName: "Rosero", Password: "hash-2", LocalHash: "$2a$04$local"}
	require.NoError(t, repo.Insert(ctx, byron))
	require.NoError(t, repo.Insert(ctx, ruth))
	assert.NotZero(t, byron.ID)
	assert.NotEqual(t, byron.ID, ruth.ID)

	found, err := repo.FindByFirstName(ctx, "Ruth")
	require.NoError(t, err)
	assert.Equal(t, ruth.ID, found.ID)
	assert.Equal(t, "$2a$04$local", found.LocalHash)
	assert.True(t, found.SameContent(User{ID: ruth.ID, FirstName: "Ruth", LastName: "Rosero", Password: "hash-2"}))

	_, err = repo.FindByFirstName(ctx, "Nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.MarkSynced(ctx, byron.ID))
	got, err := repo.Get(ctx, byron.ID)
	require.NoError(t, err)
	assert.True(t, got.Synced)

	// Upsert under an explicit remote ID
	remote := &User{ID: 42, FirstName: "Pamela", LastName: "Fernandez", Password: "hash-3", Synced: true}
	require.NoError(t, repo.Upsert(ctx, remote))
	remote.LastName = "Fernandez G."
	require.NoError(t, repo.Upsert(ctx, remote))

	got, err = repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Fernandez G.", got.LastName)

	got.Password = "hash-4"
	require.NoError(t, repo.Update(ctx, got))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "Byron", users[0].FirstName)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
