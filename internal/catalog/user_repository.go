package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"catalog-sync-service/internal/database"
)

const userColumns = `id, first_name, last_name, password, local_hash, synced`

type UserRepository struct {
	db *database.Database
}

func NewUserRepository(db *database.Database) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Password, &u.LocalHash, &u.Synced); err != nil {
		return nil, err
	}
	return &u, nil
}

// Insert stores a new user and assigns its ID.
func (r *UserRepository) Insert(ctx context.Context, u *User) error {
	res, err := r.db.DB.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, password, local_hash, synced) VALUES (?, ?, ?, ?, ?)`,
		u.FirstName, u.LastName, u.Password, u.LocalHash, u.Synced,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	u.ID = id
	return nil
}

// Upsert stores u under its existing ID, replacing any previous row.
func (r *UserRepository) Upsert(ctx context.Context, u *User) error {
	_, err := r.db.DB.ExecContext(ctx,
		`REPLACE INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.FirstName, u.LastName, u.Password, u.LocalHash, u.Synced,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", u.ID, err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *User) error {
	res, err := r.db.DB.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, password = ?, local_hash = ?, synced = ? WHERE id = ?`,
		u.FirstName, u.LastName, u.Password, u.LocalHash, u.Synced, u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", u.ID, err)
	}
	return expectOne(res, "user", strconv.FormatInt(u.ID, 10))
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.db.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, err
}

// FindByFirstName returns the first user registered under the given first name.
func (r *UserRepository) FindByFirstName(ctx context.Context, firstName string) (*User, error) {
	u, err := scanUser(r.db.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE first_name = ? ORDER BY id LIMIT 1`, firstName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", firstName, ErrNotFound)
	}
	return u, err
}

func (r *UserRepository) List(ctx context.Context) ([]*User, error) {
	rows, err := r.db.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY first_name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) MarkSynced(ctx context.Context, id int64) error {
	_, err := r.db.DB.ExecContext(ctx, `UPDATE users SET synced = ? WHERE id = ?`, true, id)
	if err != nil {
		return fmt.Errorf("failed to mark user %d synced: %w", id, err)
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
