package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskhub/taskhub/internal/model"
)

// CreateUser inserts a new user. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateUser(ctx context.Context, u model.User) (*model.User, error) {
	if strings.TrimSpace(u.Username) == "" {
		return nil, fmt.Errorf("username must not be empty")
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	u.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, role, department, is_staff, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, string(u.Role), u.Department,
		boolToInt(u.IsStaff), u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user %s: %w", u.Username, err)
	}
	return &u, nil
}

// GetUserByID retrieves a single user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, "SELECT * FROM users WHERE id = ?", id)
}

// GetUserByUsername retrieves a single user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, "SELECT * FROM users WHERE username = ?", username)
}

func (s *SQLiteStore) getUser(ctx context.Context, query, arg string) (*model.User, error) {
	rows, err := s.db.QueryxContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", arg, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting user %s: %w", arg, err)
		}
		return nil, fmt.Errorf("user %s: %w", arg, ErrNotFound)
	}

	u, err := scanUser(rows)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUsersByIDs retrieves the users for the given IDs. Every ID must
// resolve; a missing one yields ErrNotFound.
func (s *SQLiteStore) GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In("SELECT * FROM users WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("building user query: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	found := make(map[string]model.User, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		found[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	users := make([]model.User, 0, len(ids))
	for _, id := range ids {
		u, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		users = append(users, u)
	}
	return users, nil
}

// ListUsers retrieves all users ordered by username.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser updates an existing user's profile fields by ID.
func (s *SQLiteStore) UpdateUser(ctx context.Context, u model.User) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET username = ?, email = ?, role = ?, department = ?,
			is_staff = ?, password_hash = ?
		WHERE id = ?`,
		u.Username, u.Email, string(u.Role), u.Department,
		boolToInt(u.IsStaff), u.PasswordHash,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user %s: %w", u.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user %s: %w", u.ID, ErrNotFound)
	}
	return nil
}

// scanUser scans a user row from a sqlx.Rows result set.
func scanUser(rows *sqlx.Rows) (model.User, error) {
	var (
		u       model.User
		role    string
		isStaff int
	)

	err := rows.Scan(
		&u.ID, &u.Username, &u.Email, &role, &u.Department,
		&isStaff, &u.PasswordHash, &u.CreatedAt,
	)
	if err != nil {
		return model.User{}, fmt.Errorf("scanning user row: %w", err)
	}

	u.Role = model.Role(role)
	u.IsStaff = isStaff != 0
	return u, nil
}
