package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-while/go-webindex/internal/models"
	"github.com/go-while/go-webindex/internal/security"
)

const userColumns = `id, username, display_name, password_hash, created_at, updated_at`

func scanUser(scan func(dest ...interface{}) error) (*models.User, error) {
	var u models.User
	if err := scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// InsertUser stores a new user. PasswordHash must already be a bcrypt hash.
func (db *Database) InsertUser(user *models.User) error {
	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}
	now := time.Now().UTC()
	res, err := retryableExec(db.mainDB,
		`INSERT INTO users (username, username_key, display_name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username, security.NormalizeUsername(user.Username), user.DisplayName, user.PasswordHash, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("user '%s': %w", user.Username, security.ErrUserExists)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new user id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUserByUsername looks a user up by its normalized name
func (db *Database) GetUserByUsername(username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username_key = ?`
	var u models.User
	err := retryableQueryRowScan(db.mainDB, query, []interface{}{security.NormalizeUsername(username)},
		&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user '%s': %w", username, security.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user '%s': %w", username, err)
	}
	return &u, nil
}

// GetAllUsers returns all users ordered by id
func (db *Database) GetAllUsers() ([]*models.User, error) {
	rows, err := db.mainDB.Query(`SELECT ` + userColumns + ` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// UpdateUserPassword replaces the stored bcrypt hash
func (db *Database) UpdateUserPassword(username, passwordHash string) error {
	res, err := retryableExec(db.mainDB,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE username_key = ?`,
		passwordHash, time.Now().UTC(), security.NormalizeUsername(username))
	if err != nil {
		return fmt.Errorf("failed to update password for '%s': %w", username, err)
	}
	return requireAffected(res, username)
}

// DeleteUser removes a user
func (db *Database) DeleteUser(username string) error {
	res, err := retryableExec(db.mainDB, `DELETE FROM users WHERE username_key = ?`, security.NormalizeUsername(username))
	if err != nil {
		return fmt.Errorf("failed to delete user '%s': %w", username, err)
	}
	return requireAffected(res, username)
}

func requireAffected(res sql.Result, username string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user '%s': %w", username, security.ErrUserNotFound)
	}
	return nil
}

// Authenticate implements security.Authenticator against the users table
func (db *Database) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user, err := db.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, security.ErrUserNotFound) {
			return nil, security.ErrInvalidCredentials
		}
		return nil, err
	}
	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, security.ErrInvalidCredentials
	}
	return user, nil
}
