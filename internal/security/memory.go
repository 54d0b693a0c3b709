package security

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/go-while/go-webindex/internal/models"
)

// MemoryAuthenticator holds a single user configured at startup
type MemoryAuthenticator struct {
	user *models.User
	key  string // normalized username
}

// NewMemoryAuthenticator creates an authenticator for one user.
// An empty password is replaced by a random one, which is logged once
// so the operator can log in. The returned string is the effective password
// when it was generated and empty otherwise.
func NewMemoryAuthenticator(username, password string) (*MemoryAuthenticator, string, error) {
	generated := ""
	if password == "" {
		password = uuid.New().String()
		generated = password
		log.Printf("[SECURITY]: Using generated security password: %s", password)
		log.Printf("[SECURITY]: This generated password is for development use only. Configure security.password or the sqlite auth store before production.")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	return &MemoryAuthenticator{
		user: &models.User{
			ID:           1,
			Username:     username,
			DisplayName:  username,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		key: NormalizeUsername(username),
	}, generated, nil
}

// Authenticate implements Authenticator
func (m *MemoryAuthenticator) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if NormalizeUsername(username) != m.key || !CheckPassword(password, m.user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	u := *m.user
	return &u, nil
}
