package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"portflow/pkg/domain"
)

var _ domain.IdentityDirectory = (*Local)(nil)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or a
// wrong password.
var ErrInvalidCredentials = errors.New("invalid login credentials")

// ErrEmailTaken is returned when creating an account for a registered email.
var ErrEmailTaken = errors.New("a user with this email address has already been registered")

// Account is an authenticated local account.
type Account struct {
	ID       string
	Email    string
	FullName string
	Role     string
}

// Local keeps accounts in the auth_credentials table with bcrypt hashes.
type Local struct {
	store domain.PersistentStore
	cost  int
	now   func() time.Time
}

// NewLocal returns a directory over store.
func NewLocal(store domain.PersistentStore) *Local {
	return &Local{store: store, cost: bcrypt.DefaultCost, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (l *Local) findByEmail(ctx context.Context, email string) (domain.Row, error) {
	rows, err := l.store.List(ctx, domain.TableAuthCredentials, domain.Query{
		Filters: []domain.Filter{domain.Eq("email", normalizeEmail(email))},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// CreateUser hashes the password and stores a new account.
func (l *Local) CreateUser(ctx context.Context, identity domain.Identity) (string, error) {
	existing, err := l.findByEmail(ctx, identity.Email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", ErrEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(identity.Password), l.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	id := uuid.NewString()
	if _, err := l.store.Insert(ctx, domain.TableAuthCredentials, domain.Row{
		domain.ColumnID: id,
		"email":         normalizeEmail(identity.Email),
		"password_hash": string(hash),
		"full_name":     identity.FullName,
		"role":          identity.Role,
		"created_at":    l.now().UTC(),
	}); err != nil {
		return "", fmt.Errorf("store credentials: %w", err)
	}
	return id, nil
}

// UpdateUser changes the account attributes and, when set, the password.
func (l *Local) UpdateUser(ctx context.Context, id string, identity domain.Identity) error {
	if existing, err := l.findByEmail(ctx, identity.Email); err != nil {
		return err
	} else if existing != nil && existing.ID() != id {
		return ErrEmailTaken
	}
	patch := domain.Row{
		"email":     normalizeEmail(identity.Email),
		"full_name": identity.FullName,
		"role":      identity.Role,
	}
	if identity.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(identity.Password), l.cost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		patch["password_hash"] = string(hash)
	}
	_, err := l.store.Update(ctx, domain.TableAuthCredentials, id, patch)
	return err
}

// DeleteUser removes the account.
func (l *Local) DeleteUser(ctx context.Context, id string) error {
	_, err := l.store.Delete(ctx, domain.TableAuthCredentials, id)
	return err
}

// Authenticate checks the password for email.
func (l *Local) Authenticate(ctx context.Context, email, password string) (Account, error) {
	row, err := l.findByEmail(ctx, email)
	if err != nil {
		return Account{}, err
	}
	if row == nil {
		return Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.String("password_hash")), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return Account{
		ID:       row.ID(),
		Email:    row.String("email"),
		FullName: row.String("full_name"),
		Role:     row.String("role"),
	}, nil
}
