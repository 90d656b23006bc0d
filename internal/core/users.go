package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"portflow/pkg/domain"
)

// ErrIdentityUnavailable is returned by the user workflow when no identity
// directory is configured.
var ErrIdentityUnavailable = errors.New("identity directory not configured")

// UserInput is the payload of the user create and update workflows. TeamID is
// the zone the user is assigned to.
type UserInput struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	TeamID   string `json:"team_id"`
}

func (in UserInput) identity() domain.Identity {
	return domain.Identity{Email: in.Email, Password: in.Password, FullName: in.FullName, Role: in.Role}
}

func (in UserInput) complete(withPassword bool) bool {
	fields := []string{in.Email, in.FullName, in.Role, in.TeamID}
	if withPassword {
		fields = append(fields, in.Password)
	}
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

// ValidatePassword enforces the account password rule: at least eight
// characters with a digit and a symbol.
func ValidatePassword(password string) error {
	var digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			digit = true
		case !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))):
			symbol = true
		}
	}
	if len([]rune(password)) < 8 || !digit || !symbol {
		return domain.ValidationError{Field: "password", Message: "must be at least 8 characters long and contain a digit and a symbol"}
	}
	return nil
}

func errAllFieldsRequired() error {
	return domain.Invalid("all fields are required, including team_id")
}

// ListUsers returns every user row.
func (s *Service) ListUsers(ctx context.Context) ([]domain.Row, error) {
	return s.List(ctx, domain.TableUsers, domain.Query{})
}

// GetUser returns one user row.
func (s *Service) GetUser(ctx context.Context, id string) (domain.Row, error) {
	return s.Get(ctx, domain.TableUsers, id)
}

// CreateUser creates the identity account, then the users row, then the team
// assignment. When a later step fails the earlier ones are undone best effort.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (string, error) {
	var id string
	err := s.run(ctx, "create_user", func(ctx context.Context) error {
		if !in.complete(true) {
			return errAllFieldsRequired()
		}
		if err := ValidatePassword(in.Password); err != nil {
			return err
		}
		if s.identity == nil {
			return ErrIdentityUnavailable
		}
		created, err := s.identity.CreateUser(ctx, in.identity())
		if err != nil {
			return domain.ValidationError{Message: err.Error()}
		}
		if created == "" {
			s.compensate(ctx, "", created)
			return errors.New("identity service returned no user id")
		}
		if _, err := s.store.Insert(ctx, domain.TableUsers, domain.Row{
			domain.ColumnID: created,
			"email":         in.Email,
			"full_name":     in.FullName,
			"role":          in.Role,
			"created_at":    s.clock.Now().UTC(),
		}); err != nil {
			s.compensate(ctx, "", created)
			return fmt.Errorf("insert user: %w", err)
		}
		if _, err := s.store.Insert(ctx, domain.TableTeamAssignments, domain.Row{
			"user_id":     created,
			"zone_id":     in.TeamID,
			"status":      domain.TeamStatusOnline,
			"assigned_at": s.clock.Now().UTC(),
		}); err != nil {
			s.compensate(ctx, created, created)
			return fmt.Errorf("insert team assignment: %w", err)
		}
		id = created
		return nil
	})
	return id, err
}

// compensate removes a partially created user. Failures are logged only.
func (s *Service) compensate(ctx context.Context, userRow, identityID string) {
	if userRow != "" {
		if _, err := s.store.Delete(ctx, domain.TableUsers, userRow); err != nil {
			s.logger.Warn("compensate user row", "user_id", userRow, "error", err)
		}
	}
	if identityID != "" {
		if err := s.identity.DeleteUser(ctx, identityID); err != nil {
			s.logger.Warn("compensate identity", "user_id", identityID, "error", err)
		}
	}
}

// UpdateUser updates the users row, moves the team assignment and then
// updates the identity account.
func (s *Service) UpdateUser(ctx context.Context, id string, in UserInput) error {
	return s.run(ctx, "update_user", func(ctx context.Context) error {
		if !in.complete(false) {
			return errAllFieldsRequired()
		}
		if in.Password != "" {
			if err := ValidatePassword(in.Password); err != nil {
				return err
			}
		}
		if s.identity == nil {
			return ErrIdentityUnavailable
		}
		if _, err := s.store.Update(ctx, domain.TableUsers, id, domain.Row{
			"email":     in.Email,
			"full_name": in.FullName,
			"role":      in.Role,
		}); err != nil {
			return err
		}
		if _, err := s.store.UpdateWhere(ctx, domain.TableTeamAssignments,
			[]domain.Filter{domain.Eq("user_id", id)},
			domain.Row{"zone_id": in.TeamID}); err != nil {
			return fmt.Errorf("update team assignment: %w", err)
		}
		if err := s.identity.UpdateUser(ctx, id, in.identity()); err != nil {
			return fmt.Errorf("update identity: %w", err)
		}
		return nil
	})
}

// DeleteUser removes the team assignments, the users row and the identity
// account, in that order. Only the identity account has to exist.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.run(ctx, "delete_user", func(ctx context.Context) error {
		if s.identity == nil {
			return ErrIdentityUnavailable
		}
		if _, err := s.store.DeleteWhere(ctx, domain.TableTeamAssignments,
			[]domain.Filter{domain.Eq("user_id", id)}); err != nil {
			return fmt.Errorf("delete team assignments: %w", err)
		}
		// A missing users row is left over from a half-finished create; the
		// identity account still goes.
		if _, err := s.store.Delete(ctx, domain.TableUsers, id); err != nil && !domain.IsNotFound(err) {
			return fmt.Errorf("delete user: %w", err)
		}
		if err := s.identity.DeleteUser(ctx, id); err != nil {
			return fmt.Errorf("delete identity: %w", err)
		}
		return nil
	})
}
