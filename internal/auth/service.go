package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/shopledger/shopledger/internal/shared"
)

// RepositoryPort abstracts persistence for the auth service.
type RepositoryPort interface {
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
	Insert(ctx context.Context, u User) (int64, error)
	Update(ctx context.Context, u User) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]User, error)
	CountAdmins(ctx context.Context) (int, error)
}

// GrantPort replaces a user's permission grants.
type GrantPort interface {
	SetUserPermissions(ctx context.Context, userID int64, names []string) error
}

// AuditPort records mutations for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wraps authentication and account management rules.
type Service struct {
	repo   RepositoryPort
	grants GrantPort
	audit  AuditPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, grants GrantPort, audit AuditPort) *Service {
	return &Service{repo: repo, grants: grants, audit: audit}
}

// Authenticate validates username/password credentials. Failures are
// indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	if !user.Active {
		return User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// CreateUser registers an account and its permission grants. Admin accounts
// carry no explicit grants.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	if err := validateAccount(input.Username, input.Role); err != nil {
		return User{}, err
	}
	if len(input.Password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	u := User{
		Username:     strings.TrimSpace(input.Username),
		PasswordHash: string(hash),
		Role:         input.Role,
		Active:       true,
	}
	id, err := s.repo.Insert(ctx, u)
	if err != nil {
		return User{}, err
	}
	u.ID = id

	if u.Role != "admin" && len(input.Permissions) > 0 {
		if err := s.grants.SetUserPermissions(ctx, id, input.Permissions); err != nil {
			return User{}, err
		}
	}

	s.recordAudit(ctx, input.ActorID, "users:create", id, map[string]any{"username": u.Username, "role": u.Role})
	return u, nil
}

// UpdateUser edits an account. Demoting or deactivating the last admin is
// rejected.
func (s *Service) UpdateUser(ctx context.Context, id int64, input UpdateUserInput) (User, error) {
	if err := validateAccount(input.Username, input.Role); err != nil {
		return User{}, err
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if u.Role == "admin" && (input.Role != "admin" || !input.Active) {
		admins, err := s.repo.CountAdmins(ctx)
		if err != nil {
			return User{}, err
		}
		if admins <= 1 {
			return User{}, fmt.Errorf("%w: cannot demote the last admin", shared.ErrConflict)
		}
	}

	u.Username = strings.TrimSpace(input.Username)
	u.Role = input.Role
	u.Active = input.Active
	if input.Password != "" {
		if len(input.Password) < 8 {
			return User{}, fmt.Errorf("%w: password must be at least 8 characters", shared.ErrValidation)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		u.PasswordHash = string(hash)
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}

	if u.Role == "admin" {
		// explicit grants are redundant for admins, clear them
		if err := s.grants.SetUserPermissions(ctx, id, nil); err != nil {
			return User{}, err
		}
	} else if err := s.grants.SetUserPermissions(ctx, id, input.Permissions); err != nil {
		return User{}, err
	}

	s.recordAudit(ctx, input.ActorID, "users:update", id, map[string]any{"username": u.Username, "role": u.Role})
	return u, nil
}

// DeleteUser removes an account. The last admin and self-deletion are
// rejected.
func (s *Service) DeleteUser(ctx context.Context, id, actorID int64) error {
	if id == actorID {
		return fmt.Errorf("%w: cannot delete your own account", shared.ErrConflict)
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if u.Role == "admin" {
		admins, err := s.repo.CountAdmins(ctx)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return fmt.Errorf("%w: cannot delete the last admin", shared.ErrConflict)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.recordAudit(ctx, actorID, "users:delete", id, map[string]any{"username": u.Username})
	return nil
}

// ListUsers returns all accounts.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// GetUser returns one account.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	})
}

func validateAccount(username, role string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username required", shared.ErrValidation)
	}
	if role != "admin" && role != "user" {
		return fmt.Errorf("%w: role must be admin or user", shared.ErrValidation)
	}
	return nil
}
