package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopledger/shopledger/internal/shared"
)

type memoryRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]User)}
}

func (r *memoryRepo) FindByUsername(ctx context.Context, username string) (User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("%w: user %s", shared.ErrNotFound, username)
}

func (r *memoryRepo) FindByID(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	return u, nil
}

func (r *memoryRepo) Insert(ctx context.Context, u User) (int64, error) {
	if _, err := r.FindByUsername(ctx, u.Username); err == nil {
		return 0, fmt.Errorf("%w: username %s already exists", shared.ErrConflict, u.Username)
	}
	r.nextID++
	u.ID = r.nextID
	r.users[u.ID] = u
	return u.ID, nil
}

func (r *memoryRepo) Update(ctx context.Context, u User) error {
	if _, ok := r.users[u.ID]; !ok {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, u.ID)
	}
	r.users[u.ID] = u
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	delete(r.users, id)
	return nil
}

func (r *memoryRepo) List(ctx context.Context) ([]User, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryRepo) CountAdmins(ctx context.Context) (int, error) {
	n := 0
	for _, u := range r.users {
		if u.Role == "admin" && u.Active {
			n++
		}
	}
	return n, nil
}

type memoryGrants struct {
	grants map[int64][]string
}

func newMemoryGrants() *memoryGrants {
	return &memoryGrants{grants: make(map[int64][]string)}
}

func (g *memoryGrants) SetUserPermissions(ctx context.Context, userID int64, names []string) error {
	g.grants[userID] = names
	return nil
}

func TestAuthenticate(t *testing.T) {
	repo := newMemoryRepo()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users[1] = User{ID: 1, Username: "asha", PasswordHash: string(hash), Role: "user", Active: true}
	repo.users[2] = User{ID: 2, Username: "blocked", PasswordHash: string(hash), Role: "user", Active: false}

	svc := NewService(repo, newMemoryGrants(), nil)

	u, err := svc.Authenticate(context.Background(), "asha", "correct horse")
	require.NoError(t, err)
	require.Equal(t, int64(1), u.ID)

	_, err = svc.Authenticate(context.Background(), "asha", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	// inactive accounts fail the same way as bad passwords
	_, err = svc.Authenticate(context.Background(), "blocked", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestCreateUserHashesPasswordAndGrants(t *testing.T) {
	repo := newMemoryRepo()
	grants := newMemoryGrants()
	svc := NewService(repo, grants, nil)

	u, err := svc.CreateUser(context.Background(), CreateUserInput{
		Username:    "clerk",
		Password:    "longenough",
		Role:        "user",
		Permissions: []string{"view_invoices", "create_invoices"},
	})
	require.NoError(t, err)
	require.NotEqual(t, "longenough", repo.users[u.ID].PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[u.ID].PasswordHash), []byte("longenough")))
	require.Equal(t, []string{"view_invoices", "create_invoices"}, grants.grants[u.ID])

	_, err = svc.CreateUser(context.Background(), CreateUserInput{
		Username: "clerk", Password: "longenough", Role: "user",
	})
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.CreateUser(context.Background(), CreateUserInput{
		Username: "short", Password: "tiny", Role: "user",
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestLastAdminIsProtected(t *testing.T) {
	repo := newMemoryRepo()
	grants := newMemoryGrants()
	svc := NewService(repo, grants, nil)

	admin, err := svc.CreateUser(context.Background(), CreateUserInput{
		Username: "boss", Password: "longenough", Role: "admin",
	})
	require.NoError(t, err)

	_, err = svc.UpdateUser(context.Background(), admin.ID, UpdateUserInput{
		Username: "boss", Role: "user", Active: true,
	})
	require.ErrorIs(t, err, shared.ErrConflict)

	err = svc.DeleteUser(context.Background(), admin.ID, 99)
	require.ErrorIs(t, err, shared.ErrConflict)

	// a second admin unblocks the demotion
	_, err = svc.CreateUser(context.Background(), CreateUserInput{
		Username: "deputy", Password: "longenough", Role: "admin",
	})
	require.NoError(t, err)

	u, err := svc.UpdateUser(context.Background(), admin.ID, UpdateUserInput{
		Username: "boss", Role: "user", Active: true,
	})
	require.NoError(t, err)
	require.Equal(t, "user", u.Role)
}

func TestDeleteOwnAccountRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, newMemoryGrants(), nil)

	u, err := svc.CreateUser(context.Background(), CreateUserInput{
		Username: "self", Password: "longenough", Role: "user",
	})
	require.NoError(t, err)

	err = svc.DeleteUser(context.Background(), u.ID, u.ID)
	require.ErrorIs(t, err, shared.ErrConflict)
}
