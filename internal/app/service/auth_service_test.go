package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"shoplist/internal/common"
	"shoplist/internal/common/security"
	"shoplist/internal/domain/model"
	"shoplist/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// -------- test fakes --------

type fakeUserRepo struct {
	repository.UserRepository
	byUsername map[string]*model.User
	byID       map[string]*model.User
	created    []*model.User
	createErr  error
	deleted    []string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byUsername: map[string]*model.User{},
		byID:       map[string]*model.User{},
	}
}

func (f *fakeUserRepo) add(u *model.User) {
	f.byUsername[u.Username] = u
	f.byID[u.ID] = u
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, user)
	f.add(user)
	return nil
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if u, ok := f.byUsername[username]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUserRepo) FindByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	users := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) Search(ctx context.Context, query string, limit int) ([]*model.User, error) {
	users := make([]*model.User, 0)
	q := strings.ToLower(query)
	for _, u := range f.byID {
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(u.Username, q) {
			users = append(users, u)
		}
		if len(users) == limit {
			break
		}
	}
	return users, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	delete(f.byUsername, f.byID[id].Username)
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func testAuthority() *security.TokenAuthority {
	return security.NewTokenAuthority([]byte("test-secret"), time.Hour)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// -------- tests --------

func TestAuthService_Register(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, testAuthority())

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Name: "Ann", Username: "AnN", Password: "secret1",
	})

	require.NoError(t, err)
	assert.Equal(t, "ann", resp.Username, "username must be stored lowercase")
	assert.NotEmpty(t, resp.ID)
	assert.NotEmpty(t, resp.Token)

	require.Len(t, repo.created, 1)
	stored := repo.created[0]
	assert.Equal(t, "ann", stored.Username)
	assert.NotEqual(t, "secret1", stored.HashedPassword)
	assert.NotContains(t, stored.HashedPassword, "secret1")
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), testAuthority())

	tests := []struct {
		name string
		req  RegisterRequest
		msg  string
	}{
		{"missing name", RegisterRequest{Username: "ann", Password: "secret1"}, "Please provide all required fields"},
		{"missing username", RegisterRequest{Name: "Ann", Password: "secret1"}, "Please provide all required fields"},
		{"missing password", RegisterRequest{Name: "Ann", Username: "ann"}, "Please provide all required fields"},
		{"short password", RegisterRequest{Name: "Ann", Username: "ann", Password: "12345"}, "Password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrValidation))
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestAuthService_Register_DuplicateUsernameCaseInsensitive(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(&model.User{ID: "u1", Name: "Ann", Username: "ann"})
	svc := NewAuthService(repo, testAuthority())

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name: "Other Ann", Username: "ANN", Password: "secret1",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConflict))
	assert.Equal(t, "Username already exists", err.Error())
	assert.Empty(t, repo.created)
}

func TestAuthService_Login(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(&model.User{ID: "u1", Name: "Ann", Username: "ann", HashedPassword: mustHash(t, "secret1")})
	svc := NewAuthService(repo, testAuthority())

	resp, err := svc.Login(context.Background(), LoginRequest{Username: "ANN", Password: "secret1"})

	require.NoError(t, err)
	assert.Equal(t, "u1", resp.ID)
	assert.NotEmpty(t, resp.Token)
}

func TestAuthService_Login_UniformErrorMessage(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(&model.User{ID: "u1", Name: "Ann", Username: "ann", HashedPassword: mustHash(t, "secret1")})
	svc := NewAuthService(repo, testAuthority())

	_, unknownErr := svc.Login(context.Background(), LoginRequest{Username: "ghost", Password: "secret1"})
	_, wrongErr := svc.Login(context.Background(), LoginRequest{Username: "ann", Password: "wrongpw"})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	// Unknown user and wrong password must be indistinguishable.
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	assert.Equal(t, "Invalid credentials", wrongErr.Error())
	assert.True(t, errors.Is(unknownErr, common.ErrUnauthorized))
	assert.True(t, errors.Is(wrongErr, common.ErrUnauthorized))
}

func TestAuthService_Me(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(&model.User{ID: "u1", Name: "Ann", Username: "ann", HashedPassword: "h"})
	svc := NewAuthService(repo, testAuthority())

	me, err := svc.Me(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, &model.UserSummary{ID: "u1", Name: "Ann", Username: "ann"}, me)

	_, err = svc.Me(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Equal(t, "User not found", err.Error())
}
