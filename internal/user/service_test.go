package user

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/rentacar/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	updateFullNameFn func(ctx context.Context, id, fullName string) (*model.User, error)
	listFn           func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) UpdateFullName(ctx context.Context, id, fullName string) (*model.User, error) {
	return m.updateFullNameFn(ctx, id, fullName)
}
func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	return m.listFn(ctx)
}
func (m *mockUserRepo) Count(ctx context.Context) (int, error) { return 0, nil }

func apiErrorCode(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// --- テスト ---

func TestService_GetProfile(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, FullName: "Taro"}, nil
		},
	}
	svc := NewService(repo)

	user, err := svc.GetProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetProfile returned error: %v", err)
	}
	if user.ID != "user-1" || user.FullName != "Taro" {
		t.Errorf("unexpected user: %+v", user)
	}
}

// TestService_GetProfile_NotFound は存在しないユーザーでUSER_NOT_FOUNDを返すことを検証する。
func TestService_GetProfile_NotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{})

	_, err := svc.GetProfile(context.Background(), "nonexistent-user")
	if got := apiErrorCode(err); got != model.ErrCodeUserNotFound {
		t.Errorf("error code = %q, want %q", got, model.ErrCodeUserNotFound)
	}
}

// TestService_UpdateProfile は氏名が正規化されて保存されることを検証する。
func TestService_UpdateProfile(t *testing.T) {
	var savedName string
	repo := &mockUserRepo{
		updateFullNameFn: func(ctx context.Context, id, fullName string) (*model.User, error) {
			savedName = fullName
			return &model.User{ID: id, FullName: fullName}, nil
		},
	}
	svc := NewService(repo)

	user, err := svc.UpdateProfile(context.Background(), "user-1", "  Hanako Sato  ")
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if savedName != "Hanako Sato" {
		t.Errorf("saved name = %q, want trimmed", savedName)
	}
	if user.FullName != "Hanako Sato" {
		t.Errorf("returned name = %q", user.FullName)
	}
}

func TestService_UpdateProfile_InvalidName(t *testing.T) {
	repo := &mockUserRepo{
		updateFullNameFn: func(ctx context.Context, id, fullName string) (*model.User, error) {
			t.Fatal("UpdateFullName should not be called")
			return nil, nil
		},
	}
	svc := NewService(repo)

	_, err := svc.UpdateProfile(context.Background(), "user-1", "   ")
	if got := apiErrorCode(err); got != model.ErrCodeInvalidName {
		t.Errorf("error code = %q, want %q", got, model.ErrCodeInvalidName)
	}
}

func TestService_UpdateProfile_UserMissing(t *testing.T) {
	repo := &mockUserRepo{
		updateFullNameFn: func(ctx context.Context, id, fullName string) (*model.User, error) {
			return nil, nil
		},
	}
	svc := NewService(repo)

	_, err := svc.UpdateProfile(context.Background(), "user-1", "Taro")
	if got := apiErrorCode(err); got != model.ErrCodeUserNotFound {
		t.Errorf("error code = %q, want %q", got, model.ErrCodeUserNotFound)
	}
}

func TestService_ListUsers(t *testing.T) {
	repo := &mockUserRepo{
		listFn: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{{ID: "u2"}, {ID: "u1"}}, nil
		},
	}
	svc := NewService(repo)

	users, err := svc.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(users) != 2 || users[0].ID != "u2" {
		t.Errorf("unexpected users: %+v", users)
	}
}

func TestService_ListUsers_Error(t *testing.T) {
	repoErr := errors.New("db down")
	repo := &mockUserRepo{
		listFn: func(ctx context.Context) ([]*model.User, error) { return nil, repoErr },
	}
	svc := NewService(repo)

	if _, err := svc.ListUsers(context.Background()); !errors.Is(err, repoErr) {
		t.Errorf("expected wrapped repository error, got %v", err)
	}
}
