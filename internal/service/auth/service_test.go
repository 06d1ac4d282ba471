package auth

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"redraft/internal/domain"
	"redraft/internal/domain/models"
)

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, email, username, passwordHash string) (string, error) {
	id := uuid.NewString()
	r.users[email] = &models.User{ID: id, Email: email, Username: username, PasswordHash: passwordHash}
	return id, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.users[email], nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, email, passwordHash string) error {
	if u, ok := r.users[email]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

type fakeIssuer struct{}

func (fakeIssuer) IssueToken(email, _ string) (string, error) { return "token-for-" + email, nil }

func newService() (*Service, *fakeUserRepo) {
	repo := newFakeUserRepo()
	return NewService(repo, fakeIssuer{}, slog.New(slog.DiscardHandler)), repo
}

func TestSignupAndLogin(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	result, err := svc.Signup(ctx, SignupInput{Email: "alice@example.com", Username: "alice", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if result.Token == "" || result.UserID == "" {
		t.Errorf("incomplete result %+v", result)
	}

	// Login by email and by username.
	for _, login := range []string{"alice@example.com", "alice"} {
		got, err := svc.Login(ctx, login, "correct horse battery")
		if err != nil {
			t.Fatalf("Login(%q) error = %v", login, err)
		}
		if got.Email != "alice@example.com" {
			t.Errorf("Login(%q) email = %q", login, got.Email)
		}
	}

	if _, err := svc.Login(ctx, "alice@example.com", "wrong"); !domain.IsCode(err, domain.CodeInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "correct horse battery"); !domain.IsCode(err, domain.CodeInvalidCredentials) {
		t.Errorf("unknown account: got %v", err)
	}
}

func TestSignupDuplicates(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupInput{Email: "alice@example.com", Username: "alice", Password: "long enough pass"}); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	_, err := svc.Signup(ctx, SignupInput{Email: "alice@example.com", Username: "alice2", Password: "long enough pass"})
	if !domain.IsCode(err, domain.CodeEmailTaken) {
		t.Errorf("duplicate email: got %v", err)
	}

	_, err = svc.Signup(ctx, SignupInput{Email: "other@example.com", Username: "alice", Password: "long enough pass"})
	if !domain.IsCode(err, domain.CodeUsernameTaken) {
		t.Errorf("duplicate username: got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	tests := []SignupInput{
		{Email: "not-an-email", Username: "alice", Password: "long enough pass"},
		{Email: "alice@example.com", Username: "", Password: "long enough pass"},
		{Email: "alice@example.com", Username: "alice", Password: "short"},
	}
	for _, in := range tests {
		if _, err := svc.Signup(ctx, in); !domain.IsCode(err, domain.CodeValidationFailed) {
			t.Errorf("Signup(%+v): got %v, want validation_failed", in, err)
		}
	}
}

func TestChangePassword(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupInput{Email: "alice@example.com", Username: "alice", Password: "original password"}); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	oldHash := repo.users["alice@example.com"].PasswordHash

	if err := svc.ChangePassword(ctx, "alice@example.com", "original password", "next password!", "different"); !domain.IsCode(err, domain.CodePasswordMismatch) {
		t.Errorf("mismatched confirm: got %v", err)
	}
	if err := svc.ChangePassword(ctx, "alice@example.com", "original password", "original password", "original password"); !domain.IsCode(err, domain.CodeValidationFailed) {
		t.Errorf("unchanged password: got %v", err)
	}
	if err := svc.ChangePassword(ctx, "alice@example.com", "wrong old", "next password!", "next password!"); !domain.IsCode(err, domain.CodeInvalidCredentials) {
		t.Errorf("wrong old password: got %v", err)
	}

	if err := svc.ChangePassword(ctx, "alice@example.com", "original password", "next password!", "next password!"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if repo.users["alice@example.com"].PasswordHash == oldHash {
		t.Error("password hash unchanged")
	}
	if _, err := svc.Login(ctx, "alice@example.com", "next password!"); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
}
