package auth

import (
	"context"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"redraft/internal/domain"
	"redraft/internal/domain/models"
	"redraft/internal/domain/repositories"
)

// TokenIssuer mints access tokens for authenticated users.
type TokenIssuer interface {
	IssueToken(email, username string) (string, error)
}

// Service implements account signup, login, and password changes.
type Service struct {
	users  repositories.UserRepository
	tokens TokenIssuer
	logger *slog.Logger
}

func NewService(users repositories.UserRepository, tokens TokenIssuer, logger *slog.Logger) *Service {
	return &Service{users: users, tokens: tokens, logger: logger}
}

// SignupInput is a new-account request.
type SignupInput struct {
	Email    string
	Username string
	Password string
}

func (in SignupInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Username, validation.Required, validation.Length(2, 50)),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 128)),
	)
}

// AuthResult is a successful signup or login.
type AuthResult struct {
	UserID   string
	Email    string
	Username string
	Token    string
}

// Signup creates an account and returns a fresh token.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if err := in.Validate(); err != nil {
		return nil, domain.NewError(domain.CodeValidationFailed, err.Error())
	}

	if existing, err := s.users.GetByEmail(ctx, in.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.NewError(domain.CodeEmailTaken, "email already exists")
	}
	if existing, err := s.users.GetByUsername(ctx, in.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.NewError(domain.CodeUsernameTaken, "username already exists")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	id, err := s.users.Create(ctx, in.Email, in.Username, hash)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.IssueToken(in.Email, in.Username)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", "user_id", id, "email", in.Email)
	return &AuthResult{UserID: id, Email: in.Email, Username: in.Username, Token: token}, nil
}

// Login authenticates by email or username. Both a missing account
// and a wrong password read as invalid_credentials.
func (s *Service) Login(ctx context.Context, emailOrUsername, password string) (*AuthResult, error) {
	user, err := s.findUser(ctx, emailOrUsername)
	if err != nil {
		return nil, err
	}
	if user == nil || !VerifyPassword(password, user.PasswordHash) {
		return nil, domain.NewError(domain.CodeInvalidCredentials, "invalid credentials")
	}

	token, err := s.tokens.IssueToken(user.Email, user.Username)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return &AuthResult{UserID: user.ID, Email: user.Email, Username: user.Username, Token: token}, nil
}

// ChangePassword rotates the password after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, email, oldPassword, newPassword, newPasswordConfirm string) error {
	if newPassword != newPasswordConfirm {
		return domain.NewError(domain.CodePasswordMismatch, "passwords do not match")
	}
	if newPassword == oldPassword {
		return domain.NewError(domain.CodeValidationFailed, "new password must differ")
	}
	if err := validation.Validate(newPassword, validation.Required, validation.Length(8, 128)); err != nil {
		return domain.NewError(domain.CodeValidationFailed, err.Error())
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || !VerifyPassword(oldPassword, user.PasswordHash) {
		return domain.NewError(domain.CodeInvalidCredentials, "invalid credentials")
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, email, hash); err != nil {
		return err
	}

	s.logger.Info("password changed", "user_id", user.ID)
	return nil
}

func (s *Service) findUser(ctx context.Context, emailOrUsername string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, emailOrUsername)
	if err != nil || user != nil {
		return user, err
	}
	return s.users.GetByUsername(ctx, emailOrUsername)
}
