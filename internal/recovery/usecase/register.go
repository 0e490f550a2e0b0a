package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/regainhq/regain/internal/pkg/goerror"
	"github.com/regainhq/regain/internal/recovery/entity"
)

type RegisterInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,password"`
	FullName string `validate:"required,min=2,max=100"`
}

// Register creates an account with its credential in one transaction.
func (s *Usecase) Register(ctx context.Context, in RegisterInput) error {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	pwdHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return goerror.NewServer(err)
	}

	err = s.repoDB.CreateUser(ctx, entity.User{
		ID:       s.uid.Generate(),
		Email:    in.Email,
		FullName: in.FullName,
	}, string(pwdHash))
	if errors.Is(err, goerror.ErrConflict) {
		return goerror.NewBusiness("An account with that email already exists", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create user", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
