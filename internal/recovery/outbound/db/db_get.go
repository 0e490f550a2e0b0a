package db

import (
	"context"
	"time"

	"github.com/regainhq/regain/internal/recovery/entity"
)

func (s *DB) GetUserByEmail(ctx context.Context, email string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByEmail")
	defer func() { s.endSpan(span, err) }()

	const query = `
		SELECT id, email, full_name
		FROM users
		WHERE email = $1`

	var user entity.User
	if err = s.conn.QueryRow(ctx, query, email).
		Scan(&user.ID, &user.Email, &user.FullName); err != nil {
		return nil, s.mapError(err)
	}

	return &user, nil
}

func (s *DB) GetValidChallenge(ctx context.Context, userID int64, p entity.ChallengePurpose, now time.Time) (_ *entity.Challenge, err error) {
	ctx, span := s.startSpan(ctx, "GetValidChallenge")
	defer func() { s.endSpan(span, err) }()

	const query = `
		SELECT id, user_id, token, purpose, expires_at
		FROM challenges
		WHERE user_id = $1 AND purpose = $2 AND expires_at > $3
		ORDER BY expires_at DESC
		LIMIT 1`

	var chal entity.Challenge
	if err = s.conn.QueryRow(ctx, query, userID, p, now).
		Scan(&chal.ID, &chal.UserID, &chal.Token, &chal.Purpose, &chal.ExpiresAt); err != nil {
		return nil, s.mapError(err)
	}

	return &chal, nil
}
