package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/regainhq/regain/internal/recovery/entity"
)

// ReplaceChallenge deletes any live challenge of the same purpose and inserts
// the new one in a single transaction, so at most one row per (user, purpose)
// exists at any time.
func (s *DB) ReplaceChallenge(ctx context.Context, ch entity.Challenge) (err error) {
	ctx, span := s.startSpan(ctx, "ReplaceChallenge")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback", "error", rErr)
		}
	}()

	const deleteQuery = `DELETE FROM challenges WHERE user_id = $1 AND purpose = $2`
	if _, err = tx.Exec(ctx, deleteQuery, ch.UserID, ch.Purpose); err != nil {
		return s.mapError(err)
	}

	const insertQuery = `
		INSERT INTO challenges (id, user_id, token, purpose, expires_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.Exec(ctx, insertQuery, ch.ID, ch.UserID, ch.Token, ch.Purpose, ch.ExpiresAt); err != nil {
		return s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}

// ConsumeChallenge deletes the challenge row and reports whether this call
// was the one that removed it. Competing consumers see false.
func (s *DB) ConsumeChallenge(ctx context.Context, id int64) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "ConsumeChallenge")
	defer func() { s.endSpan(span, err) }()

	const query = `DELETE FROM challenges WHERE id = $1`

	tag, err := s.conn.Exec(ctx, query, id)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() > 0, nil
}

func (s *DB) DeleteExpiredChallenges(ctx context.Context, now time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteExpiredChallenges")
	defer func() { s.endSpan(span, err) }()

	const query = `DELETE FROM challenges WHERE expires_at <= $1`

	tag, err := s.conn.Exec(ctx, query, now)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}

func (s *DB) CreateUser(ctx context.Context, user entity.User, passwordHash string) (err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback", "error", rErr)
		}
	}()

	const userQuery = `
		INSERT INTO users (id, email, full_name)
		VALUES ($1, $2, $3)`
	if _, err = tx.Exec(ctx, userQuery, user.ID, user.Email, user.FullName); err != nil {
		return s.mapError(err)
	}

	const credQuery = `
		INSERT INTO credentials (user_id, password)
		VALUES ($1, $2)`
	if _, err = tx.Exec(ctx, credQuery, user.ID, passwordHash); err != nil {
		return s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}

// UpsertCredential writes the password hash whether or not a credential row
// exists yet, matching accounts provisioned without one.
func (s *DB) UpsertCredential(ctx context.Context, userID int64, passwordHash string) (err error) {
	ctx, span := s.startSpan(ctx, "UpsertCredential")
	defer func() { s.endSpan(span, err) }()

	const query = `
		INSERT INTO credentials (user_id, password)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET password = EXCLUDED.password`

	if _, err = s.conn.Exec(ctx, query, userID, passwordHash); err != nil {
		return s.mapError(err)
	}

	return nil
}
