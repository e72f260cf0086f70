package identity

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sessions manages the single live refresh credential per user.
type Sessions interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Session, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)

	// Upsert rotates the user's refresh credential: update the existing row
	// if one exists, insert the first one otherwise. Exactly one session row
	// per user exists afterwards.
	Upsert(ctx context.Context, userID uuid.UUID, refreshToken string) (*Session, error)

	// DeleteByRefreshToken removes the session holding this exact token
	// value. Deleting a token that is not stored is not an error.
	DeleteByRefreshToken(ctx context.Context, refreshToken string) error

	CountByUserID(ctx context.Context, userID uuid.UUID) (int, error)
}

type sessions struct {
	repo repository.Repository[*Session]
	db   *bun.DB
}

var _ Sessions = (*sessions)(nil)

func NewSessionsRepository(db *bun.DB) Sessions {
	repo := repository.NewRepository[*Session](db, repository.ModelHandlers[*Session]{
		NewRecord: func() *Session { return &Session{} },
		GetID: func(s *Session) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Session, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
	})

	return &sessions{
		repo: repo,
		db:   db,
	}
}

func (a *sessions) GetByUserID(ctx context.Context, userID uuid.UUID) (*Session, error) {
	return a.getByColumn(ctx, "user_id", userID.String())
}

func (a *sessions) GetByRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	return a.getByColumn(ctx, "refresh_token", refreshToken)
}

func (a *sessions) getByColumn(ctx context.Context, column, value string) (*Session, error) {
	record := &Session{}

	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{column: value})
		}
		return nil, err
	}

	return record, nil
}

func (a *sessions) Upsert(ctx context.Context, userID uuid.UUID, refreshToken string) (*Session, error) {
	existing, err := a.GetByUserID(ctx, userID)
	if err == nil {
		// Rotation: overwrite in place. A lost update between two concurrent
		// rotations leaves the later writer's token live, which is the
		// intended outcome.
		_, err := a.db.NewUpdate().
			Model((*Session)(nil)).
			Set("refresh_token = ?", refreshToken).
			Set("updated_at = current_timestamp").
			Where("?TableAlias.user_id = ?", userID.String()).
			Exec(ctx)
		if err != nil {
			return nil, err
		}

		existing.RefreshToken = refreshToken
		return existing, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	record := &Session{
		ID:           uuid.New(),
		UserID:       userID,
		RefreshToken: refreshToken,
	}

	return a.repo.CreateTx(ctx, a.db, record)
}

func (a *sessions) DeleteByRefreshToken(ctx context.Context, refreshToken string) error {
	_, err := a.db.NewDelete().
		Model((*Session)(nil)).
		Where("?TableAlias.refresh_token = ?", refreshToken).
		Exec(ctx)

	return err
}

func (a *sessions) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	return a.db.NewSelect().
		Model((*Session)(nil)).
		Where("?TableAlias.user_id = ?", userID.String()).
		Count(ctx)
}
