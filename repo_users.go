package identity

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the directory's view of the user table. The engine only ever
// reaches users through these operations.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByActivationLink(ctx context.Context, link string) (*User, error)

	Create(ctx context.Context, record *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)

	MarkActivated(ctx context.Context, id uuid.UUID) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdatePasswordHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	Delete(ctx context.Context, id uuid.UUID) error
}

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		repo: repo,
		db:   db,
	}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.getByColumn(ctx, "id", id.String())
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.getByColumn(ctx, "email", email)
}

func (a *users) GetByActivationLink(ctx context.Context, link string) (*User, error) {
	return a.getByColumn(ctx, "activation_link", link)
}

func (a *users) getByColumn(ctx context.Context, column, value string) (*User, error) {
	record := &User{}

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

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)
	return a.repo.CreateTx(ctx, tx, record)
}

func (a *users) MarkActivated(ctx context.Context, id uuid.UUID) error {
	// Activation never reverts; the update is a no-op for activated users.
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("is_activated = ?", true).
		Set("updated_at = current_timestamp").
		Where("?TableAlias.id = ?", id.String()).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

func (a *users) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.UpdatePasswordHashTx(ctx, a.db, id, passwordHash)
}

func (a *users) UpdatePasswordHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = current_timestamp").
		Where("?TableAlias.id = ?", id.String()).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

// Delete removes the user row for good. Registration uses this as its
// compensation step when the activation notification cannot be delivered.
func (a *users) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id.String()).
		Exec(ctx)

	return err
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
