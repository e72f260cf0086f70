package identity

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ResetTickets manages single-use password-reset credentials.
type ResetTickets interface {
	GetByTicket(ctx context.Context, ticket string) (*ResetTicket, error)

	Create(ctx context.Context, record *ResetTicket) (*ResetTicket, error)

	// DeleteByTicket removes a ticket, whether consumed by a successful
	// reset or abandoned after a failed notification. Deleting an absent
	// ticket is not an error.
	DeleteByTicket(ctx context.Context, ticket string) error
	DeleteByTicketTx(ctx context.Context, tx bun.IDB, ticket string) error
}

type resetTickets struct {
	repo repository.Repository[*ResetTicket]
	db   *bun.DB
}

var _ ResetTickets = (*resetTickets)(nil)

func NewResetTicketsRepository(db *bun.DB) ResetTickets {
	repo := repository.NewRepository[*ResetTicket](db, repository.ModelHandlers[*ResetTicket]{
		NewRecord: func() *ResetTicket { return &ResetTicket{} },
		GetID: func(r *ResetTicket) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *ResetTicket, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &resetTickets{
		repo: repo,
		db:   db,
	}
}

func (a *resetTickets) GetByTicket(ctx context.Context, ticket string) (*ResetTicket, error) {
	record := &ResetTicket{}

	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.ticket = ?", ticket).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"ticket": ticket})
		}
		return nil, err
	}

	return record, nil
}

func (a *resetTickets) Create(ctx context.Context, record *ResetTicket) (*ResetTicket, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.repo.CreateTx(ctx, a.db, record)
}

func (a *resetTickets) DeleteByTicket(ctx context.Context, ticket string) error {
	return a.DeleteByTicketTx(ctx, a.db, ticket)
}

func (a *resetTickets) DeleteByTicketTx(ctx context.Context, tx bun.IDB, ticket string) error {
	_, err := tx.NewDelete().
		Model((*ResetTicket)(nil)).
		Where("?TableAlias.ticket = ?", ticket).
		Exec(ctx)

	return err
}
