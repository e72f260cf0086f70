package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// Directory exposes all persisted identity state. IdentityLifecycle depends
// on this interface only; the bun-backed implementation below is wired in by
// the process entry point.
type Directory interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error

	Users() Users
	Sessions() Sessions
	ResetTickets() ResetTickets
}

type directory struct {
	db           *bun.DB
	users        Users
	sessions     Sessions
	resetTickets ResetTickets
}

func NewDirectory(db *bun.DB) Directory {
	return &directory{
		db:           db,
		users:        NewUsersRepository(db),
		sessions:     NewSessionsRepository(db),
		resetTickets: NewResetTicketsRepository(db),
	}
}

func (d directory) Validate() error {
	if d.users == nil {
		return errors.New("repository users should be initialized")
	}

	if d.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	if d.resetTickets == nil {
		return errors.New("repository resetTickets should be initialized")
	}

	return nil
}

func (d directory) MustValidate() {
	if err := d.Validate(); err != nil {
		log.Panic(err)
	}
}

func (d directory) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return d.db.RunInTx(ctx, opts, f)
	}
}

func (d directory) Users() Users {
	return d.users
}

func (d directory) Sessions() Sessions {
	return d.sessions
}

func (d directory) ResetTickets() ResetTickets {
	return d.resetTickets
}
