package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"medride/internal/repository"
)

// Store is a PostgreSQL implementation of repository.Store.
type Store struct {
	db *sqlx.DB
	repos
}

type repos struct {
	profiles      *ProfileRepository
	appointments  *AppointmentRepository
	rides         *RideRepository
	statusUpdates *StatusUpdateRepository
	notifications *NotificationRepository
	earnings      *EarningRepository
}

func newRepos(q Querier) repos {
	return repos{
		profiles:      &ProfileRepository{q: q},
		appointments:  &AppointmentRepository{q: q},
		rides:         &RideRepository{q: q},
		statusUpdates: &StatusUpdateRepository{q: q},
		notifications: &NotificationRepository{q: q},
		earnings:      &EarningRepository{q: q},
	}
}

func (r repos) Profiles() repository.ProfileRepository           { return r.profiles }
func (r repos) Appointments() repository.AppointmentRepository   { return r.appointments }
func (r repos) Rides() repository.RideRepository                 { return r.rides }
func (r repos) StatusUpdates() repository.StatusUpdateRepository { return r.statusUpdates }
func (r repos) Notifications() repository.NotificationRepository { return r.notifications }
func (r repos) Earnings() repository.EarningRepository           { return r.earnings }

// NewStore creates a new PostgreSQL store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, repos: newRepos(db)}
}

var _ repository.Store = (*Store)(nil)

// InTx runs fn inside a database transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(newRepos(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
