package repository

import "context"

// Tx exposes the repositories bound to one unit of work.
type Tx interface {
	Profiles() ProfileRepository
	Appointments() AppointmentRepository
	Rides() RideRepository
	StatusUpdates() StatusUpdateRepository
	Notifications() NotificationRepository
	Earnings() EarningRepository
}

// Store is the transactional row store.
// The embedded Tx accessors run each call on its own; InTx runs fn atomically.
type Store interface {
	Tx

	// InTx runs fn in a transaction. Any error returned by fn rolls back every write made through tx.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
