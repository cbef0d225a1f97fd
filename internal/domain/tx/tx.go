// Package tx declares the unit-of-work port used to group writes from
// several repositories into one atomic unit.
package tx

import "context"

// Transactor runs fn inside one atomic unit. Repositories called with the ctx
// passed to fn take part in that unit. A call made while a unit is already
// open joins it instead of starting a new one. If fn returns an error every
// write made through the unit is discarded.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
