// Package locklog writes rwlock events to a zap logger.
package locklog

import (
	"go.uber.org/zap"

	"gitlab.com/slon/reentrant-rwlock/rwlock"
)

// Observer logs grants, releases and cancellations at debug level and
// protocol violations at warn level.
type Observer struct {
	log *zap.Logger
}

var _ rwlock.Observer = (*Observer)(nil)

// New returns an Observer writing to log. The lock name is attached to
// every entry.
func New(log *zap.Logger, name string) *Observer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Observer{log: log.With(zap.String("lock", name))}
}

func (o *Observer) Waiting(c rwlock.Caller, m rwlock.Mode) {
	o.log.Debug("waiting", zap.Stringer("caller", c), zap.Stringer("mode", m))
}

func (o *Observer) Granted(c rwlock.Caller, m rwlock.Mode, waited bool) {
	o.log.Debug("granted", zap.Stringer("caller", c), zap.Stringer("mode", m), zap.Bool("waited", waited))
}

func (o *Observer) Cancelled(c rwlock.Caller, m rwlock.Mode, waited bool) {
	o.log.Debug("cancelled", zap.Stringer("caller", c), zap.Stringer("mode", m), zap.Bool("waited", waited))
}

func (o *Observer) Released(c rwlock.Caller, m rwlock.Mode) {
	o.log.Debug("released", zap.Stringer("caller", c), zap.Stringer("mode", m))
}

func (o *Observer) Violation(err error) {
	o.log.Warn("protocol violation", zap.Error(err))
}
