//go:generate mockgen -destination mock_rwlock/observer.go gitlab.com/slon/reentrant-rwlock/rwlock Observer

package rwlock

// Observer receives lock events. Methods are called after the internal guard
// is released, so an Observer may be slow, but must not assume it sees
// events of different callers in the exact order they happened.
type Observer interface {
	// Waiting is reported once per call, when the caller is first suspended.
	Waiting(c Caller, m Mode)
	Granted(c Caller, m Mode, waited bool)
	Cancelled(c Caller, m Mode, waited bool)
	Released(c Caller, m Mode)
	Violation(err error)
}

type nopObserver struct{}

func (nopObserver) Waiting(Caller, Mode)         {}
func (nopObserver) Granted(Caller, Mode, bool)   {}
func (nopObserver) Cancelled(Caller, Mode, bool) {}
func (nopObserver) Released(Caller, Mode)        {}
func (nopObserver) Violation(error)              {}

type multiObserver []Observer

// Observers fans every event out to all of obs.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	if len(m) == 0 {
		return nopObserver{}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func (m multiObserver) Waiting(c Caller, mode Mode) {
	for _, o := range m {
		o.Waiting(c, mode)
	}
}

func (m multiObserver) Granted(c Caller, mode Mode, waited bool) {
	for _, o := range m {
		o.Granted(c, mode, waited)
	}
}

func (m multiObserver) Cancelled(c Caller, mode Mode, waited bool) {
	for _, o := range m {
		o.Cancelled(c, mode, waited)
	}
}

func (m multiObserver) Released(c Caller, mode Mode) {
	for _, o := range m {
		o.Released(c, mode)
	}
}

func (m multiObserver) Violation(err error) {
	for _, o := range m {
		o.Violation(err)
	}
}

// Option configures an RWLock.
type Option func(*RWLock)

// WithObserver installs obs. Several WithObserver options are combined.
func WithObserver(obs Observer) Option {
	return func(l *RWLock) {
		if l.obs == nil {
			l.obs = obs
			return
		}
		l.obs = Observers(l.obs, obs)
	}
}
