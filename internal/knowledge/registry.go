package knowledge

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Registry holds the active tables. Readers take a snapshot with Current and
// keep using it for the whole request; reloads install a new value.
type Registry struct {
	current atomic.Pointer[Tables]
	logger  *logrus.Logger
}

// NewRegistry creates a registry serving t.
func NewRegistry(t *Tables, logger *logrus.Logger) *Registry {
	r := &Registry{logger: logger}
	r.current.Store(t)
	return r
}

// Current returns the active tables.
func (r *Registry) Current() *Tables {
	return r.current.Load()
}

// Swap installs t and returns the previous tables.
func (r *Registry) Swap(t *Tables) *Tables {
	old := r.current.Swap(t)
	r.logger.WithFields(logrus.Fields{
		"old_revision": old.Revision(),
		"new_revision": t.Revision(),
	}).Info("Rule tables swapped")
	return old
}

// ReloadFrom loads the overlay at path and swaps it in. On error the active
// tables are left untouched.
func (r *Registry) ReloadFrom(path string) error {
	t, err := LoadFile(path)
	if err != nil {
		r.logger.WithError(err).WithField("path", path).Warn("Rule table reload rejected")
		return err
	}
	r.Swap(t)
	return nil
}
