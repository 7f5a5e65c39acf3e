// Package services implements the auth and task use cases on top of the
// repositories. Every error it returns is an *apperr.Error.
package services

import (
	"errors"

	"github.com/chepyr/taskboard/internal/apperr"
	"github.com/chepyr/taskboard/internal/db"
)

// Broadcaster tells connected clients that task data changed.
type Broadcaster interface {
	BroadcastTasksChanged()
}

// translate maps a repository failure to the taxonomy. notFound is the
// message used when the record does not exist.
func translate(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, db.ErrDuplicateEmail):
		return apperr.Conflict(msgUserExists)
	default:
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperr.Internal("store", err)
	}
}
