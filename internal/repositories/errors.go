package repositories

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate reports a unique-constraint violation.
	ErrDuplicate = errors.New("duplicate entry")

	ErrGroupNotFound      = errors.New("group not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInviteCodeNotFound = errors.New("invite code not found")
	ErrProfileNotFound    = errors.New("profile not found")

	// ErrAlreadyAccepted is returned when the optimistic accepted_at guard
	// matched no row.
	ErrAlreadyAccepted = errors.New("invitation already accepted")
)

const uniqueViolation = "23505"

// mapWriteError converts a Postgres unique violation into ErrDuplicate and
// passes every other error through unchanged.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}

func toInt64s(ids []int) pq.Int64Array {
	out := make(pq.Int64Array, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}
	return out
}
