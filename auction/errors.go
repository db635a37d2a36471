package auction

import "errors"

// Kind classifies a rejected operation so the HTTP layer can pick a status
// without string-matching messages.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotOwner        Kind = "not_owner"
	KindBlocked         Kind = "blocked"
	KindInvalidState    Kind = "invalid_state"
	KindInvalidBid      Kind = "invalid_bid"
	KindInvalidInput    Kind = "invalid_input"
	KindNotLeader       Kind = "not_leader"
	KindNotWinner       Kind = "not_winner"
	KindAlreadySold     Kind = "already_sold"
	KindNoDeadline      Kind = "no_deadline"
	KindExpired         Kind = "expired"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// IsKind reports whether err carries the given rejection kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// KindOf extracts the rejection kind, or "" for plain errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
