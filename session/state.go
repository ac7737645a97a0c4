package session

import (
	"context"
	"roomchat/domain"
	"roomchat/errors"
)

// State is a step in the life of one connection.
type State int

const (
	Connecting State = iota
	Authenticating
	JoiningRoom
	Active
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Authenticating:
		return "authenticating"
	case JoiningRoom:
		return "joining_room"
	case Active:
		return "active"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// next lists the forward edges. Any live state may also move to Closing.
var next = map[State]State{
	Connecting:     Authenticating,
	Authenticating: JoiningRoom,
	JoiningRoom:    Active,
	Closing:        Closed,
}

func canTransition(from, to State) bool {
	if to == Closing {
		return from != Closing && from != Closed
	}
	n, ok := next[from]
	return ok && n == to
}

// closeFor maps the error that ended a session to its close code and reason.
func closeFor(err error) (int, string) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.CloseGoingAway, "server shutting down"
	case errors.Is(err, errors.ErrDisconnected):
		return domain.CloseNormalClosure, ""
	case errors.Is(err, errors.ErrAuthentication):
		return domain.ClosePolicyViolation, "authentication failed"
	case errors.Is(err, errors.ErrNotFound):
		return domain.ClosePolicyViolation, "room not found"
	default:
		return domain.CloseInternalError, "internal error"
	}
}
