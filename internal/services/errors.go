package services

// Error is a client-facing failure. Code is what the caller sees in an error
// reply; Silent errors produce no reply at all.
type Error struct {
	code    string
	message string
	silent  bool
}

func (e *Error) Error() string { return e.message }
func (e *Error) Code() string  { return e.code }
func (e *Error) Silent() bool  { return e.silent }

var (
	// ErrPersistenceFailure is never answered: the originator only observes
	// the missing acknowledgment.
	ErrPersistenceFailure = &Error{code: "PERSISTENCE_FAILURE", message: "failed to persist sos event", silent: true}
	ErrNotFound           = &Error{code: "NOT_FOUND", message: "sos event not found or already canceled"}
	ErrUnauthorized       = &Error{code: "UNAUTHORIZED", message: "not allowed"}
	ErrBadRequest         = &Error{code: "BAD_REQUEST", message: "invalid sos event id"}
	// ErrOfferInFlight answers a repeated offer whose first copy has not been
	// stored yet. The first copy will produce the acknowledgment.
	ErrOfferInFlight = &Error{code: "OFFER_IN_FLIGHT", message: "offer already being processed", silent: true}
)
