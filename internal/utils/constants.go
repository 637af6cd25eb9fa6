package utils

import (
	"math"
	"time"
)

// Application Constants
const (
	AppName = "sosline"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1
	// MaxPage keeps (page-1)*size well inside int32.
	MaxPage = math.MaxInt32 / MaxPageSize

	// Authentication
	JWTAccessTokenTTL = 24 * time.Hour

	// Notification
	NotificationTimeout = 30 * time.Second

	// Payload limits
	MaxContactLength = 64
)

// User roles carried in the user_type claim
const (
	RoleResponder  = "responder"
	RoleOriginator = "citizen"
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInvalidToken   = "invalid token"
	ErrInternalServer = "internal server error"
	ErrUnauthorized   = "unauthorized"
	ErrForbidden      = "forbidden"
)

// Cache Keys
const (
	CacheOfferPrefix = "sos:offer:"
)

// Event Types
const (
	EventSOSOriginated = "sos_originated"
	EventSOSCanceled   = "sos_canceled"
)
