package domain

// WebSocket close codes used on the live chat channel (RFC 6455 §7.4.1).
const (
	CloseNormalClosure   = 1000
	CloseGoingAway       = 1001
	ClosePolicyViolation = 1008
	CloseInternalError   = 1011
)
