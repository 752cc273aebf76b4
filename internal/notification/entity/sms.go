package entity

import (
	"errors"
	"time"
)

var (
	ErrGatewayRejected   = errors.New("notification: sms gateway rejected the message")
	ErrGatewayNotReady   = errors.New("notification: sms gateway is not configured")
	ErrCodeAlreadyExpire = errors.New("notification: otp code already expired")
)

// SMS is one outgoing text message.
type SMS struct {
	To     string
	Sender string
	Body   string
}

// Delivery is what the gateway reported for a sent SMS.
type Delivery struct {
	MessageID string
	Status    string
	SentAt    time.Time
}
