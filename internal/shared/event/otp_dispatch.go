package event

import "time"

const OTPDispatchDestination string = "otp_dispatch"
const OTPDispatchConsumerSMS string = "otp_dispatch_sms"

// OTPDispatchMessage carries a plaintext code to the SMS sender. It is
// never persisted.
type OTPDispatchMessage struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	PhoneNo   string    `json:"phone_no"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Reason    string    `json:"reason"`
}
