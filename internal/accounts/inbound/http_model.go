package inbound

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shandysiswandi/clovigo/internal/accounts/entity"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type UserRequest struct {
	Username string `json:"username"`
	PhoneNo  string `json:"phone_no"`
	Password string `json:"password"`
}

type SignupCustomerRequest struct {
	User UserRequest `json:"user"`
}

type SignupResponse struct {
	UserID       int64     `json:"user_id,string"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	OTPExpiresAt time.Time `json:"otp_expires_at"`
	OTPDelivered bool      `json:"otp_delivered"`
}

func (r SignupResponse) Message() string {
	role, _ := entity.ParseRole(r.Role)
	if !r.OTPDelivered {
		return role.Title() + " registered successfully. OTP could not be sent, please request a new one."
	}
	return role.Title() + " registered successfully. OTP sent to phone number."
}

func (SignupResponse) StatusCode() int { return http.StatusCreated }

// OTPField accepts the code as a JSON string or number. A number loses
// leading zeros, so clients should send strings.
type OTPField string

func (o *OTPField) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*o = OTPField(s)
		return nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return err
	}
	*o = OTPField(n.String())
	return nil
}

type OTPValidateRequest struct {
	Username      string   `json:"username"`
	OTP           OTPField `json:"otp"`
	Role          string   `json:"role"`
	IsSeller      bool     `json:"is_seller"`
	IsDeliveryBoy bool     `json:"is_delivery_boy"`
}

// roleHint prefers an explicit role, then the legacy boolean flags.
func (r OTPValidateRequest) roleHint() entity.Role {
	if role, ok := entity.ParseRole(r.Role); ok {
		return role
	}
	switch {
	case r.IsSeller:
		return entity.RoleSeller
	case r.IsDeliveryBoy:
		return entity.RoleDeliveryBoy
	default:
		return ""
	}
}

type OTPValidateResponse struct {
	UserID   int64  `json:"user_id,string"`
	Role     string `json:"role,omitempty"`
	IsActive bool   `json:"is_active"`
	IsOTP    bool   `json:"is_otp"`
}

func (r OTPValidateResponse) Message() string {
	role := entity.Role(r.Role)
	switch {
	case role == "":
		return "OTP matched. User is verified, account not activated."
	case r.IsActive:
		return "OTP matched. " + role.Title() + " is verified and activated successfully!"
	default:
		return "OTP matched. " + role.Title() + " is verified, account will be activated after document review."
	}
}

type OTPResendRequest struct {
	Username string `json:"username"`
}

type OTPResendResponse struct {
	ExpiresAt         time.Time  `json:"expires_at"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
}

func (OTPResendResponse) Message() string { return "OTP resent successfully!" }

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	UserID           int64     `json:"user_id,string"`
	Username         string    `json:"username"`
	Role             string    `json:"role"`
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func (LoginResponse) Message() string { return "Login successful" }

type ProfileResponse struct {
	UserID      int64                `json:"user_id,string"`
	Username    string               `json:"username"`
	PhoneNo     string               `json:"phone_no"`
	Role        string               `json:"role"`
	CloCoin     int                  `json:"clo_coin"`
	Rank        string               `json:"rank"`
	IsOTP       bool                 `json:"is_otp"`
	IsActive    bool                 `json:"is_active"`
	Seller      *SellerResponse      `json:"seller,omitempty"`
	DeliveryBoy *DeliveryBoyResponse `json:"delivery_boy,omitempty"`
	Documents   map[string]string    `json:"documents,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

type SellerResponse struct {
	ShopName     string `json:"shop_name"`
	ShopAddress1 string `json:"shop_address_1"`
	ShopAddress2 string `json:"shop_address_2"`
	ShopLandmark string `json:"shop_landmark"`
	GSTNo        string `json:"gst_no"`
	PANNo        string `json:"pan_no,omitempty"`
	AccountNo    string `json:"account_no,omitempty"`
}

type DeliveryBoyResponse struct {
	LicenseNo string `json:"license_no"`
}
