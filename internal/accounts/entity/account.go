package entity

import "time"

// DefaultRank is the rank a new profile starts with.
const DefaultRank = "bronze"

type User struct {
	ID        int64
	Username  string
	PhoneNo   string
	Password  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile is the role-agnostic part of a role profile.
type Profile struct {
	UserID   int64
	Role     Role
	CloCoin  int
	Rank     string
	IsOTP    bool
	IsActive bool
}

type SellerDetail struct {
	ShopName     string
	ShopAddress1 string
	ShopAddress2 string
	ShopLandmark string
	GSTNo        string
	PANNo        string
	AccountNo    string
	FileGST      string
	FilePAN      string
}

type DeliveryBoyDetail struct {
	LicenseNo   string
	FileLicense string
}

// ProfileDetail is a profile with its role-specific fields. Exactly one of
// Seller and DeliveryBoy is set for those roles; both are nil for customers.
type ProfileDetail struct {
	Profile
	Seller      *SellerDetail
	DeliveryBoy *DeliveryBoyDetail
	CreatedAt   time.Time
}

// NewAccount is everything signup writes in one transaction.
type NewAccount struct {
	User    User
	Profile ProfileDetail
	OTP     OTPRecord
}
