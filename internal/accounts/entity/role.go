package entity

import (
	"strings"

	"github.com/samber/lo"
)

type Role string

const (
	RoleCustomer    Role = "customer"
	RoleSeller      Role = "seller"
	RoleDeliveryBoy Role = "delivery_boy"
)

// RolePrecedence is the order in which role profiles are probed when OTP
// validation gets no usable role hint. A user holding several profiles has
// the first one in this list activated.
var RolePrecedence = []Role{RoleSeller, RoleDeliveryBoy, RoleCustomer}

// ParseRole accepts the role names used in URLs and payloads
// ("deliveryboy", "delivery-boy" and "delivery_boy" are the same role).
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer":
		return RoleCustomer, true
	case "seller":
		return RoleSeller, true
	case "deliveryboy", "delivery_boy", "delivery-boy":
		return RoleDeliveryBoy, true
	default:
		return "", false
	}
}

func (r Role) String() string { return string(r) }

// Title is the human name used in messages.
func (r Role) Title() string {
	switch r {
	case RoleCustomer:
		return "Customer"
	case RoleSeller:
		return "Seller"
	case RoleDeliveryBoy:
		return "Delivery boy"
	default:
		return "User"
	}
}

// ResolveRole picks the profile to activate out of the roles a user holds.
// A held hint wins; otherwise RolePrecedence decides.
func ResolveRole(hint Role, held []Role) (Role, bool) {
	if hint != "" && lo.Contains(held, hint) {
		return hint, true
	}
	return lo.Find(RolePrecedence, func(r Role) bool { return lo.Contains(held, r) })
}

// Activation returns the flags a profile gets once the OTP is verified.
// Customers become active right away; sellers and delivery boys only get
// is_otp and wait for document review.
func (r Role) Activation() (isOTP, isActive bool) {
	return true, r == RoleCustomer
}
