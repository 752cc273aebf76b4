package inbound

import (
	"context"

	"github.com/shandysiswandi/clovigo/internal/accounts/usecase"
	"github.com/shandysiswandi/clovigo/internal/pkg/router"
)

type uc interface {
	SignupCustomer(ctx context.Context, in usecase.SignupCustomerInput) (*usecase.SignupOutput, error)
	SignupSeller(ctx context.Context, in usecase.SignupSellerInput) (*usecase.SignupOutput, error)
	SignupDeliveryBoy(ctx context.Context, in usecase.SignupDeliveryBoyInput) (*usecase.SignupOutput, error)

	OTPValidate(ctx context.Context, in usecase.OTPValidateInput) (*usecase.OTPValidateOutput, error)
	OTPResend(ctx context.Context, in usecase.OTPResendInput) (*usecase.OTPResendOutput, error)

	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)
	Profile(ctx context.Context) (*usecase.ProfileOutput, error)
}

// RegisterHTTPEndpoint mounts the accounts API. maxUploadBytes bounds a
// whole multipart signup body.
func RegisterHTTPEndpoint(r *router.Router, uc uc, maxUploadBytes int64) {
	end := &HTTPEndpoint{uc: uc, maxUploadBytes: maxUploadBytes}

	r.PublicPOST("/api/accounts/signup/customer/", end.SignupCustomer)
	r.PublicPOST("/api/accounts/signup/seller/", end.SignupSeller)
	r.PublicPOST("/api/accounts/signup/deliveryboy/", end.SignupDeliveryBoy)

	r.PublicPOST("/api/accounts/user/otp/validate/", end.OTPValidate)
	r.PublicPOST("/api/accounts/user/otp/resend/", end.OTPResend)

	r.PublicPOST("/api/accounts/login/:role/", end.Login)

	r.GET("/api/accounts/me/", end.Profile, r.Authorize("accounts.profile", "read"))
}
