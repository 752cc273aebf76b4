package inbound

import (
	"github.com/shandysiswandi/clovigo/internal/accounts/usecase"
	"github.com/shandysiswandi/clovigo/internal/pkg/router"
)

// HTTPEndpoint exposes signup, OTP, login and profile handlers.
type HTTPEndpoint struct {
	uc             uc
	maxUploadBytes int64
}

func (h *HTTPEndpoint) SignupCustomer(r *router.Request) (any, error) {
	var req SignupCustomerRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.SignupCustomer(r.Context(), usecase.SignupCustomerInput{
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
		User:           usecase.UserInput(req.User),
	})
	if err != nil {
		return nil, err
	}

	return newSignupResponse(resp), nil
}

// SignupSeller takes a multipart form with the user and shop fields plus the
// file_gst and file_pan documents.
func (h *HTTPEndpoint) SignupSeller(r *router.Request) (any, error) {
	if err := r.ParseMultipart(h.maxUploadBytes); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()

	gst, err := r.FormFile("file_gst")
	if err != nil {
		return nil, err
	}
	defer closeFile(gst)

	pan, err := r.FormFile("file_pan")
	if err != nil {
		return nil, err
	}
	defer closeFile(pan)

	resp, err := h.uc.SignupSeller(r.Context(), usecase.SignupSellerInput{
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
		User:           formUser(r),
		ShopName:       r.FormString("shop_name"),
		ShopAddress1:   r.FormString("shop_address_1"),
		ShopAddress2:   r.FormString("shop_address_2"),
		ShopLandmark:   r.FormString("shop_landmark"),
		GSTNo:          r.FormString("gst_no"),
		PANNo:          r.FormString("pan_no"),
		AccountNo:      r.FormString("account_no"),
		FileGST:        toDocument(gst),
		FilePAN:        toDocument(pan),
	})
	if err != nil {
		return nil, err
	}

	return newSignupResponse(resp), nil
}

func (h *HTTPEndpoint) SignupDeliveryBoy(r *router.Request) (any, error) {
	if err := r.ParseMultipart(h.maxUploadBytes); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()

	license, err := r.FormFile("file_license")
	if err != nil {
		return nil, err
	}
	defer closeFile(license)

	resp, err := h.uc.SignupDeliveryBoy(r.Context(), usecase.SignupDeliveryBoyInput{
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
		User:           formUser(r),
		LicenseNo:      r.FormString("license_no"),
		FileLicense:    toDocument(license),
	})
	if err != nil {
		return nil, err
	}

	return newSignupResponse(resp), nil
}

func (h *HTTPEndpoint) OTPValidate(r *router.Request) (any, error) {
	var req OTPValidateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.OTPValidate(r.Context(), usecase.OTPValidateInput{
		Username: req.Username,
		OTP:      string(req.OTP),
		RoleHint: req.roleHint(),
	})
	if err != nil {
		return nil, err
	}

	return OTPValidateResponse{
		UserID:   resp.UserID,
		Role:     resp.Role.String(),
		IsActive: resp.ProfileActive,
		IsOTP:    resp.ProfileOTPDone,
	}, nil
}

func (h *HTTPEndpoint) OTPResend(r *router.Request) (any, error) {
	var req OTPResendRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.OTPResend(r.Context(), usecase.OTPResendInput{Username: req.Username})
	if err != nil {
		return nil, err
	}

	return OTPResendResponse{
		ExpiresAt:         resp.ExpiresAt,
		AttemptsRemaining: resp.AttemptsRemaining,
		LockedUntil:       resp.LockedUntil,
	}, nil
}

// Login authenticates for the role named in the path.
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Role:     r.GetParam("role"),
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return LoginResponse{
		UserID:           resp.UserID,
		Username:         resp.Username,
		Role:             resp.Role.String(),
		Access:           resp.AccessToken,
		Refresh:          resp.RefreshToken,
		AccessExpiresAt:  resp.AccessExpiresAt,
		RefreshExpiresAt: resp.RefreshExpiresAt,
	}, nil
}

func (h *HTTPEndpoint) Profile(r *router.Request) (any, error) {
	resp, err := h.uc.Profile(r.Context())
	if err != nil {
		return nil, err
	}

	out := ProfileResponse{
		UserID:    resp.User.ID,
		Username:  resp.User.Username,
		PhoneNo:   resp.User.PhoneNo,
		Role:      resp.Profile.Role.String(),
		CloCoin:   resp.Profile.CloCoin,
		Rank:      resp.Profile.Rank,
		IsOTP:     resp.Profile.IsOTP,
		IsActive:  resp.Profile.IsActive,
		Documents: resp.Documents,
		CreatedAt: resp.Profile.CreatedAt,
	}
	if s := resp.Profile.Seller; s != nil {
		out.Seller = &SellerResponse{
			ShopName:     s.ShopName,
			ShopAddress1: s.ShopAddress1,
			ShopAddress2: s.ShopAddress2,
			ShopLandmark: s.ShopLandmark,
			GSTNo:        s.GSTNo,
			PANNo:        s.PANNo,
			AccountNo:    s.AccountNo,
		}
	}
	if d := resp.Profile.DeliveryBoy; d != nil {
		out.DeliveryBoy = &DeliveryBoyResponse{LicenseNo: d.LicenseNo}
	}

	return out, nil
}

func newSignupResponse(out *usecase.SignupOutput) SignupResponse {
	return SignupResponse{
		UserID:       out.UserID,
		Username:     out.Username,
		Role:         out.Role.String(),
		IsActive:     out.IsActive,
		OTPExpiresAt: out.OTPExpiresAt,
		OTPDelivered: out.OTPDelivered,
	}
}

func formUser(r *router.Request) usecase.UserInput {
	return usecase.UserInput{
		Username: r.FormString("username"),
		PhoneNo:  r.FormString("phone_no"),
		Password: r.FormValue("password"),
	}
}

// toDocument returns nil for a missing part so validation reports it.
func toDocument(f *router.UploadedFile) *usecase.Document {
	if f == nil {
		return nil
	}
	return &usecase.Document{
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Size:        f.Size,
		Body:        f,
	}
}

func closeFile(f *router.UploadedFile) {
	if f != nil {
		_ = f.Close()
	}
}
