package inbound

import (
	"github.com/shandysiswandi/passcode/internal/otp/usecase"
	"github.com/shandysiswandi/passcode/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for passcode challenges and settings.
type HTTPEndpoint struct {
	uc uc
}

// RequestChallenge issues a passcode to a phone number or email address.
// @Summary Request a passcode
// @Description Issues a new challenge for the contact, replacing any live one, and delivers the code through the notifier chain.
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body ChallengeRequest true "Challenge payload"
// @Param Idempotency-Key header string false "Rejects a repeated request with 409"
// @Success 200 {object} router.successResponse{data=ChallengeResponse} "Challenge issued"
// @Failure 400 {object} router.errorResponse "Invalid contact"
// @Failure 409 {object} router.errorResponse "Idempotency key already used"
// @Failure 429 {object} router.errorResponse "Too many requests"
// @Failure 502 {object} router.errorResponse "Every notifier failed"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/otp/challenges [post]
func (h *HTTPEndpoint) RequestChallenge(r *router.Request) (any, error) {
	var req ChallengeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RequestChallenge(r.Context(), usecase.RequestChallengeInput{
		Contact:        req.Contact,
		Purpose:        req.Purpose,
		IdempotencyKey: r.GetHeader(HeaderIdempotencyKey),
	})
	if err != nil {
		return nil, err
	}

	return newChallengeResponse(resp), nil
}

// Verify checks a passcode.
// @Summary Verify a passcode
// @Description Verifies the code against the live challenge of the contact. Failures are reported in the reason field with status 200.
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Verify payload"
// @Success 200 {object} router.successResponse{data=VerifyResponse} "Verification result"
// @Failure 400 {object} router.errorResponse "Invalid contact"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/otp/challenges/verify [post]
func (h *HTTPEndpoint) Verify(r *router.Request) (any, error) {
	var req VerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Verify(r.Context(), usecase.VerifyInput{
		Contact:   req.Contact,
		Code:      req.Code,
		Reference: req.Reference,
	})
	if err != nil {
		return nil, err
	}

	return VerifyResponse{
		Verified:          resp.Verified,
		AttemptsRemaining: resp.AttemptsRemaining,
		Reason:            string(resp.Reason),
		ResendRequired:    !resp.Verified && resp.Reason.RequiresNewChallenge(),
	}, nil
}

// Resend replaces the live challenge and delivers a new code.
// @Summary Resend a passcode
// @Description Drops any live challenge of the contact and issues a new one without waiting for the resend cooldown.
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body ChallengeRequest true "Resend payload"
// @Param Idempotency-Key header string false "Rejects a repeated request with 409"
// @Success 200 {object} router.successResponse{data=ChallengeResponse} "Challenge issued"
// @Failure 400 {object} router.errorResponse "Invalid contact"
// @Failure 409 {object} router.errorResponse "Idempotency key already used"
// @Failure 429 {object} router.errorResponse "Too many requests"
// @Failure 502 {object} router.errorResponse "Every notifier failed"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/otp/challenges/resend [post]
func (h *HTTPEndpoint) Resend(r *router.Request) (any, error) {
	var req ChallengeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Resend(r.Context(), usecase.ResendInput{
		Contact:        req.Contact,
		Purpose:        req.Purpose,
		IdempotencyKey: r.GetHeader(HeaderIdempotencyKey),
	})
	if err != nil {
		return nil, err
	}

	return newChallengeResponse(resp), nil
}

// Status reports whether a contact has a live challenge.
// @Summary Challenge status
// @Tags OTP
// @Produce json
// @Param contact query string true "Phone number or email address"
// @Success 200 {object} router.successResponse{data=StatusResponse} "Challenge status"
// @Failure 400 {object} router.errorResponse "Invalid contact"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/otp/challenges/status [get]
func (h *HTTPEndpoint) Status(r *router.Request) (any, error) {
	resp, err := h.uc.Status(r.Context(), usecase.StatusInput{Contact: r.GetQuery("contact")})
	if err != nil {
		return nil, err
	}

	return StatusResponse{
		Exists:            resp.Exists,
		ExpiresInSeconds:  resp.ExpiresIn,
		AttemptsRemaining: resp.AttemptsRemaining,
	}, nil
}

// GetSettings returns the live settings with credentials masked.
// @Summary Get OTP settings
// @Tags OTP, Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=SettingsResponse} "Current settings"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Admin role required"
// @Router /api/v1/otp/settings [get]
func (h *HTTPEndpoint) GetSettings(r *router.Request) (any, error) {
	resp, err := h.uc.GetSettings(r.Context())
	if err != nil {
		return nil, err
	}

	return newSettingsResponse(resp), nil
}

// UpdateSettings patches policy, demo mode and the notifier chain.
// @Summary Update OTP settings
// @Description Applies a partial update atomically. A credential sent as *** keeps its stored value.
// @Tags OTP, Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SettingsPatchRequest true "Settings patch"
// @Success 200 {object} router.successResponse{data=SettingsResponse} "Updated settings"
// @Failure 400 {object} router.errorResponse "Validation error"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Admin role required"
// @Router /api/v1/otp/settings [patch]
func (h *HTTPEndpoint) UpdateSettings(r *router.Request) (any, error) {
	var req SettingsPatchRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	in, err := req.toInput()
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.UpdateSettings(r.Context(), in)
	if err != nil {
		return nil, err
	}

	return newSettingsResponse(resp), nil
}
