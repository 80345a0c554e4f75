package inbound

import (
	"context"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/otp/usecase"
	"github.com/shandysiswandi/passcode/internal/pkg/router"
)

type uc interface {
	RequestChallenge(ctx context.Context, in usecase.RequestChallengeInput) (*usecase.RequestChallengeOutput, error)
	Verify(ctx context.Context, in usecase.VerifyInput) (*usecase.VerifyOutput, error)
	Resend(ctx context.Context, in usecase.ResendInput) (*usecase.RequestChallengeOutput, error)
	Status(ctx context.Context, in usecase.StatusInput) (*usecase.StatusOutput, error)

	GetSettings(ctx context.Context) (*entity.Settings, error)
	UpdateSettings(ctx context.Context, in usecase.UpdateSettingsInput) (*entity.Settings, error)
}

const (
	PathChallenges = "/api/v1/otp/challenges"
	PathVerify     = "/api/v1/otp/challenges/verify"
	PathResend     = "/api/v1/otp/challenges/resend"
	PathStatus     = "/api/v1/otp/challenges/status"
	PathSettings   = "/api/v1/otp/settings"

	// HeaderIdempotencyKey guards issuance against client retries.
	HeaderIdempotencyKey = "Idempotency-Key"
)

// PublicEndpoints lists the routes reachable without a bearer token.
func PublicEndpoints() map[string][]string {
	return map[string][]string{
		"POST": {PathChallenges, PathVerify, PathResend},
		"GET":  {PathStatus},
	}
}

// IssuanceEndpoints lists the routes limited per client IP.
func IssuanceEndpoints() map[string][]string {
	return map[string][]string{
		"POST": {PathChallenges, PathResend, PathVerify},
	}
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Challenges (public)
	r.POST(PathChallenges, end.RequestChallenge)
	r.POST(PathVerify, end.Verify)
	r.POST(PathResend, end.Resend)
	r.GET(PathStatus, end.Status)

	// Settings (need admin token)
	r.GET(PathSettings, end.GetSettings)
	r.PATCH(PathSettings, end.UpdateSettings)
}
