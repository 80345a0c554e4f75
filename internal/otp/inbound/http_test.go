package inbound

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/otp/usecase"
	"github.com/shandysiswandi/passcode/internal/pkg/clock"
	"github.com/shandysiswandi/passcode/internal/pkg/goerror"
	"github.com/shandysiswandi/passcode/internal/pkg/jwt"
	"github.com/shandysiswandi/passcode/internal/pkg/router"
	"github.com/shandysiswandi/passcode/internal/pkg/uid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUC struct {
	requestIn  usecase.RequestChallengeInput
	requestOut *usecase.RequestChallengeOutput
	requestErr error

	verifyOut *usecase.VerifyOutput
	resendIn  usecase.ResendInput
	statusIn  usecase.StatusInput
	updateIn  usecase.UpdateSettingsInput
	settings  *entity.Settings
}

func (f *fakeUC) RequestChallenge(_ context.Context, in usecase.RequestChallengeInput) (*usecase.RequestChallengeOutput, error) {
	f.requestIn = in
	return f.requestOut, f.requestErr
}

func (f *fakeUC) Verify(context.Context, usecase.VerifyInput) (*usecase.VerifyOutput, error) {
	return f.verifyOut, nil
}

func (f *fakeUC) Resend(_ context.Context, in usecase.ResendInput) (*usecase.RequestChallengeOutput, error) {
	f.resendIn = in
	return f.requestOut, f.requestErr
}

func (f *fakeUC) Status(_ context.Context, in usecase.StatusInput) (*usecase.StatusOutput, error) {
	f.statusIn = in
	return &usecase.StatusOutput{Exists: true, ExpiresIn: 120, AttemptsRemaining: 2}, nil
}

func (f *fakeUC) GetSettings(ctx context.Context) (*entity.Settings, error) {
	if jwt.GetAuth(ctx) == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}
	return f.settings, nil
}

func (f *fakeUC) UpdateSettings(_ context.Context, in usecase.UpdateSettingsInput) (*entity.Settings, error) {
	f.updateIn = in
	return f.settings, nil
}

type envelope struct {
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   map[string]string `json:"error"`
}

func newTestServer(t *testing.T, uc uc) (http.Handler, *jwt.Symmetric) {
	t.Helper()

	j, err := jwt.NewHS512(jwt.Config{
		Secret: []byte(strings.Repeat("k", 64)),
		Issuer: "passcode",
		TTL:    time.Hour,
		Clock:  clock.New(),
		UUID:   uid.NewUUID(),
	})
	require.NoError(t, err)

	r := router.NewRouter(router.Config{
		Name:            "passcode",
		UUID:            uid.NewUUID(),
		JWT:             j,
		PublicEndpoints: PublicEndpoints(),
	})
	RegisterHTTPEndpoint(r, uc)

	return r, j
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestRequestChallengeEndpoint(t *testing.T) {
	fuc := &fakeUC{requestOut: &usecase.RequestChallengeOutput{
		Reference: "ref", Channel: entity.ChannelDemo, ExpiresIn: 300, DemoMode: true, Code: "123456",
	}}
	h, _ := newTestServer(t, fuc)

	rec, env := do(t, h, http.MethodPost, PathChallenges, `{"contact":"+910000000001","purpose":"login"}`,
		HeaderIdempotencyKey, "abc-123")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+910000000001", fuc.requestIn.Contact)
	assert.Equal(t, "login", fuc.requestIn.Purpose)
	assert.Equal(t, "abc-123", fuc.requestIn.IdempotencyKey)

	var got ChallengeResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, ChallengeResponse{
		Success: true, Reference: "ref", ExpiresInSeconds: 300, Channel: "demo", DemoMode: true, Code: "123456",
	}, got)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestRequestChallengeEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantRetry  string
	}{
		{name: "MalformedBody", body: `{"contact":`, wantStatus: http.StatusBadRequest},
		{name: "UnknownField", body: `{"phone":"+1"}`, wantStatus: http.StatusBadRequest},
		{
			name:       "InvalidContact",
			body:       `{"contact":"nope"}`,
			err:        goerror.NewInvalidInput(nil, "contact", "contact must be a phone number in international format"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "DeliveryFailed",
			body:       `{"contact":"user@example.com"}`,
			err:        goerror.NewBusiness("Unable to deliver", goerror.CodeBadGateway),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "TooManyRequests",
			body:       `{"contact":"user@example.com"}`,
			err:        goerror.NewBusiness("Too many requests", goerror.CodeTooManyRequest, "retry_after_seconds", "42"),
			wantStatus: http.StatusTooManyRequests,
			wantRetry:  "42",
		},
		{
			name:       "IdempotencyKeyReused",
			body:       `{"contact":"user@example.com"}`,
			err:        goerror.NewBusiness("A request with this idempotency key was already processed", goerror.CodeConflict),
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestServer(t, &fakeUC{requestErr: tt.err})

			rec, env := do(t, h, http.MethodPost, PathChallenges, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotEmpty(t, env.Message)
			assert.Equal(t, tt.wantRetry, rec.Header().Get("Retry-After"))
		})
	}
}

func TestVerifyEndpoint(t *testing.T) {
	two := 2
	fuc := &fakeUC{verifyOut: &usecase.VerifyOutput{AttemptsRemaining: &two, Reason: entity.ReasonInvalidCode}}
	h, _ := newTestServer(t, fuc)

	rec, env := do(t, h, http.MethodPost, PathVerify, `{"contact":"user@example.com","code":"000000"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"verified":false,"attempts_remaining":2,"reason":"invalid_code"}`, string(env.Data))
	assert.Equal(t, "Verification code is not valid.", env.Message)

	for _, reason := range []entity.Reason{entity.ReasonExpired, entity.ReasonTooManyAttempts, entity.ReasonNotFound} {
		fuc.verifyOut = &usecase.VerifyOutput{Reason: reason}
		rec, env = do(t, h, http.MethodPost, PathVerify, `{"contact":"user@example.com","code":"000000"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"verified":false,"reason":"`+string(reason)+`","resend_required":true}`, string(env.Data))
		assert.Equal(t, "Verification code is no longer usable, please request a new one.", env.Message)
	}

	fuc.verifyOut = &usecase.VerifyOutput{Verified: true}
	rec, env = do(t, h, http.MethodPost, PathVerify, `{"contact":"user@example.com","code":"123456","reference":"ref"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"verified":true}`, string(env.Data))
}

func TestResendAndStatusEndpoints(t *testing.T) {
	fuc := &fakeUC{requestOut: &usecase.RequestChallengeOutput{Reference: "ref-2", Channel: "twilio", ExpiresIn: 300}}
	h, _ := newTestServer(t, fuc)

	rec, env := do(t, h, http.MethodPost, PathResend, `{"contact":"+14155550100"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+14155550100", fuc.resendIn.Contact)
	assert.NotContains(t, string(env.Data), `"code"`)

	rec, env = do(t, h, http.MethodGet, PathStatus+"?contact=%2B14155550100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+14155550100", fuc.statusIn.Contact)
	assert.JSONEq(t, `{"exists":true,"expires_in_seconds":120,"attempts_remaining":2}`, string(env.Data))
}

func TestSettingsEndpoints(t *testing.T) {
	fuc := &fakeUC{settings: &entity.Settings{
		Env:    "production",
		Policy: entity.Policy{TTL: 5 * time.Minute, CodeLength: 6, MaxAttempts: 3},
		Demo:   entity.Demo{Mode: entity.DemoModeOff},
		Notifiers: []entity.NotifierSetting{
			{Name: "twilio", Enabled: true, Credentials: map[string]string{"auth_token": entity.MaskedCredential}},
		},
	}}
	h, j := newTestServer(t, fuc)

	t.Run("RequiresToken", func(t *testing.T) {
		rec, _ := do(t, h, http.MethodGet, PathSettings, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec, _ = do(t, h, http.MethodPatch, PathSettings, `{}`, "Authorization", "Bearer garbage")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	token, err := j.Generate("ops@example.com", jwt.RoleAdmin)
	require.NoError(t, err)
	bearer := "Bearer " + token

	t.Run("Get", func(t *testing.T) {
		rec, env := do(t, h, http.MethodGet, PathSettings, "", "Authorization", bearer)
		require.Equal(t, http.StatusOK, rec.Code)

		var got SettingsResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, "5m0s", got.Policy.TTL)
		assert.Equal(t, "off", got.Demo.Mode)
		assert.Equal(t, []string{}, got.Demo.Contacts)
		assert.Equal(t, entity.MaskedCredential, got.Notifiers[0].Credentials["auth_token"])
	})

	t.Run("Patch", func(t *testing.T) {
		body := `{"policy":{"ttl":"90s","max_attempts":5},"demo":{"mode":"allowlist","contacts":["+910000000001"],"code":"123456"},"notifiers":[{"name":"console","enabled":true}]}`
		rec, _ := do(t, h, http.MethodPatch, PathSettings, body, "Authorization", bearer)
		require.Equal(t, http.StatusOK, rec.Code)

		require.NotNil(t, fuc.updateIn.TTL)
		assert.Equal(t, 90*time.Second, *fuc.updateIn.TTL)
		assert.Nil(t, fuc.updateIn.ResendCooldown)
		assert.Nil(t, fuc.updateIn.CodeLength)
		assert.Equal(t, 5, *fuc.updateIn.MaxAttempts)
		assert.Equal(t, "allowlist", *fuc.updateIn.DemoMode)
		assert.Equal(t, []usecase.NotifierPatch{{Name: "console", Enabled: true}}, fuc.updateIn.Notifiers)
	})

	t.Run("PatchInvalidDuration", func(t *testing.T) {
		rec, env := do(t, h, http.MethodPatch, PathSettings, `{"policy":{"ttl":"soon"}}`, "Authorization", bearer)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, env.Error, "policy.ttl")
	})
}
