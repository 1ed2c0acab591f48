package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/config"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/email"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/guard"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository/memory"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/services"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/storage"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/workflow"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workflowsYAML = `workflows:
  seller:
    - id: 1
      name: Company Profile
      index: 0
      next: [2]
    - id: 2
      name: Review
      index: 1
`

type countingBucket struct {
	calls int
}

func (b *countingBucket) Get(_ context.Context, key string) (*storage.Object, error) {
	b.calls++
	if key == "ally.pdf" {
		return &storage.Object{Body: []byte("%PDF-1.7"), ContentType: "application/pdf"}, nil
	}
	return nil, storage.ErrNotFound
}

type sentMail struct {
	messages []email.Message
}

func (s *sentMail) Send(_ context.Context, msg email.Message) error {
	s.messages = append(s.messages, msg)
	return nil
}

type failingNotes struct {
	repository.NoteRepository
}

func (failingNotes) DeleteByProfile(context.Context, uuid.UUID) error {
	return errors.New("connection reset")
}

type server struct {
	app    *fiber.App
	cfg    *config.Config
	store  *repository.Store
	bucket *countingBucket
	mail   *sentMail
}

func newServer(t *testing.T) *server {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
		StorageMode:      config.StorageModeMemory,
	}
	store, _ := memory.NewStore()
	wf := workflow.NewStore(store.Workflows, store.Stages)
	file, err := workflow.Parse([]byte(workflowsYAML))
	require.NoError(t, err)
	_, err = wf.Seed(context.Background(), file, false)
	require.NoError(t, err)

	bucket := &countingBucket{}
	mail := &sentMail{}
	emailService := services.NewEmailService(mail)
	progress := services.NewProgressService(store, wf, nil)
	admin := services.NewAdminService(store, progress, wf, nil)

	app := fiber.New()
	Setup(app, cfg, store.Profiles, Handlers{
		Auth:        handlers.NewAuthHandler(services.NewAuthService(store, cfg, nil, nil), cfg),
		Health:      handlers.NewHealthHandler(cfg.StorageMode),
		Onboarding:  handlers.NewOnboardingHandler(progress),
		Admin:       handlers.NewAdminHandler(admin, progress, services.NewAnalyticsService(store)),
		Flows:       handlers.NewFlowHandler(services.NewFlowService(store.Flows)),
		Contracts:   handlers.NewContractHandler(services.NewContractService(bucket)),
		Email:       handlers.NewEmailHandler(emailService),
		Marketplace: handlers.NewMarketplaceHandler(services.NewMarketplaceService(store.Profiles, nil)),
		Pages:       handlers.NewPageHandler(),
	}, guard.New(cfg.JWTSecret, store.Profiles, progress))

	return &server{app: app, cfg: cfg, store: store, bucket: bucket, mail: mail}
}

// user stores an identity and profile and returns a signed access token.
func (s *server) user(t *testing.T, email, role string) (uuid.UUID, string) {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	require.NoError(t, s.store.Identities.Create(ctx, &models.Identity{ID: id, Email: email, Password: "x"}))
	require.NoError(t, s.store.Profiles.Create(ctx, &models.Profile{UUID: id, Email: email, Role: role}))
	return id, s.token(t, id, email, role)
}

func (s *server) token(t *testing.T, id uuid.UUID, email, role string) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   id.String(),
		"email": email,
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(s.cfg.JWTSecret))
	require.NoError(t, err)
	return raw
}

func (s *server) do(t *testing.T, method, path, token, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newServer(t)
	_, sellerToken := s.user(t, "seller@example.com", models.RoleSeller)
	ghostToken := s.token(t, uuid.New(), "ghost@example.com", models.RoleAdmin)

	paths := []string{
		"/api/admin/stages",
		"/api/admin/users",
		"/api/admin/metrics/dashboard",
		"/api/admin/user-profile?uuid=" + uuid.NewString(),
	}
	for _, path := range paths {
		for name, token := range map[string]string{"none": "", "seller": sellerToken, "ghost": ghostToken} {
			resp, body := s.do(t, "GET", path, token, "")
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path+" as "+name)
			assert.NotEmpty(t, body["error"])
		}
	}

	resp, _ := s.do(t, "DELETE", "/api/admin/users/"+uuid.NewString(), sellerToken, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestContracts(t *testing.T) {
	s := newServer(t)
	_, token := s.user(t, "seller@example.com", models.RoleSeller)

	resp, body := s.do(t, "GET", "/api/contracts/malware.pdf", token, "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
	assert.Zero(t, s.bucket.calls)

	resp, _ = s.do(t, "GET", "/api/contracts/seller.pdf", token, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, "GET", "/api/contracts/ally.pdf", token, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, 2, s.bucket.calls)
}

func TestSendEmail(t *testing.T) {
	s := newServer(t)
	_, token := s.user(t, "admin@example.com", models.RoleAdmin)

	resp, body := s.do(t, "POST", "/api/send-email", token, `{"to":"a@example.com","subject":"Hi"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "missing required fields")
	assert.Empty(t, s.mail.messages)

	resp, _ = s.do(t, "POST", "/api/send-email", token, `{"to":"a@example.com","subject":"Hi","html":"<p>hello</p>"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, s.mail.messages, 1)
}

func TestAdminProgressUpdateNeverCreates(t *testing.T) {
	s := newServer(t)
	_, adminToken := s.user(t, "admin@example.com", models.RoleAdmin)
	sellerID, sellerToken := s.user(t, "seller@example.com", models.RoleSeller)

	payload := `{"uuid":"` + sellerID.String() + `","stage_id":1,"status":"completed"}`
	resp, body := s.do(t, "POST", "/api/admin/onboarding-progress", adminToken, payload)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	resp, _ = s.do(t, "POST", "/api/onboarding/start", sellerToken, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = s.do(t, "POST", "/api/admin/onboarding-progress", adminToken, payload)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["progress"].(map[string]interface{})["status"])

	resp, body = s.do(t, "GET", "/api/admin/onboarding-progress?user_uuid="+sellerID.String(), adminToken, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["progress"], 1)

	resp, _ = s.do(t, "POST", "/api/admin/onboarding-progress", adminToken, `{"stage_id":1}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDeleteUserReportsFailedStep(t *testing.T) {
	s := newServer(t)
	_, adminToken := s.user(t, "admin@example.com", models.RoleAdmin)
	sellerID, _ := s.user(t, "seller@example.com", models.RoleSeller)
	s.store.Notes = failingNotes{s.store.Notes}

	resp, body := s.do(t, "DELETE", "/api/admin/users/"+sellerID.String(), adminToken, "")
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, services.StepProfileNotes, body["failed_step"])
	assert.Equal(t, []interface{}{services.StepAnalyticsEvents, services.StepOnboardingProgress}, body["completed_steps"])

	_, err := s.store.Profiles.Get(context.Background(), sellerID)
	assert.NoError(t, err, "profile survives a failure at the notes step")

	resp, _ = s.do(t, "DELETE", "/api/admin/users/not-a-uuid", adminToken, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp, _ = s.do(t, "DELETE", "/api/admin/users/"+uuid.NewString(), adminToken, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDeleteUser(t *testing.T) {
	s := newServer(t)
	_, adminToken := s.user(t, "admin@example.com", models.RoleAdmin)
	sellerID, _ := s.user(t, "seller@example.com", models.RoleSeller)

	resp, body := s.do(t, "DELETE", "/api/admin/users/"+sellerID.String(), adminToken, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["completed_steps"], 5)

	_, err := s.store.Identities.GetByID(context.Background(), sellerID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProfileNotes(t *testing.T) {
	s := newServer(t)
	_, adminToken := s.user(t, "admin@example.com", models.RoleAdmin)
	sellerID, _ := s.user(t, "seller@example.com", models.RoleSeller)
	query := "/api/admin/profile-notes?profile_uuid=" + sellerID.String()

	resp, body := s.do(t, "GET", query, adminToken, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "note")
	assert.Nil(t, body["note"])

	resp, _ = s.do(t, "POST", "/api/admin/profile-notes", adminToken, `{"profile_uuid":"`+sellerID.String()+`","note":"vip"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, body = s.do(t, "GET", query, adminToken, "")
	assert.Equal(t, "vip", body["note"].(map[string]interface{})["note"])
}

func TestStagesNext(t *testing.T) {
	s := newServer(t)
	_, adminToken := s.user(t, "admin@example.com", models.RoleAdmin)

	resp, body := s.do(t, "GET", "/api/admin/stages/next?role=seller&current_stage_id=1", adminToken, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["stages"], 1)

	resp, _ = s.do(t, "GET", "/api/admin/stages/next?role=buyer&current_stage_id=1", adminToken, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = s.do(t, "GET", "/api/admin/stages/next?role=seller&current_stage_id=9", adminToken, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = s.do(t, "GET", "/api/admin/stages/next?role=seller", adminToken, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestFlowsDuplicateCreate(t *testing.T) {
	s := newServer(t)
	_, adminToken := s.user(t, "admin@example.com", models.RoleAdmin)

	resp, _ := s.do(t, "POST", "/api/admin/flows", adminToken, `{"flow_name":"seller_company","template":"basic_profile"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp, _ = s.do(t, "POST", "/api/admin/flows", adminToken, `{"flow_name":"seller_company"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, body := s.do(t, "GET", "/api/admin/flows", adminToken, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{"seller_company"}, body["flows"])

	resp, _ = s.do(t, "DELETE", "/api/admin/flows?flow_name=seller_company", adminToken, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = s.do(t, "DELETE", "/api/admin/flows", adminToken, `{"flow_name":"seller_company"}`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSelfServiceOnboarding(t *testing.T) {
	s := newServer(t)
	_, token := s.user(t, "seller@example.com", models.RoleSeller)

	resp, body := s.do(t, "GET", "/api/onboarding/current", token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Nil(t, body["current_stage"])

	resp, body = s.do(t, "POST", "/api/onboarding/start", token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["current_stage"].(map[string]interface{})["stage_id"])

	resp, body = s.do(t, "PUT", "/api/onboarding/stages/1/answers", token, `{"answers":{"company_name":"Acme"}}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["progress"].(map[string]interface{})["data"].(map[string]interface{})
	assert.Equal(t, "Acme", data["company_name"])

	resp, _ = s.do(t, "PUT", "/api/onboarding/stages/abc/status", token, `{"status":"completed"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, "POST", "/api/onboarding/advance", token, `{"next_stage_id":2}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["current_stage"].(map[string]interface{})["stage_id"])

	resp, body = s.do(t, "GET", "/api/onboarding/next", token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, body["stages"])

	resp, _ = s.do(t, "GET", "/api/onboarding/progress", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestPagesRedirectByRole(t *testing.T) {
	s := newServer(t)
	_, sellerToken := s.user(t, "seller@example.com", models.RoleSeller)
	_, adminToken := s.user(t, "admin@example.com", models.RoleAdmin)

	tests := []struct {
		path  string
		token string
		code  int
		to    string
	}{
		{"/", "", fiber.StatusFound, "/login"},
		{"/admin", "", fiber.StatusFound, "/login"},
		{"/admin/users", sellerToken, fiber.StatusFound, "/onboarding"},
		{"/admin", adminToken, fiber.StatusOK, ""},
		{"/onboarding", adminToken, fiber.StatusFound, "/admin"},
		{"/onboarding/stage/1", sellerToken, fiber.StatusOK, ""},
		{"/", sellerToken, fiber.StatusFound, "/onboarding"},
		{"/", adminToken, fiber.StatusFound, "/admin"},
		{"/login", "", fiber.StatusOK, ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		if tt.token != "" {
			req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.token})
		}
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, tt.code, resp.StatusCode, tt.path)
		assert.Equal(t, tt.to, resp.Header.Get("Location"), tt.path)
	}
}

func TestSignupSetsSessionCookie(t *testing.T) {
	s := newServer(t)
	resp, body := s.do(t, "POST", "/api/auth/signup", "", `{"email":"new@example.com","password":"password123","role":"buyer"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["access_token"])

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == "access_token" {
			found = true
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found)

	resp, _ = s.do(t, "GET", "/api/me", body["access_token"].(string), "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)
	resp, body := s.do(t, "GET", "/api/health", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "disabled", body["db"])
	assert.Equal(t, config.StorageModeMemory, body["storage"])

	resp, _ = s.do(t, "GET", "/metrics", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
