package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/condozap/zap-cobranca-go/internal/billing"
	"github.com/condozap/zap-cobranca-go/internal/domain"
	"github.com/condozap/zap-cobranca-go/internal/engine"
	"github.com/condozap/zap-cobranca-go/internal/handler"
	"github.com/condozap/zap-cobranca-go/internal/infra/cache"
	"github.com/condozap/zap-cobranca-go/internal/infra/observability"
	"github.com/condozap/zap-cobranca-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// --- fakes mínimos para montar o router de verdade ---

type memAdminStore struct {
	mu      sync.Mutex
	admins  map[string]*domain.AdminUser
	tenants []domain.Tenant
}

func newMemAdminStore() *memAdminStore {
	return &memAdminStore{admins: make(map[string]*domain.AdminUser)}
}

func (m *memAdminStore) CreateUser(_ context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	return &domain.User{ID: "u-1", Name: req.Name, Email: req.Email}, nil
}

func (m *memAdminStore) CreateTenant(_ context.Context, req *domain.CreateTenantRequest) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := domain.Tenant{ID: "t-1", UserID: req.UserID, Nome: req.Nome, Module: req.Module, License: req.License}
	m.tenants = append(m.tenants, t)
	return &t, nil
}

func (m *memAdminStore) CreateWASession(_ context.Context, req *domain.CreateWASessionRequest) (*domain.WASession, error) {
	return &domain.WASession{ID: "w-1", SessionName: req.SessionName, IsActive: true}, nil
}

func (m *memAdminStore) GetAdminByEmail(_ context.Context, email string) (*domain.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[email]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "admin", ID: email}
	}
	return a, nil
}

func (m *memAdminStore) CreateAdmin(_ context.Context, name, email, hash string) (*domain.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &domain.AdminUser{ID: "a-1", Name: name, Email: email, PasswordHash: hash}
	m.admins[email] = a
	return a, nil
}

func (m *memAdminStore) ListAll(context.Context) ([]domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Tenant(nil), m.tenants...), nil
}

func (m *memAdminStore) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tenants {
		if m.tenants[i].ID == id {
			return &m.tenants[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "tenant", ID: id}
}

func (m *memAdminStore) GetDefaultForPhone(context.Context, string, string) (*domain.Tenant, error) {
	return nil, nil
}

type nullContacts struct{}

func (nullContacts) GetOrCreate(_ context.Context, waID string) (*domain.Contact, error) {
	return &domain.Contact{WaID: waID, State: domain.StateMenu}, nil
}
func (nullContacts) Get(context.Context, string) (*domain.Contact, error) { return nil, nil }
func (nullContacts) SetState(context.Context, string, domain.ContactState, *time.Time) error {
	return nil
}
func (nullContacts) SetCPF(context.Context, string, string) error    { return nil }
func (nullContacts) SetTenant(context.Context, string, string) error { return nil }

type nullLog struct{}

func (nullLog) Append(context.Context, string, string, string, map[string]string) error { return nil }

type countingMessenger struct {
	mu    sync.Mutex
	sends int
}

func (m *countingMessenger) SendText(context.Context, string, string, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends++
	return nil
}

func (m *countingMessenger) SendFile(context.Context, string, string, string, string, string) error {
	return nil
}

func (m *countingMessenger) SendLinkPreview(context.Context, string, string, string, string, string) error {
	return nil
}

func (m *countingMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends
}

type nullFetcher struct{}

func (nullFetcher) FetchOpenInvoices(context.Context, billing.Credentials, string) (billing.Result, error) {
	return billing.Result{Outcome: billing.OutcomeInvoices}, nil
}

type nullPortal struct{}

func (nullPortal) PortalLink(string) string { return "" }

type testRig struct {
	router     http.Handler
	store      *memAdminStore
	messenger  *countingMessenger
	dispatcher *engine.Dispatcher
}

func newRig(t *testing.T) *testRig {
	t.Helper()
	store := newMemAdminStore()

	hash, err := bcrypt.GenerateFromPassword([]byte("senha-admin"), bcrypt.MinCost)
	require.NoError(t, err)
	store.admins["op@condozap.com.br"] = &domain.AdminUser{
		ID: "a-1", Name: "Operadora", Email: "op@condozap.com.br", PasswordHash: string(hash),
	}

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	authSvc := service.NewAuthService(store, "segredo", time.Hour, logger)
	adminSvc := service.NewAdminService(store, store, nullFetcher{}, logger)

	messenger := &countingMessenger{}
	eng := engine.New(engine.Deps{
		Contacts:    nullContacts{},
		Tenants:     store,
		Log:         nullLog{},
		Messenger:   messenger,
		Boletos:     nullFetcher{},
		Portal:      nullPortal{},
		TenantCache: cache.New[*domain.Tenant](time.Minute),
		Metrics:     metrics,
		Logger:      logger,
	})
	dispatcher := engine.NewDispatcher(eng, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = dispatcher.Shutdown(ctx)
	})

	router := handler.NewRouter(handler.Deps{
		Auth:       authSvc,
		Admin:      adminSvc,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	return &testRig{router: router, store: store, messenger: messenger, dispatcher: dispatcher}
}

func (rig *testRig) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, req)
	return rec
}

func (rig *testRig) login(t *testing.T) string {
	t.Helper()
	rec := rig.do(http.MethodPost, "/v1/admin/login", "", domain.AdminLoginRequest{
		Email:    "op@condozap.com.br",
		Password: "senha-admin",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp domain.AdminLoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

// --- operacional ---

func TestHealthz(t *testing.T) {
	rig := newRig(t)
	rec := rig.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReportsFailure(t *testing.T) {
	router := handler.NewRouter(handler.Deps{
		Metrics: observability.NewMetrics(),
		Logger:  zap.NewNop(),
		Ready:   func() error { return errors.New("banco fora") },
	})
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPrometheusEndpoint(t *testing.T) {
	rig := newRig(t)
	rec := rig.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBotMetricsSnapshot(t *testing.T) {
	rig := newRig(t)
	rec := rig.do(http.MethodGet, "/v1/metrics/bot", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "messages_in")
}

// --- autenticação ---

func TestAdminRoutesRequireToken(t *testing.T) {
	rig := newRig(t)

	rec := rig.do(http.MethodPost, "/v1/admin/tenants", "", domain.CreateTenantRequest{Nome: "X"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = rig.do(http.MethodPost, "/v1/admin/tenants", "token-invalido", domain.CreateTenantRequest{Nome: "X"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	rig := newRig(t)
	rec := rig.do(http.MethodPost, "/v1/admin/login", "", domain.AdminLoginRequest{
		Email:    "op@condozap.com.br",
		Password: "errada",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// --- provisionamento ---

func TestProvisioningFlow(t *testing.T) {
	rig := newRig(t)
	token := rig.login(t)

	rec := rig.do(http.MethodPost, "/v1/admin/users", token, domain.CreateUserRequest{Name: "Síndico"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = rig.do(http.MethodPost, "/v1/admin/tenants", token, domain.CreateTenantRequest{
		UserID:      "u-1",
		Nome:        "Condomínio Sol",
		Module:      domain.ModuleCondominios,
		AppToken:    "app",
		AccessToken: "acc",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = rig.do(http.MethodGet, "/v1/admin/tenants", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tenants []domain.Tenant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tenants))
	require.Len(t, tenants, 1)
	assert.Equal(t, "Condomínio Sol", tenants[0].Nome)
}

func TestCreateTenantValidation(t *testing.T) {
	rig := newRig(t)
	token := rig.login(t)

	rec := rig.do(http.MethodPost, "/v1/admin/tenants", token, domain.CreateTenantRequest{
		UserID: "u-1",
		Nome:   "Sem Credenciais",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- webhook ---

func TestWebhookQueuesMessage(t *testing.T) {
	rig := newRig(t)

	rec := rig.do(http.MethodPost, "/v1/webhook/whats-default", "", map[string]any{
		"event": "onmessage",
		"from":  "5511999990000@c.us",
		"body":  "oi",
	})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// O processamento é assíncrono; espera a resposta do bot sair.
	require.Eventually(t, func() bool {
		return rig.messenger.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebhookIgnoresNonChatEvents(t *testing.T) {
	rig := newRig(t)

	cases := []map[string]any{
		{"event": "onack", "from": "5511999990000@c.us", "body": "x"},
		{"event": "onmessage", "from": "5511999990000@c.us", "body": "x", "fromMe": true},
		{"event": "onmessage", "from": "12036304@g.us", "body": "x"},
		{"event": "onmessage", "from": "", "body": "x"},
	}
	for _, payload := range cases {
		rec := rig.do(http.MethodPost, "/v1/webhook/whats-default", "", payload)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "ignored")
	}
	assert.Equal(t, 0, rig.messenger.count())
}
