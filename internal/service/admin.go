package service

import (
	"context"
	"fmt"

	"github.com/condozap/zap-cobranca-go/internal/billing"
	"github.com/condozap/zap-cobranca-go/internal/domain"
	"github.com/condozap/zap-cobranca-go/internal/port"
	"github.com/condozap/zap-cobranca-go/internal/validator"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var adminTracer = otel.Tracer("service/admin")

// AdminService concentra o provisionamento (users, tenants, sessões) e
// o disparo manual de consulta de boletos.
type AdminService struct {
	store   port.AdminStore
	tenants port.TenantStore
	boletos port.BoletoFetcher
	logger  *zap.Logger
}

func NewAdminService(store port.AdminStore, tenants port.TenantStore, boletos port.BoletoFetcher, logger *zap.Logger) *AdminService {
	return &AdminService{
		store:   store,
		tenants: tenants,
		boletos: boletos,
		logger:  logger,
	}
}

func (s *AdminService) CreateUser(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.CreateUser")
	defer span.End()

	if req.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name é obrigatório"}
	}
	return s.store.CreateUser(ctx, req)
}

func (s *AdminService) CreateTenant(ctx context.Context, req *domain.CreateTenantRequest) (*domain.Tenant, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.CreateTenant")
	defer span.End()

	switch {
	case req.Nome == "":
		return nil, &domain.ErrValidation{Field: "nome", Message: "nome é obrigatório"}
	case req.UserID == "":
		return nil, &domain.ErrValidation{Field: "user_id", Message: "user_id é obrigatório"}
	}
	// Tenant sem app/access token é válido: integração só por e-mail.
	// Nesse caso a license vira obrigatória, senão nenhuma estratégia
	// de consulta funciona.
	if (req.AppToken == "" || req.AccessToken == "") && req.License == "" {
		return nil, &domain.ErrValidation{
			Field:   "license",
			Message: "tenant sem app_token/access_token precisa de license para o fallback de e-mail",
		}
	}

	t, err := s.store.CreateTenant(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("tenant criado",
		zap.String("tenant_id", t.ID),
		zap.String("nome", t.Nome),
		zap.String("module", t.Module),
	)
	return t, nil
}

func (s *AdminService) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	return s.tenants.ListAll(ctx)
}

func (s *AdminService) CreateWASession(ctx context.Context, req *domain.CreateWASessionRequest) (*domain.WASession, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.CreateWASession")
	defer span.End()

	if req.SessionName == "" {
		return nil, &domain.ErrValidation{Field: "session_name", Message: "session_name é obrigatório"}
	}
	return s.store.CreateWASession(ctx, req)
}

// AssignDefaultTenant vincula um telefone E.164 a um tenant padrão em
// uma sessão. O vínculo é um registro de wa_sessions, como no cadastro.
func (s *AdminService) AssignDefaultTenant(ctx context.Context, req *domain.CreateWASessionRequest) (*domain.WASession, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.AssignDefaultTenant")
	defer span.End()

	switch {
	case req.PhoneE164 == "":
		return nil, &domain.ErrValidation{Field: "phone_e164", Message: "phone_e164 é obrigatório"}
	case req.TenantID == "":
		return nil, &domain.ErrValidation{Field: "tenant_id", Message: "tenant_id é obrigatório"}
	case req.SessionName == "":
		return nil, &domain.ErrValidation{Field: "session_name", Message: "session_name é obrigatório"}
	}

	if _, err := s.tenants.GetByID(ctx, req.TenantID); err != nil {
		return nil, err
	}
	return s.store.CreateWASession(ctx, req)
}

// DispararResult é a resposta do disparo manual de consulta.
type DispararResult struct {
	OK      bool            `json:"ok"`
	Total   int             `json:"total"`
	Boletos []domain.Boleto `json:"boletos"`
	Emailed bool            `json:"emailed,omitempty"`
}

// Disparar roda a consulta de boletos de um tenant+CPF sem passar pela
// conversa, para testes e cobranças ativas do operador.
func (s *AdminService) Disparar(ctx context.Context, req *domain.DispararRequest) (*DispararResult, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.Disparar")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", req.TenantID))

	cpf := validator.OnlyDigits(req.CPF)
	switch {
	case req.TenantID == "":
		return nil, &domain.ErrValidation{Field: "tenant_id", Message: "tenant_id é obrigatório"}
	case !validator.ValidCPF(cpf):
		return nil, &domain.ErrValidation{Field: "cpf", Message: "CPF inválido"}
	}

	tenant, err := s.tenants.GetByID(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	result, err := s.boletos.FetchOpenInvoices(ctx, billing.CredentialsFromTenant(tenant), cpf)
	if err != nil {
		return nil, fmt.Errorf("consultando boletos: %w", err)
	}

	switch result.Outcome {
	case billing.OutcomeEmailSent:
		return &DispararResult{OK: true, Emailed: true, Boletos: []domain.Boleto{}}, nil
	case billing.OutcomeEmailFailed:
		return nil, &domain.ErrEmailFallbackFailed{APIErr: fmt.Errorf("tenant %s", req.TenantID)}
	default:
		boletos := result.Boletos
		if boletos == nil {
			boletos = []domain.Boleto{}
		}
		return &DispararResult{OK: true, Total: len(boletos), Boletos: boletos}, nil
	}
}
