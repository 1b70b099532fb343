package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/condozap/zap-cobranca-go/internal/domain"
)

// TenantStore implementa port.TenantStore.
type TenantStore struct {
	db *sql.DB
}

func NewTenantStore(db *sql.DB) *TenantStore {
	return &TenantStore{db: db}
}

const tenantColumns = `t.id, COALESCE(t.user_id::text, ''), t.nome, t.superlogica_base,
	t.app_token, t.access_token, COALESCE(t.condominio_id, ''), COALESCE(t.license, ''), t.created_at`

func scanTenant(row interface{ Scan(...any) error }) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(&t.ID, &t.UserID, &t.Nome, &t.Module,
		&t.AppToken, &t.AccessToken, &t.CondominioID, &t.License, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListAll devolve os tenants na ordem de criação. A ordem importa: é a
// numeração que o contato vê no menu de escolha de empresa.
func (s *TenantStore) ListAll(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants t ORDER BY t.created_at, t.id`)
	if err != nil {
		return nil, fmt.Errorf("listando tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("lendo tenant: %w", err)
		}
		tenants = append(tenants, *t)
	}
	return tenants, rows.Err()
}

func (s *TenantStore) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	t, err := scanTenant(s.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants t WHERE t.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "tenant", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("consultando tenant: %w", err)
	}
	return t, nil
}

// GetDefaultForPhone resolve o tenant padrão de um número via
// wa_sessions: primeiro pelo vínculo de telefone, depois pelo nome da
// sessão. Devolve nil (sem erro) quando não há vínculo.
func (s *TenantStore) GetDefaultForPhone(ctx context.Context, e164, sessionName string) (*domain.Tenant, error) {
	t, err := scanTenant(s.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+`
		 FROM wa_sessions w
		 JOIN tenants t ON t.id = w.tenant_id
		 WHERE w.is_active AND (w.phone_e164 = $1 OR w.session_name = $2)
		 ORDER BY (w.phone_e164 = $1) DESC
		 LIMIT 1`, e164, sessionName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolvendo tenant padrão: %w", err)
	}
	return t, nil
}
