package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/condozap/zap-cobranca-go/internal/domain"

	"github.com/lib/pq"
)

// AdminStore implementa port.AdminStore (provisionamento via API admin).
type AdminStore struct {
	db *sql.DB
}

func NewAdminStore(db *sql.DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) CreateUser(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email) VALUES ($1, $2)
		 RETURNING id, name, COALESCE(email, ''), created_at`,
		req.Name, nullableString(req.Email))

	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, &domain.ErrConflict{Message: "email já cadastrado"}
		}
		return nil, fmt.Errorf("criando user: %w", err)
	}
	return &u, nil
}

func (s *AdminStore) CreateTenant(ctx context.Context, req *domain.CreateTenantRequest) (*domain.Tenant, error) {
	module := strings.ToLower(strings.TrimSpace(req.Module))
	if module == "" {
		module = domain.ModuleAssinaturas
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO tenants (user_id, nome, superlogica_base, app_token, access_token, condominio_id, license)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, COALESCE(user_id::text, ''), nome, superlogica_base,
		   app_token, access_token, COALESCE(condominio_id, ''), COALESCE(license, ''), created_at`,
		nullableString(req.UserID), req.Nome, module, req.AppToken, req.AccessToken,
		nullableString(req.CondominioID), nullableString(req.License))

	t, err := scanTenant(row)
	if err != nil {
		return nil, fmt.Errorf("criando tenant: %w", err)
	}
	return t, nil
}

func (s *AdminStore) CreateWASession(ctx context.Context, req *domain.CreateWASessionRequest) (*domain.WASession, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO wa_sessions (tenant_id, session_name, phone_e164)
		 VALUES ($1, $2, $3)
		 RETURNING id, COALESCE(tenant_id::text, ''), session_name, COALESCE(phone_e164, ''), is_active, created_at`,
		nullableString(req.TenantID), req.SessionName, nullableString(req.PhoneE164))

	var w domain.WASession
	err := row.Scan(&w.ID, &w.TenantID, &w.SessionName, &w.PhoneE164, &w.IsActive, &w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("criando wa_session: %w", err)
	}
	return &w, nil
}

func (s *AdminStore) GetAdminByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM admin_users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))

	var a domain.AdminUser
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "admin", ID: email}
	}
	if err != nil {
		return nil, fmt.Errorf("consultando admin: %w", err)
	}
	return &a, nil
}

func (s *AdminStore) CreateAdmin(ctx context.Context, name, email, passwordHash string) (*domain.AdminUser, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO admin_users (name, email, password_hash) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING id, name, email, password_hash, created_at`,
		name, strings.ToLower(strings.TrimSpace(email)), passwordHash)

	var a domain.AdminUser
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Já existia: devolve o registro atual (seed idempotente).
		return s.GetAdminByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("criando admin: %w", err)
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
