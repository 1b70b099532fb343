package domain

import "time"

// AdminUser é um operador da API administrativa.
type AdminUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AdminLoginRequest é o body do POST /v1/admin/login.
type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminLoginResponse carrega o token de acesso da API admin.
type AdminLoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Name        string `json:"name"`
}

// CreateTenantRequest é o body do POST /v1/admin/tenants.
type CreateTenantRequest struct {
	UserID       string `json:"user_id"`
	Nome         string `json:"nome"`
	Module       string `json:"superlogica_base"`
	AppToken     string `json:"app_token"`
	AccessToken  string `json:"access_token"`
	CondominioID string `json:"condominio_id,omitempty"`
	License      string `json:"license,omitempty"`
}

// CreateWASessionRequest é o body do POST /v1/admin/wa-sessions e do
// POST /v1/admin/assign-default-tenant.
type CreateWASessionRequest struct {
	TenantID    string `json:"tenant_id,omitempty"`
	SessionName string `json:"session_name"`
	PhoneE164   string `json:"phone_e164,omitempty"`
}

// CreateUserRequest é o body do POST /v1/admin/users.
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// DispararRequest é o body do POST /v1/admin/boletos/disparar
// (consulta manual de boletos por tenant + CPF).
type DispararRequest struct {
	TenantID string `json:"tenant_id"`
	CPF      string `json:"cpf"`
}
