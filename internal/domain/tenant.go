package domain

import "time"

// Módulos Superlógica conhecidos. Cada módulo tem um host de API próprio.
const (
	ModuleCondominios  = "condominios"
	ModuleImobiliarias = "imobiliarias"
	ModuleAssinaturas  = "assinaturas"
)

// Tenant é uma empresa cliente (condomínio, imobiliária ou assinante)
// com as credenciais dela na Superlógica. Do ponto de vista do bot o
// tenant é somente-leitura: criação e edição acontecem pela API admin.
type Tenant struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Nome   string `json:"nome"`

	// Module seleciona o host da API pública ("condominios",
	// "imobiliarias" ou "assinaturas").
	Module string `json:"superlogica_base"`

	AppToken    string `json:"app_token"`
	AccessToken string `json:"access_token"`

	// CondominioID só faz sentido no módulo de condomínios. O valor
	// literal "NULL" é um placeholder histórico e vale como ausente.
	CondominioID string `json:"condominio_id,omitempty"`

	// License é o subdomínio do portal do cliente (ex.: "minhaempresa"
	// → minhaempresa.superlogica.net). Usado pelo fallback de e-mail.
	License string `json:"license,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// WASession registra uma sessão de WhatsApp e, opcionalmente, o vínculo
// padrão telefone→tenant usado quando o contato nunca escolheu empresa.
type WASession struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id,omitempty"`
	SessionName string    `json:"session_name"`
	PhoneE164   string    `json:"phone_e164,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// User é o dono administrativo de um ou mais tenants.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
