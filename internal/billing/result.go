// Package billing implementa a consulta de boletos na Superlógica com
// fallback de 2ª via por e-mail.
//
// A disponibilidade da API pública varia por tenant/módulo — alguns
// tenants só têm a integração por e-mail. A estratégia tenta, nesta
// ordem:
//
//  1. resolver o host da API pelo módulo do tenant (ou override)
//  2. checar DNS antes da requisição, para diagnóstico claro
//  3. consultar boletos em aberto autenticado por CPF
//  4. em falha de API (ou tenant sem credenciais), disparar o envio de
//     2ª via por e-mail pelo portal público do tenant
//
// O desfecho é um tipo soma (Result) em vez de exceção-como-controle:
// "e-mail enviado" é um caminho alternativo de sucesso, não um erro.
package billing

import "github.com/condozap/zap-cobranca-go/internal/domain"

// Outcome discrimina o desfecho de uma consulta.
type Outcome int

const (
	// OutcomeInvoices: a API respondeu; Boletos carrega a lista
	// normalizada (possivelmente vazia).
	OutcomeInvoices Outcome = iota

	// OutcomeEmailSent: a API falhou (ou não está configurada) mas o
	// portal aceitou o disparo de 2ª via por e-mail.
	OutcomeEmailSent

	// OutcomeEmailFailed: API e fallback de e-mail falharam.
	OutcomeEmailFailed
)

// Result é o desfecho tagueado de FetchOpenInvoices.
type Result struct {
	Outcome Outcome
	Boletos []domain.Boleto
}

// Credentials são as credenciais de um tenant na Superlógica,
// extraídas do Tenant persistido.
type Credentials struct {
	Module       string
	AppToken     string
	AccessToken  string
	CondominioID string
	License      string
}

// CredentialsFromTenant projeta as credenciais de consulta de um Tenant.
func CredentialsFromTenant(t *domain.Tenant) Credentials {
	return Credentials{
		Module:       t.Module,
		AppToken:     t.AppToken,
		AccessToken:  t.AccessToken,
		CondominioID: t.CondominioID,
		License:      t.License,
	}
}
