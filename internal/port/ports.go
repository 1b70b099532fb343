// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the engine and
// services from concrete implementations (Postgres, WPPConnect,
// Superlógica).
package port

import (
	"context"
	"time"

	"github.com/condozap/zap-cobranca-go/internal/billing"
	"github.com/condozap/zap-cobranca-go/internal/domain"
)

// ContactStore persists per-contact conversation state.
type ContactStore interface {
	// GetOrCreate returns the contact, creating it in state MENU on the
	// first inbound message.
	GetOrCreate(ctx context.Context, waID string) (*domain.Contact, error)
	Get(ctx context.Context, waID string) (*domain.Contact, error)
	// SetState updates the state and the human-handoff expiry together
	// (humanUntil must be nil unless state is HUMAN).
	SetState(ctx context.Context, waID string, state domain.ContactState, humanUntil *time.Time) error
	SetCPF(ctx context.Context, waID, cpf string) error
	SetTenant(ctx context.Context, waID, tenantID string) error
}

// TenantStore reads tenant companies and phone-to-tenant defaults.
type TenantStore interface {
	ListAll(ctx context.Context) ([]domain.Tenant, error)
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	// GetDefaultForPhone resolves the default tenant bound to a phone
	// number (E.164) on an active session. Returns nil when unbound.
	GetDefaultForPhone(ctx context.Context, e164, sessionName string) (*domain.Tenant, error)
}

// MessageLog appends audit records of every inbound/outbound message.
// Append is fire-and-forget from the engine's perspective: callers log
// failures but never abort processing because of them.
type MessageLog interface {
	Append(ctx context.Context, direction, waID, text string, meta map[string]string) error
}

// Messenger delivers outbound messages through the WhatsApp gateway.
type Messenger interface {
	SendText(ctx context.Context, session, waID, text string) error
	// SendFile delivers a document by URL (the gateway may re-upload as
	// base64 if the direct URL send fails).
	SendFile(ctx context.Context, session, waID, fileURL, filename, caption string) error
	// SendLinkPreview is best-effort: failures are swallowed by callers.
	SendLinkPreview(ctx context.Context, session, waID, url, title, description string) error
}

// BoletoFetcher runs the multi-strategy billing retrieval (API first,
// then the e-mail fallback) for a tenant's credentials and a normalized CPF.
type BoletoFetcher interface {
	FetchOpenInvoices(ctx context.Context, creds billing.Credentials, cpf string) (billing.Result, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
