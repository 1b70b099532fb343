package port

import (
	"context"

	"github.com/condozap/zap-cobranca-go/internal/domain"
)

// AdminStore handles the provisioning side: users, tenants, sessions and
// the operators of the admin API itself.
type AdminStore interface {
	CreateUser(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error)
	CreateTenant(ctx context.Context, req *domain.CreateTenantRequest) (*domain.Tenant, error)
	CreateWASession(ctx context.Context, req *domain.CreateWASessionRequest) (*domain.WASession, error)

	GetAdminByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	CreateAdmin(ctx context.Context, name, email, passwordHash string) (*domain.AdminUser, error)
}
