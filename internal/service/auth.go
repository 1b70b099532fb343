// Package service implementa os casos de uso da API administrativa:
// autenticação de operadores e provisionamento de users, tenants e
// sessões de WhatsApp.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/condozap/zap-cobranca-go/internal/domain"
	"github.com/condozap/zap-cobranca-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const bcryptCost = 12

// AuthService autentica operadores da API admin e emite tokens JWT.
type AuthService struct {
	store     port.AdminStore
	jwtSecret []byte
	accessTTL time.Duration
	logger    *zap.Logger
}

func NewAuthService(store port.AdminStore, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:     store,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		logger:    logger,
	}
}

// Login valida email+senha e devolve um access token.
func (s *AuthService) Login(ctx context.Context, req *domain.AdminLoginRequest) (*domain.AdminLoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	admin, err := s.store.GetAdminByEmail(ctx, req.Email)
	if err != nil {
		// Não distingue "email não existe" de "senha errada".
		s.logger.Warn("login admin: email desconhecido", zap.String("email", req.Email))
		return nil, &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login admin: senha incorreta", zap.String("email", req.Email))
		return nil, &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
	}

	token, err := s.signAccessToken(admin)
	if err != nil {
		return nil, fmt.Errorf("assinando access token: %w", err)
	}

	s.logger.Info("login admin", zap.String("email", admin.Email))
	return &domain.AdminLoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.accessTTL.Seconds()),
		Name:        admin.Name,
	}, nil
}

// SeedAdmin garante o operador inicial (vindo do ambiente). Idempotente:
// se o email já existe, nada muda.
func (s *AuthService) SeedAdmin(ctx context.Context, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("gerando hash do admin seed: %w", err)
	}
	if _, err := s.store.CreateAdmin(ctx, name, email, string(hash)); err != nil {
		return fmt.Errorf("criando admin seed: %w", err)
	}
	s.logger.Info("admin seed garantido", zap.String("email", email))
	return nil
}

// JWTClaims são as claims dos access tokens da API admin.
type JWTClaims struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// ValidateAccessToken é usado pelo middleware de autenticação.
func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "Tipo de token inválido"}
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(admin *domain.AdminUser) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:  admin.ID,
		Name: admin.Name,
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "zap-cobranca",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
