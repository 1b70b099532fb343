package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/condozap/zap-cobranca-go/internal/domain"
	"github.com/condozap/zap-cobranca-go/internal/infra/observability"
	"github.com/condozap/zap-cobranca-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("billing")

const (
	defaultBoletosPath     = "/v1/boletos"
	defaultDNSCheckTimeout = 3 * time.Second
	emailRequestTimeout    = 10 * time.Second
	maxErrorBody           = 256
)

// Host fixo de cada módulo da API pública.
var moduleHosts = map[string]string{
	domain.ModuleCondominios:  "https://apicondominios.superlogica.com",
	domain.ModuleImobiliarias: "https://apiimobiliarias.superlogica.com",
	domain.ModuleAssinaturas:  "https://apiassinaturas.superlogica.com",
}

// Rotas candidatas do disparo de 2ª via por e-mail no portal: a rota
// nova de "areadocliente" e a antiga "condor/atual".
var DefaultEmailPaths = []string{
	"/clients/areadocliente/publico/cobranca/emailcobrancasemaberto",
	"/condor/atual/publico/emailcobrancasemaberto",
}

// Alguns tenants esperam "documento" ou "cpf_cnpj" no lugar de "cpf".
var emailParamNames = []string{"cpf", "documento", "cpf_cnpj"}

// Options são os overrides de configuração da consulta.
type Options struct {
	// BaseURLOverride substitui o host por módulo quando definido.
	BaseURLOverride string
	BoletosPath     string
	// PortalHostOverride substitui o host {license}.superlogica.net do
	// portal. Aceita host puro ou URL com esquema.
	PortalHostOverride string
	EmailPaths         []string
	// DefaultModule é usado quando o tenant não informa módulo.
	DefaultModule   string
	DNSCheckTimeout time.Duration
	// EmailOnEmpty dispara o fallback de e-mail mesmo quando a API
	// responde com lista vazia ("envia de qualquer jeito").
	EmailOnEmpty bool
}

type hostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Superlogica implementa port.BoletoFetcher.
type Superlogica struct {
	httpClient *http.Client
	opts       Options
	cb         *gobreaker.CircuitBreaker
	rcfg       resilience.Config
	resolver   hostResolver
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewSuperlogica creates the billing retrieval client.
func NewSuperlogica(httpClient *http.Client, opts Options, cb *gobreaker.CircuitBreaker, rcfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *Superlogica {
	if opts.BoletosPath == "" {
		opts.BoletosPath = defaultBoletosPath
	}
	if len(opts.EmailPaths) == 0 {
		opts.EmailPaths = DefaultEmailPaths
	}
	if opts.DefaultModule == "" {
		opts.DefaultModule = domain.ModuleAssinaturas
	}
	if opts.DNSCheckTimeout <= 0 {
		opts.DNSCheckTimeout = defaultDNSCheckTimeout
	}
	return &Superlogica{
		httpClient: httpClient,
		opts:       opts,
		cb:         cb,
		rcfg:       rcfg,
		resolver:   net.DefaultResolver,
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchOpenInvoices consulta os boletos em aberto de um CPF. Nunca usa
// erro para sinalizar o caminho alternativo de e-mail: o desfecho vem
// tagueado em Result. Um erro retornado significa que nada pôde ser
// tentado (configuração) ou que nada funcionou sem fallback disponível.
func (s *Superlogica) FetchOpenInvoices(ctx context.Context, creds Credentials, cpf string) (Result, error) {
	ctx, span := tracer.Start(ctx, "Superlogica.FetchOpenInvoices")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.module", creds.Module))

	// Tenant sem credenciais de API = integração somente por e-mail.
	if creds.AppToken == "" || creds.AccessToken == "" {
		s.logger.Info("superlogica: tenant sem credenciais de API, indo direto ao fallback de e-mail")
		return s.emailFallback(ctx, creds, cpf, &domain.ErrInvalidConfig{
			Field:   "app_token/access_token",
			Message: "tenant sem credenciais de API",
		})
	}

	boletos, apiErr := s.fetchFromAPI(ctx, creds, cpf)
	if apiErr == nil {
		if len(boletos) == 0 && s.opts.EmailOnEmpty {
			if err := s.tryEmailSecondCopy(ctx, creds, cpf); err == nil {
				s.metrics.IncrEmailFallback("sent_on_empty")
				return Result{Outcome: OutcomeEmailSent}, nil
			}
		}
		return Result{Outcome: OutcomeInvoices, Boletos: boletos}, nil
	}

	s.metrics.IncrProviderError(classifyError(apiErr))
	s.logger.Warn("superlogica: consulta falhou, tentando fallback por e-mail",
		zap.String("module", creds.Module),
		zap.Error(apiErr),
	)
	return s.emailFallback(ctx, creds, cpf, apiErr)
}

// PortalLink monta o link público do Portal do Cliente para 2ª via
// ("" quando o tenant não tem license nem há override de host).
func (s *Superlogica) PortalLink(license string) string {
	base := s.portalBase(license)
	if base == "" {
		return ""
	}
	return base + "/clients/areadocliente/publico/cobranca"
}

// --- API pública ---

func (s *Superlogica) fetchFromAPI(ctx context.Context, creds Credentials, cpf string) ([]domain.Boleto, error) {
	base := s.baseURL(creds.Module)
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, &domain.ErrInvalidConfig{Field: "base_url", Message: err.Error()}
	}

	// Checa resolução de nome antes da requisição: um host errado vira
	// um diagnóstico acionável em vez de um erro genérico de transporte.
	dnsCtx, cancel := context.WithTimeout(ctx, s.opts.DNSCheckTimeout)
	defer cancel()
	if _, err := s.resolver.LookupHost(dnsCtx, parsed.Hostname()); err != nil {
		return nil, &domain.ErrDNSUnreachable{Host: parsed.Hostname(), Err: err}
	}

	query := url.Values{}
	query.Set("cpf", cpf)
	query.Set("status", "em_aberto")
	// Módulo de condomínios exige condominio_id; "NULL" é placeholder.
	if id := creds.CondominioID; id != "" && !strings.EqualFold(id, "NULL") {
		query.Set("condominio_id", id)
	}

	reqURL := base + s.opts.BoletosPath + "?" + query.Encode()
	s.logger.Debug("superlogica: GET", zap.String("url", base+s.opts.BoletosPath))

	var boletos []domain.Boleto
	_, err = s.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, s.rcfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return err
			}
			req.Header.Set("app_token", creds.AppToken)
			req.Header.Set("access_token", creds.AccessToken)
			req.Header.Set("Content-Type", "application/json")

			resp, err := s.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return &domain.ErrProviderHTTP{Status: resp.StatusCode, Body: truncate(string(body))}
			}
			// HTML no lugar de JSON indica rota errada, não dados.
			if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "text/html") {
				return &domain.ErrProviderHTTP{Status: resp.StatusCode, Body: "resposta HTML (rota incorreta?)"}
			}

			var decoded any
			if err := json.Unmarshal(body, &decoded); err != nil {
				return &domain.ErrProviderHTTP{Status: resp.StatusCode, Body: "corpo não decodificável: " + truncate(string(body))}
			}
			boletos = NormalizeBoletos(decoded)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return boletos, nil
}

// --- Fallback por e-mail ---

func (s *Superlogica) emailFallback(ctx context.Context, creds Credentials, cpf string, apiErr error) (Result, error) {
	if s.portalBase(creds.License) == "" {
		// Sem license e sem override não há portal para acionar.
		s.logger.Warn("superlogica: fallback de e-mail indisponível (sem license)",
			zap.Error(apiErr),
		)
		return Result{}, &domain.ErrInvalidConfig{Field: "license", Message: "tenant sem license para o portal"}
	}

	if err := s.tryEmailSecondCopy(ctx, creds, cpf); err != nil {
		s.metrics.IncrEmailFallback("failed")
		s.logger.Error("superlogica: API e fallback de e-mail falharam",
			zap.NamedError("api_error", apiErr),
			zap.NamedError("email_error", err),
		)
		return Result{Outcome: OutcomeEmailFailed}, nil
	}

	s.metrics.IncrEmailFallback("sent")
	return Result{Outcome: OutcomeEmailSent}, nil
}

// tryEmailSecondCopy tenta o disparo público de 2ª via testando cada
// rota candidata com cada variação de nome de parâmetro. Qualquer 2xx
// vale como "e-mail enviado".
func (s *Superlogica) tryEmailSecondCopy(ctx context.Context, creds Credentials, cpf string) error {
	ctx, span := tracer.Start(ctx, "Superlogica.tryEmailSecondCopy")
	defer span.End()

	base := s.portalBase(creds.License)
	var lastErr error

	for _, p := range s.opts.EmailPaths {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		for _, param := range emailParamNames {
			reqURL := base + p + "?" + url.Values{param: {cpf}}.Encode()
			s.logger.Debug("superlogica: e-mail 2ª via GET",
				zap.String("path", p),
				zap.String("param", param),
			)

			reqCtx, cancel := context.WithTimeout(ctx, emailRequestTimeout)
			req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
			if err != nil {
				cancel()
				lastErr = err
				continue
			}
			resp, err := s.httpClient.Do(req)
			cancel()
			if err != nil {
				lastErr = err
				continue
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			lastErr = &domain.ErrProviderHTTP{Status: resp.StatusCode, Body: "portal " + p}
		}
	}
	if lastErr == nil {
		lastErr = errors.New("nenhuma rota de e-mail configurada")
	}
	return fmt.Errorf("nenhum endpoint de e-mail respondeu 2xx: %w", lastErr)
}

// --- Resolução de hosts ---

func (s *Superlogica) baseURL(module string) string {
	if s.opts.BaseURLOverride != "" {
		return strings.TrimRight(s.opts.BaseURLOverride, "/")
	}
	if module == "" {
		module = s.opts.DefaultModule
	}
	if host, ok := moduleHosts[strings.ToLower(module)]; ok {
		return host
	}
	return moduleHosts[domain.ModuleAssinaturas]
}

func (s *Superlogica) portalBase(license string) string {
	if h := s.opts.PortalHostOverride; h != "" {
		if strings.Contains(h, "://") {
			return strings.TrimRight(h, "/")
		}
		return "https://" + strings.TrimRight(h, "/")
	}
	if license == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.superlogica.net", license)
}

func classifyError(err error) string {
	var dns *domain.ErrDNSUnreachable
	var httpErr *domain.ErrProviderHTTP
	switch {
	case errors.As(err, &dns):
		return "dns"
	case errors.As(err, &httpErr):
		return "http"
	default:
		return "transport"
	}
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
