package billing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/condozap/zap-cobranca-go/internal/billing"
	"github.com/condozap/zap-cobranca-go/internal/domain"
	"github.com/condozap/zap-cobranca-go/internal/infra/observability"
	"github.com/condozap/zap-cobranca-go/internal/infra/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newClient(t *testing.T, opts billing.Options) *billing.Superlogica {
	t.Helper()
	return billing.NewSuperlogica(
		&http.Client{Timeout: 5 * time.Second},
		opts,
		resilience.NewCircuitBreaker("superlogica-test"),
		resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond},
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func creds() billing.Credentials {
	return billing.Credentials{
		Module:      domain.ModuleCondominios,
		AppToken:    "app-tok",
		AccessToken: "acc-tok",
		License:     "minhaempresa",
	}
}

func TestFetchOpenInvoices_Success(t *testing.T) {
	var gotQuery, gotAppToken string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAppToken = r.Header.Get("app_token")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": "1", "descricao": "Taxa", "valor": "50.00", "url_pdf": "https://x/1.pdf"}]`))
	}))
	defer api.Close()

	c := creds()
	c.CondominioID = "42"
	sl := newClient(t, billing.Options{BaseURLOverride: api.URL})

	res, err := sl.FetchOpenInvoices(context.Background(), c, "11144477735")
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeInvoices, res.Outcome)
	require.Len(t, res.Boletos, 1)
	assert.Equal(t, 50.0, res.Boletos[0].Valor)

	assert.Equal(t, "app-tok", gotAppToken)
	assert.Contains(t, gotQuery, "cpf=11144477735")
	assert.Contains(t, gotQuery, "status=em_aberto")
	assert.Contains(t, gotQuery, "condominio_id=42")
}

func TestFetchOpenInvoices_NullCondominioIDOmitted(t *testing.T) {
	var gotQuery string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer api.Close()

	c := creds()
	c.CondominioID = "NULL"
	sl := newClient(t, billing.Options{BaseURLOverride: api.URL})

	res, err := sl.FetchOpenInvoices(context.Background(), c, "11144477735")
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeInvoices, res.Outcome)
	assert.Empty(t, res.Boletos)
	assert.NotContains(t, gotQuery, "condominio_id")
}

func TestFetchOpenInvoices_APIErrorFallsBackToEmail(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer api.Close()

	var portalHits int32
	var gotCPFParam string
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&portalHits, 1)
		gotCPFParam = r.URL.Query().Get("cpf")
		w.WriteHeader(http.StatusOK)
	}))
	defer portal.Close()

	sl := newClient(t, billing.Options{
		BaseURLOverride:    api.URL,
		PortalHostOverride: portal.URL,
	})

	res, err := sl.FetchOpenInvoices(context.Background(), creds(), "11144477735")
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeEmailSent, res.Outcome)
	assert.Equal(t, int32(1), atomic.LoadInt32(&portalHits))
	assert.Equal(t, "11144477735", gotCPFParam)
}

func TestFetchOpenInvoices_HTMLResponseIsAPIFailure(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body>login</body></html>`))
	}))
	defer api.Close()

	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer portal.Close()

	sl := newClient(t, billing.Options{
		BaseURLOverride:    api.URL,
		PortalHostOverride: portal.URL,
	})

	res, err := sl.FetchOpenInvoices(context.Background(), creds(), "11144477735")
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeEmailSent, res.Outcome)
}

func TestFetchOpenInvoices_EmailParamVariants(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer api.Close()

	// O portal só aceita "documento": as variantes "cpf" falham antes.
	var attempts []string
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		for _, param := range []string{"cpf", "documento", "cpf_cnpj"} {
			if q.Get(param) != "" {
				attempts = append(attempts, param)
				if param == "documento" {
					w.WriteHeader(http.StatusOK)
					return
				}
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer portal.Close()

	sl := newClient(t, billing.Options{
		BaseURLOverride:    api.URL,
		PortalHostOverride: portal.URL,
	})

	res, err := sl.FetchOpenInvoices(context.Background(), creds(), "11144477735")
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeEmailSent, res.Outcome)
	assert.Equal(t, []string{"cpf", "documento"}, attempts)
}

func TestFetchOpenInvoices_BothFail(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer api.Close()

	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer portal.Close()

	sl := newClient(t, billing.Options{
		BaseURLOverride:    api.URL,
		PortalHostOverride: portal.URL,
	})

	res, err := sl.FetchOpenInvoices(context.Background(), creds(), "11144477735")
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeEmailFailed, res.Outcome)
}

func TestFetchOpenInvoices_NoLicenseNoFallback(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer api.Close()

	c := creds()
	c.License = ""
	sl := newClient(t, billing.Options{BaseURLOverride: api.URL})

	_, err := sl.FetchOpenInvoices(context.Background(), c, "11144477735")
	require.Error(t, err)
	var cfgErr *domain.ErrInvalidConfig
	assert.ErrorAs(t, err, &cfgErr)
}

func TestFetchOpenInvoices_EmailOnlyTenant(t *testing.T) {
	// Sem app/access token a API nem é tentada.
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer portal.Close()

	c := creds()
	c.AppToken = ""
	sl := newClient(t, billing.Options{PortalHostOverride: portal.URL})

	res, err := sl.FetchOpenInvoices(context.Background(), c, "11144477735")
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeEmailSent, res.Outcome)
}

func TestFetchOpenInvoices_EmailOnEmptyPolicy(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer api.Close()

	var portalHits int32
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&portalHits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer portal.Close()

	sl := newClient(t, billing.Options{
		BaseURLOverride:    api.URL,
		PortalHostOverride: portal.URL,
		EmailOnEmpty:       true,
	})

	res, err := sl.FetchOpenInvoices(context.Background(), creds(), "11144477735")
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeEmailSent, res.Outcome)
	assert.Equal(t, int32(1), atomic.LoadInt32(&portalHits))
}

func TestFetchOpenInvoices_DNSUnreachable(t *testing.T) {
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer portal.Close()

	// ".invalid" nunca resolve (RFC 2606); o pré-check de DNS falha e o
	// fallback de e-mail assume.
	sl := newClient(t, billing.Options{
		BaseURLOverride:    "http://api.superlogica.invalid",
		PortalHostOverride: portal.URL,
		DNSCheckTimeout:    2 * time.Second,
	})

	res, err := sl.FetchOpenInvoices(context.Background(), creds(), "11144477735")
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeEmailSent, res.Outcome)
}

func TestPortalLink(t *testing.T) {
	sl := newClient(t, billing.Options{})
	assert.Equal(t,
		"https://minhaempresa.superlogica.net/clients/areadocliente/publico/cobranca",
		sl.PortalLink("minhaempresa"))
	assert.Equal(t, "", sl.PortalLink(""))

	sl = newClient(t, billing.Options{PortalHostOverride: "portal.example.com"})
	assert.Equal(t,
		"https://portal.example.com/clients/areadocliente/publico/cobranca",
		sl.PortalLink(""))
}
