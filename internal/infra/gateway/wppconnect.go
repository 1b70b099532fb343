// Package gateway fala com o sidecar wppconnect-server, que mantém as
// sessões de WhatsApp. Cada envio autentica com o bearer token da
// sessão (ver Registry) e passa pelo circuit breaker.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/condozap/zap-cobranca-go/internal/domain"
	"github.com/condozap/zap-cobranca-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("gateway")

const maxFileDownload = 20 << 20 // 20 MiB

// Client implementa port.Messenger sobre a API REST do wppconnect-server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	registry   *Registry
	cb         *gobreaker.CircuitBreaker
	rcfg       resilience.Config
	logger     *zap.Logger
}

func NewClient(httpClient *http.Client, baseURL string, registry *Registry, cb *gobreaker.CircuitBreaker, rcfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		registry:   registry,
		cb:         cb,
		rcfg:       rcfg,
		logger:     logger,
	}
}

// SendText envia uma mensagem de texto simples.
func (c *Client) SendText(ctx context.Context, session, waID, text string) error {
	ctx, span := tracer.Start(ctx, "Gateway.SendText")
	defer span.End()
	span.SetAttributes(attribute.String("wa.session", session))

	return c.post(ctx, session, "send-message", map[string]any{
		"phone":   phoneFromWaID(waID),
		"message": text,
	})
}

// SendFile envia um documento. Tenta primeiro pela URL direta; se o
// gateway não conseguir baixar (link com auth, por exemplo), baixa o
// arquivo aqui e reenvia como base64.
func (c *Client) SendFile(ctx context.Context, session, waID, fileURL, filename, caption string) error {
	ctx, span := tracer.Start(ctx, "Gateway.SendFile")
	defer span.End()
	span.SetAttributes(attribute.String("wa.session", session))

	err := c.post(ctx, session, "send-file", map[string]any{
		"phone":    phoneFromWaID(waID),
		"path":     fileURL,
		"filename": filename,
		"caption":  caption,
	})
	if err == nil {
		return nil
	}
	c.logger.Warn("gateway: envio por URL falhou, tentando reupload em base64",
		zap.String("session", session),
		zap.Error(err),
	)

	encoded, downloadErr := c.downloadAsBase64(ctx, fileURL)
	if downloadErr != nil {
		return fmt.Errorf("envio direto falhou (%v) e download para reupload também: %w", err, downloadErr)
	}
	return c.post(ctx, session, "send-file-base64", map[string]any{
		"phone":    phoneFromWaID(waID),
		"base64":   encoded,
		"filename": filename,
		"caption":  caption,
	})
}

// SendLinkPreview envia um link com cartão de preview.
func (c *Client) SendLinkPreview(ctx context.Context, session, waID, url, title, description string) error {
	ctx, span := tracer.Start(ctx, "Gateway.SendLinkPreview")
	defer span.End()

	return c.post(ctx, session, "send-link-preview", map[string]any{
		"phone":   phoneFromWaID(waID),
		"url":     url,
		"caption": title,
		"text":    description,
	})
}

// post executa uma chamada autenticada ao sidecar com retry e circuit
// breaker. Um 401 invalida o token da sessão antes do retry, para que a
// tentativa seguinte gere um token novo.
func (c *Client) post(ctx context.Context, session, endpoint string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.rcfg, func() error {
			token, err := c.registry.Token(ctx, session)
			if err != nil {
				return err
			}

			url := fmt.Sprintf("%s/api/%s/%s", c.baseURL, session, endpoint)
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, resp.Body)

			if resp.StatusCode == http.StatusUnauthorized {
				c.registry.Invalidate(session)
				return fmt.Errorf("sessão %q não autorizada no gateway", session)
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("gateway %s retornou status %d", endpoint, resp.StatusCode)
			}
			return nil
		})
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "wppconnect", Err: err}
	}
	return nil
}

func (c *Client) downloadAsBase64(ctx context.Context, fileURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download do arquivo retornou status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileDownload))
	if err != nil {
		return "", err
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/pdf"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// phoneFromWaID tira o sufixo "@c.us" do identificador do WhatsApp; o
// wppconnect-server espera só os dígitos no campo phone.
func phoneFromWaID(waID string) string {
	return strings.TrimSuffix(waID, "@c.us")
}
