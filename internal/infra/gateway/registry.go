package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Registry emite e guarda o bearer token de cada sessão do
// wppconnect-server. Tokens são gerados sob demanda a partir da secret
// key e reutilizados até serem invalidados (ex.: resposta 401).
type Registry struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string

	mu     sync.Mutex
	tokens map[string]string
}

func NewRegistry(httpClient *http.Client, baseURL, secretKey string) *Registry {
	return &Registry{
		httpClient: httpClient,
		baseURL:    baseURL,
		secretKey:  secretKey,
		tokens:     make(map[string]string),
	}
}

// Token retorna o bearer token da sessão, gerando um novo quando ainda
// não há token em cache.
func (r *Registry) Token(ctx context.Context, session string) (string, error) {
	r.mu.Lock()
	if tok, ok := r.tokens[session]; ok {
		r.mu.Unlock()
		return tok, nil
	}
	r.mu.Unlock()

	tok, err := r.generate(ctx, session)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.tokens[session] = tok
	r.mu.Unlock()
	return tok, nil
}

// Invalidate descarta o token em cache da sessão. A próxima chamada a
// Token gera um novo.
func (r *Registry) Invalidate(session string) {
	r.mu.Lock()
	delete(r.tokens, session)
	r.mu.Unlock()
}

func (r *Registry) generate(ctx context.Context, session string) (string, error) {
	url := fmt.Sprintf("%s/api/%s/%s/generate-token", r.baseURL, session, r.secretKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(nil))
	if err != nil {
		return "", err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("generate-token da sessão %q retornou status %d", session, resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Token  string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.Token == "" {
		return "", fmt.Errorf("generate-token da sessão %q não retornou token", session)
	}
	return body.Token, nil
}
