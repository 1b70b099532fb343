package handler

import (
	"net/http"
	"strings"

	"github.com/condozap/zap-cobranca-go/internal/domain"
	"github.com/condozap/zap-cobranca-go/internal/engine"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// webhookPayload é o evento de mensagem do wppconnect-server.
type webhookPayload struct {
	Event      string `json:"event"`
	From       string `json:"from"`
	Body       string `json:"body"`
	FromMe     bool   `json:"fromMe"`
	IsGroupMsg bool   `json:"isGroupMsg"`
}

// webhookHandler recebe eventos do gateway e enfileira no dispatcher.
// Responde 202 imediatamente: o processamento é assíncrono e o gateway
// não deve ficar esperando a conversa inteira.
func webhookHandler(dispatcher *engine.Dispatcher, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := chi.URLParam(r, "session")

		var payload webhookPayload
		if err := decodeJSON(r, &payload); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// Só mensagens de chat individuais interessam: ignora eventos de
		// status, mensagens do próprio bot e grupos.
		if payload.Event != "" && payload.Event != "onmessage" {
			writeJSON(w, http.StatusOK, map[string]bool{"ignored": true})
			return
		}
		if payload.FromMe || payload.IsGroupMsg || payload.From == "" ||
			strings.HasSuffix(payload.From, "@g.us") {
			writeJSON(w, http.StatusOK, map[string]bool{"ignored": true})
			return
		}

		dispatcher.Enqueue(domain.InboundMessage{
			Session: session,
			From:    payload.From,
			Body:    payload.Body,
		})

		logger.Debug("mensagem enfileirada",
			zap.String("session", session),
			zap.String("from", payload.From),
		)
		writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
	}
}
