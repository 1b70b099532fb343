package domain

import "time"

// Direção de uma mensagem no log de auditoria.
const (
	DirectionIn  = "IN"
	DirectionOut = "OUT"
)

// LogEntry é o registro imutável de uma mensagem trocada com um contato.
// Escrito em fire-and-forget: falha ao gravar nunca interrompe o
// processamento da conversa.
type LogEntry struct {
	ID        string            `json:"id"`
	Direction string            `json:"direction"`
	WaID      string            `json:"wa_id"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
