package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// MessageLog implementa port.MessageLog gravando cada mensagem na
// tabela logs. O meta vai como JSONB.
type MessageLog struct {
	db *sql.DB
}

func NewMessageLog(db *sql.DB) *MessageLog {
	return &MessageLog{db: db}
}

func (l *MessageLog) Append(ctx context.Context, direction, waID, text string, meta map[string]string) error {
	var metaJSON any
	if len(meta) > 0 {
		b, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("serializando meta do log: %w", err)
		}
		metaJSON = b
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO logs (id, direction, wa_id, message, meta) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), direction, waID, text, metaJSON)
	if err != nil {
		return fmt.Errorf("gravando log de mensagem: %w", err)
	}
	return nil
}
