package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/condozap/zap-cobranca-go/internal/domain"
)

// ContactStore implementa port.ContactStore.
type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

const contactColumns = `wa_id, state, human_until, COALESCE(cpf, ''), COALESCE(current_tenant_id::text, ''), created_at, updated_at`

// GetOrCreate devolve o contato, criando-o em MENU na primeira mensagem.
// O INSERT ... ON CONFLICT DO NOTHING torna a criação segura mesmo com
// mensagens concorrentes do mesmo número.
func (s *ContactStore) GetOrCreate(ctx context.Context, waID string) (*domain.Contact, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contatos (wa_id) VALUES ($1) ON CONFLICT (wa_id) DO NOTHING`, waID)
	if err != nil {
		return nil, fmt.Errorf("criando contato: %w", err)
	}
	return s.Get(ctx, waID)
}

func (s *ContactStore) Get(ctx context.Context, waID string) (*domain.Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contatos WHERE wa_id = $1`, waID)

	var c domain.Contact
	var state string
	err := row.Scan(&c.WaID, &state, &c.HumanUntil, &c.CPF, &c.CurrentTenantID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "contato", ID: waID}
	}
	if err != nil {
		return nil, fmt.Errorf("consultando contato: %w", err)
	}
	c.State = domain.ContactState(state)
	return &c, nil
}

func (s *ContactStore) SetState(ctx context.Context, waID string, state domain.ContactState, humanUntil *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contatos SET state = $2, human_until = $3, updated_at = now() WHERE wa_id = $1`,
		waID, string(state), humanUntil)
	if err != nil {
		return fmt.Errorf("atualizando estado do contato: %w", err)
	}
	return requireRow(res, "contato", waID)
}

func (s *ContactStore) SetCPF(ctx context.Context, waID, cpf string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contatos SET cpf = $2, updated_at = now() WHERE wa_id = $1`, waID, cpf)
	if err != nil {
		return fmt.Errorf("atualizando CPF do contato: %w", err)
	}
	return requireRow(res, "contato", waID)
}

func (s *ContactStore) SetTenant(ctx context.Context, waID, tenantID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contatos SET current_tenant_id = $2, updated_at = now() WHERE wa_id = $1`,
		waID, nullableString(tenantID))
	if err != nil {
		return fmt.Errorf("atualizando tenant do contato: %w", err)
	}
	return requireRow(res, "contato", waID)
}

func requireRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return nil
}

// nullableString mapeia "" para NULL em colunas opcionais.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
