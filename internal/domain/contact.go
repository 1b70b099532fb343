package domain

import "time"

// ContactState enumera os estados da conversa de um contato.
//
// O fluxo é uma máquina de estados simples:
//
//	MENU             → menu inicial (estado padrão)
//	ESCOLHER_EMPRESA → aguardando o número da empresa
//	PEDIR_CPF        → aguardando o CPF para consulta de boletos
//	HUMAN            → atendimento humano (bot silenciado até human_until)
//
// Não existe estado terminal: /encerrar sempre volta para MENU.
type ContactState string

const (
	StateMenu          ContactState = "MENU"
	StateChooseCompany ContactState = "ESCOLHER_EMPRESA"
	StateAskCPF        ContactState = "PEDIR_CPF"
	StateHuman         ContactState = "HUMAN"
)

// Contact é o registro de conversa de um número de WhatsApp.
// Criado de forma lazy na primeira mensagem recebida, nunca removido.
//
// Invariante: HumanUntil é não-nulo se e somente se State == HUMAN.
type Contact struct {
	// WaID é o endereço estável no WhatsApp (ex.: "5511999990000@c.us").
	WaID string `json:"wa_id"`

	State ContactState `json:"state"`

	// HumanUntil é o fim da pausa de atendimento humano.
	HumanUntil *time.Time `json:"human_until,omitempty"`

	// CPF é o último CPF validado do contato (apenas dígitos).
	CPF string `json:"cpf,omitempty"`

	// CurrentTenantID é a empresa escolhida pelo contato ("" = nenhuma).
	CurrentTenantID string `json:"current_tenant_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InboundMessage é um evento de mensagem recebida entregue pelo gateway.
type InboundMessage struct {
	Session string `json:"session"`
	From    string `json:"from"`
	Body    string `json:"body"`
}
