// Package engine — engine.go implementa a máquina de estados da conversa.
//
// ============================================================
// FLUXO — atendimento de cobrança via WhatsApp
// ============================================================
//
// Cada mensagem recebida passa por:
//  1. GetOrCreate do contato (primeiro contato nasce em MENU)
//  2. registro no log de auditoria (IN)
//  3. pausa de atendimento humano (HUMAN silencia o bot até human_until)
//  4. comando global /encerrar (volta pra MENU de qualquer estado)
//  5. resolução do tenant (escolha do contato > vínculo da sessão)
//  6. despacho pelo estado atual: MENU, ESCOLHER_EMPRESA, PEDIR_CPF
//
// As respostas são enviadas ANTES de persistir o novo estado: se o
// envio falhar, o contato fica no estado antigo e a próxima mensagem
// repete a etapa, em vez de avançar uma conversa que o usuário nunca
// viu.
package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/condozap/zap-cobranca-go/internal/billing"
	"github.com/condozap/zap-cobranca-go/internal/domain"
	"github.com/condozap/zap-cobranca-go/internal/infra/observability"
	"github.com/condozap/zap-cobranca-go/internal/port"
	"github.com/condozap/zap-cobranca-go/internal/templates"
	"github.com/condozap/zap-cobranca-go/internal/validator"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("engine")

// maxPDFAttempts limita quantos boletos viram anexo PDF por consulta;
// o restante vai como lista de texto.
const maxPDFAttempts = 3

const defaultHandoff = 12 * time.Hour

// PortalLinker monta o link público do portal do cliente de um tenant.
type PortalLinker interface {
	PortalLink(license string) string
}

// Deps agrupa as dependências injetadas do Engine.
type Deps struct {
	Contacts  port.ContactStore
	Tenants   port.TenantStore
	Log       port.MessageLog
	Messenger port.Messenger
	Boletos   port.BoletoFetcher
	Portal    PortalLinker

	// TenantCache evita um SELECT por mensagem para o tenant já
	// escolhido pelo contato.
	TenantCache port.Cache[*domain.Tenant]

	Metrics *observability.Metrics
	Logger  *zap.Logger

	// HandoffDuration é quanto tempo o bot fica mudo após a opção 2.
	HandoffDuration time.Duration
}

// Engine orquestra a conversa de um contato. Não é seguro para
// mensagens concorrentes do MESMO contato; o Dispatcher serializa por
// wa_id antes de chamar HandleMessage.
type Engine struct {
	deps Deps
	now  func() time.Time
}

func New(deps Deps) *Engine {
	if deps.HandoffDuration <= 0 {
		deps.HandoffDuration = defaultHandoff
	}
	return &Engine{deps: deps, now: time.Now}
}

// HandleMessage processa uma mensagem recebida de ponta a ponta.
func (e *Engine) HandleMessage(ctx context.Context, msg domain.InboundMessage) error {
	ctx, span := tracer.Start(ctx, "Engine.HandleMessage")
	defer span.End()
	span.SetAttributes(attribute.String("wa.session", msg.Session))

	waID := msg.From
	text := strings.TrimSpace(msg.Body)
	start := e.now()

	contact, err := e.deps.Contacts.GetOrCreate(ctx, waID)
	if err != nil {
		return err
	}

	e.deps.Metrics.IncrMessage(domain.DirectionIn)
	e.appendLog(ctx, domain.DirectionIn, waID, text, map[string]string{"session": msg.Session})
	defer func() {
		e.deps.Metrics.RecordHandleDuration(string(contact.State), e.now().Sub(start))
	}()

	// Pausa de atendimento humano: o bot só silencia enquanto a pausa
	// tem prazo e ele ainda não venceu. Sem prazo (ou vencido), o
	// contato volta pro MENU e a mensagem segue o fluxo normal.
	if contact.State == domain.StateHuman {
		if contact.HumanUntil != nil && e.now().Before(*contact.HumanUntil) {
			e.deps.Logger.Debug("mensagem suprimida: contato em atendimento humano",
				zap.String("wa_id", waID),
			)
			return nil
		}
		if err := e.setState(ctx, contact, domain.StateMenu, nil); err != nil {
			return err
		}
	}

	tenant := e.resolveTenant(ctx, contact, msg.Session)
	empresaNome := ""
	if tenant != nil {
		empresaNome = tenant.Nome
	}

	// /encerrar funciona em qualquer estado (exceto durante a pausa
	// humana, tratada acima).
	if strings.EqualFold(text, "/encerrar") {
		if err := e.sendText(ctx, msg.Session, waID, templates.Encerrado+"\n\n"+templates.Menu(empresaNome)); err != nil {
			return err
		}
		return e.setState(ctx, contact, domain.StateMenu, nil)
	}

	switch contact.State {
	case domain.StateMenu:
		return e.handleMenu(ctx, msg.Session, contact, tenant, text)
	case domain.StateChooseCompany:
		return e.handleChooseCompany(ctx, msg.Session, contact, text)
	case domain.StateAskCPF:
		return e.handleAskCPF(ctx, msg.Session, contact, tenant, text)
	default:
		// Estado desconhecido no banco: reapresenta o menu e normaliza.
		e.deps.Logger.Warn("estado desconhecido, voltando pro MENU",
			zap.String("wa_id", waID),
			zap.String("state", string(contact.State)),
		)
		if err := e.sendText(ctx, msg.Session, waID, templates.Menu(empresaNome)); err != nil {
			return err
		}
		return e.setState(ctx, contact, domain.StateMenu, nil)
	}
}

// --- estados ---

func (e *Engine) handleMenu(ctx context.Context, session string, contact *domain.Contact, tenant *domain.Tenant, text string) error {
	empresaNome := ""
	if tenant != nil {
		empresaNome = tenant.Nome
	}

	switch text {
	case "1":
		// Consultar boletos. Sem empresa resolvida, primeiro escolhe.
		if tenant == nil {
			tenants, err := e.deps.Tenants.ListAll(ctx)
			if err != nil {
				return err
			}
			if err := e.sendText(ctx, session, contact.WaID, "Antes, escolha a empresa:\n\n"+templates.EscolherEmpresa(tenants)); err != nil {
				return err
			}
			return e.setState(ctx, contact, domain.StateChooseCompany, nil)
		}
		if err := e.sendText(ctx, session, contact.WaID, templates.AskCPF); err != nil {
			return err
		}
		return e.setState(ctx, contact, domain.StateAskCPF, nil)

	case "2":
		until := e.now().Add(e.deps.HandoffDuration)
		if err := e.sendText(ctx, session, contact.WaID, templates.HandoffMsg); err != nil {
			return err
		}
		return e.setState(ctx, contact, domain.StateHuman, &until)

	case "3":
		tenants, err := e.deps.Tenants.ListAll(ctx)
		if err != nil {
			return err
		}
		if err := e.sendText(ctx, session, contact.WaID, templates.EscolherEmpresa(tenants)); err != nil {
			return err
		}
		return e.setState(ctx, contact, domain.StateChooseCompany, nil)

	default:
		// Qualquer outra coisa reapresenta o menu, sem mudar de estado.
		return e.sendText(ctx, session, contact.WaID, templates.Menu(empresaNome))
	}
}

func (e *Engine) handleChooseCompany(ctx context.Context, session string, contact *domain.Contact, text string) error {
	tenants, err := e.deps.Tenants.ListAll(ctx)
	if err != nil {
		return err
	}

	n, convErr := strconv.Atoi(strings.TrimSpace(text))
	if convErr != nil || n < 1 || n > len(tenants) {
		return e.sendText(ctx, session, contact.WaID, templates.OpcaoInvalida(tenants))
	}

	chosen := tenants[n-1]
	if err := e.sendText(ctx, session, contact.WaID, templates.EmpresaDefinida(chosen.Nome)); err != nil {
		return err
	}
	if err := e.deps.Contacts.SetTenant(ctx, contact.WaID, chosen.ID); err != nil {
		return err
	}
	contact.CurrentTenantID = chosen.ID
	e.deps.TenantCache.Set(chosen.ID, &chosen)
	return e.setState(ctx, contact, domain.StateMenu, nil)
}

func (e *Engine) handleAskCPF(ctx context.Context, session string, contact *domain.Contact, tenant *domain.Tenant, text string) error {
	empresaNome := ""
	if tenant != nil {
		empresaNome = tenant.Nome
	}

	cpf := validator.OnlyDigits(text)
	if !validator.ValidCPF(cpf) {
		// CPF inválido não muda de estado: o contato tenta de novo.
		return e.sendText(ctx, session, contact.WaID, templates.CPFInvalido)
	}
	if err := e.deps.Contacts.SetCPF(ctx, contact.WaID, cpf); err != nil {
		return err
	}

	var creds billing.Credentials
	if tenant != nil {
		creds = billing.CredentialsFromTenant(tenant)
	}
	result, err := e.deps.Boletos.FetchOpenInvoices(ctx, creds, cpf)
	if err != nil {
		e.deps.Metrics.IncrLookup("failed")
		e.deps.Logger.Error("consulta de boletos falhou",
			zap.String("wa_id", contact.WaID),
			zap.Error(err),
		)
		if err := e.sendText(ctx, session, contact.WaID, templates.ErroConsulta+"\n\n"+templates.Menu(empresaNome)); err != nil {
			return err
		}
		return e.setState(ctx, contact, domain.StateMenu, nil)
	}

	switch result.Outcome {
	case billing.OutcomeEmailSent:
		e.deps.Metrics.IncrLookup("email_sent")
		if err := e.sendText(ctx, session, contact.WaID, templates.EmailEnviado+"\n\n"+templates.Menu(empresaNome)); err != nil {
			return err
		}
		e.sendPortalPreview(ctx, session, contact.WaID, tenant)
		return e.setState(ctx, contact, domain.StateMenu, nil)

	case billing.OutcomeEmailFailed:
		e.deps.Metrics.IncrLookup("failed")
		if err := e.sendText(ctx, session, contact.WaID, templates.ErroConsultaEEmail+"\n\n"+templates.Menu(empresaNome)); err != nil {
			return err
		}
		return e.setState(ctx, contact, domain.StateMenu, nil)
	}

	if len(result.Boletos) == 0 {
		e.deps.Metrics.IncrLookup("empty")
		if err := e.sendText(ctx, session, contact.WaID, templates.SemBoletos+"\n\n"+templates.Menu(empresaNome)); err != nil {
			return err
		}
		e.sendPortalPreview(ctx, session, contact.WaID, tenant)
		return e.setState(ctx, contact, domain.StateMenu, nil)
	}

	e.deps.Metrics.IncrLookup("invoices")
	if err := e.deliverBoletos(ctx, session, contact.WaID, result.Boletos); err != nil {
		return err
	}
	if err := e.sendText(ctx, session, contact.WaID, templates.Menu(empresaNome)); err != nil {
		return err
	}
	return e.setState(ctx, contact, domain.StateMenu, nil)
}

// deliverBoletos anexa os primeiros boletos como PDF (quando têm URL) e
// lista o restante como texto. Falha de anexo degrada pra link direto,
// nunca aborta a entrega.
func (e *Engine) deliverBoletos(ctx context.Context, session, waID string, boletos []domain.Boleto) error {
	sent := len(boletos)
	if sent > maxPDFAttempts {
		sent = maxPDFAttempts
	}

	for _, b := range boletos[:sent] {
		if b.URLPDF == "" {
			if err := e.sendText(ctx, session, waID, templates.BoletoResumo(b)); err != nil {
				return err
			}
			continue
		}
		err := e.deps.Messenger.SendFile(ctx, session, waID, b.URLPDF, templates.BoletoFilename(b), templates.CaptionSegundaVia)
		if err != nil {
			e.deps.Metrics.IncrPDFSendFailure()
			e.deps.Logger.Warn("envio de PDF falhou, degradando pra link",
				zap.String("wa_id", waID),
				zap.Error(err),
			)
			if err := e.sendText(ctx, session, waID, templates.PDFIndisponivel(b.URLPDF)); err != nil {
				return err
			}
			continue
		}
		e.deps.Metrics.IncrMessage(domain.DirectionOut)
		e.appendLog(ctx, domain.DirectionOut, waID, "[arquivo] "+templates.BoletoFilename(b), nil)
	}

	if len(boletos) > sent {
		return e.sendText(ctx, session, waID, templates.OutrosBoletos(boletos[sent:], sent))
	}
	return nil
}

// --- resolução de tenant ---

// resolveTenant segue a precedência: empresa escolhida pelo contato,
// depois o vínculo padrão da sessão/telefone. nil quando nada resolve.
func (e *Engine) resolveTenant(ctx context.Context, contact *domain.Contact, session string) *domain.Tenant {
	if id := contact.CurrentTenantID; id != "" {
		if t, ok := e.deps.TenantCache.Get(id); ok {
			return t
		}
		t, err := e.deps.Tenants.GetByID(ctx, id)
		if err == nil {
			e.deps.TenantCache.Set(id, t)
			return t
		}
		// Tenant removido depois da escolha: cai pro vínculo da sessão.
		e.deps.Logger.Warn("tenant escolhido não existe mais",
			zap.String("wa_id", contact.WaID),
			zap.String("tenant_id", id),
			zap.Error(err),
		)
	}

	e164 := validator.E164FromWaID(contact.WaID)
	t, err := e.deps.Tenants.GetDefaultForPhone(ctx, e164, session)
	if err != nil {
		e.deps.Logger.Warn("falha resolvendo tenant padrão",
			zap.String("wa_id", contact.WaID),
			zap.Error(err),
		)
		return nil
	}
	return t
}

// --- helpers ---

// sendText envia e registra uma resposta do bot.
func (e *Engine) sendText(ctx context.Context, session, waID, text string) error {
	if err := e.deps.Messenger.SendText(ctx, session, waID, text); err != nil {
		return err
	}
	e.deps.Metrics.IncrMessage(domain.DirectionOut)
	e.appendLog(ctx, domain.DirectionOut, waID, text, nil)
	return nil
}

// sendPortalPreview manda o cartão com o link do portal do cliente.
// Melhor esforço: sem license não envia, falha só loga.
func (e *Engine) sendPortalPreview(ctx context.Context, session, waID string, tenant *domain.Tenant) {
	if tenant == nil || tenant.License == "" {
		return
	}
	link := e.deps.Portal.PortalLink(tenant.License)
	if link == "" {
		return
	}
	err := e.deps.Messenger.SendLinkPreview(ctx, session, waID, link, "Portal do Cliente", "2ª via de boletos")
	if err != nil {
		e.deps.Logger.Debug("link preview do portal falhou", zap.Error(err))
	}
}

func (e *Engine) setState(ctx context.Context, contact *domain.Contact, state domain.ContactState, humanUntil *time.Time) error {
	if err := e.deps.Contacts.SetState(ctx, contact.WaID, state, humanUntil); err != nil {
		return err
	}
	if contact.State != state {
		e.deps.Metrics.IncrStateTransition(string(state))
	}
	contact.State = state
	contact.HumanUntil = humanUntil
	return nil
}

// appendLog grava no log de auditoria sem propagar falhas: auditoria
// nunca derruba o atendimento.
func (e *Engine) appendLog(ctx context.Context, direction, waID, text string, meta map[string]string) {
	if err := e.deps.Log.Append(ctx, direction, waID, text, meta); err != nil {
		e.deps.Logger.Warn("falha gravando log de mensagem",
			zap.String("direction", direction),
			zap.String("wa_id", waID),
			zap.Error(err),
		)
	}
}
