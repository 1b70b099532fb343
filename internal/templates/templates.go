// Package templates concentra todos os textos enviados ao usuário.
// Mantidos em um só lugar para facilitar revisão do tom das mensagens.
package templates

import (
	"fmt"
	"strings"

	"github.com/condozap/zap-cobranca-go/internal/domain"
)

const (
	AskCPF = "Para continuar, me envie seu *CPF* (apenas números).\nEx.: 12345678909"

	CPFInvalido = "CPF inválido. Envie apenas números (11 dígitos)."

	SemBoletos = "Não encontrei boletos em aberto para esse CPF nessa empresa."

	HandoffMsg = "Certo! Vou repassar seu atendimento pra nossa equipe humana. Você pode continuar mandando mensagens aqui que eles vão responder."

	Encerrado = "Atendimento encerrado. 👋"

	EmailEnviado = "Enviei a 2ª via para o seu e-mail cadastrado. 📧"

	ErroConsulta = "Não consegui consultar agora. Tente mais tarde ou fale com atendimento (2)."

	ErroConsultaEEmail = "Não consegui consultar nem enviar por e-mail agora. Tente mais tarde ou fale com atendimento (2)."

	CaptionSegundaVia = "Segue sua 2ª via"
)

// Menu monta o menu principal. O nome da empresa atual entra no
// cabeçalho quando o tenant já está resolvido.
func Menu(empresaNome string) string {
	header := "*🤖 Bot Superlógica*\n"
	if empresaNome != "" {
		header = fmt.Sprintf("*🤖 Bot Superlógica*\nEmpresa atual: *%s*\n", empresaNome)
	}
	return strings.TrimSpace(header + strings.Join([]string{
		"",
		"*Como posso ajudar?*",
		"1) Consultar boletos (2ª via)",
		"2) Falar com atendimento humano",
		"3) Trocar/Selecionar empresa",
		"",
		"_Responda com o número da opção._",
	}, "\n"))
}

// EscolherEmpresa lista as empresas cadastradas, numeradas a partir de 1.
func EscolherEmpresa(tenants []domain.Tenant) string {
	if len(tenants) == 0 {
		return "*Escolher empresa:*\n(nenhuma cadastrada)\n\n_Cadastre pelo painel antes de usar._"
	}
	var b strings.Builder
	b.WriteString("*Escolher empresa*\n")
	for i, t := range tenants {
		fmt.Fprintf(&b, "*%d.* %s\n", i+1, t.Nome)
	}
	b.WriteString("\n_Responda com o número da empresa._")
	return b.String()
}

// EmpresaDefinida confirma a escolha de empresa e reapresenta o menu.
func EmpresaDefinida(nome string) string {
	return fmt.Sprintf("Empresa definida: *%s*.\n\n%s", nome, Menu(nome))
}

// OpcaoInvalida antecede a re-listagem de empresas.
func OpcaoInvalida(tenants []domain.Tenant) string {
	return "Opção inválida. " + EscolherEmpresa(tenants)
}

// BoletoResumo formata um boleto como texto quando não há PDF (ou o
// envio do PDF falhou e degradamos para resumo).
func BoletoResumo(b domain.Boleto) string {
	lines := []string{
		fmt.Sprintf("*%s*", descricaoOuPadrao(b)),
		fmt.Sprintf("Venc.: %s", vencimentoOuTraco(b)),
		fmt.Sprintf("Valor: %s", FormatBRL(b.Valor)),
	}
	if b.LinhaDigitavel != "" {
		lines = append(lines, "Linha: "+b.LinhaDigitavel)
	}
	return strings.Join(lines, "\n")
}

// OutrosBoletos lista os boletos além dos três primeiros (sem tentativa
// de PDF), numerados em continuação à primeira leva.
func OutrosBoletos(boletos []domain.Boleto, offset int) string {
	var items []string
	for i, b := range boletos {
		item := fmt.Sprintf("%d) *%s*\nVenc.: %s\nValor: %s",
			offset+i+1, descricaoOuPadrao(b), vencimentoOuTraco(b), FormatBRL(b.Valor))
		if b.URLPDF != "" {
			item += "\nLink: " + b.URLPDF
		}
		items = append(items, item)
	}
	return "*Outros boletos em aberto:*\n\n" + strings.Join(items, "\n\n")
}

// PDFIndisponivel avisa que o anexo falhou e entrega o link direto.
func PDFIndisponivel(url string) string {
	return "Não consegui anexar o PDF. Acesse: " + url
}

// BoletoFilename gera o nome do arquivo PDF de um boleto.
func BoletoFilename(b domain.Boleto) string {
	if b.ID != "" {
		return fmt.Sprintf("boleto-%s.pdf", b.ID)
	}
	return "boleto-2via.pdf"
}

// FormatBRL formata um valor em reais, sempre com dois decimais e
// separadores brasileiros (1234567.8 → "R$ 1.234.567,80").
func FormatBRL(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, decPart, _ := strings.Cut(s, ".")
	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := "R$ " + strings.Join(groups, ".") + "," + decPart
	if neg {
		out = "-" + out
	}
	return out
}

func descricaoOuPadrao(b domain.Boleto) string {
	if b.Descricao != "" {
		return b.Descricao
	}
	return "Boleto"
}

func vencimentoOuTraco(b domain.Boleto) string {
	if b.Vencimento != "" {
		return b.Vencimento
	}
	return "-"
}
