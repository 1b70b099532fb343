package templates_test

import (
	"strings"
	"testing"

	"github.com/condozap/zap-cobranca-go/internal/domain"
	"github.com/condozap/zap-cobranca-go/internal/templates"

	"github.com/stretchr/testify/assert"
)

func TestMenu(t *testing.T) {
	m := templates.Menu("")
	assert.Contains(t, m, "1) Consultar boletos")
	assert.Contains(t, m, "2) Falar com atendimento humano")
	assert.Contains(t, m, "3) Trocar/Selecionar empresa")
	assert.NotContains(t, m, "Empresa atual")

	m = templates.Menu("Condomínio Sol")
	assert.Contains(t, m, "Empresa atual: *Condomínio Sol*")
}

func TestEscolherEmpresa(t *testing.T) {
	tenants := []domain.Tenant{
		{Nome: "Alfa"},
		{Nome: "Beta"},
	}
	s := templates.EscolherEmpresa(tenants)
	assert.Contains(t, s, "*1.* Alfa")
	assert.Contains(t, s, "*2.* Beta")

	empty := templates.EscolherEmpresa(nil)
	assert.Contains(t, empty, "nenhuma cadastrada")
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 0,00", templates.FormatBRL(0))
	assert.Equal(t, "R$ 150,50", templates.FormatBRL(150.5))
	assert.Equal(t, "R$ 1.234,00", templates.FormatBRL(1234))
	assert.Equal(t, "R$ 1.234.567,80", templates.FormatBRL(1234567.8))
	assert.Equal(t, "-R$ 12,30", templates.FormatBRL(-12.3))
}

func TestBoletoResumo(t *testing.T) {
	b := domain.Boleto{
		Descricao:      "Taxa condominial 08/2026",
		Vencimento:     "10/08/2026",
		Valor:          450.9,
		LinhaDigitavel: "23793.38128 60007.827136",
	}
	s := templates.BoletoResumo(b)
	assert.Contains(t, s, "*Taxa condominial 08/2026*")
	assert.Contains(t, s, "Venc.: 10/08/2026")
	assert.Contains(t, s, "R$ 450,90")
	assert.Contains(t, s, "Linha: 23793")

	// Campos ausentes degradam para placeholders.
	s = templates.BoletoResumo(domain.Boleto{})
	assert.Contains(t, s, "*Boleto*")
	assert.Contains(t, s, "Venc.: -")
	assert.NotContains(t, s, "Linha:")
}

func TestOutrosBoletos(t *testing.T) {
	boletos := []domain.Boleto{
		{Descricao: "Quarta", Valor: 10, URLPDF: "https://x/4.pdf"},
		{Descricao: "Quinta", Valor: 20},
	}
	s := templates.OutrosBoletos(boletos, 3)
	assert.True(t, strings.HasPrefix(s, "*Outros boletos em aberto:*"))
	assert.Contains(t, s, "4) *Quarta*")
	assert.Contains(t, s, "5) *Quinta*")
	assert.Contains(t, s, "Link: https://x/4.pdf")
}

func TestBoletoFilename(t *testing.T) {
	assert.Equal(t, "boleto-77.pdf", templates.BoletoFilename(domain.Boleto{ID: "77"}))
	assert.Equal(t, "boleto-2via.pdf", templates.BoletoFilename(domain.Boleto{}))
}
