package billing_test

import (
	"encoding/json"
	"testing"

	"github.com/condozap/zap-cobranca-go/internal/billing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestNormalizeBoletos_BareList(t *testing.T) {
	body := decode(t, `[
		{"id": "10", "descricao": "Taxa 08/2026", "vencimento": "2026-08-10", "valor": 450.9, "linha_digitavel": "2379...", "url_pdf": "https://x/10.pdf"}
	]`)

	boletos := billing.NormalizeBoletos(body)
	require.Len(t, boletos, 1)
	assert.Equal(t, "10", boletos[0].ID)
	assert.Equal(t, "Taxa 08/2026", boletos[0].Descricao)
	assert.Equal(t, "2026-08-10", boletos[0].Vencimento)
	assert.Equal(t, 450.9, boletos[0].Valor)
	assert.Equal(t, "https://x/10.pdf", boletos[0].URLPDF)
}

func TestNormalizeBoletos_WrappedVariants(t *testing.T) {
	wrapped := decode(t, `{"boletos": [{"boleto_id": 77, "titulo": "Aluguel", "data_vencimento": "10/08/2026", "valor_boleto": "123.45", "codigo_barras": "8364..."}]}`)
	boletos := billing.NormalizeBoletos(wrapped)
	require.Len(t, boletos, 1)
	assert.Equal(t, "77", boletos[0].ID)
	assert.Equal(t, "Aluguel", boletos[0].Descricao)
	assert.Equal(t, "10/08/2026", boletos[0].Vencimento)
	assert.Equal(t, 123.45, boletos[0].Valor)
	assert.Equal(t, "8364...", boletos[0].LinhaDigitavel)

	data := decode(t, `{"data": [{"id_boleto": "9", "venc": "01/09/2026", "total": 99, "url_segundavia": "https://x/9.pdf"}]}`)
	boletos = billing.NormalizeBoletos(data)
	require.Len(t, boletos, 1)
	assert.Equal(t, "9", boletos[0].ID)
	assert.Equal(t, "01/09/2026", boletos[0].Vencimento)
	assert.Equal(t, float64(99), boletos[0].Valor)
	assert.Equal(t, "https://x/9.pdf", boletos[0].URLPDF)
}

func TestNormalizeBoletos_AmountCoercion(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{`[{"valor": 10}]`, 10},
		{`[{"valor": "10.50"}]`, 10.5},
		{`[{"valor": "1.234,56"}]`, 1234.56},
		{`[{"valor": "abc"}]`, 0},
		{`[{"valor": ""}]`, 0},
		{`[{}]`, 0},
	}
	for _, tt := range tests {
		boletos := billing.NormalizeBoletos(decode(t, tt.raw))
		require.Len(t, boletos, 1, "raw=%s", tt.raw)
		assert.Equal(t, tt.want, boletos[0].Valor, "raw=%s", tt.raw)
	}
}

func TestNormalizeBoletos_UnknownShapes(t *testing.T) {
	assert.Empty(t, billing.NormalizeBoletos(decode(t, `{"foo": 1}`)))
	assert.Empty(t, billing.NormalizeBoletos(decode(t, `"texto"`)))
	assert.Empty(t, billing.NormalizeBoletos(nil))

	// Itens que não são objetos são ignorados.
	boletos := billing.NormalizeBoletos(decode(t, `[1, "x", {"descricao": "ok"}]`))
	require.Len(t, boletos, 1)
	assert.Equal(t, "ok", boletos[0].Descricao)
}
