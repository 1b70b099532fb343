package billing

import (
	"strconv"
	"strings"

	"github.com/condozap/zap-cobranca-go/internal/domain"
)

// A Superlógica já usou vários nomes para os mesmos campos ao longo do
// tempo (e entre módulos). A tabela abaixo lista, por atributo lógico,
// os nomes candidatos em ordem de preferência.
var boletoFields = map[string][]string{
	"id":              {"id", "boleto_id", "id_boleto", "nossoNumero"},
	"descricao":       {"descricao", "titulo"},
	"vencimento":      {"vencimento", "data_vencimento", "venc"},
	"valor":           {"valor", "valor_boleto", "total"},
	"linha_digitavel": {"linha_digitavel", "codigo_barras"},
	"url_pdf":         {"url_pdf", "url_segundavia", "link"},
}

// NormalizeBoletos converte o corpo decodificado da API (lista crua ou
// objeto com "boletos"/"data") na forma canônica de Boleto, tolerando
// os nomes de campo históricos.
func NormalizeBoletos(body any) []domain.Boleto {
	items := unwrapList(body)
	out := make([]domain.Boleto, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, domain.Boleto{
			ID:             pickString(m, boletoFields["id"]),
			Descricao:      pickString(m, boletoFields["descricao"]),
			Vencimento:     pickString(m, boletoFields["vencimento"]),
			Valor:          pickNumber(m, boletoFields["valor"]),
			LinhaDigitavel: pickString(m, boletoFields["linha_digitavel"]),
			URLPDF:         pickString(m, boletoFields["url_pdf"]),
		})
	}
	return out
}

// unwrapList aceita tanto uma lista crua quanto um objeto embrulhando a
// lista em "boletos" ou "data".
func unwrapList(body any) []any {
	switch v := body.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range []string{"boletos", "data"} {
			if list, ok := v[key].([]any); ok {
				return list
			}
		}
	}
	return nil
}

// pickString retorna o primeiro candidato presente e não-vazio,
// convertendo números para string quando necessário (ids numéricos).
func pickString(m map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// pickNumber coage o primeiro candidato presente para decimal. Valores
// podem vir como número ou string ("123.45" ou "123,45"); ausente ou
// não-numérico vale 0.
func pickNumber(m map[string]any, keys []string) float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v
		case string:
			if v == "" {
				continue
			}
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
			if f, err := strconv.ParseFloat(strings.ReplaceAll(strings.ReplaceAll(v, ".", ""), ",", "."), 64); err == nil {
				return f
			}
			return 0
		}
	}
	return 0
}
