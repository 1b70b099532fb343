// Package validator normaliza e valida os identificadores usados pelo
// bot: CPF (chave de consulta de boletos) e endereços de WhatsApp.
package validator

import "strings"

// OnlyDigits remove tudo que não é dígito.
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF aplica o algoritmo padrão de dígitos verificadores do CPF
// (módulo 11). Aceita entrada com máscara; normaliza antes de validar.
//
// Regras:
//   - exatamente 11 dígitos após normalização
//   - todos os dígitos iguais → inválido (111.111.111-11 passa no
//     módulo 11 mas não é um CPF real)
//   - primeiro verificador: soma ponderada dos 9 primeiros dígitos com
//     pesos 10..2, módulo 11, resultado >9 vira 0
//   - segundo verificador: idem com os 10 primeiros dígitos e pesos 11..2
func ValidCPF(cpf string) bool {
	cpf = OnlyDigits(cpf)
	if len(cpf) != 11 {
		return false
	}
	allEqual := true
	for i := 1; i < 11; i++ {
		if cpf[i] != cpf[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return false
	}

	d1 := checkDigit(cpf, 9)
	d2 := checkDigit(cpf, 10)
	return int(cpf[9]-'0') == d1 && int(cpf[10]-'0') == d2
}

// checkDigit calcula o dígito verificador sobre os n primeiros dígitos,
// com pesos n+1..2.
func checkDigit(cpf string, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(cpf[i]-'0') * (n + 1 - i)
	}
	d := 11 - (sum % 11)
	if d > 9 {
		return 0
	}
	return d
}

// E164FromWaID extrai o número E.164 de um endereço de WhatsApp
// ("5511999990000@c.us" → "+5511999990000").
func E164FromWaID(waID string) string {
	id, _, _ := strings.Cut(waID, "@")
	return "+" + OnlyDigits(id)
}

// WaIDFromPhone monta um endereço de WhatsApp a partir de um telefone
// brasileiro, prefixando o código do país quando ausente.
func WaIDFromPhone(phone string) string {
	d := OnlyDigits(phone)
	if !strings.HasPrefix(d, "55") {
		d = "55" + d
	}
	return d + "@c.us"
}
