package domain

// Boleto é uma cobrança em aberto retornada pela Superlógica.
// É um valor transiente: montado a cada consulta, nunca persistido.
// Qualquer campo pode vir vazio dependendo do formato da resposta do
// provedor — consumidores devem tolerar campos ausentes.
type Boleto struct {
	ID             string  `json:"id,omitempty"`
	Descricao      string  `json:"descricao"`
	Vencimento     string  `json:"vencimento,omitempty"`
	Valor          float64 `json:"valor"`
	LinhaDigitavel string  `json:"linha_digitavel,omitempty"`
	URLPDF         string  `json:"url_pdf,omitempty"`
}
