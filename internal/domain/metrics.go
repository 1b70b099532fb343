package domain

// BotMetrics é o snapshot agregado exposto em GET /v1/metrics/bot.
type BotMetrics struct {
	MessagesIn        int64   `json:"messages_in"`
	MessagesOut       int64   `json:"messages_out"`
	BoletoLookups     int64   `json:"boleto_lookups"`
	LookupFailureRate float64 `json:"lookup_failure_rate"`
	EmailFallbackRate float64 `json:"email_fallback_rate"`
	Period            string  `json:"period"`
}
