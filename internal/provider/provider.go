package provider

import (
	"github.com/nexconsult/simples-batch/internal/config"
)

// Provider é um serviço externo de consulta na cadeia de fallback.
// Weight escala o intervalo mínimo entre requisições daquele provedor.
type Provider struct {
	Name    string
	BaseURL string
	Weight  float64
}

// Provider names, in fallback order.
const (
	NameCNPJaOpen    = "cnpja_open"
	NameMinhaReceita = "minha_receita"
	NameBrasilAPI    = "brasil_api"
	NameReceitaWS    = "receita_ws"
)

// Chain builds the fixed fallback chain: the primary plus three alternates
// with lower relative request weight. Order is significant; the resolver
// tries providers strictly in this order.
func Chain(cfg config.ProvidersConfig) []Provider {
	return []Provider{
		{Name: NameCNPJaOpen, BaseURL: cfg.CNPJaBaseURL, Weight: 1.0},
		{Name: NameMinhaReceita, BaseURL: cfg.MinhaReceitaBaseURL, Weight: 0.5},
		{Name: NameBrasilAPI, BaseURL: cfg.BrasilAPIBaseURL, Weight: 0.5},
		{Name: NameReceitaWS, BaseURL: cfg.ReceitaWSBaseURL, Weight: 0.6},
	}
}

// URL returns the lookup URL for one CNPJ.
func (p Provider) URL(cnpj string) string {
	return p.BaseURL + "/" + cnpj
}
