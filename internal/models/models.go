package models

import (
	"time"
)

// Status é o resultado terminal de uma linha da planilha.
type Status string

const (
	StatusSim      Status = "SIM"
	StatusNao      Status = "NÃO"
	StatusErro     Status = "ERRO"
	StatusInvalido Status = "CNPJ_INVALIDO"
	StatusPendente Status = "PENDENTE"
)

// Resolved reports whether the status is a definitive provider answer.
// Only resolved statuses are ever written to the cache.
func (s Status) Resolved() bool {
	return s == StatusSim || s == StatusNao
}

// Origin indica por qual caminho a linha chegou ao seu status final.
type Origin string

const (
	OriginCache        Origin = "CACHE"
	OriginAPI          Origin = "API"
	OriginValidacao    Origin = "VALIDACAO"
	OriginCancelamento Origin = "CANCELAMENTO"
)

// Row é uma linha de entrada: número ordinal da planilha e o CNPJ cru da célula.
type Row struct {
	Linha int    `json:"linha"`
	CNPJ  string `json:"cnpj"`
}

// Outcome é o resultado de uma tentativa de resolução de um CNPJ em uma rodada.
type Outcome struct {
	Status   Status `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// ReportRow é uma linha do relatório de auditoria. Uma por linha de saída,
// incluindo inválidas, cache e canceladas.
type ReportRow struct {
	Linha        int    `json:"linha"`
	CNPJOriginal string `json:"cnpj_original"`
	CNPJLimpo    string `json:"cnpj_limpo"`
	Resultado    Status `json:"resultado"`
	Origem       Origin `json:"origem"`
	Provedor     string `json:"provedor"`
	Detalhe      string `json:"detalhe"`
}

// Request descreve um job de enriquecimento em lote.
type Request struct {
	Rows            []Row   `json:"rows"`
	DelaySeconds    float64 `json:"delay_seconds"`
	MaxRows         int     `json:"max_rows"`
	Workers         int     `json:"workers"`
	ReprocessRounds int     `json:"reprocess_rounds"`
	OutputRef       string  `json:"output_ref"`
}

// Result é o resumo final de um job.
type Result struct {
	Processed   int    `json:"processed"`
	Total       int    `json:"total"`
	Success     int    `json:"success"`
	Failed      int    `json:"failed"`
	SemDado     int    `json:"sem_dado"`
	Erro        int    `json:"erro"`
	Invalid     int    `json:"invalid"`
	Interrupted bool   `json:"interrupted"`
	OutputRef   string `json:"output_ref,omitempty"`
	ReportRef   string `json:"report_ref,omitempty"`
}

// ErrorResponse representa uma resposta de erro da API
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
}

// HealthResponse representa a resposta do health check
type HealthResponse struct {
	Status  string    `json:"status"`
	Time    time.Time `json:"time"`
	Version string    `json:"version"`
	Uptime  string    `json:"uptime"`
}
