package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nexconsult/simples-batch/internal/models"
)

// How many provider failure reasons are joined into the final ERRO detail.
const maxDetailReasons = 4

// CallError classifies one failed provider call.
type CallError struct {
	Provider string
	Reason   string
	// Retryable: server and network errors back off and retry within the
	// provider; 429 and malformed payloads fail over immediately.
	Retryable bool
	// Counted: whether the failure counts toward the circuit breaker.
	Counted bool
}

func (e *CallError) Error() string {
	return e.Reason
}

// Resolver tries the provider chain strictly in order for one CNPJ,
// stopping at the first definitive SIM/NÃO.
type Resolver struct {
	chain   []Provider
	client  *http.Client
	pacer   *Pacer
	breaker *Breaker
	logger  *logrus.Logger

	maxRetries int
	// backoffUnit is the unit behind min(2×attempt, 4); one second in
	// production, shrunk by tests.
	backoffUnit time.Duration
}

// NewResolver creates a resolver over the given chain. The pacer must have
// every chain provider registered.
func NewResolver(chain []Provider, pacer *Pacer, breaker *Breaker, timeout time.Duration, maxRetries int, logger *logrus.Logger) *Resolver {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Resolver{
		chain:       chain,
		client:      &http.Client{Timeout: timeout},
		pacer:       pacer,
		breaker:     breaker,
		logger:      logger,
		maxRetries:  maxRetries,
		backoffUnit: time.Second,
	}
}

// Resolve consulta um CNPJ na cadeia de provedores. Sempre retorna um
// Outcome: SIM/NÃO quando algum provedor respondeu em definitivo, ERRO
// quando todos falharam (com as razões combinadas no detalhe).
func (r *Resolver) Resolve(ctx context.Context, cnpj string) models.Outcome {
	var reasons []string

	for _, prov := range r.chain {
		if ctx.Err() != nil {
			return models.Outcome{
				Status: models.StatusErro,
				Detail: "consulta cancelada",
			}
		}

		outcome, err := r.tryProvider(ctx, prov, cnpj)
		if err == nil {
			return outcome
		}

		r.logger.WithFields(logrus.Fields{
			"cnpj":     cnpj,
			"provider": prov.Name,
			"reason":   err.Error(),
		}).Debug("Provider failed, trying next")

		if len(reasons) < maxDetailReasons {
			reasons = append(reasons, fmt.Sprintf("%s: %s", prov.Name, err.Error()))
		}
	}

	return models.Outcome{
		Status: models.StatusErro,
		Detail: strings.Join(reasons, "; "),
	}
}

// tryProvider runs the per-provider attempt loop: breaker check, pacing,
// call, and backoff retries for server/network errors.
func (r *Resolver) tryProvider(ctx context.Context, prov Provider, cnpj string) (models.Outcome, error) {
	if !r.breaker.Allow(prov.Name) {
		return models.Outcome{}, &CallError{
			Provider: prov.Name,
			Reason:   "pausado por falhas consecutivas",
		}
	}

	var lastErr *CallError
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		if err := r.pacer.Wait(ctx, prov.Name); err != nil {
			return models.Outcome{}, &CallError{Provider: prov.Name, Reason: "consulta cancelada"}
		}

		outcome, callErr := r.call(ctx, prov, cnpj)
		if callErr == nil {
			r.breaker.Success(prov.Name)
			return outcome, nil
		}

		if callErr.Counted {
			r.breaker.Failure(prov.Name)
		}
		lastErr = callErr

		if ctx.Err() != nil || !callErr.Retryable {
			break
		}
		if attempt < r.maxRetries {
			backoff := time.Duration(min(2*attempt, 4)) * r.backoffUnit
			if !sleepCtx(ctx, backoff) {
				break
			}
		}
	}

	return models.Outcome{}, lastErr
}

// call performs one HTTP lookup and interprets the payload.
func (r *Resolver) call(ctx context.Context, prov Provider, cnpj string) (models.Outcome, *CallError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, prov.URL(cnpj), nil)
	if err != nil {
		return models.Outcome{}, &CallError{Provider: prov.Name, Reason: err.Error()}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return models.Outcome{}, &CallError{
			Provider:  prov.Name,
			Reason:    fmt.Sprintf("falha de rede: %v", err),
			Retryable: true,
			Counted:   true,
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return models.Outcome{}, &CallError{
			Provider: prov.Name,
			Reason:   "limite de requisições excedido (429)",
			Counted:  true,
		}
	case resp.StatusCode >= 500:
		return models.Outcome{}, &CallError{
			Provider:  prov.Name,
			Reason:    fmt.Sprintf("erro do servidor (%d)", resp.StatusCode),
			Retryable: true,
			Counted:   true,
		}
	case resp.StatusCode != http.StatusOK:
		return models.Outcome{}, &CallError{
			Provider: prov.Name,
			Reason:   fmt.Sprintf("resposta HTTP %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.Outcome{}, &CallError{
			Provider:  prov.Name,
			Reason:    fmt.Sprintf("falha lendo resposta: %v", err),
			Retryable: true,
			Counted:   true,
		}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.Outcome{}, &CallError{
			Provider: prov.Name,
			Reason:   "resposta não é JSON válido",
			Counted:  true,
		}
	}

	if message, isErr := IsApplicationError(payload); isErr {
		return models.Outcome{}, &CallError{
			Provider: prov.Name,
			Reason:   message,
		}
	}

	if DecideOptant(payload) {
		return models.Outcome{
			Status:   models.StatusSim,
			Detail:   "optante pelo Simples Nacional",
			Provider: prov.Name,
		}, nil
	}
	return models.Outcome{
		Status:   models.StatusNao,
		Detail:   "não optante pelo Simples Nacional",
		Provider: prov.Name,
	}, nil
}

// sleepCtx waits for d or until the context is cancelled. Returns false on
// cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
