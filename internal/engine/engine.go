package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nexconsult/simples-batch/internal/cache"
	"github.com/nexconsult/simples-batch/internal/cnpj"
	"github.com/nexconsult/simples-batch/internal/models"
)

// Events recebe os eventos do job conforme ocorrem. Implementações devem
// ser seguras para chamadas concorrentes.
type Events interface {
	Log(message string)
	Progress(done float64, total int)
	Done(result models.Result)
	Error(message string)
}

// RowSink recebe o status terminal de cada linha. O chamador é dono da
// planilha; o engine só conhece números de linha e strings de status.
type RowSink interface {
	SetStatus(linha int, status models.Status)
}

// Resolver resolve um CNPJ em um Outcome. Satisfeito por
// provider.Resolver; os testes usam fakes.
type Resolver interface {
	Resolve(ctx context.Context, cnpj string) models.Outcome
}

// EventFuncs adapts plain functions to the Events interface. Nil fields
// are ignored.
type EventFuncs struct {
	OnLog      func(message string)
	OnProgress func(done float64, total int)
	OnDone     func(result models.Result)
	OnError    func(message string)
}

func (e EventFuncs) Log(message string) {
	if e.OnLog != nil {
		e.OnLog(message)
	}
}

func (e EventFuncs) Progress(done float64, total int) {
	if e.OnProgress != nil {
		e.OnProgress(done, total)
	}
}

func (e EventFuncs) Done(result models.Result) {
	if e.OnDone != nil {
		e.OnDone(result)
	}
}

func (e EventFuncs) Error(message string) {
	if e.OnError != nil {
		e.OnError(message)
	}
}

type nopSink struct{}

func (nopSink) SetStatus(int, models.Status) {}

// Engine executa um job de enriquecimento: particiona as linhas entre
// inválidas, cache e pendentes, roda o pool de workers em rodadas e
// produz o relatório e o cache atualizado.
type Engine struct {
	store    cache.Store
	resolver Resolver
	logger   *logrus.Logger

	// Heartbeat interval of the worker pool and the unit behind the
	// min(2×round, 8) inter-round wait. Tests shrink both.
	Heartbeat     time.Duration
	RoundWaitUnit time.Duration
}

// New creates an engine with production timing defaults.
func New(store cache.Store, resolver Resolver, logger *logrus.Logger) *Engine {
	return &Engine{
		store:         store,
		resolver:      resolver,
		logger:        logger,
		Heartbeat:     5 * time.Second,
		RoundWaitUnit: time.Second,
	}
}

// jobState holds the run-scoped mutable aggregate shared by the workers.
type jobState struct {
	mu       sync.Mutex
	cache    map[string]models.Status
	report   *reportBuilder
	sink     RowSink
	sim      int
	nao      int
	erro     int
	invalid  int
	pendente int
}

func (j *jobState) finalizeRows(rows []models.Row, clean string, status models.Status, origin models.Origin, provider, detail string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, row := range rows {
		j.report.Add(models.ReportRow{
			Linha:        row.Linha,
			CNPJOriginal: row.CNPJ,
			CNPJLimpo:    clean,
			Resultado:    status,
			Origem:       origin,
			Provedor:     provider,
			Detalhe:      detail,
		})
		j.sink.SetStatus(row.Linha, status)

		switch status {
		case models.StatusSim:
			j.sim++
		case models.StatusNao:
			j.nao++
		case models.StatusErro:
			j.erro++
		case models.StatusInvalido:
			j.invalid++
		case models.StatusPendente:
			j.pendente++
		}
	}
}

func (j *jobState) setCache(clean string, status models.Status) {
	j.mu.Lock()
	j.cache[clean] = status
	j.mu.Unlock()
}

// Run executa o job do início ao fim. Cancelamento via contexto encerra
// graciosamente: o cache e o relatório refletem tudo que foi concluído e
// as linhas não resolvidas saem como PENDENTE.
func (e *Engine) Run(ctx context.Context, req models.Request, sink RowSink, ev Events) (models.Result, error) {
	if ev == nil {
		ev = EventFuncs{}
	}
	if sink == nil {
		sink = nopSink{}
	}

	rows := req.Rows
	if len(rows) == 0 {
		msg := "nenhuma linha selecionada para processamento"
		ev.Error(msg)
		return models.Result{}, fmt.Errorf("%s", msg)
	}
	if req.DelaySeconds <= 0 {
		msg := fmt.Sprintf("delay inválido: %v", req.DelaySeconds)
		ev.Error(msg)
		return models.Result{}, fmt.Errorf("%s", msg)
	}
	if req.MaxRows > 0 && len(rows) > req.MaxRows {
		rows = rows[:req.MaxRows]
	}

	workers := req.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > 32 {
		workers = 32
	}
	rounds := req.ReprocessRounds
	if rounds < 0 {
		rounds = 0
	}
	if rounds > 10 {
		rounds = 10
	}
	maxRounds := rounds + 1
	total := len(rows)

	cached, err := e.store.Load(ctx)
	if err != nil {
		// Stores are tolerant by contract; a hard error here means the
		// backend itself rejected us.
		e.logger.WithError(err).Warn("Cache load failed, proceeding without cache")
		cached = make(map[string]models.Status)
	}

	// Partition: invalid rows, deduplicated identifiers, cache hits.
	rowsByID := make(map[string][]models.Row)
	cleanByRow := make(map[int]string)
	var order []string
	var invalidRows []models.Row

	for _, row := range rows {
		clean, ok := cnpj.Normalize(row.CNPJ)
		cleanByRow[row.Linha] = clean
		if !ok {
			invalidRows = append(invalidRows, row)
			continue
		}
		if _, seen := rowsByID[clean]; !seen {
			order = append(order, clean)
		}
		rowsByID[clean] = append(rowsByID[clean], row)
	}

	job := &jobState{
		cache:  cached,
		report: newReportBuilder(),
		sink:   sink,
	}
	tracker := newProgressTracker(total, maxRounds, ev.Progress)

	ev.Log(fmt.Sprintf("Iniciando: %d linhas, %d CNPJs únicos, %d workers, %d rodada(s)",
		total, len(order), workers, maxRounds))

	for _, row := range invalidRows {
		job.finalizeRows([]models.Row{row}, cleanByRow[row.Linha], models.StatusInvalido,
			models.OriginValidacao, "", "CNPJ deve conter 14 dígitos")
	}
	tracker.CreditFull(len(invalidRows))

	var pending []string
	cacheHits := 0
	for _, id := range order {
		if status, ok := cached[id]; ok {
			job.finalizeRows(rowsByID[id], id, status, models.OriginCache, "", "resultado em cache")
			tracker.CreditFull(len(rowsByID[id]))
			cacheHits += len(rowsByID[id])
			continue
		}
		pending = append(pending, id)
	}
	if cacheHits > 0 {
		ev.Log(fmt.Sprintf("%d linha(s) resolvidas pelo cache", cacheHits))
	}

	interrupted := false
	for round := 1; round <= maxRounds && len(pending) > 0; round++ {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		ev.Log(fmt.Sprintf("Rodada %d/%d: %d CNPJs pendentes", round, maxRounds, len(pending)))

		var outMu sync.Mutex
		roundOut := make(map[string]models.Outcome, len(pending))
		runPool(ctx, pending, workers, e.Heartbeat, e.logger, ev.Log, func(ctx context.Context, id string) {
			outcome := e.resolver.Resolve(ctx, id)
			outMu.Lock()
			roundOut[id] = outcome
			outMu.Unlock()
		})

		cancelled := ctx.Err() != nil
		lastRound := round == maxRounds

		var next []string
		for _, id := range pending {
			idRows := rowsByID[id]
			outcome, attempted := roundOut[id]
			switch {
			case attempted && outcome.Status.Resolved():
				job.setCache(id, outcome.Status)
				job.finalizeRows(idRows, id, outcome.Status, models.OriginAPI, outcome.Provider, outcome.Detail)
				tracker.CreditFinal(id, len(idRows))
			case attempted && (lastRound || cancelled):
				detail := outcome.Detail
				if detail == "" {
					detail = "sem resposta após reprocessamento"
				}
				job.finalizeRows(idRows, id, models.StatusErro, models.OriginAPI, outcome.Provider, detail)
				tracker.CreditFinal(id, len(idRows))
			case attempted:
				tracker.CreditRound(id, len(idRows))
				next = append(next, id)
			default:
				// Never dequeued; only happens when the run was stopped.
				next = append(next, id)
			}
		}
		pending = next

		if cancelled {
			interrupted = true
			break
		}
		if len(pending) > 0 && round < maxRounds {
			wait := time.Duration(min(2*round, 8)) * e.RoundWaitUnit
			ev.Log(fmt.Sprintf("Aguardando %s antes da próxima rodada (%d pendentes)", wait, len(pending)))
			if !waitCtx(ctx, wait) {
				interrupted = true
				break
			}
		}
	}
	if ctx.Err() != nil {
		interrupted = true
	}

	if len(pending) > 0 {
		if interrupted {
			for _, id := range pending {
				job.finalizeRows(rowsByID[id], id, models.StatusPendente,
					models.OriginCancelamento, "", "processamento interrompido pelo usuário")
			}
			ev.Log(fmt.Sprintf("Interrompido: %d CNPJs ficaram pendentes", len(pending)))
		} else {
			for _, id := range pending {
				job.finalizeRows(rowsByID[id], id, models.StatusErro,
					models.OriginAPI, "", "sem resposta após reprocessamento")
				tracker.CreditFinal(id, len(rowsByID[id]))
			}
		}
	}

	// Persist the cache even on cancellation; it reflects everything
	// completed so far.
	saveCtx := context.WithoutCancel(ctx)
	if err := e.store.Save(saveCtx, job.cache); err != nil {
		e.logger.WithError(err).Error("Failed to persist cache")
		ev.Log(fmt.Sprintf("Aviso: falha ao salvar cache: %v", err))
	}

	reportRef := ""
	if req.OutputRef != "" {
		reportRef = ReportPath(req.OutputRef)
		if err := job.report.WriteFile(reportRef); err != nil {
			msg := fmt.Sprintf("falha ao gravar relatório: %v", err)
			ev.Error(msg)
			return models.Result{}, fmt.Errorf("%s", msg)
		}
	}

	job.mu.Lock()
	result := models.Result{
		Processed:   job.sim + job.nao + job.erro + job.invalid,
		Total:       total,
		Success:     job.sim,
		SemDado:     job.nao,
		Erro:        job.erro,
		Invalid:     job.invalid,
		Failed:      job.erro + job.pendente,
		Interrupted: interrupted,
		OutputRef:   req.OutputRef,
		ReportRef:   reportRef,
	}
	job.mu.Unlock()

	ev.Log(fmt.Sprintf("Concluído: %d/%d processadas (%d SIM, %d NÃO, %d erro, %d inválidas)",
		result.Processed, result.Total, result.Success, result.SemDado, result.Erro, result.Invalid))
	ev.Done(result)

	return result, nil
}

// waitCtx waits for d or until the context is cancelled. Returns false on
// cancellation.
func waitCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
