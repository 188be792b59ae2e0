package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nexconsult/simples-batch/internal/cache"
	"github.com/nexconsult/simples-batch/internal/config"
	"github.com/nexconsult/simples-batch/internal/engine"
	"github.com/nexconsult/simples-batch/internal/jobs"
	"github.com/nexconsult/simples-batch/internal/logger"
	"github.com/nexconsult/simples-batch/internal/models"
)

var (
	flagInput   string
	flagOutput  string
	flagWorkers int
	flagDelay   float64
	flagRounds  int
	flagMaxRows int
)

func main() {
	root := &cobra.Command{
		Use:   "enrich",
		Short: "Resolve o status de optante do Simples Nacional para lotes de CNPJs",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Processa um CSV de CNPJs e grava os statuses e o relatório",
		RunE:  runBatch,
	}
	runCmd.Flags().StringVarP(&flagInput, "input", "i", "", "CSV de entrada (linha,cnpj ou um CNPJ por linha)")
	runCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "CSV de saída com os statuses")
	runCmd.Flags().IntVarP(&flagWorkers, "workers", "w", 0, "número de workers (1-32)")
	runCmd.Flags().Float64VarP(&flagDelay, "delay", "d", 0, "intervalo base entre requisições, em segundos")
	runCmd.Flags().IntVarP(&flagRounds, "rounds", "r", -1, "rodadas de reprocessamento (0-10)")
	runCmd.Flags().IntVar(&flagMaxRows, "max-rows", 0, "limita o número de linhas processadas")
	runCmd.MarkFlagRequired("input")
	runCmd.MarkFlagRequired("output")
	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBatch(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logger.New(cfg.Log.Level, "text")

	rows, err := readRows(flagInput)
	if err != nil {
		return fmt.Errorf("falha lendo entrada: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("nenhum CNPJ encontrado em %s", flagInput)
	}

	req := models.Request{
		Rows:            rows,
		DelaySeconds:    cfg.Engine.DelaySeconds,
		MaxRows:         flagMaxRows,
		Workers:         cfg.Engine.Workers,
		ReprocessRounds: cfg.Engine.ReprocessRounds,
		OutputRef:       flagOutput,
	}
	if flagWorkers > 0 {
		req.Workers = flagWorkers
	}
	if flagDelay > 0 {
		req.DelaySeconds = flagDelay
	}
	if flagRounds >= 0 {
		req.ReprocessRounds = flagRounds
	}

	var store cache.Store
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		store = cache.NewRedisStore(client, cfg.Redis.HashKey, logger)
	} else {
		store = cache.NewFileStore(cfg.Engine.CachePath, logger)
	}

	eng := jobs.NewEngineFactory(cfg, store, logger)(req)

	// SIGINT encerra graciosamente: o cache e o relatório refletem o que
	// já foi concluído e as linhas restantes saem como PENDENTE.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink := &csvSink{statuses: make(map[int]models.Status)}
	events := engine.EventFuncs{
		OnLog: func(message string) { logger.Info(message) },
		OnProgress: func(done float64, total int) {
			logger.WithFields(logrus.Fields{
				"done":  fmt.Sprintf("%.1f", done),
				"total": total,
			}).Debug("Progresso")
		},
		OnError: func(message string) { logger.Error(message) },
	}

	result, err := eng.Run(ctx, req, sink, events)
	if err != nil {
		return err
	}

	if err := sink.writeFile(flagOutput, rows); err != nil {
		return fmt.Errorf("falha gravando saída: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"processadas":  result.Processed,
		"total":        result.Total,
		"sim":          result.Success,
		"nao":          result.SemDado,
		"erro":         result.Erro,
		"invalidas":    result.Invalid,
		"interrompido": result.Interrupted,
		"saida":        result.OutputRef,
		"relatorio":    result.ReportRef,
	}).Info("Processamento concluído")

	if result.Interrupted {
		return fmt.Errorf("processamento interrompido: %d linha(s) pendentes", result.Failed-result.Erro)
	}
	return nil
}

// readRows lê o CSV de entrada. Aceita duas formas: "linha,cnpj" (com ou
// sem cabeçalho) ou um CNPJ por linha, numerado a partir da linha 2 como
// em uma planilha com cabeçalho.
func readRows(path string) ([]models.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var rows []models.Row
	implicitLine := 2

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) == 0 {
			continue
		}

		first := strings.TrimSpace(record[0])
		if strings.EqualFold(first, "linha") || strings.EqualFold(first, "cnpj") {
			continue
		}

		if len(record) >= 2 {
			if linha, err := strconv.Atoi(first); err == nil {
				rows = append(rows, models.Row{Linha: linha, CNPJ: strings.TrimSpace(record[1])})
				continue
			}
		}
		if first == "" {
			implicitLine++
			continue
		}
		rows = append(rows, models.Row{Linha: implicitLine, CNPJ: first})
		implicitLine++
	}

	return rows, nil
}

// csvSink coleta os statuses terminais e grava o CSV de saída.
type csvSink struct {
	mu       sync.Mutex
	statuses map[int]models.Status
}

func (s *csvSink) SetStatus(linha int, status models.Status) {
	s.mu.Lock()
	s.statuses[linha] = status
	s.mu.Unlock()
}

func (s *csvSink) writeFile(path string, rows []models.Row) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	byLine := make(map[int]string, len(rows))
	var lines []int
	for _, row := range rows {
		byLine[row.Linha] = row.CNPJ
		lines = append(lines, row.Linha)
	}
	sort.Ints(lines)

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"linha", "cnpj", "simples_nacional"}); err != nil {
		return err
	}
	for _, linha := range lines {
		// Rows beyond --max-rows were never selected and stay blank.
		record := []string{strconv.Itoa(linha), byLine[linha], string(s.statuses[linha])}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
