package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/nexconsult/simples-batch/internal/models"
)

var reportHeader = []string{"linha", "cnpj_original", "cnpj_limpo", "resultado", "origem", "provedor", "detalhe"}

// reportBuilder accumulates one audit row per output row across all paths
// (cache hit, invalid, API-resolved, final error, cancelled-pending).
type reportBuilder struct {
	mu   sync.Mutex
	rows []models.ReportRow
}

func newReportBuilder() *reportBuilder {
	return &reportBuilder{}
}

func (b *reportBuilder) Add(row models.ReportRow) {
	b.mu.Lock()
	b.rows = append(b.rows, row)
	b.mu.Unlock()
}

// Rows returns the accumulated rows sorted ascending by linha.
func (b *reportBuilder) Rows() []models.ReportRow {
	b.mu.Lock()
	rows := make([]models.ReportRow, len(b.rows))
	copy(rows, b.rows)
	b.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].Linha < rows[j].Linha })
	return rows
}

func (b *reportBuilder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}

// WriteCSV serializes the sorted report. encoding/csv handles quoting of
// separators, quotes and newlines.
func (b *reportBuilder) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(reportHeader); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, row := range b.Rows() {
		record := []string{
			strconv.Itoa(row.Linha),
			row.CNPJOriginal,
			row.CNPJLimpo,
			string(row.Resultado),
			string(row.Origem),
			row.Provedor,
			row.Detalhe,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write report row %d: %w", row.Linha, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFile writes the report next to the output artifact.
func (b *reportBuilder) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	return b.WriteCSV(file)
}

// ReportPath derives the report file name from the output artifact's base
// name with the fixed suffix.
func ReportPath(outputRef string) string {
	ext := filepath.Ext(outputRef)
	base := strings.TrimSuffix(outputRef, ext)
	return base + "_relatorio.csv"
}
