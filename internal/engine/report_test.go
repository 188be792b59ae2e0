package engine

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexconsult/simples-batch/internal/models"
)

func TestReportRowsSortedByLine(t *testing.T) {
	builder := newReportBuilder()
	builder.Add(models.ReportRow{Linha: 7, Resultado: models.StatusNao})
	builder.Add(models.ReportRow{Linha: 2, Resultado: models.StatusSim})
	builder.Add(models.ReportRow{Linha: 5, Resultado: models.StatusErro})

	rows := builder.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, []int{2, 5, 7}, []int{rows[0].Linha, rows[1].Linha, rows[2].Linha})
	assert.Equal(t, 3, builder.Len())
}

func TestReportWriteCSV(t *testing.T) {
	builder := newReportBuilder()
	builder.Add(models.ReportRow{
		Linha:        3,
		CNPJOriginal: "11.222.333/0001-81",
		CNPJLimpo:    "11222333000181",
		Resultado:    models.StatusErro,
		Origem:       models.OriginAPI,
		Provedor:     "receita_ws",
		Detalhe:      `falha de rede: dial tcp; limite excedido, "429"`,
	})
	builder.Add(models.ReportRow{
		Linha:        2,
		CNPJOriginal: "123",
		CNPJLimpo:    "123",
		Resultado:    models.StatusInvalido,
		Origem:       models.OriginValidacao,
		Detalhe:      "CNPJ deve conter 14 dígitos",
	})

	var buf bytes.Buffer
	require.NoError(t, builder.WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err, "details with commas and quotes must survive the roundtrip")
	require.Len(t, records, 3)

	assert.Equal(t, reportHeader, records[0])
	assert.Equal(t, []string{"2", "123", "123", "CNPJ_INVALIDO", "VALIDACAO", "", "CNPJ deve conter 14 dígitos"}, records[1])
	assert.Equal(t, "3", records[2][0])
	assert.Equal(t, `falha de rede: dial tcp; limite excedido, "429"`, records[2][6])
}

func TestReportWriteFile(t *testing.T) {
	builder := newReportBuilder()
	builder.Add(models.ReportRow{Linha: 2, Resultado: models.StatusSim, Origem: models.OriginCache})

	path := filepath.Join(t.TempDir(), "relatorio.csv")
	require.NoError(t, builder.WriteFile(path))

	rows := readCSVFile(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, reportHeader, rows[0])
}

func TestReportPath(t *testing.T) {
	assert.Equal(t, "saida_relatorio.csv", ReportPath("saida.xlsx"))
	assert.Equal(t, "dados/lote_relatorio.csv", ReportPath("dados/lote.csv"))
	assert.Equal(t, "saida_relatorio.csv", ReportPath("saida"))
}
