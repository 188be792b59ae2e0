package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexconsult/simples-batch/internal/models"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entrada.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadRowsWithLineNumbers(t *testing.T) {
	path := writeInput(t, "linha,cnpj\n2,11.222.333/0001-81\n5,00000000000191\n")

	rows, err := readRows(path)
	require.NoError(t, err)
	assert.Equal(t, []models.Row{
		{Linha: 2, CNPJ: "11.222.333/0001-81"},
		{Linha: 5, CNPJ: "00000000000191"},
	}, rows)
}

func TestReadRowsBareCNPJs(t *testing.T) {
	path := writeInput(t, "cnpj\n11222333000181\n00000000000191\n")

	rows, err := readRows(path)
	require.NoError(t, err)
	// Numbered from 2, like a spreadsheet with a header row.
	assert.Equal(t, []models.Row{
		{Linha: 2, CNPJ: "11222333000181"},
		{Linha: 3, CNPJ: "00000000000191"},
	}, rows)
}

func TestReadRowsSkipsBlankLines(t *testing.T) {
	path := writeInput(t, "11222333000181\n\"\"\n00000000000191\n")

	rows, err := readRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Linha)
	assert.Equal(t, 4, rows[1].Linha, "blank cells keep their line number")
}

func TestReadRowsMissingFile(t *testing.T) {
	_, err := readRows(filepath.Join(t.TempDir(), "nao-existe.csv"))
	assert.Error(t, err)
}

func TestCSVSinkWriteFile(t *testing.T) {
	sink := &csvSink{statuses: make(map[int]models.Status)}
	sink.SetStatus(3, models.StatusSim)
	sink.SetStatus(2, models.StatusErro)

	rows := []models.Row{
		{Linha: 3, CNPJ: "11222333000181"},
		{Linha: 2, CNPJ: "123"},
		{Linha: 4, CNPJ: "00000000000191"},
	}

	path := filepath.Join(t.TempDir(), "saida.csv")
	require.NoError(t, sink.writeFile(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"linha,cnpj,simples_nacional\n2,123,ERRO\n3,11222333000181,SIM\n4,00000000000191,\n",
		string(data))
}
