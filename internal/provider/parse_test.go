package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestDecideOptantNestedSimples(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"cnpja optant true", `{"simples":{"optant":true,"since":"2018-01-01"}}`, true},
		{"cnpja optant false", `{"simples":{"optant":false}}`, false},
		{"portuguese key", `{"simples":{"optante":true}}`, true},
		{"wrapped in company", `{"company":{"name":"ACME","simples":{"optant":true}}}`, true},
		{"wrapped false beats top-level flag", `{"company":{"simples":{"optant":false}},"optante":true}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideOptant(decode(t, tt.raw)))
		})
	}
}

func TestDecideOptantTopLevelFlags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"minha_receita style", `{"opcao_pelo_simples":true,"razao_social":"ACME LTDA"}`, true},
		{"opcao false", `{"opcao_pelo_simples":false}`, false},
		{"optante_simples", `{"optante_simples":true}`, true},
		{"simples_nacional", `{"simples_nacional":false}`, false},
		{"bare optante", `{"optante":true}`, true},
		{"string flag is ignored", `{"optante":"true"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideOptant(decode(t, tt.raw)))
		})
	}
}

func TestDecideOptantRegimes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"regime mentions simples", `{"regimes":[{"ano":2024,"forma_de_tributacao":"SIMPLES NACIONAL"}]}`, true},
		{"case insensitive", `{"regimes_tributarios":[{"descricao":"Optante pelo Simples"}]}`, true},
		{"lucro presumido", `{"regimes":[{"forma_de_tributacao":"LUCRO PRESUMIDO"}]}`, false},
		{"empty array", `{"regimes":[]}`, false},
		{"non-object entries skipped", `{"regimes":["SIMPLES NACIONAL"]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideOptant(decode(t, tt.raw)))
		})
	}
}

func TestDecideOptantUnmatchedPayloadMeansNotEnrolled(t *testing.T) {
	// Providers omit the Simples section for companies outside the regime,
	// so a payload with none of the known fields is a definitive NÃO.
	payload := decode(t, `{"razao_social":"ACME LTDA","situacao":"ATIVA"}`)
	assert.False(t, DecideOptant(payload))
}

func TestIsApplicationError(t *testing.T) {
	message, isErr := IsApplicationError(decode(t, `{"status":"ERROR","message":"too many requests, slow down"}`))
	assert.True(t, isErr)
	assert.Equal(t, "too many requests, slow down", message)

	message, isErr = IsApplicationError(decode(t, `{"status":"error"}`))
	assert.True(t, isErr)
	assert.NotEmpty(t, message)

	_, isErr = IsApplicationError(decode(t, `{"status":"OK","optante":true}`))
	assert.False(t, isErr)

	_, isErr = IsApplicationError(decode(t, `{"optante":true}`))
	assert.False(t, isErr)
}
