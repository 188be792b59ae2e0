package provider

import (
	"strings"
)

// Top-level boolean flags recognized by rule 2, in no particular order.
var topLevelFlags = []string{
	"optante_simples",
	"opcao_pelo_simples",
	"simples_nacional",
	"optante",
}

// Array fields recognized by rule 3.
var regimeKeys = []string{
	"regimes",
	"regimes_tributarios",
	"regime_tributario",
}

// DecideOptant applies the shared decision procedure to a parsed payload,
// in priority order:
//
//  1. a nested boolean optant flag ("simples.optant[e]", also under
//     "company" for providers that wrap the registration),
//  2. a top-level boolean status flag under one of the known names,
//  3. an array of tax-regime entries, where any entry whose descriptive
//     text mentions "Simples" means enrolled.
//
// A payload that parses but matches no rule is a definitive "não optante":
// these services omit the Simples section entirely for companies outside
// the regime, so absence of the field is evidence of non-enrollment, not
// an error. Integrators adding a provider whose schema is unknown here
// will silently get NÃO; extend the rules above instead.
func DecideOptant(payload map[string]interface{}) bool {
	if simples, ok := payload["simples"].(map[string]interface{}); ok {
		if optant, ok := boolField(simples, "optant", "optante"); ok {
			return optant
		}
	}
	if company, ok := payload["company"].(map[string]interface{}); ok {
		if simples, ok := company["simples"].(map[string]interface{}); ok {
			if optant, ok := boolField(simples, "optant", "optante"); ok {
				return optant
			}
		}
	}

	if optant, ok := boolField(payload, topLevelFlags...); ok {
		return optant
	}

	for _, key := range regimeKeys {
		if entries, ok := payload[key].([]interface{}); ok {
			return regimesMentionSimples(entries)
		}
	}

	return false
}

// IsApplicationError reports whether the payload carries an
// application-level error status (e.g. ReceitaWS rate budget exceeded),
// which soft-fails the provider without being a transport error.
func IsApplicationError(payload map[string]interface{}) (string, bool) {
	status, ok := payload["status"].(string)
	if !ok || !strings.EqualFold(status, "ERROR") {
		return "", false
	}
	if message, ok := payload["message"].(string); ok && message != "" {
		return message, true
	}
	return "provider returned error status", true
}

func boolField(m map[string]interface{}, keys ...string) (bool, bool) {
	for _, key := range keys {
		if value, ok := m[key].(bool); ok {
			return value, true
		}
	}
	return false, false
}

func regimesMentionSimples(entries []interface{}) bool {
	for _, entry := range entries {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		for _, value := range fields {
			text, ok := value.(string)
			if !ok {
				continue
			}
			if strings.Contains(strings.ToLower(text), "simples") {
				return true
			}
		}
	}
	return false
}
