package cnpj

import (
	"regexp"
	"strconv"
)

var nonDigit = regexp.MustCompile(`\D`)

// Clean removes all non-numeric characters from a raw CNPJ string.
func Clean(raw string) string {
	return nonDigit.ReplaceAllString(raw, "")
}

// Normalize cleans a raw CNPJ and reports whether it has the expected
// 14-digit shape. Shape is the only admission criterion for the lookup
// pipeline; check digits are a separate concern (ValidateDigits).
func Normalize(raw string) (string, bool) {
	cleaned := Clean(raw)
	return cleaned, len(cleaned) == 14
}

// Format formats a CNPJ as XX.XXX.XXX/XXXX-XX. Returns the input unchanged
// when it does not have 14 digits.
func Format(raw string) string {
	cleaned := Clean(raw)
	if len(cleaned) != 14 {
		return raw
	}
	return cleaned[:2] + "." + cleaned[2:5] + "." + cleaned[5:8] + "/" + cleaned[8:12] + "-" + cleaned[12:14]
}

// ValidateDigits validates the two check digits using the official
// algorithm. Used for advisory warnings only; a CNPJ that fails the
// checksum is still consulted, since typos in source spreadsheets are
// common and the providers are the authority.
func ValidateDigits(raw string) bool {
	cleaned := Clean(raw)
	if len(cleaned) != 14 {
		return false
	}
	if allSameDigit(cleaned) {
		return false
	}

	digits := make([]int, 14)
	for i, char := range cleaned {
		digit, err := strconv.Atoi(string(char))
		if err != nil {
			return false
		}
		digits[i] = digit
	}

	if !validCheckDigit(digits[:12], digits[12], []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}) {
		return false
	}
	return validCheckDigit(digits[:13], digits[13], []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
}

func allSameDigit(s string) bool {
	if len(s) == 0 {
		return false
	}
	first := s[0]
	for i := 1; i < len(s); i++ {
		if s[i] != first {
			return false
		}
	}
	return true
}

func validCheckDigit(digits []int, checkDigit int, weights []int) bool {
	sum := 0
	for i, digit := range digits {
		sum += digit * weights[i]
	}
	remainder := sum % 11
	expected := 0
	if remainder >= 2 {
		expected = 11 - remainder
	}
	return expected == checkDigit
}
