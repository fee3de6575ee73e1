package cryptox

import "strings"

const fixedMask = "****"

// MaskIBAN keeps the country/check prefix and the last four characters.
func MaskIBAN(iban string) string {
	return maskMiddle(compact(iban), 4, 4)
}

// MaskBIC keeps the bank code and the branch suffix.
func MaskBIC(bic string) string {
	return maskMiddle(compact(bic), 4, 3)
}

func maskMiddle(value string, head, tail int) string {
	if len(value) <= head+tail {
		return fixedMask
	}
	return value[:head] + strings.Repeat("*", len(value)-head-tail) + value[len(value)-tail:]
}

func compact(value string) string {
	return strings.ToUpper(strings.Join(strings.Fields(value), ""))
}
