package models

import "strconv"

// InvoiceNumberSuffix returns the trailing run of digits of an invoice
// number, so "INV-0042" yields 42.
func InvoiceNumberSuffix(s string) (int64, bool) {
	start := len(s)
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	if start == len(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s[start:], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
