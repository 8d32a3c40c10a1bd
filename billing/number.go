package billing

import (
	"fmt"

	"github.com/satheeshds/invoicing/models"
)

const invoiceNumberPrefix = "INV-"

// FormatInvoiceNumber renders n as INV-0001.
func FormatInvoiceNumber(n int64) string {
	return fmt.Sprintf("%s%04d", invoiceNumberPrefix, n)
}

// ParseInvoiceNumber returns the numeric suffix of s.
func ParseInvoiceNumber(s string) (int64, bool) {
	return models.InvoiceNumberSuffix(s)
}

// NextInvoiceNumber returns the number following existingMax, or INV-0001
// when there is none.
func NextInvoiceNumber(existingMax string) string {
	n, _ := ParseInvoiceNumber(existingMax)
	return FormatInvoiceNumber(n + 1)
}
