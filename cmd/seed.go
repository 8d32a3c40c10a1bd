package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/satheeshds/invoicing/billing"
	"github.com/satheeshds/invoicing/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample clients and invoices",
	Long: `Create three sample clients and a paid, a sent and a draft invoice.
Nothing is written when a sample client already exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		clients, invoices, err := seedSample(cmd.Context(), a.billing, time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "inserted %d client(s) and %d invoice(s)\n", clients, invoices)
		return nil
	},
}

func terms(days int) *int { return &days }

var sampleClients = []models.ClientInput{
	{
		Name:         "Acme Corporation",
		Email:        "billing@acme.com",
		Phone:        "+1 650-253-0000",
		Address:      "123 Business Rd, New York, NY 10001, USA",
		TaxID:        "12-3456789",
		PaymentTerms: terms(30),
	},
	{
		Name:         "Tech Solutions Inc.",
		Email:        "accounts@techsolutions.com",
		Phone:        "+1 212-736-3100",
		Address:      "456 Tech Park, San Francisco, CA 94107, USA",
		TaxID:        "98-7654321",
		PaymentTerms: terms(15),
	},
	{
		Name:         "Global Retail",
		Email:        "finance@globalretail.com",
		Phone:        "+1 312-744-5000",
		Address:      "789 Market St, Chicago, IL 60606, USA",
		TaxID:        "45-6789123",
		PaymentTerms: terms(45),
	},
}

func item(desc string, qty int64, price int64) models.LineItemInput {
	q := decimal.NewFromInt(qty)
	p := models.Money(price * 100)
	return models.LineItemInput{Description: desc, Quantity: &q, Price: &p}
}

// seedSample creates the sample data through the billing service so every
// record goes through validation and numbering.
func seedSample(ctx context.Context, svc *billing.Service, now time.Time) (int, int, error) {
	var ids []string
	for _, in := range sampleClients {
		c, err := svc.CreateClient(ctx, in)
		var conflict *billing.ConflictError
		if errors.As(err, &conflict) {
			slog.Info("sample data already present", "email", in.Email)
			return 0, 0, nil
		}
		if err != nil {
			return 0, 0, fmt.Errorf("creating client %s: %w", in.Name, err)
		}
		ids = append(ids, c.ID)
	}

	day := func(offset int) string { return now.AddDate(0, 0, offset).Format("2006-01-02") }
	issued := day(-20)

	paid, err := svc.CreateInvoice(ctx, models.InvoiceInput{
		ClientID:  ids[0],
		Items:     []models.LineItemInput{item("Web Development Services", 40, 75), item("UI/UX Design", 20, 100)},
		IssueDate: &issued,
		DueDate:   day(10),
		Notes:     "Thank you for your business!",
		Terms:     "Payment due within 30 days",
	})
	if err != nil {
		return 0, 0, err
	}
	if _, err := svc.SendInvoice(ctx, paid.ID, models.SendInput{}); err != nil {
		return 0, 0, err
	}
	paidOn := day(-5)
	if _, err := svc.RecordPayment(ctx, paid.ID, models.PaymentInput{
		Amount:    paid.Total,
		Date:      &paidOn,
		Method:    models.MethodBankTransfer,
		Reference: "BANK-REF-001",
	}); err != nil {
		return 0, 0, err
	}

	sent, err := svc.CreateInvoice(ctx, models.InvoiceInput{
		ClientID:  ids[1],
		Items:     []models.LineItemInput{item("Monthly Maintenance", 1, 1200)},
		TaxRate:   decimal.NewFromInt(10),
		IssueDate: &issued,
		DueDate:   day(-5),
		Notes:     "Recurring maintenance services",
		Terms:     "Payment due within 15 days",
	})
	if err != nil {
		return 0, 0, err
	}
	if _, err := svc.SendInvoice(ctx, sent.ID, models.SendInput{}); err != nil {
		return 0, 0, err
	}

	if _, err := svc.CreateInvoice(ctx, models.InvoiceInput{
		ClientID: ids[2],
		Items:    []models.LineItemInput{item("Point of Sale Integration", 12, 150)},
		TaxRate:  decimal.NewFromFloat(7.5),
		DueDate:  day(45),
	}); err != nil {
		return 0, 0, err
	}

	return len(ids), 3, nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
