package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportSalesToExcel dumps the whole journal into an xlsx report under
// reports/ and returns the file path.
func (s *SalesJournal) ExportSalesToExcel(ctx context.Context, filename string) (string, error) {
	const query = `SELECT * FROM sales_journal ORDER BY created_at DESC`
	var records []SaleRecord
	if err := s.db.SelectContext(ctx, &records, query); err != nil {
		return "", fmt.Errorf("failed to fetch journal: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet("Sales")
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []string{
		"ID", "Sale ID", "Customer ID", "Cashier", "Payment Method",
		"Subtotal", "IVA", "Total", "Items", "Created At",
	}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue("Sales", cell, header)
	}

	for row, rec := range records {
		customer := ""
		if rec.CustomerID != nil {
			customer = fmt.Sprintf("%d", *rec.CustomerID)
		}
		data := []interface{}{
			rec.ID,
			rec.SaleID,
			customer,
			rec.Cashier,
			rec.PaymentMethod,
			rec.Subtotal,
			rec.Tax,
			rec.Total,
			rec.ItemCount,
			rec.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, value := range data {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue("Sales", cell, value)
		}
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellStyle("Sales", "A1", "J1", style)

	f.SetActiveSheet(index)

	if err := os.MkdirAll("reports", 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	if filename == "" {
		filename = fmt.Sprintf("sales_%s", time.Now().Format("20060102_1504"))
	}
	filepath := fmt.Sprintf("reports/%s.xlsx", filename)
	if err := f.SaveAs(filepath); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}

	return filepath, nil
}
