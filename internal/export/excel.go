package export

import (
	"fmt"

	"shareit/internal/models"

	"github.com/xuri/excelize/v2"
)

const bookingsSheet = "Bookings"

var bookingsHeader = []string{"ID", "Item", "Booker", "Start", "End", "Status"}

// BuildBookingsWorkbook renders the bookings audit trail as an Excel
// workbook, one row per booking in the order given.
func BuildBookingsWorkbook(bookings []models.Booking) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", bookingsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	for col, title := range bookingsHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(bookingsSheet, cell, title); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, b := range bookings {
		values := []any{
			b.ID,
			b.ItemName,
			b.BookerName,
			models.FormatTime(b.Start),
			models.FormatTime(b.End),
			string(b.Status),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(bookingsSheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write booking row: %w", err)
			}
		}
	}

	return f, nil
}
