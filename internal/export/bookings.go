package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"bookable/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	bookingsSheet = "Bookings"
)

var bookingHeaders = []string{
	"ID", "Service", "Staff", "Date", "Time", "Participants", "Status", "Customer", "Phone", "Comment", "Reason",
}

// Report is one exported date range.
type Report struct {
	From     time.Time
	To       time.Time
	Bookings []*models.Booking
	Services []*models.ServiceDefinition
}

// FileName is the default name of the workbook for the range.
func (r Report) FileName() string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", r.From.Format(models.DateFormat), r.To.Format(models.DateFormat))
}

// WriteBookings renders the report as an xlsx workbook into w.
func WriteBookings(w io.Writer, r Report) error {
	f, err := build(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveBookings writes the workbook into dir and returns its path.
func SaveBookings(dir string, r Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := build(r)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, r.FileName())
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

func build(r Report) (*excelize.File, error) {
	if r.To.Before(r.From) {
		return nil, fmt.Errorf("export range ends before it starts")
	}

	f := excelize.NewFile()
	if _, err := f.NewSheet(summarySheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	if _, err := f.NewSheet(bookingsSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	_ = f.DeleteSheet("Sheet1")
	f.SetActiveSheet(0)

	names := make(map[int64]string, len(r.Services))
	for _, svc := range r.Services {
		names[svc.ID] = svc.Name
	}

	writeSummary(f, r)
	writeBookings(f, r.Bookings, names)
	return f, nil
}

// writeSummary lays out services as rows and dates as columns; each cell holds
// the participants of active bookings.
func writeSummary(f *excelize.File, r Report) {
	_ = f.SetCellValue(summarySheet, "A1", fmt.Sprintf("Period: %s - %s",
		r.From.Format(models.DateFormat), r.To.Format(models.DateFormat)))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	serviceStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	columns := make(map[string]int)
	col := 2
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(summarySheet, cell, d.Format("02.01"))
		_ = f.SetCellStyle(summarySheet, cell, cell, headerStyle)
		columns[d.Format(models.DateFormat)] = col
		col++
	}

	rows := make(map[int64]int, len(r.Services))
	for i, svc := range r.Services {
		row := 3 + i
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(summarySheet, cell, fmt.Sprintf("%s (%d)", svc.Name, svc.MaxParticipants))
		_ = f.SetCellStyle(summarySheet, cell, cell, serviceStyle)
		rows[svc.ID] = row
	}

	totals := make(map[[2]int]int)
	for _, b := range r.Bookings {
		if !models.IsActiveStatus(b.Status) {
			continue
		}
		row, ok := rows[b.ServiceID]
		if !ok {
			continue
		}
		col, ok := columns[b.Date.Format(models.DateFormat)]
		if !ok {
			continue
		}
		totals[[2]int{col, row}] += b.ParticipantsCount
	}
	for pos, total := range totals {
		cell, _ := excelize.CoordinatesToCellName(pos[0], pos[1])
		_ = f.SetCellValue(summarySheet, cell, total)
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 30)
	if col > 2 {
		last, _ := excelize.ColumnNumberToName(col - 1)
		_ = f.SetColWidth(summarySheet, "B", last, 10)
		_ = f.MergeCell(summarySheet, "A1", last+"1")
	}
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(summarySheet, "A1", "A1", titleStyle)
}

func writeBookings(f *excelize.File, bookings []*models.Booking, names map[int64]string) {
	for i, h := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, h)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	lastHeader, _ := excelize.CoordinatesToCellName(len(bookingHeaders), 1)
	_ = f.SetCellStyle(bookingsSheet, "A1", lastHeader, headerStyle)

	for i, b := range bookings {
		staff := ""
		if b.StaffMemberID != nil {
			staff = fmt.Sprintf("%d", *b.StaffMemberID)
		}
		values := []any{
			b.ID, names[b.ServiceID], staff, b.Date.Format(models.DateFormat), b.Time.String(),
			b.ParticipantsCount, b.Status, b.CustomerName, b.CustomerPhone, b.Comment, b.CancellationReason,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = f.SetSheetRow(bookingsSheet, cell, &values)
	}

	_ = f.SetColWidth(bookingsSheet, "B", "B", 25)
	_ = f.SetColWidth(bookingsSheet, "H", "K", 20)
}
