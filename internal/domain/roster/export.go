package roster

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Fleur41/HealthSense/pkg/caldate"
)

const (
	patientsSheet = "Patients"
	summarySheet  = "Summary"
)

var exportHeader = []string{
	"Patient Number",
	"Name",
	"Gender",
	"Age",
	"Last Visit",
	"BMI",
	"Status",
}

var exportWidths = []float64{16, 30, 10, 6, 14, 8, 14}

// ExportXLSX writes the status list and its summary as a spreadsheet.
func (s *Service) ExportXLSX(ctx context.Context, w io.Writer) error {
	list, err := s.PatientsWithLatestStatus(ctx)
	if err != nil {
		return err
	}

	f, err := buildWorkbook(list, s.today())
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func buildWorkbook(list []PatientWithStatus, today caldate.Date) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fillWorkbook(f, list, today); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func fillWorkbook(f *excelize.File, list []PatientWithStatus, today caldate.Date) error {
	if err := f.SetSheetName("Sheet1", patientsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(patientsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeader), 1)
	if err := f.SetCellStyle(patientsSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for i, width := range exportWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(patientsSheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	for i, p := range list {
		row := []interface{}{
			p.Patient.PatientNumber,
			p.Patient.FullName(),
			string(p.Patient.Gender),
			p.Patient.AgeAt(today),
			"", "", "",
		}
		if p.LastVisitDate != nil {
			row[4] = p.LastVisitDate.String()
		}
		if p.BMI != nil {
			row[5] = *p.BMI
		}
		if p.BMIStatus != nil {
			row[6] = string(*p.BMIStatus)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(patientsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	stats := Summarize(list)
	summary := [][]interface{}{
		{"Generated", today.String()},
		{"Total", stats.Total},
		{"Normal", stats.Normal},
		{"Overweight", stats.Overweight},
		{"Underweight", stats.Underweight},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return nil
}
