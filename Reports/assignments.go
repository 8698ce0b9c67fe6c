// Package Reports renders assignment data as spreadsheets.
package Reports

import (
	"bytes"
	"fmt"
	"time"

	"ClientMax/Models"
	"ClientMax/Repository"

	"github.com/xuri/excelize/v2"
)

const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	AssignmentsSheet = "Assignments"
	SummarySheet     = "Summary"
)

var assignmentHeaders = []string{
	"ID", "Title", "Description", "Assigned To", "Assigned By", "Priority",
	"Status", "Due Date", "Completed At", "Notes", "Created At", "Updated At",
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func employeeName(ref *Models.EmployeeRef, fallback string) string {
	if ref != nil && ref.Name != "" {
		return ref.Name
	}
	return fallback
}

// AssignmentsWorkbook builds a workbook with one row per assignment and a
// summary sheet of the counts.
func AssignmentsWorkbook(assignments []Models.WorkAssignment, summary Repository.Summary, generated time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(AssignmentsSheet)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for i, header := range assignmentHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(AssignmentsSheet, cell, header)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		f.SetRowStyle(AssignmentsSheet, 1, 1, headerStyle)
	}

	for rowIndex, a := range assignments {
		row := rowIndex + 2

		dueDate := ""
		if a.DueDate != nil {
			dueDate = time.Time(*a.DueDate).Format(Models.DateLayout)
		}
		completedAt := ""
		if a.CompletedAt != nil {
			completedAt = a.CompletedAt.Format("2006-01-02 15:04:05")
		}

		values := []interface{}{
			a.ID,
			a.Title,
			deref(a.Description),
			employeeName(a.AssignedToEmployee, a.AssignedTo),
			employeeName(a.AssignedByEmployee, a.AssignedBy),
			string(a.Priority),
			string(a.Status),
			dueDate,
			completedAt,
			deref(a.Notes),
			a.CreatedAt.Format("2006-01-02 15:04:05"),
			a.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		for colIndex, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIndex+1, row)
			f.SetCellValue(AssignmentsSheet, cell, value)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(assignmentHeaders))
	f.SetColWidth(AssignmentsSheet, "A", lastCol, 18)
	f.SetColWidth(AssignmentsSheet, "B", "C", 40)

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	rows := [][]interface{}{
		{"Generated", generated.Format("2006-01-02 15:04:05")},
		{"Total", summary.Total},
		{"Due Today", summary.DueToday},
		{"Pending", summary.Pending},
		{"In Progress", summary.InProgress},
		{"Completed", summary.Completed},
		{"Cancelled", summary.Cancelled},
	}
	for i, r := range rows {
		f.SetCellValue(SummarySheet, fmt.Sprintf("A%d", i+1), r[0])
		f.SetCellValue(SummarySheet, fmt.Sprintf("B%d", i+1), r[1])
	}
	f.SetColWidth(SummarySheet, "A", "A", 15)

	if f.GetSheetName(0) != AssignmentsSheet {
		f.DeleteSheet("Sheet1")
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing Excel file to buffer: %w", err)
	}
	return &buf, nil
}
