package infrastructure

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"staffable/domain"
)

const timesheetSheet = "Timesheets"

var timesheetHeader = []any{"Reference", "Candidate", "School", "Week starting", "Status", "Hours", "Days", "Day rate", "Amount"}

// TimesheetWorkbook renders timesheets as an xlsx file with a totals row.
func TimesheetWorkbook(sheets []domain.Timesheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", timesheetSheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(timesheetSheet, "A1", &timesheetHeader); err != nil {
		return nil, err
	}

	hours, days, amount := decimal.Zero, decimal.Zero, decimal.Zero
	for i, t := range sheets {
		row := []any{
			t.ID,
			t.CandidateName,
			t.ClientName,
			t.WeekStart.String(),
			string(t.Status),
			t.TotalHours().InexactFloat64(),
			t.TotalDays().Round(2).InexactFloat64(),
			t.DayRate.InexactFloat64(),
			t.Amount().InexactFloat64(),
		}
		if err := f.SetSheetRow(timesheetSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
		hours = hours.Add(t.TotalHours())
		days = days.Add(t.TotalDays())
		amount = amount.Add(t.Amount())
	}

	totalRow := len(sheets) + 2
	totals := []any{"Total", "", "", "", "", hours.InexactFloat64(), days.Round(2).InexactFloat64(), "", amount.InexactFloat64()}
	if err := f.SetSheetRow(timesheetSheet, fmt.Sprintf("A%d", totalRow), &totals); err != nil {
		return nil, err
	}
	for _, r := range []int{1, totalRow} {
		if err := f.SetRowStyle(timesheetSheet, r, r, bold); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(timesheetSheet, "A", "C", 22); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
