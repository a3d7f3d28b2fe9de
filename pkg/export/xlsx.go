package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"fieldops/entities"
	"fieldops/pkg/panel"
)

// LedgerXLSX renders a task's resource ledger as a spreadsheet. Lines without
// a unit cost show a dash, never 0.
func LedgerXLSX(d *entities.TaskDetail) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Resources"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{"Resource", "Quantity", "Unit cost", "Total cost"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	row := 2
	for _, r := range d.Resources {
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.ResourceName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.Quantity)
		if r.UnitCost != nil {
			_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), *r.UnitCost)
		} else {
			_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), "—")
		}
		if t := panel.LineTotal(r.Quantity, r.UnitCost); t != nil {
			_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), *t)
		} else {
			_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), "—")
		}
		row++
	}

	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total")
	_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), panel.LedgerTotal(d.Resources))
	return f, nil
}
