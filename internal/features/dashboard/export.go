package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/features/grid"

	"github.com/xuri/excelize/v2"
)

var workbookColumns = []string{"ID", "Type", "Title", "Role", "X", "Y", "W", "H", "Column", "Row"}

const maxSheetName = 31

var sheetNameReplacer = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

// sheetName turns a dashboard id into a name Excel accepts: no reserved
// characters, at most 31 runes, unique ignoring case.
func sheetName(id string, used map[string]bool) string {
	name := strings.Trim(sheetNameReplacer.Replace(id), "'")
	if name == "" {
		name = "dashboard"
	}
	base := truncateRunes(name, maxSheetName)
	name = base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// buildWorkbook writes one sheet per dashboard listing its widgets.
func buildWorkbook(cfg *models.Config) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	ids := make([]string, 0, len(cfg.Dashboards))
	for id := range cfg.Dashboards {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	sheets := make(map[string]string, len(ids))
	used := make(map[string]bool, len(ids))
	for _, id := range ids {
		sheets[id] = sheetName(id, used)
	}

	for _, dashID := range ids {
		d := cfg.Dashboards[dashID]
		id := sheets[dashID]
		if _, err := f.NewSheet(id); err != nil {
			return nil, fmt.Errorf("creating sheet %q: %w", id, err)
		}

		for i, col := range workbookColumns {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(id, cell, col)
			f.SetCellStyle(id, cell, cell, headerStyle)
		}

		for rowIdx, w := range d.Widgets {
			place := grid.GridArea(w.Position)
			values := []any{
				w.ID, string(w.Type), w.Title, string(w.Role),
				w.Position.X, w.Position.Y, w.Position.W, w.Position.H,
				place.Column, place.Row,
			}
			for colIdx, v := range values {
				cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
				f.SetCellValue(id, cell, v)
			}
		}

		for i := range workbookColumns {
			col, _ := excelize.ColumnNumberToName(i + 1)
			f.SetColWidth(id, col, col, 15)
		}
	}

	if len(ids) > 0 && !used["sheet1"] {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, err
		}
	}
	if index, err := f.GetSheetIndex(sheets[cfg.ActiveDashboardID]); err == nil && index >= 0 {
		f.SetActiveSheet(index)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
