// Package export renders parsed structure-name records as downloadable
// spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"structure-name-eval/internal/classify"
	"structure-name-eval/internal/store"
)

const sheetName = "Structures"

// columns is the export layout, shared between the xlsx and csv
// writers.
var columns = []string{
	"Name",
	"Class",
	"Conformant",
	"Remainder",
	"TargetType",
	"TargetClassifier",
	"TargetNumber",
	"Modalities",
	"StructureIndicator",
	"DoseSpecifier",
	"TotalDose_cGy",
	"Fractions",
	"ExternalCrop_mm",
	"CustomQualifier",
	"OARName",
	"StructureCategory",
	"Plural",
	"CustomStructure",
	"VertebraeLevel",
	"VertebraeNumber",
	"NerveLevel",
	"NeckNodeLevel",
	"SpatialIndicator",
	"PRV",
	"PRVSize",
	"Partial",
	"BaseStructure",
	"StructureQualifier",
	"StructureNumber",
	"NotEvaluatedText",
}

func recordRow(rec store.ParsedRecord) []any {
	return []any{
		rec.Name,
		rec.Class,
		rec.Conformant,
		rec.Remainder,
		rec.TargetType,
		rec.TargetClassifier,
		rec.TargetNumber,
		formatModalities(rec.Modalities()),
		rec.StructureIndicator,
		rec.DoseSpecifier,
		floatOrBlank(rec.TotalDoseCGy),
		intOrBlank(rec.Fractions),
		rec.ExternalCropMM,
		rec.CustomQualifier,
		rec.OARName,
		rec.StructureCategory,
		boolMark(rec.Plural),
		rec.CustomStructure,
		rec.VertebraeLevel,
		rec.VertebraeNumber,
		rec.NerveLevel,
		rec.NeckNodeLevel,
		rec.SpatialIndicator,
		boolMark(rec.PRV),
		rec.PRVSize,
		boolMark(rec.Partial),
		rec.BaseStructure,
		rec.StructureQualifier,
		rec.StructureNumber,
		rec.NotEvalText,
	}
}

func formatModalities(mods []classify.Modality) string {
	if len(mods) == 0 {
		return ""
	}
	parts := make([]string, 0, len(mods))
	for _, m := range mods {
		parts = append(parts, m.Code+m.Sequence)
	}
	return strings.Join(parts, "+")
}

func floatOrBlank(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func intOrBlank(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func boolMark(v bool) string {
	if v {
		return "yes"
	}
	return ""
}

// WriteXLSX streams the records as a single-sheet workbook with a
// frozen header row.
func WriteXLSX(w io.Writer, records []store.ParsedRecord) error {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName(wb.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := wb.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		row := recordRow(rec)
		if err := wb.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := wb.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := wb.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
