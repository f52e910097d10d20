package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"structure-name-eval/internal/batch"
	"structure-name-eval/internal/store"
)

func exportRecords(t *testing.T, names ...string) []store.ParsedRecord {
	t.Helper()
	records := make([]store.ParsedRecord, 0, len(names))
	for _, name := range names {
		parsed := batch.ClassifyOne(name)
		records = append(records, *store.RecordFromParsed(parsed, batch.ValidLength(name), 0))
	}
	return records
}

func TestWriteCSV(t *testing.T) {
	records := exportRecords(t, "PTV_Liver_5040", "Lung_L", "zBody")

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading output back: %v", err)
	}
	if len(rows) != len(records)+1 {
		t.Fatalf("got %d rows, want %d", len(rows), len(records)+1)
	}
	if len(rows[0]) != len(columns) {
		t.Fatalf("header has %d columns, want %d", len(rows[0]), len(columns))
	}
	if rows[0][0] != "Name" || rows[0][1] != "Class" {
		t.Fatalf("unexpected header start: %v", rows[0][:2])
	}

	byName := make(map[string][]string, len(records))
	for _, row := range rows[1:] {
		byName[row[0]] = row
	}
	target := byName["PTV_Liver_5040"]
	if target == nil {
		t.Fatal("target row missing")
	}
	if target[1] != "Target" {
		t.Errorf("class = %q, want Target", target[1])
	}
	if target[8] != "Liver" {
		t.Errorf("structure indicator = %q, want Liver", target[8])
	}
	if target[10] != "5040" {
		t.Errorf("total dose = %q, want 5040", target[10])
	}

	oar := byName["Lung_L"]
	if oar == nil {
		t.Fatal("oar row missing")
	}
	if oar[1] != "BasicOAR" || oar[22] != "L" || oar[26] != "Lung" {
		t.Errorf("unexpected oar row: class=%q spatial=%q base=%q", oar[1], oar[22], oar[26])
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading output back: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
