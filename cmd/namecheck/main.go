package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"structure-name-eval/internal/batch"
	"structure-name-eval/internal/export"
	"structure-name-eval/internal/store"
)

func main() {
	var (
		inPath   = flag.String("in", "", "Path to a file with one structure name per line")
		dbPath   = flag.String("db", "", "Optional SQLite database to persist records into")
		csvPath  = flag.String("csv", "", "Optional path to write a CSV report")
		xlsxPath = flag.String("xlsx", "", "Optional path to write an XLSX report")
		jsonOut  = flag.Bool("json", false, "Print records as JSON to stdout")
		workers  = flag.Int("workers", 0, "Worker pool size (0 = derive from CPU count)")
	)
	flag.Parse()

	names := flag.Args()
	if *inPath != "" {
		fileNames, err := readNames(*inPath)
		if err != nil {
			logrus.Fatalf("read names: %v", err)
		}
		names = append(fileNames, names...)
	}
	if len(names) == 0 {
		logrus.Fatal("no structure names given: use -in or pass names as arguments")
	}

	result, err := batch.Run(context.Background(), names, batch.Options{Workers: *workers})
	if err != nil {
		logrus.Fatalf("classify names: %v", err)
	}

	counts := make(map[string]int)
	nonconformant := 0
	for _, rec := range result.Records {
		class := string(rec.Class)
		if class == "" {
			class = "unmatched"
		}
		counts[class]++
		if !rec.Conformant {
			nonconformant++
		}
	}

	logrus.WithFields(logrus.Fields{
		"names":         len(names),
		"classes":       counts,
		"nonconformant": nonconformant,
		"duplicates":    len(result.Duplicates),
		"overlength":    len(result.Overlength),
		"with_spaces":   len(result.NamesWithSpace),
	}).Info("classification summary")

	for _, name := range result.Duplicates {
		logrus.WithField("name", name).Warn("duplicate structure name")
	}
	for _, name := range result.Overlength {
		logrus.WithField("name", name).Warn("structure name exceeds length limit")
	}
	for _, rec := range result.Records {
		if !rec.Conformant {
			logrus.WithFields(logrus.Fields{
				"name":      rec.Name,
				"class":     string(rec.Class),
				"remainder": rec.Remainder,
			}).Warn("nonconformant structure name")
		}
	}

	rows := make([]store.ParsedRecord, 0, len(result.Records))
	for _, rec := range result.Records {
		rows = append(rows, *store.RecordFromParsed(rec, batch.ValidLength(rec.Name), 0))
	}

	if *dbPath != "" {
		db, err := store.Open(*dbPath, true)
		if err != nil {
			logrus.Fatalf("open database: %v", err)
		}
		defer func() {
			if cerr := db.Close(); cerr != nil {
				logrus.WithError(cerr).Warn("close database")
			}
		}()
		for i := range rows {
			if err := db.SaveRecord(&rows[i]); err != nil {
				logrus.Fatalf("save record %s: %v", rows[i].Name, err)
			}
		}
		logrus.WithField("records", len(rows)).Info("records persisted")
	}

	if *csvPath != "" {
		if err := writeFile(*csvPath, func(f *os.File) error {
			return export.WriteCSV(f, rows)
		}); err != nil {
			logrus.Fatalf("write csv: %v", err)
		}
		logrus.WithField("path", *csvPath).Info("csv report written")
	}

	if *xlsxPath != "" {
		if err := writeFile(*xlsxPath, func(f *os.File) error {
			return export.WriteXLSX(f, rows)
		}); err != nil {
			logrus.Fatalf("write xlsx: %v", err)
		}
		logrus.WithField("path", *xlsxPath).Info("xlsx report written")
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Records); err != nil {
			logrus.Fatalf("encode records: %v", err)
		}
	}

	if nonconformant > 0 {
		os.Exit(1)
	}
}

func readNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, scanner.Err()
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
