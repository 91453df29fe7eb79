// reader.go
package file

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// defaultNaNTokens are the missing-value spellings seen in the race exports.
// "\\N" is how the upstream database dumps NULL into CSV.
var defaultNaNTokens = []string{"NA", "NaN", "\\N", "null", ""}

// ReadCSVToDataFrame loads a results or status CSV. Cells are kept as
// strings; numeric coercion happens downstream so a stray "\\N" in a points
// column becomes missing instead of poisoning type detection.
func ReadCSVToDataFrame(filePath string, extraNaN ...string) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	tokens := append(append([]string(nil), defaultNaNTokens...), extraNaN...)
	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(tokens),
	)
	if df.Error() != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to parse %s: %w", filePath, df.Error())
	}
	return df, nil
}

// ReadXLSXToDataFrame loads one worksheet of an Excel results export.
func ReadXLSXToDataFrame(filePath, sheetName string) (dataframe.DataFrame, error) {
	df, err := ReadXLSX(filePath, sheetName)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to open xlsx file: %w", err)
	}

	return df, nil
}

func ReadXLSX(filePath, sheetName string) (df dataframe.DataFrame, err error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("xlsx open file: %w", err)
	}

	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("no worksheets in %s", filePath)
	}
	sheet, ok := xlFile.Sheet[sheetName]
	if !ok {
		return dataframe.New(), fmt.Errorf("worksheet %q not found in %s", sheetName, filePath)
	}

	return convertSheetToDataFrame(sheet), nil
}

// convertSheetToDataFrame turns an xlsx.Sheet into a string-typed DataFrame.
// The first row is the header.
func convertSheetToDataFrame(sheet *xlsx.Sheet) dataframe.DataFrame {
	if len(sheet.Rows) == 0 {
		return dataframe.New()
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.Value)
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	for _, row := range sheet.Rows[1:] {
		for i := range headers {
			value := ""
			if i < len(row.Cells) {
				value = row.Cells[i].Value
			}
			columns[i] = append(columns[i], value)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	return dataframe.New(seriesList...)
}

// ReadAny dispatches on the file extension.
func ReadAny(filePath, sheetName string, extraNaN ...string) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		return ReadCSVToDataFrame(filePath, extraNaN...)
	case ".xlsx":
		return ReadXLSXToDataFrame(filePath, sheetName)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("unsupported data file %s, want .csv or .xlsx", filePath)
	}
}

// AddEntryID appends a stable synthetic key per entry, hashed from the
// driver and race identifiers. Useful when exports must be de-duplicated
// across repeated deliveries of the same season.
func AddEntryID(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	for _, col := range []string{"driverId", "raceId"} {
		found := false
		for _, name := range df.Names() {
			if name == col {
				found = true
				break
			}
		}
		if !found {
			return df, fmt.Errorf("required column %q not found, have columns %v", col, df.Names())
		}
	}

	drivers := df.Col("driverId").Records()
	races := df.Col("raceId").Records()
	ids := make([]string, len(drivers))
	for i := range drivers {
		hash := md5.Sum([]byte(drivers[i] + "|" + races[i]))
		ids[i] = hex.EncodeToString(hash[:])
	}

	out := df.Mutate(series.New(ids, series.String, "entryId"))
	return out, out.Error()
}

// ensureDir makes sure the data directory exists before anything writes
// into it.
func ensureDir(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", dirPath)
	}
	return os.MkdirAll(dirPath, 0755)
}

// GetTargetFolder resolves a folder relative to the executable, level
// directories up.
func GetTargetFolder(folderName string, level int) (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	path := exePath
	for i := 0; i < level; i++ {
		path = filepath.Dir(path)
	}

	return filepath.Join(path, folderName), nil
}
