package inventory

import (
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func parseBooleanValue(s string) bool {
	if s == "" {
		return false
	}
	cleanStr := strings.ToLower(strings.TrimSpace(s))
	return cleanStr == "true" || cleanStr == "1" || cleanStr == "yes" || cleanStr == "enabled"
}

func getColumnValue(row []string, colMap map[string]int, key string) string {
	if idx, exists := colMap[key]; exists && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func buildColumnMap(headers []string) map[string]int {
	colMap := make(map[string]int)
	for i, header := range headers {
		key := strings.ToLower(strings.TrimSpace(header))
		colMap[key] = i
	}
	return colMap
}

func readSheet(excelFile *excelize.File, sheets []string, sheetName string) [][]string {
	if !slices.Contains(sheets, sheetName) {
		return [][]string{}
	}

	rows, err := excelFile.GetRows(sheetName)
	if err != nil {
		zap.S().Named("inventory").Warnf("Could not read %s sheet: %v", sheetName, err)
		return [][]string{}
	}

	return rows
}
