// Package inventory parses device workbooks uploaded by operators.
package inventory

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const deviceSheet = "devices"

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9._-]*[a-zA-Z0-9])?$`)

// Row is one device entry extracted from a workbook, tagged with its source
// line for error reporting.
type Row struct {
	Line     int
	Hostname string
	Address  string
	Vendor   string
	Platform string
	Site     string
	Role     string
	Enabled  bool
}

// ParseWorkbook extracts device rows from an xlsx workbook. Malformed rows
// are reported in the returned error list and skipped. A missing device
// sheet or header column is an error.
func ParseWorkbook(content []byte) ([]Row, []string, error) {
	excelFile, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, nil, fmt.Errorf("error opening workbook: %v", err)
	}
	defer excelFile.Close()

	sheets := excelFile.GetSheetList()
	rows := readSheet(excelFile, sheets, findDeviceSheet(sheets))
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("workbook has no device rows")
	}

	colMap := buildColumnMap(rows[0])
	for _, required := range []string{"hostname", "address"} {
		if _, ok := colMap[required]; !ok {
			return nil, nil, fmt.Errorf("workbook is missing the %q column", required)
		}
	}

	devices := []Row{}
	rowErrors := []string{}
	for i, row := range rows[1:] {
		line := i + 2
		if len(row) == 0 {
			continue
		}

		hostname := getColumnValue(row, colMap, "hostname")
		address := getColumnValue(row, colMap, "address")
		if hostname == "" && address == "" {
			continue
		}

		switch {
		case hostname == "":
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: hostname is missing", line))
			continue
		case !hostnameRegex.MatchString(hostname):
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: invalid hostname %q", line, hostname))
			continue
		case address == "":
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: address is missing", line))
			continue
		}

		enabled := true
		if raw := getColumnValue(row, colMap, "enabled"); raw != "" {
			enabled = parseBooleanValue(raw)
		}

		devices = append(devices, Row{
			Line:     line,
			Hostname: hostname,
			Address:  address,
			Vendor:   getColumnValue(row, colMap, "vendor"),
			Platform: getColumnValue(row, colMap, "platform"),
			Site:     getColumnValue(row, colMap, "site"),
			Role:     getColumnValue(row, colMap, "role"),
			Enabled:  enabled,
		})
	}

	zap.S().Named("inventory").Infof("parsed workbook: %d devices, %d bad rows", len(devices), len(rowErrors))
	return devices, rowErrors, nil
}

// findDeviceSheet returns the sheet named "devices" regardless of case, or
// the first sheet when none matches. Single sheet exports from other tools
// rarely carry the expected name.
func findDeviceSheet(sheets []string) string {
	for _, sheet := range sheets {
		if strings.EqualFold(sheet, deviceSheet) {
			return sheet
		}
	}
	if len(sheets) > 0 {
		return sheets[0]
	}
	return deviceSheet
}

// IsWorkbook reports whether the content looks like an xlsx file that
// excelize can open.
func IsWorkbook(content []byte) bool {
	if len(content) < 2 {
		return false
	}

	if content[0] == 0x50 && content[1] == 0x4B {
		f, err := excelize.OpenReader(bytes.NewReader(content))
		if err != nil {
			return false
		}
		defer f.Close()
		return true
	}

	return false
}
