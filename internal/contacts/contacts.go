// Package contacts loads and normalizes the recipient list.
package contacts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ponram06/WhatsappBulksender/internal/domain"
)

const minPhoneDigits = 10

// Normalize shape-normalizes a raw phone value: strip every non-digit,
// strip leading zeros, and prefix the default country code when exactly 10
// digits remain without it. It does not check that the result is dialable.
func Normalize(raw, defaultCC string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	s := strings.TrimLeft(b.String(), "0")
	if len(s) == minPhoneDigits && !strings.HasPrefix(s, defaultCC) {
		s = defaultCC + s
	}
	return s
}

// Load reads a contact book (.csv or .xlsx by extension), normalizes every
// phone, drops rows whose normalized phone is shorter than 10 digits, and
// deduplicates by phone keeping the first occurrence. Row order is
// preserved. A missing Phone column is a fatal configuration error.
func Load(path, defaultCC string) ([]domain.Contact, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty contact book", path)
	}

	phoneCol, nameCol := -1, -1
	for i, h := range rows[0] {
		switch strings.TrimSpace(h) {
		case "Phone":
			phoneCol = i
		case "Name":
			nameCol = i
		}
	}
	if phoneCol < 0 {
		return nil, fmt.Errorf("%s: contact book must contain a 'Phone' column", path)
	}

	seen := make(map[string]bool)
	var out []domain.Contact
	for _, row := range rows[1:] {
		if phoneCol >= len(row) {
			continue
		}
		phone := Normalize(row[phoneCol], defaultCC)
		if len(phone) < minPhoneDigits {
			continue
		}
		if seen[phone] {
			continue
		}
		seen[phone] = true
		name := ""
		if nameCol >= 0 && nameCol < len(row) {
			name = strings.TrimSpace(row[nameCol])
		}
		out = append(out, domain.Contact{Name: name, Phone: phone})
	}
	return out, nil
}

func readRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	default:
		return readCSV(path)
	}
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open contacts: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open contacts: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}
