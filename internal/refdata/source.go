package refdata

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"ldb/internal"
)

// Source yields the raw rows of one reference tab, header row included.
// Two implementations exist: the Google Sheets reader and the local xlsx
// reader used when the spreadsheet is exported by hand.
type Source interface {
	Rows(ctx context.Context, tab string) ([][]string, error)
}

// columnIndex maps lowercased header names to their position. Header
// matching is case-insensitive, same as the sheet consumers expect.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func cell(row []string, idx map[string]int, column string) string {
	i, ok := idx[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func cellPtr(row []string, idx map[string]int, column string) *string {
	v := cell(row, idx, column)
	if v == "" {
		return nil
	}
	return &v
}

// ParseClasses reads the Classes tab: class_rusname is the match key,
// group_name and purpose are the payload. Rows without a key are dropped.
func ParseClasses(rows [][]string) ([]internal.ClassRefRow, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("classes tab is empty")
	}
	idx := columnIndex(rows[0])
	if _, ok := idx["class_rusname"]; !ok {
		return nil, fmt.Errorf("classes tab missing class_rusname column")
	}

	var out []internal.ClassRefRow
	for _, row := range rows[1:] {
		rusName := cell(row, idx, "class_rusname")
		if rusName == "" {
			continue
		}
		out = append(out, internal.ClassRefRow{
			RusName:   rusName,
			GroupName: cellPtr(row, idx, "group_name"),
			Purpose:   cellPtr(row, idx, "purpose"),
		})
	}
	return out, nil
}

// ParseCharacteristics reads the Characteristics tab: characteristic is the
// match key, characteristic_good and priority are the payload. Rows with an
// unparseable priority keep their key but drop the priority.
func ParseCharacteristics(rows [][]string) ([]internal.CharacteristicRefRow, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("characteristics tab is empty")
	}
	idx := columnIndex(rows[0])
	if _, ok := idx["characteristic"]; !ok {
		return nil, fmt.Errorf("characteristics tab missing characteristic column")
	}

	var out []internal.CharacteristicRefRow
	for _, row := range rows[1:] {
		characteristic := cell(row, idx, "characteristic")
		if characteristic == "" {
			continue
		}
		ref := internal.CharacteristicRefRow{
			Characteristic: characteristic,
			DisplayName:    cellPtr(row, idx, "characteristic_good"),
		}
		if raw := cell(row, idx, "priority"); raw != "" {
			if priority, err := strconv.Atoi(raw); err == nil {
				ref.Priority = &priority
			}
		}
		out = append(out, ref)
	}
	return out, nil
}
