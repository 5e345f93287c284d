package layout

import "fmt"

func init() {
	if err := ValidateTables(); err != nil {
		panic(err)
	}
}

// RowsForLevel returns the padding keys placed before and after keymap row
// row of a page with totalRows rows. The first two rows and the last two rows
// of a page carry padding; ok is false for the rows between them and for
// out-of-range arguments. Returned slices are copies.
func RowsForLevel(level Level, row, totalRows int) (pre, post []KeyDescriptor, ok bool) {
	idx, ok := paddingIndex(row, totalRows)
	if !ok || !level.Valid() {
		return nil, nil, false
	}
	return cloneRow(defaultKeysPre[level][idx]), cloneRow(defaultKeysPost[level][idx]), true
}

// paddingIndex maps a keymap row onto the padding-table row. Bottom rows are
// counted from the end so short and tall keymaps line up identically.
func paddingIndex(row, totalRows int) (int, bool) {
	if row < 0 || row >= totalRows {
		return 0, false
	}
	if row < 2 {
		return row, true
	}
	if row >= totalRows-2 {
		return row - (totalRows - 2) + 2, true
	}
	return 0, false
}

func cloneRow(keys []KeyDescriptor) []KeyDescriptor {
	out := make([]KeyDescriptor, len(keys))
	for i, k := range keys {
		out[i] = k.clone()
	}
	return out
}

// ValidateTables checks that every switch key in the padding tables targets a
// configured level.
func ValidateTables() error {
	for _, table := range []struct {
		name string
		rows *[NumLevels][paddingRows][]KeyDescriptor
	}{
		{"pre", &defaultKeysPre},
		{"post", &defaultKeysPost},
	} {
		for l, rows := range table.rows {
			for r, keys := range rows {
				if keys == nil {
					return fmt.Errorf("layout: %s[%d][%d]: nil row", table.name, l, r)
				}
				for i, k := range keys {
					if k.Level != nil && !k.Level.Valid() {
						return fmt.Errorf("layout: %s[%d][%d][%d]: invalid target level %d",
							table.name, l, r, i, *k.Level)
					}
				}
			}
		}
	}
	return nil
}
