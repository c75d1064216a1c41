package storage

import (
	"context"
	"strings"

	"ldb/internal"
)

const productColumns = `id, article, name, class_id, total_stock`

func scanProducts(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]internal.ProductRecord, error) {
	var out []internal.ProductRecord
	for rows.Next() {
		var p internal.ProductRecord
		if err := rows.Scan(&p.ID, &p.Article, &p.Name, &p.ClassID, &p.TotalStock); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func intArgs(values []int) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func (d *DB) ProductsByArticle(ctx context.Context, article string) ([]internal.ProductRecord, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE article = ?`, article)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (d *DB) ProductsByNameSubstring(ctx context.Context, substr string) ([]internal.ProductRecord, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT `+productColumns+` FROM products
WHERE instr(name_lower, ?) > 0
ORDER BY id
`, strings.ToLower(substr))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ProductsByClassKeyword returns products whose class matches the keyword as
// a case-insensitive substring of group name, purpose or class name.
func (d *DB) ProductsByClassKeyword(ctx context.Context, keyword string) ([]internal.ProductRecord, error) {
	lowered := strings.ToLower(keyword)
	rows, err := d.conn.QueryContext(ctx, `
SELECT p.id, p.article, p.name, p.class_id, p.total_stock
FROM products p
JOIN classes_clarify c ON p.class_id = c.id
WHERE instr(coalesce(c.group_lower, ''), ?) > 0
   OR instr(coalesce(c.purpose_lower, ''), ?) > 0
   OR instr(c.rusname_lower, ?) > 0
ORDER BY p.id
`, lowered, lowered, lowered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (d *DB) ClassIDsByKeyword(ctx context.Context, keyword string) ([]int, error) {
	lowered := strings.ToLower(keyword)
	rows, err := d.conn.QueryContext(ctx, `
SELECT id FROM classes_clarify
WHERE instr(coalesce(group_lower, ''), ?) > 0
   OR instr(coalesce(purpose_lower, ''), ?) > 0
   OR instr(rusname_lower, ?) > 0
`, lowered, lowered, lowered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInts(rows)
}

func (d *DB) ProductIDsByClassNames(ctx context.Context, names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := d.conn.QueryContext(ctx, `
SELECT p.id FROM products p
JOIN classes_clarify c ON p.class_id = c.id
WHERE c.class_rusname IN (`+placeholders(len(names))+`)
`, stringArgs(names)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInts(rows)
}

func (d *DB) ProductIDsByGroupNames(ctx context.Context, names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := d.conn.QueryContext(ctx, `
SELECT p.id FROM products p
JOIN classes_clarify c ON p.class_id = c.id
WHERE c.group_name IN (`+placeholders(len(names))+`)
`, stringArgs(names)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInts(rows)
}

// CharacteristicIDsByName resolves a requested characteristic name against
// both the canonical and the display name, exact match. One name may hit
// several definitions; all of them participate in the query.
func (d *DB) CharacteristicIDsByName(ctx context.Context, name string) ([]int, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT id FROM characteristics_clarify
WHERE characteristic = ? OR characteristic_good = ?
`, name, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInts(rows)
}

// ProductsByCharacteristicValue matches the stored value case-insensitively,
// or the requested value wrapped in semicolons inside the extra-value alias
// list. limit < 0 means unbounded.
func (d *DB) ProductsByCharacteristicValue(ctx context.Context, characteristicIDs []int, value string, limit int) ([]internal.ProductRecord, error) {
	if len(characteristicIDs) == 0 {
		return nil, nil
	}
	query := `
SELECT DISTINCT p.id, p.article, p.name, p.class_id, p.total_stock
FROM products p
JOIN product_characteristics pc ON pc.product_id = p.id
WHERE pc.characteristic_id IN (` + placeholders(len(characteristicIDs)) + `)
  AND (pc.value_lower = ? OR instr(coalesce(pc.extra_lower, ''), ';' || ? || ';') > 0)
ORDER BY p.id
`
	args := append(intArgs(characteristicIDs), strings.ToLower(value), strings.ToLower(value))
	if limit >= 0 {
		query += `LIMIT ?`
		args = append(args, limit)
	}
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ProductIDsByCharacteristicValue is the id-set form used by the two-phase
// narrowing; restrictTo bounds the scan to the current candidate set.
func (d *DB) ProductIDsByCharacteristicValue(ctx context.Context, characteristicIDs []int, value string, restrictTo []int) ([]int, error) {
	if len(characteristicIDs) == 0 {
		return nil, nil
	}
	query := `
SELECT DISTINCT product_id FROM product_characteristics
WHERE characteristic_id IN (` + placeholders(len(characteristicIDs)) + `)
  AND (value_lower = ? OR instr(coalesce(extra_lower, ''), ';' || ? || ';') > 0)
`
	args := append(intArgs(characteristicIDs), strings.ToLower(value), strings.ToLower(value))
	if len(restrictTo) > 0 {
		query += `  AND product_id IN (` + placeholders(len(restrictTo)) + `)`
		args = append(args, intArgs(restrictTo)...)
	}
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInts(rows)
}

// ProductIDsByCharacteristicValuesExact serves the exclusion path: stored
// value must equal one of the requested values verbatim, aliases are not
// consulted.
func (d *DB) ProductIDsByCharacteristicValuesExact(ctx context.Context, characteristicIDs []int, values []string) ([]int, error) {
	if len(characteristicIDs) == 0 || len(values) == 0 {
		return nil, nil
	}
	args := append(intArgs(characteristicIDs), stringArgs(values)...)
	rows, err := d.conn.QueryContext(ctx, `
SELECT DISTINCT product_id FROM product_characteristics
WHERE characteristic_id IN (`+placeholders(len(characteristicIDs))+`)
  AND value IN (`+placeholders(len(values))+`)
`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInts(rows)
}

func (d *DB) ClassNames(ctx context.Context, classIDs []int) ([]string, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}
	rows, err := d.conn.QueryContext(ctx, `
SELECT class_rusname FROM classes_clarify WHERE id IN (`+placeholders(len(classIDs))+`)
`, intArgs(classIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (d *DB) GroupNames(ctx context.Context, classIDs []int) ([]string, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}
	rows, err := d.conn.QueryContext(ctx, `
SELECT DISTINCT group_name FROM classes_clarify
WHERE id IN (`+placeholders(len(classIDs))+`) AND group_name IS NOT NULL AND group_name != ''
`, intArgs(classIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

// CharacteristicValuesForProducts returns every distinct characteristic value
// attached to the given products, keyed by the display name with a fallback
// to the canonical one.
func (d *DB) CharacteristicValuesForProducts(ctx context.Context, productIDs []int) (map[string][]string, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	rows, err := d.conn.QueryContext(ctx, `
SELECT DISTINCT c.characteristic, c.characteristic_good, pc.value
FROM characteristics_clarify c
JOIN product_characteristics pc ON pc.characteristic_id = c.id
WHERE pc.product_id IN (`+placeholders(len(productIDs))+`)
`, intArgs(productIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var canonical, value string
		var display *string
		if err := rows.Scan(&canonical, &display, &value); err != nil {
			return nil, err
		}
		name := canonical
		if display != nil && *display != "" {
			name = *display
		}
		out[name] = append(out[name], value)
	}
	return out, rows.Err()
}

func (d *DB) CharacteristicsForProduct(ctx context.Context, productID int) (map[string]string, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT c.characteristic, pc.value
FROM characteristics_clarify c
JOIN product_characteristics pc ON pc.characteristic_id = c.id
WHERE pc.product_id = ?
`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, rows.Err()
}

func (d *DB) PricesForProduct(ctx context.Context, productID int, priceTypes []string) (map[string]float64, error) {
	query := `SELECT price_type, price FROM product_prices WHERE product_id = ?`
	args := []any{productID}
	if len(priceTypes) > 0 {
		query += ` AND price_type IN (` + placeholders(len(priceTypes)) + `)`
		args = append(args, stringArgs(priceTypes)...)
	}
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var priceType string
		var price float64
		if err := rows.Scan(&priceType, &price); err != nil {
			return nil, err
		}
		out[priceType] = price
	}
	return out, rows.Err()
}

func (d *DB) linksForProduct(ctx context.Context, table, column string, productID int) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT `+column+` FROM `+table+` WHERE product_id = ? ORDER BY id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (d *DB) PhotosForProduct(ctx context.Context, productID int) ([]string, error) {
	return d.linksForProduct(ctx, "product_photos", "photo_link", productID)
}

func (d *DB) AnalogsForProduct(ctx context.Context, productID int) ([]string, error) {
	return d.linksForProduct(ctx, "product_analogs", "article", productID)
}

func (d *DB) BarcodesForProduct(ctx context.Context, productID int) ([]string, error) {
	return d.linksForProduct(ctx, "product_barcodes", "barcode", productID)
}

func (d *DB) ListArticles(ctx context.Context) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT article FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func scanInts(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]int, error) {
	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanStrings(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]string, error) {
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
