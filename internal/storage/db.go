package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"ldb/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// The *_lower shadow columns exist because SQLite's built-in lower() and
// LIKE fold only ASCII; Cyrillic case folding happens in Go on write.
func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS classes_clarify (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  class_rusname TEXT NOT NULL UNIQUE,
  group_name TEXT,
  purpose TEXT,
  rusname_lower TEXT NOT NULL,
  group_lower TEXT,
  purpose_lower TEXT
);
CREATE INDEX IF NOT EXISTS idx_classes_group_lower ON classes_clarify(group_lower);

CREATE TABLE IF NOT EXISTS characteristics_clarify (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  characteristic TEXT NOT NULL UNIQUE,
  characteristic_good TEXT,
  priority INTEGER
);

CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  article TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  name_lower TEXT NOT NULL,
  class_id INTEGER,
  total_stock INTEGER NOT NULL DEFAULT 0,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(class_id) REFERENCES classes_clarify(id)
);
CREATE INDEX IF NOT EXISTS idx_products_article ON products(article);
CREATE INDEX IF NOT EXISTS idx_products_name_lower ON products(name_lower);
CREATE INDEX IF NOT EXISTS idx_products_class_id ON products(class_id);

CREATE TABLE IF NOT EXISTS product_characteristics (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_id INTEGER NOT NULL,
  characteristic_id INTEGER NOT NULL,
  value TEXT NOT NULL,
  value_lower TEXT NOT NULL,
  extra_value TEXT,
  extra_lower TEXT,
  UNIQUE(product_id, characteristic_id),
  FOREIGN KEY(product_id) REFERENCES products(id),
  FOREIGN KEY(characteristic_id) REFERENCES characteristics_clarify(id)
);
CREATE INDEX IF NOT EXISTS idx_pc_product_id ON product_characteristics(product_id);
CREATE INDEX IF NOT EXISTS idx_pc_characteristic_id ON product_characteristics(characteristic_id);
CREATE INDEX IF NOT EXISTS idx_pc_value_lower ON product_characteristics(value_lower);

CREATE TABLE IF NOT EXISTS product_analogs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_id INTEGER NOT NULL,
  article TEXT NOT NULL,
  UNIQUE(product_id, article),
  FOREIGN KEY(product_id) REFERENCES products(id)
);

CREATE TABLE IF NOT EXISTS product_barcodes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_id INTEGER NOT NULL,
  barcode TEXT NOT NULL,
  UNIQUE(product_id, barcode),
  FOREIGN KEY(product_id) REFERENCES products(id)
);

CREATE TABLE IF NOT EXISTS product_photos (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_id INTEGER NOT NULL,
  photo_link TEXT NOT NULL,
  UNIQUE(product_id, photo_link),
  FOREIGN KEY(product_id) REFERENCES products(id)
);

CREATE TABLE IF NOT EXISTS product_prices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_id INTEGER NOT NULL,
  price_type TEXT NOT NULL,
  price REAL NOT NULL,
  UNIQUE(product_id, price_type),
  FOREIGN KEY(product_id) REFERENCES products(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertClass(rusName string) (int, error) {
	_, err := d.conn.Exec(`
INSERT INTO classes_clarify (class_rusname, rusname_lower) VALUES (?, ?)
ON CONFLICT(class_rusname) DO NOTHING
`, rusName, strings.ToLower(rusName))
	if err != nil {
		return 0, err
	}

	var id int
	err = d.conn.QueryRow(`SELECT id FROM classes_clarify WHERE class_rusname = ?`, rusName).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (d *DB) UpsertCharacteristic(name string) (int, error) {
	_, err := d.conn.Exec(`
INSERT INTO characteristics_clarify (characteristic, characteristic_good, priority) VALUES (?, ?, 1)
ON CONFLICT(characteristic) DO NOTHING
`, name, name)
	if err != nil {
		return 0, err
	}

	var id int
	err = d.conn.QueryRow(`SELECT id FROM characteristics_clarify WHERE characteristic = ?`, name).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (d *DB) UpsertProduct(article, name string, classID int) (int, error) {
	_, err := d.conn.Exec(`
INSERT INTO products (article, name, name_lower, class_id) VALUES (?, ?, ?, ?)
ON CONFLICT(article) DO UPDATE SET
  name=excluded.name,
  name_lower=excluded.name_lower,
  class_id=excluded.class_id,
  updatedAt=CURRENT_TIMESTAMP
`, article, name, strings.ToLower(name), classID)
	if err != nil {
		return 0, err
	}

	var id int
	err = d.conn.QueryRow(`SELECT id FROM products WHERE article = ?`, article).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (d *DB) UpsertProductCharacteristic(productID, characteristicID int, value string, extraValue *string) error {
	var extraLower *string
	if extraValue != nil {
		lowered := strings.ToLower(*extraValue)
		extraLower = &lowered
	}
	_, err := d.conn.Exec(`
INSERT INTO product_characteristics (product_id, characteristic_id, value, value_lower, extra_value, extra_lower)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(product_id, characteristic_id) DO UPDATE SET
  value=excluded.value,
  value_lower=excluded.value_lower,
  extra_value=excluded.extra_value,
  extra_lower=excluded.extra_lower
`, productID, characteristicID, value, strings.ToLower(value), extraValue, extraLower)
	return err
}

func (d *DB) replaceLinks(table, column string, productID int, values []string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM `+table+` WHERE product_id = ?`, productID); err != nil {
		return err
	}
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO `+table+` (product_id, `+column+`) VALUES (?, ?)`, productID, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) ReplaceAnalogs(productID int, articles []string) error {
	return d.replaceLinks("product_analogs", "article", productID, articles)
}

func (d *DB) ReplaceBarcodes(productID int, barcodes []string) error {
	return d.replaceLinks("product_barcodes", "barcode", productID, barcodes)
}

func (d *DB) ReplacePhotos(productID int, links []string) error {
	return d.replaceLinks("product_photos", "photo_link", productID, links)
}

func (d *DB) ReplacePrices(productID int, prices []internal.ProductPriceRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM product_prices WHERE product_id = ?`, productID); err != nil {
		return err
	}
	for _, p := range prices {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO product_prices (product_id, price_type, price) VALUES (?, ?, ?)`, productID, p.PriceType, p.Price); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) SetTotalStock(productID, totalStock int) error {
	if totalStock < 0 {
		totalStock = 0
	}
	_, err := d.conn.Exec(`UPDATE products SET total_stock = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, totalStock, productID)
	return err
}

// DeleteProductByArticle removes a product and all its satellite rows.
func (d *DB) DeleteProductByArticle(article string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var productID int
	err = tx.QueryRow(`SELECT id FROM products WHERE article = ?`, article).Scan(&productID)
	if errors.Is(err, sql.ErrNoRows) {
		return tx.Commit()
	}
	if err != nil {
		return err
	}

	for _, table := range []string{"product_characteristics", "product_analogs", "product_barcodes", "product_photos", "product_prices"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE product_id = ?`, productID); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`DELETE FROM products WHERE id = ?`, productID); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) UpdateClassRefData(rusName string, groupName, purpose *string) (bool, error) {
	var groupLower, purposeLower *string
	if groupName != nil {
		lowered := strings.ToLower(*groupName)
		groupLower = &lowered
	}
	if purpose != nil {
		lowered := strings.ToLower(*purpose)
		purposeLower = &lowered
	}

	result, err := d.conn.Exec(`
UPDATE classes_clarify SET group_name = ?, group_lower = ?, purpose = ?, purpose_lower = ?
WHERE class_rusname = ?
`, groupName, groupLower, purpose, purposeLower, rusName)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (d *DB) UpdateCharacteristicRefData(characteristic string, displayName *string, priority *int) (bool, error) {
	result, err := d.conn.Exec(`
UPDATE characteristics_clarify SET characteristic_good = ?, priority = ?
WHERE characteristic = ?
`, displayName, priority, characteristic)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
