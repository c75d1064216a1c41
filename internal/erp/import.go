package erp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ldb/internal"
	"ldb/internal/storage"
)

const lengthCharacteristic = "Длина"

// Importer folds the full ERP feed into the catalog store: products with
// their classes, characteristics, satellites, prices and stock. Classes and
// characteristics unknown to the store are created on first sight.
type Importer struct {
	store        *storage.DB
	client       *Client
	logger       zerolog.Logger
	pruneMissing bool
}

func NewImporter(store *storage.DB, client *Client, logger zerolog.Logger, pruneMissing bool) *Importer {
	return &Importer{store: store, client: client, logger: logger, pruneMissing: pruneMissing}
}

// Stats counts what one import run touched.
type Stats struct {
	Products        int
	Skipped         int
	Characteristics int
	Pruned          int
}

// Run performs a full import. The satellite feeds are loaded first so each
// product can be folded in one pass; products arrive last, page by page.
func (imp *Importer) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats

	imp.logger.Info().Msg("loading product attributes")
	attributes, err := imp.client.Attributes(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch attributes: %w", err)
	}

	imp.logger.Info().Msg("loading analogs")
	analogs, err := imp.client.Analogs(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch analogs: %w", err)
	}

	imp.logger.Info().Msg("loading barcodes")
	barcodes, err := imp.client.Barcodes(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch barcodes: %w", err)
	}

	imp.logger.Info().Msg("loading photos")
	photos, err := imp.client.Photos(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch photos: %w", err)
	}

	imp.logger.Info().Msg("loading prices")
	prices, err := imp.client.Prices(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch prices: %w", err)
	}

	imp.logger.Info().Msg("loading stock")
	stock, err := imp.client.Stock(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch stock: %w", err)
	}

	imp.logger.Info().Msg("processing products")
	seen := map[string]struct{}{}
	err = imp.client.Products(ctx, func(product internal.FeedProduct) error {
		if product.ClassName == "" {
			imp.logger.Debug().Str("article", product.Article).Msg("skipped: no class")
			stats.Skipped++
			return nil
		}

		count, err := imp.importProduct(product, attributes[product.Article],
			analogs[product.Article], barcodes[product.Article], photos[product.Article],
			prices[product.Article], stock[product.Article])
		if err != nil {
			return fmt.Errorf("import %q: %w", product.Article, err)
		}
		seen[product.Article] = struct{}{}
		stats.Products++
		stats.Characteristics += count
		return nil
	})
	if err != nil {
		return stats, err
	}

	if imp.pruneMissing {
		pruned, err := imp.pruneAbsent(ctx, seen)
		if err != nil {
			return stats, err
		}
		stats.Pruned = pruned
	}

	if err := imp.store.SetMetadata("last_sync", time.Now().Format("2006-01-02 15:04:05")); err != nil {
		return stats, fmt.Errorf("record sync time: %w", err)
	}

	imp.logger.Info().
		Int("products", stats.Products).
		Int("skipped", stats.Skipped).
		Int("characteristics", stats.Characteristics).
		Int("pruned", stats.Pruned).
		Dur("duration", time.Since(start)).
		Msg("import finished")
	return stats, nil
}

func (imp *Importer) importProduct(product internal.FeedProduct, attrs []internal.FeedAttribute,
	analogs, barcodes, photos []string, prices []internal.ProductPriceRecord, stock internal.FeedStock) (int, error) {

	classID, err := imp.store.UpsertClass(product.ClassName)
	if err != nil {
		return 0, fmt.Errorf("upsert class: %w", err)
	}
	productID, err := imp.store.UpsertProduct(product.Article, product.Name, classID)
	if err != nil {
		return 0, fmt.Errorf("upsert product: %w", err)
	}

	count := 0
	for _, attr := range attrs {
		charID, err := imp.store.UpsertCharacteristic(attr.Characteristic)
		if err != nil {
			return count, fmt.Errorf("upsert characteristic %q: %w", attr.Characteristic, err)
		}
		if err := imp.store.UpsertProductCharacteristic(productID, charID, attributeValue(attr), nil); err != nil {
			return count, fmt.Errorf("link characteristic %q: %w", attr.Characteristic, err)
		}
		count++
	}

	if isLengthUnit(product.Unit) || isLengthUnit(product.ComUnit) {
		charID, err := imp.store.UpsertCharacteristic(lengthCharacteristic)
		if err != nil {
			return count, fmt.Errorf("upsert length characteristic: %w", err)
		}
		var extra *string
		if aliases := LengthAliases(product.Unit, product.ComUnit, product.ComUnitPak); aliases != "" {
			extra = &aliases
		}
		value := LengthValue(product.UnitPak, product.Unit)
		if err := imp.store.UpsertProductCharacteristic(productID, charID, value, extra); err != nil {
			return count, fmt.Errorf("link length characteristic: %w", err)
		}
		count++
	}

	if analogs != nil {
		if err := imp.store.ReplaceAnalogs(productID, analogs); err != nil {
			return count, fmt.Errorf("replace analogs: %w", err)
		}
	}
	if barcodes != nil {
		if err := imp.store.ReplaceBarcodes(productID, barcodes); err != nil {
			return count, fmt.Errorf("replace barcodes: %w", err)
		}
	}
	if photos != nil {
		if err := imp.store.ReplacePhotos(productID, photos); err != nil {
			return count, fmt.Errorf("replace photos: %w", err)
		}
	}
	if prices != nil {
		if err := imp.store.ReplacePrices(productID, prices); err != nil {
			return count, fmt.Errorf("replace prices: %w", err)
		}
	}
	if stock.Article != "" {
		available := stock.Total - stock.Reserve
		if err := imp.store.SetTotalStock(productID, available); err != nil {
			return count, fmt.Errorf("set stock: %w", err)
		}
	}

	return count, nil
}

// pruneAbsent removes products the feed no longer carries.
func (imp *Importer) pruneAbsent(ctx context.Context, seen map[string]struct{}) (int, error) {
	known, err := imp.store.ListArticles(ctx)
	if err != nil {
		return 0, fmt.Errorf("list articles: %w", err)
	}
	pruned := 0
	for _, article := range known {
		if _, ok := seen[article]; ok {
			continue
		}
		if err := imp.store.DeleteProductByArticle(article); err != nil {
			return pruned, fmt.Errorf("prune %q: %w", article, err)
		}
		imp.logger.Debug().Str("article", article).Msg("pruned")
		pruned++
	}
	return pruned, nil
}

// attributeValue joins value1, value2 and unit with single spaces, skipping
// empty parts, matching how the feed's characteristic values are displayed.
func attributeValue(attr internal.FeedAttribute) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{attr.Value1, attr.Value2, attr.Unit} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
