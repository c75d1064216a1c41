package productinfo

import (
	"context"
	"fmt"

	"ldb/internal"
)

// Store is the read access the display needs from the catalog.
type Store interface {
	ProductsByArticle(ctx context.Context, article string) ([]internal.ProductRecord, error)
	CharacteristicsForProduct(ctx context.Context, productID int) (map[string]string, error)
	PricesForProduct(ctx context.Context, productID int, priceTypes []string) (map[string]float64, error)
	PhotosForProduct(ctx context.Context, productID int) ([]string, error)
	AnalogsForProduct(ctx context.Context, productID int) ([]string, error)
	BarcodesForProduct(ctx context.Context, productID int) ([]string, error)
}

// Options selects which card sections to fill. PriceTypes narrows the price
// list; empty means every stored type.
type Options struct {
	ShowName            bool
	ShowCharacteristics bool
	ShowPrices          bool
	ShowStock           bool
	ShowPhotos          bool
	ShowAnalogs         bool
	ShowBarcodes        bool
	PriceTypes          []string
}

// DefaultOptions matches the card served to clients: name, prices and stock.
func DefaultOptions() Options {
	return Options{ShowName: true, ShowPrices: true, ShowStock: true}
}

// FullOptions fills every section.
func FullOptions() Options {
	return Options{
		ShowName:            true,
		ShowCharacteristics: true,
		ShowPrices:          true,
		ShowStock:           true,
		ShowPhotos:          true,
		ShowAnalogs:         true,
		ShowBarcodes:        true,
	}
}

// Display assembles client-facing product cards from the catalog.
type Display struct {
	store Store
	opts  Options
}

func NewDisplay(store Store, opts Options) *Display {
	return &Display{store: store, opts: opts}
}

// Card builds the card for one article. An unknown article yields a card
// whose Error field is set; that is not an error return.
func (d *Display) Card(ctx context.Context, article string) (internal.ProductCard, error) {
	products, err := d.store.ProductsByArticle(ctx, article)
	if err != nil {
		return internal.ProductCard{}, fmt.Errorf("lookup %q: %w", article, err)
	}
	if len(products) == 0 {
		return internal.ProductCard{Error: "Product not found"}, nil
	}
	product := products[0]

	var card internal.ProductCard
	if d.opts.ShowName {
		card.Name = product.Name
	}

	if d.opts.ShowCharacteristics {
		characteristics, err := d.store.CharacteristicsForProduct(ctx, product.ID)
		if err != nil {
			return internal.ProductCard{}, fmt.Errorf("characteristics for %q: %w", article, err)
		}
		card.Characteristics = characteristics
	}

	if d.opts.ShowPrices {
		prices, err := d.store.PricesForProduct(ctx, product.ID, d.opts.PriceTypes)
		if err != nil {
			return internal.ProductCard{}, fmt.Errorf("prices for %q: %w", article, err)
		}
		card.Prices = prices
	}

	if d.opts.ShowStock {
		stock := product.TotalStock
		card.Stock = &stock
	}

	if d.opts.ShowPhotos {
		if card.Photos, err = d.store.PhotosForProduct(ctx, product.ID); err != nil {
			return internal.ProductCard{}, fmt.Errorf("photos for %q: %w", article, err)
		}
	}
	if d.opts.ShowAnalogs {
		if card.Analogs, err = d.store.AnalogsForProduct(ctx, product.ID); err != nil {
			return internal.ProductCard{}, fmt.Errorf("analogs for %q: %w", article, err)
		}
	}
	if d.opts.ShowBarcodes {
		if card.Barcodes, err = d.store.BarcodesForProduct(ctx, product.ID); err != nil {
			return internal.ProductCard{}, fmt.Errorf("barcodes for %q: %w", article, err)
		}
	}

	return card, nil
}

// Cards builds cards for several articles keyed by article.
func (d *Display) Cards(ctx context.Context, articles []string) (map[string]internal.ProductCard, error) {
	out := make(map[string]internal.ProductCard, len(articles))
	for _, article := range articles {
		card, err := d.Card(ctx, article)
		if err != nil {
			return nil, err
		}
		out[article] = card
	}
	return out, nil
}
