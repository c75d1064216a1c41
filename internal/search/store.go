package search

import (
	"context"

	"ldb/internal"
)

// Store is the read access the engine needs from the catalog. *storage.DB
// satisfies it; tests substitute an in-memory fake. Implementations are not
// required to be safe for concurrent use from several searches; callers give
// each running search its own handle.
type Store interface {
	ProductsByArticle(ctx context.Context, article string) ([]internal.ProductRecord, error)
	ProductsByNameSubstring(ctx context.Context, substr string) ([]internal.ProductRecord, error)
	ProductsByClassKeyword(ctx context.Context, keyword string) ([]internal.ProductRecord, error)
	ClassIDsByKeyword(ctx context.Context, keyword string) ([]int, error)
	ProductIDsByClassNames(ctx context.Context, names []string) ([]int, error)
	ProductIDsByGroupNames(ctx context.Context, names []string) ([]int, error)
	CharacteristicIDsByName(ctx context.Context, name string) ([]int, error)
	ProductsByCharacteristicValue(ctx context.Context, characteristicIDs []int, value string, limit int) ([]internal.ProductRecord, error)
	ProductIDsByCharacteristicValue(ctx context.Context, characteristicIDs []int, value string, restrictTo []int) ([]int, error)
	ProductIDsByCharacteristicValuesExact(ctx context.Context, characteristicIDs []int, values []string) ([]int, error)
	ClassNames(ctx context.Context, classIDs []int) ([]string, error)
	GroupNames(ctx context.Context, classIDs []int) ([]string, error)
	CharacteristicValuesForProducts(ctx context.Context, productIDs []int) (map[string][]string, error)
}
