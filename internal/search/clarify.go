package search

import (
	"context"
	"fmt"
	"sort"

	"ldb/internal"
)

// buildClarifications summarizes a too-wide result set so a caller can
// narrow it: the distinct classes and groups the survivors belong to and
// the characteristic values present among them.
func (e *Engine) buildClarifications(ctx context.Context, products []internal.ProductRecord) (*internal.Clarifications, error) {
	classIDs := distinctClassIDs(products)

	classes, err := e.store.ClassNames(ctx, classIDs)
	if err != nil {
		return nil, fmt.Errorf("clarification classes: %w", err)
	}
	groups, err := e.store.GroupNames(ctx, classIDs)
	if err != nil {
		return nil, fmt.Errorf("clarification groups: %w", err)
	}

	values, err := e.store.CharacteristicValuesForProducts(ctx, idsOf(products))
	if err != nil {
		return nil, fmt.Errorf("clarification characteristics: %w", err)
	}
	for name := range values {
		sort.Strings(values[name])
	}
	if len(values) == 0 {
		values = nil
	}

	sort.Strings(classes)
	sort.Strings(groups)

	return &internal.Clarifications{
		Classes:         classes,
		Groups:          groups,
		Characteristics: values,
	}, nil
}

func distinctClassIDs(products []internal.ProductRecord) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, p := range products {
		if p.ClassID == nil {
			continue
		}
		if _, ok := seen[*p.ClassID]; ok {
			continue
		}
		seen[*p.ClassID] = struct{}{}
		out = append(out, *p.ClassID)
	}
	sort.Ints(out)
	return out
}
