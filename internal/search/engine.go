package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"ldb/internal"
)

const timeLayout = "2006-01-02 15:04:05"

// ErrValidation marks criteria rejected before any store access.
var ErrValidation = errors.New("invalid search criteria")

type Engine struct {
	store            Store
	defaultLimit     int
	clarifyThreshold int
}

// NewEngine builds a search engine over one store handle. The engine itself
// is stateless; all per-search state lives on the stack of one call.
func NewEngine(store Store, defaultLimit, clarifyThreshold int) *Engine {
	if defaultLimit <= 0 {
		defaultLimit = 200
	}
	if clarifyThreshold <= 0 {
		clarifyThreshold = 10
	}
	return &Engine{store: store, defaultLimit: defaultLimit, clarifyThreshold: clarifyThreshold}
}

func validateCriteria(criteria internal.SearchCriteria, limit int) error {
	if limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrValidation)
	}
	for name := range criteria.Include.Characteristics {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty characteristic name in include", ErrValidation)
		}
	}
	if criteria.Exclude != nil {
		for name := range criteria.Exclude.Characteristics {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("%w: empty characteristic name in exclude", ErrValidation)
			}
		}
	}
	return nil
}

// SearchByKeys finds products for one key phrase: per token, the class test
// (group name, purpose or class name substring) unioned with the product
// name substring test, first-seen order, dedup by product. limit < 0
// returns everything.
func (e *Engine) SearchByKeys(ctx context.Context, phrase string, limit int) ([]internal.ProductRecord, error) {
	var results []internal.ProductRecord
	seen := map[int]struct{}{}

	for _, token := range TokenizePhrase(phrase) {
		byClass, err := e.store.ProductsByClassKeyword(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("search by class keyword %q: %w", token, err)
		}
		byName, err := e.store.ProductsByNameSubstring(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("search by name %q: %w", token, err)
		}
		for _, p := range append(byClass, byName...) {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			results = append(results, p)
		}
	}

	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// StructuredSearch is the single-pass variant: every inclusion criterion
// contributes candidates independently, exclusions filter the union, and
// dedup plus limit shape the final list. limit <= 0 falls back to the
// engine default.
func (e *Engine) StructuredSearch(ctx context.Context, criteria internal.SearchCriteria, limit int) (internal.SearchResult, error) {
	startTime := time.Now()
	if limit == 0 {
		limit = e.defaultLimit
	}
	if err := validateCriteria(criteria, limit); err != nil {
		return internal.SearchResult{}, err
	}

	var results []internal.ProductRecord

	for _, article := range criteria.Include.Articles {
		found, err := e.store.ProductsByArticle(ctx, article)
		if err != nil {
			return internal.SearchResult{}, fmt.Errorf("search by article %q: %w", article, err)
		}
		results = append(results, found...)
	}

	for _, phrase := range criteria.Include.Keys {
		found, err := e.SearchByKeys(ctx, phrase, limit)
		if err != nil {
			return internal.SearchResult{}, err
		}
		results = append(results, found...)
	}

	for _, name := range sortedNames(criteria.Include.Characteristics) {
		ids, err := e.store.CharacteristicIDsByName(ctx, name)
		if err != nil {
			return internal.SearchResult{}, fmt.Errorf("resolve characteristic %q: %w", name, err)
		}
		if len(ids) == 0 {
			continue
		}
		for _, value := range criteria.Include.Characteristics[name] {
			found, err := e.store.ProductsByCharacteristicValue(ctx, ids, value, limit)
			if err != nil {
				return internal.SearchResult{}, fmt.Errorf("search by characteristic %q=%q: %w", name, value, err)
			}
			results = append(results, found...)
		}
	}

	x, err := e.newExcluder(ctx, criteria.Exclude)
	if err != nil {
		return internal.SearchResult{}, err
	}
	results = x.filter(results)

	unique := dedupByID(results)

	out := internal.SearchResult{Articles: articlesOf(truncated(unique, limit))}
	if len(unique) > e.clarifyThreshold {
		clarifications, err := e.buildClarifications(ctx, unique)
		if err != nil {
			return internal.SearchResult{}, err
		}
		out.Clarifications = clarifications
	}

	out.Metadata = buildMetadata(startTime, time.Now())
	return out, nil
}

// StructuredSearchV2 is the two-phase variant: articles and keys gather
// candidates first (optionally inside a hard class/group filter), then
// characteristics narrow them. Explicitly requested articles are anchored:
// narrowing never removes them, only the exclusion phase can.
func (e *Engine) StructuredSearchV2(ctx context.Context, criteria internal.SearchCriteria, limit int) (internal.SearchResult, error) {
	startTime := time.Now()
	if limit == 0 {
		limit = e.defaultLimit
	}
	if err := validateCriteria(criteria, limit); err != nil {
		return internal.SearchResult{}, err
	}

	var anchored []internal.ProductRecord
	for _, article := range criteria.Include.Articles {
		found, err := e.store.ProductsByArticle(ctx, article)
		if err != nil {
			return internal.SearchResult{}, fmt.Errorf("search by article %q: %w", article, err)
		}
		anchored = append(anchored, found...)
	}
	anchored = dedupByID(anchored)

	hardFilter, err := e.classGroupFilter(ctx, criteria.Include)
	if err != nil {
		return internal.SearchResult{}, err
	}

	var candidates []internal.ProductRecord
	for _, phrase := range criteria.Include.Keys {
		var found []internal.ProductRecord
		if hardFilter != nil {
			// Unbounded fetch: the class/group restriction must see every
			// match before any limit applies.
			all, err := e.SearchByKeys(ctx, phrase, -1)
			if err != nil {
				return internal.SearchResult{}, err
			}
			for _, p := range all {
				if _, ok := hardFilter[p.ID]; ok {
					found = append(found, p)
				}
			}
		} else {
			found, err = e.SearchByKeys(ctx, phrase, limit)
			if err != nil {
				return internal.SearchResult{}, err
			}
		}
		candidates = append(candidates, found...)
	}
	candidates = dedupByID(candidates)

	if len(criteria.Include.Characteristics) > 0 && len(candidates) > 0 {
		candidates, err = e.narrowByCharacteristics(ctx, criteria.Include.Characteristics, candidates, anchored)
		if err != nil {
			return internal.SearchResult{}, err
		}
	}

	x, err := e.newExcluder(ctx, criteria.Exclude)
	if err != nil {
		return internal.SearchResult{}, err
	}
	candidates = x.filter(candidates)
	anchored = x.filter(anchored)

	candidates = truncated(candidates, limit)

	articles := articlesOf(candidates)
	present := map[string]struct{}{}
	for _, a := range articles {
		present[a] = struct{}{}
	}
	for _, p := range anchored {
		if _, ok := present[p.Article]; ok {
			continue
		}
		present[p.Article] = struct{}{}
		articles = append(articles, p.Article)
	}

	out := internal.SearchResult{Articles: articles}
	if len(candidates) > e.clarifyThreshold {
		clarifications, err := e.buildClarifications(ctx, candidates)
		if err != nil {
			return internal.SearchResult{}, err
		}
		out.Clarifications = clarifications
	}

	out.Metadata = buildMetadata(startTime, time.Now())
	return out, nil
}

// classGroupFilter computes the hard product-id filter from include.classes
// and include.groups; both present means intersection. nil means no filter.
func (e *Engine) classGroupFilter(ctx context.Context, include internal.IncludeCriteria) (map[int]struct{}, error) {
	var filter map[int]struct{}

	if len(include.Classes) > 0 {
		ids, err := e.store.ProductIDsByClassNames(ctx, include.Classes)
		if err != nil {
			return nil, fmt.Errorf("filter by classes: %w", err)
		}
		filter = toSet(ids)
	}

	if len(include.Groups) > 0 {
		ids, err := e.store.ProductIDsByGroupNames(ctx, include.Groups)
		if err != nil {
			return nil, fmt.Errorf("filter by groups: %w", err)
		}
		groupSet := toSet(ids)
		if filter == nil {
			filter = groupSet
		} else {
			for id := range filter {
				if _, ok := groupSet[id]; !ok {
					delete(filter, id)
				}
			}
		}
	}

	return filter, nil
}

// narrowByCharacteristics intersects the candidate set with the match set of
// each characteristic in turn (OR across values of one name, AND across
// names). Anchored products are re-unioned after every pass so an explicit
// article request survives narrowing it does not match.
func (e *Engine) narrowByCharacteristics(ctx context.Context, characteristics map[string][]string, candidates, anchored []internal.ProductRecord) ([]internal.ProductRecord, error) {
	for _, name := range sortedNames(characteristics) {
		ids, err := e.store.CharacteristicIDsByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve characteristic %q: %w", name, err)
		}
		if len(ids) == 0 {
			// Unknown characteristic: no narrowing rather than an empty
			// result.
			continue
		}

		candidateIDs := idsOf(candidates)
		matched := map[int]struct{}{}
		for _, value := range characteristics[name] {
			found, err := e.store.ProductIDsByCharacteristicValue(ctx, ids, value, candidateIDs)
			if err != nil {
				return nil, fmt.Errorf("narrow by characteristic %q=%q: %w", name, value, err)
			}
			for _, id := range found {
				matched[id] = struct{}{}
			}
		}

		var kept []internal.ProductRecord
		for _, p := range candidates {
			if _, ok := matched[p.ID]; ok {
				kept = append(kept, p)
			}
		}
		candidates = unionByID(kept, anchored)

		if len(candidates) == 0 {
			break
		}
	}
	return candidates, nil
}

// excluder holds the resolved exclusion sets so both the candidate and the
// anchored list can be filtered without re-querying the store.
type excluder struct {
	articles   map[string]struct{}
	classIDs   map[int]struct{}
	phrases    []string
	productIDs map[int]struct{}
}

func (e *Engine) newExcluder(ctx context.Context, exclude *internal.ExcludeCriteria) (*excluder, error) {
	x := &excluder{
		articles:   map[string]struct{}{},
		classIDs:   map[int]struct{}{},
		productIDs: map[int]struct{}{},
	}
	if exclude == nil {
		return x, nil
	}

	for _, a := range exclude.Articles {
		x.articles[a] = struct{}{}
	}

	for _, phrase := range exclude.Keys {
		classIDs, err := e.store.ClassIDsByKeyword(ctx, phrase)
		if err != nil {
			return nil, fmt.Errorf("exclude by key %q: %w", phrase, err)
		}
		for _, id := range classIDs {
			x.classIDs[id] = struct{}{}
		}
		x.phrases = append(x.phrases, strings.ToLower(phrase))
	}

	for _, name := range sortedNames(exclude.Characteristics) {
		ids, err := e.store.CharacteristicIDsByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve excluded characteristic %q: %w", name, err)
		}
		if len(ids) == 0 {
			continue
		}
		productIDs, err := e.store.ProductIDsByCharacteristicValuesExact(ctx, ids, exclude.Characteristics[name])
		if err != nil {
			return nil, fmt.Errorf("exclude by characteristic %q: %w", name, err)
		}
		for _, id := range productIDs {
			x.productIDs[id] = struct{}{}
		}
	}

	return x, nil
}

func (x *excluder) keep(p internal.ProductRecord) bool {
	if _, ok := x.articles[p.Article]; ok {
		return false
	}
	if p.ClassID != nil {
		if _, ok := x.classIDs[*p.ClassID]; ok {
			return false
		}
	}
	nameLower := strings.ToLower(p.Name)
	for _, phrase := range x.phrases {
		if strings.Contains(nameLower, phrase) {
			return false
		}
	}
	if _, ok := x.productIDs[p.ID]; ok {
		return false
	}
	return true
}

func (x *excluder) filter(products []internal.ProductRecord) []internal.ProductRecord {
	out := products[:0:0]
	for _, p := range products {
		if x.keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func buildMetadata(start, end time.Time) internal.SearchMetadata {
	return internal.SearchMetadata{
		StartTime:       start.Format(timeLayout),
		EndTime:         end.Format(timeLayout),
		DurationSeconds: math.Round(end.Sub(start).Seconds()*1000) / 1000,
	}
}

// sortedNames gives a stable pass order over a characteristics map. The
// narrowing outcome is order-independent (intersection commutes and anchors
// are re-unioned each pass), sorting just keeps runs reproducible.
func sortedNames(m map[string][]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func dedupByID(products []internal.ProductRecord) []internal.ProductRecord {
	seen := map[int]struct{}{}
	var out []internal.ProductRecord
	for _, p := range products {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

func unionByID(products, extra []internal.ProductRecord) []internal.ProductRecord {
	seen := map[int]struct{}{}
	for _, p := range products {
		seen[p.ID] = struct{}{}
	}
	out := products
	for _, p := range extra {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

func truncated(products []internal.ProductRecord, limit int) []internal.ProductRecord {
	if limit >= 0 && len(products) > limit {
		return products[:limit]
	}
	return products
}

func articlesOf(products []internal.ProductRecord) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Article)
	}
	return out
}

func idsOf(products []internal.ProductRecord) []int {
	out := make([]int, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func toSet(ids []int) map[int]struct{} {
	out := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
