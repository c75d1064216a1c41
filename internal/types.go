package internal

// ProductRecord is one catalog position keyed by its external articul.
type ProductRecord struct {
	ID         int
	Article    string
	Name       string
	ClassID    *int
	TotalStock int
}

// ClassRecord is a catalog class with its clarification metadata. GroupName
// and Purpose come from the reference spreadsheet and may be absent.
type ClassRecord struct {
	ID        int
	RusName   string
	GroupName *string
	Purpose   *string
}

// CharacteristicRecord is a characteristic definition. Name is the canonical
// feed name, DisplayName the client-facing alias maintained in the reference
// spreadsheet.
type CharacteristicRecord struct {
	ID          int
	Name        string
	DisplayName *string
	Priority    *int
}

// ProductCharacteristicRecord links a product to one characteristic value.
// ExtraValue, when set, holds equivalent phrasings wrapped in semicolons
// (";3 метр;3 м.;3 м;300 см;") so unit-converted queries match.
type ProductCharacteristicRecord struct {
	ID               int
	ProductID        int
	CharacteristicID int
	Value            string
	ExtraValue       *string
}

// IncludeCriteria selects products. Classes and Groups are honored by the
// two-phase search only.
type IncludeCriteria struct {
	Articles        []string            `json:"articles"`
	Keys            []string            `json:"keys"`
	Characteristics map[string][]string `json:"characteristics"`
	Classes         []string            `json:"classes,omitempty"`
	Groups          []string            `json:"groups,omitempty"`
}

// ExcludeCriteria removes products from an already gathered set.
type ExcludeCriteria struct {
	Articles        []string            `json:"articles"`
	Keys            []string            `json:"keys"`
	Characteristics map[string][]string `json:"characteristics"`
}

type SearchCriteria struct {
	Include IncludeCriteria  `json:"include"`
	Exclude *ExcludeCriteria `json:"exclude,omitempty"`
}

// Clarifications are narrowing facets emitted when a result set is too large
// to inspect directly.
type Clarifications struct {
	Classes         []string            `json:"classes,omitempty"`
	Groups          []string            `json:"groups,omitempty"`
	Characteristics map[string][]string `json:"characteristics,omitempty"`
}

type SearchMetadata struct {
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type SearchResult struct {
	Articles       []string        `json:"articles"`
	Clarifications *Clarifications `json:"clarifications,omitempty"`
	Metadata       SearchMetadata  `json:"metadata"`
}

// ProductCard is the client-facing view of one product assembled by the
// product-info display. Sections are filled according to the caller's
// display options.
type ProductCard struct {
	Error           string             `json:"error,omitempty"`
	Name            string             `json:"name,omitempty"`
	Characteristics map[string]string  `json:"characteristics,omitempty"`
	Prices          map[string]float64 `json:"prices,omitempty"`
	Stock           *int               `json:"stock,omitempty"`
	Photos          []string           `json:"photos,omitempty"`
	Analogs         []string           `json:"analogs,omitempty"`
	Barcodes        []string           `json:"barcodes,omitempty"`
}

type ProductPriceRecord struct {
	ProductID int
	PriceType string
	Price     float64
}

// FeedProduct is one position of the upstream ERP feed before it is folded
// into the store.
type FeedProduct struct {
	Article    string
	Name       string
	ClassName  string
	Unit       string
	UnitPak    float64
	ComUnit    string
	ComUnitPak float64
}

type FeedAttribute struct {
	Article        string
	Characteristic string
	Value1         string
	Value2         string
	Unit           string
}

type FeedStock struct {
	Article string
	Total   int
	Reserve int
}

// ClassRefRow is one row of the "Classes" reference tab.
type ClassRefRow struct {
	RusName   string
	GroupName *string
	Purpose   *string
}

// CharacteristicRefRow is one row of the "Characteristics" reference tab,
// matched against the canonical characteristic name.
type CharacteristicRefRow struct {
	Characteristic string
	DisplayName    *string
	Priority       *int
}
