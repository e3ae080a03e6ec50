package dto

// ConvertRequest asks for value to be converted into the named target type
type ConvertRequest struct {
	Value  any            `json:"value" swaggertype:"string" example:"42"`
	Target string         `json:"target" binding:"required,max=128" example:"int"`
	Hints  map[string]any `json:"hints"`
}

// ConvertResponse carries a converted value
type ConvertResponse struct {
	Value      any    `json:"value" swaggertype:"string" example:"42"`
	SourceType string `json:"source_type" example:"string"`
	TargetType string `json:"target_type" example:"int"`
}

// ConverterEntry describes one catalog entry
type ConverterEntry struct {
	Type               string   `json:"type"`
	Source             string   `json:"source"`
	Target             string   `json:"target"`
	Synthetic          bool     `json:"synthetic"`
	NestingDepth       int      `json:"nesting_depth"`
	Priority           int      `json:"priority"`
	PossibleDistortion bool     `json:"possible_distortion"`
	FailOnError        bool     `json:"fail_on_error"`
	DependsOn          []string `json:"depends_on,omitempty"`
}

// CatalogStats summarizes the catalog
type CatalogStats struct {
	Originals       int `json:"originals"`
	Synthetic       int `json:"synthetic"`
	Negative        int `json:"negative"`
	Factories       int `json:"factories"`
	MaxNestingDepth int `json:"max_nesting_depth"`
}

// CatalogResponse lists the catalog contents
type CatalogResponse struct {
	Stats   CatalogStats     `json:"stats"`
	Entries []ConverterEntry `json:"entries"`
}

// TypesResponse lists the type names accepted as conversion targets
type TypesResponse struct {
	Names []string `json:"names"`
}

// HistoryEntry describes one recorded conversion
type HistoryEntry struct {
	ID         uint64 `json:"id" example:"17"`
	RequestID  string `json:"request_id,omitempty" example:"6ba7b810-9dad-11d1-80b4-00c04fd430c8"`
	SourceType string `json:"source_type" example:"string"`
	TargetType string `json:"target_type" example:"int"`
	Outcome    string `json:"outcome" example:"converted"`
	Error      string `json:"error,omitempty"`
	Elapsed    string `json:"elapsed" example:"120µs"`
	RecordedAt string `json:"recorded_at" example:"2026-01-23T12:00:00Z"`
}

// HistoryResponse lists recent conversions, newest first
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}
