package columns

import "time"

// DataType enumerates the value types a dynamic column can declare.
type DataType string

const (
	TypeText    DataType = "text"
	TypeNumber  DataType = "number"
	TypeDate    DataType = "date"
	TypeBoolean DataType = "boolean"
	TypeJSON    DataType = "json"
)

// Valid reports whether the data type is supported.
func (t DataType) Valid() bool {
	switch t {
	case TypeText, TypeNumber, TypeDate, TypeBoolean, TypeJSON:
		return true
	}
	return false
}

// Definition describes one administrator-defined column. Values are stored
// as text and interpreted under DataType at read time, keeping the
// extension point schema-free without stringly-typed handling downstream.
type Definition struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	DataType     DataType  `json:"data_type"`
	DefaultValue string    `json:"default_value,omitempty"`
	Required     bool      `json:"required"`
	Visible      bool      `json:"visible"`
	Editable     bool      `json:"editable"`
	SortOrder    int       `json:"sort_order"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot is an immutable set of definitions loaded once per request and
// passed into the aggregation engine, so concurrent requests never observe
// a half-applied definition change.
type Snapshot struct {
	defs []Definition
}

// NewSnapshot copies the definitions in sort order.
func NewSnapshot(defs []Definition) *Snapshot {
	copied := make([]Definition, len(defs))
	copy(copied, defs)
	return &Snapshot{defs: copied}
}

// Definitions returns the snapshot content; callers must not mutate it.
func (s *Snapshot) Definitions() []Definition {
	if s == nil {
		return nil
	}
	return s.defs
}

// Lookup finds a definition by code.
func (s *Snapshot) Lookup(code string) (Definition, bool) {
	if s == nil {
		return Definition{}, false
	}
	for _, d := range s.defs {
		if d.Code == code {
			return d, true
		}
	}
	return Definition{}, false
}
