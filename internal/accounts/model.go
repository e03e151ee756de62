package accounts

import "time"

// Kind enumerates the movement types of the chart of accounts.
type Kind string

const (
	KindRecette Kind = "recette"
	KindDepense Kind = "depense"
	KindSolde   Kind = "solde"
)

// Valid reports whether the kind is a known movement type.
func (k Kind) Valid() bool {
	switch k {
	case KindRecette, KindDepense, KindSolde:
		return true
	}
	return false
}

// Section enumerates the budget sections driving the balance sheet blocks.
type Section string

const (
	SectionFonctionnement Section = "fonctionnement"
	SectionInvestissement Section = "investissement"
)

// MaxDepth is the deepest level of the chart of accounts.
const MaxDepth = 3

// AccountNode (rubrique) is one line item of the chart of accounts.
// Computed nodes never take direct entry; their value is always derived
// from children. Non-summable nodes are label-only groupings that do not
// aggregate.
type AccountNode struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Kind       Kind      `json:"kind"`
	Section    Section   `json:"section"`
	Level      int       `json:"level"`
	ParentCode string    `json:"parent_code,omitempty"`
	SortOrder  int       `json:"sort_order"`
	Computed   bool      `json:"computed"`
	Summable   bool      `json:"summable"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsRoot reports whether the node is a level-1 entry without a parent.
func (n AccountNode) IsRoot() bool {
	return n.ParentCode == ""
}

// CategoryGroup sections the rendered table (Recettes / Dépenses / Soldes).
// Orthogonal to the kind+level hierarchy but conventionally aligned with it.
type CategoryGroup struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
