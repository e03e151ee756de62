// Package projects holds the mining project catalogue. Figures carry a
// project ID when revenues are tracked per permit instead of commune-wide.
package projects

import (
	"time"

	"github.com/google/uuid"
)

// Project is one mining permit attached to a commune.
type Project struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Mineral   string    `json:"mineral,omitempty"`
	CommuneID int64     `json:"commune_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
