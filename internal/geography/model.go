package geography

import "time"

// Province is the top territorial division of Madagascar.
type Province struct {
	ID        int64
	Code      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Region belongs to a province.
type Region struct {
	ID         int64
	Code       string
	Name       string
	ProvinceID int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Commune is the smallest territorial collectivity; every financial fact
// attaches to one.
type Commune struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	RegionID  int64     `json:"region_id"`
	Urban     bool      `json:"urban"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommuneDetails carries the resolved hierarchy names used by table headers
// and export sheets.
type CommuneDetails struct {
	Commune
	RegionName   string `json:"region_name"`
	ProvinceName string `json:"province_name"`
}
