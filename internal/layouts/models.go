package layouts

import "strconv"

type SeatType string

const (
	SeatTypeStandard   SeatType = "STANDARD"
	SeatTypeVIP        SeatType = "VIP"
	SeatTypeWheelchair SeatType = "WHEELCHAIR"
	SeatTypePremium    SeatType = "PREMIUM"
	// SeatTypeGap marks an aisle placeholder. It is never materialized as a seat row.
	SeatTypeGap SeatType = "GAP"
)

func (t SeatType) IsValid() bool {
	switch t {
	case SeatTypeStandard, SeatTypeVIP, SeatTypeWheelchair, SeatTypePremium:
		return true
	}
	return false
}

func (t SeatType) String() string {
	return string(t)
}

// UsesVIPPrice reports whether the seat type is priced from the session's VIP price.
func (t SeatType) UsesVIPPrice() bool {
	return t == SeatTypeVIP || t == SeatTypePremium
}

// Layout is the declarative seat map of an auditorium.
type Layout struct {
	Rows        []RowSpec   `json:"rows" validate:"required,min=1,max=60,dive"`
	VIPZones    []VIPZone   `json:"vip_zones,omitempty" validate:"omitempty,dive"`
	VIPRows     []string    `json:"vip_rows,omitempty" validate:"omitempty,dive,required,alpha,uppercase,max=3"`
	PremiumRows []string    `json:"premium_rows,omitempty" validate:"omitempty,dive,required,alpha,uppercase,max=3"`
	Accessible  []SeatRef   `json:"accessible,omitempty" validate:"omitempty,dive"`
	Gaps        []SeatRange `json:"gaps,omitempty" validate:"omitempty,dive"`
}

type RowSpec struct {
	Row       string `json:"row" validate:"required,alpha,uppercase,max=3"`
	SeatCount int    `json:"seat_count" validate:"min=1,max=500"`
}

// VIPZone marks the seats of a row between two percentages of its length as VIP.
type VIPZone struct {
	Row          string `json:"row" validate:"required,alpha,uppercase,max=3"`
	StartPercent int    `json:"start_percent" validate:"min=0,max=100"`
	EndPercent   int    `json:"end_percent" validate:"min=0,max=100,gtefield=StartPercent"`
}

type SeatRef struct {
	Row    string `json:"row" validate:"required,alpha,uppercase,max=3"`
	Number int    `json:"number" validate:"min=1"`
}

type SeatRange struct {
	Row  string `json:"row" validate:"required,alpha,uppercase,max=3"`
	From int    `json:"from" validate:"min=1"`
	To   int    `json:"to" validate:"gtefield=From"`
}

// ExpectedSeat is one seat the layout says must exist for a session.
type ExpectedSeat struct {
	Row        string   `json:"row"`
	Number     int      `json:"number"`
	SeatCode   string   `json:"seat_code"`
	Type       SeatType `json:"type"`
	PriceCents int64    `json:"price_cents"`
}

// Coordinate identifies a physical seat position inside a session.
type Coordinate struct {
	Row    string
	Number int
}

func (e ExpectedSeat) Coordinate() Coordinate {
	return Coordinate{Row: e.Row, Number: e.Number}
}

func SeatCode(row string, number int) string {
	return row + strconv.Itoa(number)
}

// Capacity returns the number of seat positions before gaps are removed.
func (l Layout) Capacity() int {
	total := 0
	for _, r := range l.Rows {
		total += r.SeatCount
	}
	return total
}
