package layouts

// Expand turns a layout into the ordered list of seats that must exist for a session.
// Rows are walked in layout order and seats from 1 to the row length. The first matching
// rule wins: accessible override, VIP zone or VIP row, premium row, gap, then standard.
// Gaps are left out of the result. The output depends only on the arguments.
func Expand(l Layout, basePriceCents, vipPriceCents int64) []ExpectedSeat {
	accessible := make(map[Coordinate]struct{}, len(l.Accessible))
	for _, a := range l.Accessible {
		accessible[Coordinate{Row: a.Row, Number: a.Number}] = struct{}{}
	}
	vipRows := toSet(l.VIPRows)
	premiumRows := toSet(l.PremiumRows)

	seats := make([]ExpectedSeat, 0, l.Capacity())
	for _, rs := range l.Rows {
		for n := 1; n <= rs.SeatCount; n++ {
			t := classify(l, rs, n, accessible, vipRows, premiumRows)
			if t == SeatTypeGap {
				continue
			}
			price := basePriceCents
			if t.UsesVIPPrice() {
				price = vipPriceCents
			}
			seats = append(seats, ExpectedSeat{
				Row:        rs.Row,
				Number:     n,
				SeatCode:   SeatCode(rs.Row, n),
				Type:       t,
				PriceCents: price,
			})
		}
	}
	return seats
}

func classify(l Layout, rs RowSpec, n int, accessible map[Coordinate]struct{}, vipRows, premiumRows map[string]struct{}) SeatType {
	if _, ok := accessible[Coordinate{Row: rs.Row, Number: n}]; ok {
		return SeatTypeWheelchair
	}
	if _, ok := vipRows[rs.Row]; ok {
		return SeatTypeVIP
	}
	for _, z := range l.VIPZones {
		if z.Row != rs.Row {
			continue
		}
		first, last := z.Span(rs.SeatCount)
		if n >= first && n <= last {
			return SeatTypeVIP
		}
	}
	if _, ok := premiumRows[rs.Row]; ok {
		return SeatTypePremium
	}
	for _, g := range l.Gaps {
		if g.Row == rs.Row && n >= g.From && n <= g.To {
			return SeatTypeGap
		}
	}
	return SeatTypeStandard
}

// Span converts the zone percentages into an inclusive seat number range for a row
// of seatCount seats. The range is empty when first > last.
func (z VIPZone) Span(seatCount int) (first, last int) {
	first = z.StartPercent*seatCount/100 + 1
	last = (z.EndPercent*seatCount + 99) / 100
	if last > seatCount {
		last = seatCount
	}
	return first, last
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
