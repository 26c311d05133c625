package layouts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidLayout = errors.New("invalid layout")

// ValidationError lists every problem found in a layout.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidLayout.Error(), strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidLayout
}

var validate = validator.New()

// Validate checks both the field constraints and the cross references of a layout.
// A layout that passes can be expanded without surprises.
func Validate(l Layout) error {
	var problems []string

	if err := validate.Struct(l); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %v", ErrInvalidLayout, err)
		}
		for _, fe := range fieldErrs {
			problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return &ValidationError{Problems: problems}
	}

	counts := make(map[string]int, len(l.Rows))
	for _, r := range l.Rows {
		if _, dup := counts[r.Row]; dup {
			problems = append(problems, fmt.Sprintf("row %s declared twice", r.Row))
			continue
		}
		counts[r.Row] = r.SeatCount
	}

	knownRow := func(kind, row string) bool {
		if _, ok := counts[row]; !ok {
			problems = append(problems, fmt.Sprintf("%s references unknown row %s", kind, row))
			return false
		}
		return true
	}

	for _, z := range l.VIPZones {
		knownRow("vip zone", z.Row)
	}
	for _, row := range l.VIPRows {
		knownRow("vip row", row)
	}
	for _, row := range l.PremiumRows {
		knownRow("premium row", row)
	}
	for _, a := range l.Accessible {
		if knownRow("accessible seat", a.Row) && a.Number > counts[a.Row] {
			problems = append(problems, fmt.Sprintf("accessible seat %s is beyond row length %d", SeatCode(a.Row, a.Number), counts[a.Row]))
		}
	}
	for _, g := range l.Gaps {
		if knownRow("gap", g.Row) && g.To > counts[g.Row] {
			problems = append(problems, fmt.Sprintf("gap %s%d-%d is beyond row length %d", g.Row, g.From, g.To, counts[g.Row]))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
