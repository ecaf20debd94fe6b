package regime

import (
	"fmt"
	"math"

	"MarketRegime/pkg/config"
)

// Formula reduces one point's raw inputs to the indicator scalar.
type Formula interface {
	Compute(fields map[string]float64) (float64, error)
	Fields() []string
}

// Term is one weighted raw input.
type Term struct {
	Field  string
	Weight float64
}

// Weighted is Σ weight·field, times scale.
type Weighted struct {
	Terms []Term
	Scale float64
}

// Compute fails when a term field is missing.
func (w Weighted) Compute(fields map[string]float64) (float64, error) {
	sum, err := sumTerms(w.Terms, fields)
	if err != nil {
		return 0, err
	}
	return sum * scaleOrOne(w.Scale), nil
}

func (w Weighted) Fields() []string { return termFields(w.Terms) }

// Quotient is Σ numerator / Σ denominator, times scale.
type Quotient struct {
	Numerator   []Term
	Denominator []Term
	Scale       float64
}

// Compute fails on a missing field or a zero denominator.
func (q Quotient) Compute(fields map[string]float64) (float64, error) {
	num, err := sumTerms(q.Numerator, fields)
	if err != nil {
		return 0, err
	}
	den, err := sumTerms(q.Denominator, fields)
	if err != nil {
		return 0, err
	}
	if den == 0 {
		return 0, fmt.Errorf("formula: zero denominator")
	}
	return num / den * scaleOrOne(q.Scale), nil
}

func (q Quotient) Fields() []string {
	return append(termFields(q.Numerator), termFields(q.Denominator)...)
}

// NewFormula builds the configured formula.
func NewFormula(fc config.FormulaConfig) (Formula, error) {
	switch fc.Kind {
	case config.FormulaWeighted:
		return Weighted{Terms: toTerms(fc.Terms), Scale: fc.Scale}, nil
	case config.FormulaQuotient:
		return Quotient{Numerator: toTerms(fc.Numerator), Denominator: toTerms(fc.Denominator), Scale: fc.Scale}, nil
	default:
		return nil, fmt.Errorf("formula: unknown kind %q", fc.Kind)
	}
}

func sumTerms(terms []Term, fields map[string]float64) (float64, error) {
	var sum float64
	for _, t := range terms {
		v, ok := fields[t.Field]
		if !ok {
			return 0, fmt.Errorf("formula: missing field %s", t.Field)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("formula: field %s is not finite", t.Field)
		}
		sum += t.Weight * v
	}
	return sum, nil
}

func scaleOrOne(s float64) float64 {
	if s == 0 {
		return 1
	}
	return s
}

func termFields(terms []Term) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, t.Field)
	}
	return out
}

func toTerms(tc []config.TermConfig) []Term {
	out := make([]Term, 0, len(tc))
	for _, t := range tc {
		out = append(out, Term{Field: t.Field, Weight: t.Weight})
	}
	return out
}
