// Package units converts order-line quantities between weight and box
// counts. Every function here is pure.
package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeKg  Mode = "kg"
	ModeBox Mode = "box"
)

var ErrUnknownMode = errors.New("unknown unit mode")

func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "kg":
		return ModeKg, nil
	case "box":
		return ModeBox, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
}

// Line is the derived part of an order line.
type Line struct {
	EstimatedKg decimal.Decimal
	Amount      decimal.Decimal
	// MissingBoxWeight is set for box lines whose product has no box weight.
	// The weight resolves to zero and the caller must flag it to a human.
	MissingBoxWeight bool
}

// Resolve derives weight and amount for one line. Negative quantities are
// clamped to zero.
func Resolve(qty decimal.Decimal, mode Mode, boxWeight, unitPrice decimal.Decimal) Line {
	if qty.IsNegative() {
		qty = decimal.Zero
	}

	var line Line
	switch mode {
	case ModeBox:
		if !boxWeight.IsPositive() {
			line.MissingBoxWeight = true
			boxWeight = decimal.Zero
		}
		line.EstimatedKg = qty.Mul(boxWeight)
	default:
		line.EstimatedKg = qty
	}
	line.Amount = line.EstimatedKg.Mul(unitPrice)
	return line
}

type Totals struct {
	Kg     decimal.Decimal
	Amount decimal.Decimal
}

// Sum always recomputes from the full set of lines.
func Sum(lines []Line) Totals {
	totals := Totals{Kg: decimal.Zero, Amount: decimal.Zero}
	for _, line := range lines {
		totals.Kg = totals.Kg.Add(line.EstimatedKg)
		totals.Amount = totals.Amount.Add(line.Amount)
	}
	return totals
}
