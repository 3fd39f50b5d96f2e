package weight

import (
	"math"

	"github.com/shopspring/decimal"
)

// EntryMode selects which of the three equivalent quantities is being edited.
type EntryMode int

const (
	// ByUsed edits the consumed weight directly.
	ByUsed EntryMode = iota
	// ByRemaining edits the material left in the container, excluding packaging.
	ByRemaining
	// ByMeasured edits what a scale reads for the whole bottle.
	ByMeasured
)

// String returns the wire name of the entry mode.
func (m EntryMode) String() string {
	switch m {
	case ByRemaining:
		return "remaining"
	case ByMeasured:
		return "measured"
	default:
		return "used"
	}
}

// ParseMode maps a wire name back to an EntryMode. Unknown names fall back to ByUsed.
func ParseMode(name string) EntryMode {
	switch name {
	case "remaining":
		return ByRemaining
	case "measured":
		return ByMeasured
	default:
		return ByUsed
	}
}

// ResinWeightInfo carries the weight data of the currently selected resin.
// A zero value means the vendor did not publish that figure, which disables
// the derived entry modes that depend on it.
type ResinWeightInfo struct {
	Nominal   float64
	Packaging float64
}

// HasNominal reports whether the full-bottle net weight is known.
func (i ResinWeightInfo) HasNominal() bool {
	return i.Nominal > 0
}

// HasPackaging reports whether the empty-bottle weight is known.
func (i ResinWeightInfo) HasPackaging() bool {
	return i.Packaging > 0
}

// Tracker keeps the three displayed consumption quantities mutually
// consistent. The used weight is the single canonical value; remaining and
// measured are computed views over it plus the resin's weight info. The
// tracker never rejects numeric input: a mid-edit value may drive the derived
// displays transiently negative, and clamping is the input layer's concern.
type Tracker struct {
	used float64
	info ResinWeightInfo
	mode EntryMode
}

// NewTracker builds a tracker for the given resin data, starting from the
// supplied canonical used weight in ByUsed mode.
func NewTracker(info ResinWeightInfo, used float64) *Tracker {
	return &Tracker{used: used, info: info}
}

// Used returns the canonical consumed weight.
func (t *Tracker) Used() float64 {
	return t.used
}

// Info returns the resin weight data the tracker is operating against.
func (t *Tracker) Info() ResinWeightInfo {
	return t.info
}

// Mode returns the active entry mode.
func (t *Tracker) Mode() EntryMode {
	return t.mode
}

// SetByUsed records a direct edit of the consumed weight.
func (t *Tracker) SetByUsed(value float64) {
	t.used = value
}

// SetByRemaining records an edit of the remaining material weight.
// It is a no-op when the resin's nominal weight is unknown.
func (t *Tracker) SetByRemaining(value float64) {
	if !t.info.HasNominal() {
		return
	}
	t.used = t.info.Nominal - value
}

// SetByMeasured records an edit of the gross scale reading.
// It is a no-op unless both nominal and packaging weights are known.
func (t *Tracker) SetByMeasured(value float64) {
	if !t.info.HasNominal() || !t.info.HasPackaging() {
		return
	}
	t.used = t.info.Nominal - (value - t.info.Packaging)
}

// Remaining derives the material left in the container. The second return
// is false when the resin's nominal weight is unknown.
func (t *Tracker) Remaining() (float64, bool) {
	if !t.info.HasNominal() {
		return 0, false
	}
	return t.info.Nominal - t.used, true
}

// Measured derives the expected gross scale reading. The second return is
// false unless both nominal and packaging weights are known.
func (t *Tracker) Measured() (float64, bool) {
	if !t.info.HasNominal() || !t.info.HasPackaging() {
		return 0, false
	}
	return t.info.Nominal - t.used + t.info.Packaging, true
}

// SelectMode activates the requested entry mode, degrading to the nearest
// mode the resin's data supports. It never fails; an unsupported request
// simply clamps.
func (t *Tracker) SelectMode(mode EntryMode) EntryMode {
	t.mode = t.clamp(mode)
	return t.mode
}

// SetResin swaps the resin weight data, re-validating the active mode while
// leaving the canonical used weight untouched.
func (t *Tracker) SetResin(info ResinWeightInfo) {
	t.info = info
	t.mode = t.clamp(t.mode)
}

func (t *Tracker) clamp(mode EntryMode) EntryMode {
	if mode == ByMeasured && t.info.HasNominal() && t.info.HasPackaging() {
		return ByMeasured
	}
	if mode >= ByRemaining && t.info.HasNominal() {
		return ByRemaining
	}
	return ByUsed
}

// RoundDisplay rounds a weight to the one-decimal display precision used by
// the editing fields. Decimal arithmetic avoids binary rounding artifacts at
// the .05 boundaries.
func RoundDisplay(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	rounded, _ := decimal.NewFromFloat(value).Round(1).Float64()
	return rounded
}

// WeightFromLength converts a length of resin strand to its weight.
// Length and diameter are in millimeters, density in g/cm3; the result is in
// grams.
func WeightFromLength(length, diameter, density float64) float64 {
	radius := diameter / 2
	volumeMM3 := length * math.Pi * radius * radius
	return volumeMM3 / 1000 * density
}
