package spectrum

import "sync"

// IntegrationSource tags how a stored integration time was set (spec §3).
type IntegrationSource int

const (
	SourceManual IntegrationSource = iota
	SourceAutointegrated
	SourceAutointegrationFailed
)

// IntegrationCell is one (shutter, spectrometer) entry of the table.
type IntegrationCell struct {
	ValueMS int
	Source  IntegrationSource
}

// ChangeCallback is invoked whenever a write actually changes value or
// source, so the coordinator can enqueue a state-change bus message.
type ChangeCallback func(shutter, spectrometer string, cell IntegrationCell)

// Limits bounds the legal integration time of one spectrometer.
type Limits struct {
	MinMS, MaxMS int
}

// Table is the two-level (shutter, spectrometer) integration-time table
// owned by the coordinator (spec §3, §5).
type Table struct {
	mu     sync.Mutex
	cells  map[string]map[string]IntegrationCell
	limits map[string]Limits
	onChange ChangeCallback
	needDark bool
}

// NewTable creates an empty table. onChange may be nil.
func NewTable(onChange ChangeCallback) *Table {
	return &Table{
		cells:    make(map[string]map[string]IntegrationCell),
		limits:   make(map[string]Limits),
		onChange: onChange,
	}
}

// SetLimits records a spectrometer's hardware-clamped integration range.
func (t *Table) SetLimits(spectrometer string, l Limits) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limits[spectrometer] = l
}

func clampAndRound(valueMS int, l Limits, roundTwoSigFig bool) int {
	v := valueMS
	if roundTwoSigFig && v > 0 {
		v = roundToTwoSigFigs(v)
	}
	if v < l.MinMS {
		v = l.MinMS
	}
	if v > l.MaxMS {
		v = l.MaxMS
	}
	return v
}

// roundToTwoSigFigs rounds up to two significant figures, e.g. 1234 -> 1300.
func roundToTwoSigFigs(v int) int {
	if v <= 0 {
		return v
	}
	digits := 0
	for n := v; n >= 100; n /= 10 {
		digits++
	}
	scale := 1
	for i := 0; i < digits; i++ {
		scale *= 10
	}
	if scale == 1 {
		return v
	}
	rem := v % scale
	if rem == 0 {
		return v
	}
	return v - rem + scale
}

// Set writes an integration time for (shutter, spectrometer), applying the
// value policy from spec §3: optional round-up to two significant figures,
// then clamp to [min,max]. If the effective value differs from the current
// one, the need-dark flag is raised. Fires onChange only if value or source
// actually changed.
func (t *Table) Set(shutter, spectrometer string, valueMS int, source IntegrationSource, roundTwoSigFig bool) IntegrationCell {
	t.mu.Lock()

	l := t.limits[spectrometer]
	if l.MaxMS == 0 && l.MinMS == 0 {
		l = Limits{MinMS: 0, MaxMS: valueMS}
	}
	effective := clampAndRound(valueMS, l, roundTwoSigFig)

	if t.cells[shutter] == nil {
		t.cells[shutter] = make(map[string]IntegrationCell)
	}
	prev, existed := t.cells[shutter][spectrometer]
	changed := !existed || prev.ValueMS != effective || prev.Source != source

	cell := IntegrationCell{ValueMS: effective, Source: source}
	t.cells[shutter][spectrometer] = cell

	if existed && prev.ValueMS != effective {
		t.needDark = true
	}

	cb := t.onChange
	t.mu.Unlock()

	if changed && cb != nil {
		cb(shutter, spectrometer, cell)
	}
	return cell
}

// Get reads the current cell for (shutter, spectrometer).
func (t *Table) Get(shutter, spectrometer string) (IntegrationCell, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.cells[shutter]
	if !ok {
		return IntegrationCell{}, false
	}
	cell, ok := row[spectrometer]
	return cell, ok
}

// Limits returns the stored limits for a spectrometer.
func (t *Table) Limits(spectrometer string) Limits {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limits[spectrometer]
}

// ConsumeNeedDark reports and clears the need-dark flag in one atomic step.
func (t *Table) ConsumeNeedDark() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.needDark
	t.needDark = false
	return v
}

// RaiseNeedDark sets the need-dark flag directly (used by the Dark command).
func (t *Table) RaiseNeedDark() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.needDark = true
}
