package readings

import "time"

// MeterKind distinguishes physically read meters from composed ones.
type MeterKind string

const (
	KindPhysical MeterKind = "PHYSICAL"
	KindVirtual  MeterKind = "VIRTUAL"
)

// Composition describes how a virtual meter derives its value from
// physical constituents: the master's reading plus the added meters
// minus the subtracted ones.
type Composition struct {
	MasterKey    string
	AddKeys      []string
	SubtractKeys []string
}

// IsEmpty reports whether the composition references no constituents.
func (c Composition) IsEmpty() bool {
	return c.MasterKey == "" && len(c.AddKeys) == 0 && len(c.SubtractKeys) == 0
}

// Children returns the constituent keys in declaration order, added
// meters before subtracted ones. The order is load-bearing: report
// grouping sorts constituents by it.
func (c Composition) Children() []string {
	children := make([]string, 0, len(c.AddKeys)+len(c.SubtractKeys))
	children = append(children, c.AddKeys...)
	children = append(children, c.SubtractKeys...)
	return children
}

// Meter is one counter of a metered object.
// Key is the stable identity used by compositions and delta sequencing.
// CounterID is the operator-facing identifier shown in reports and may
// differ from Key in older documents.
type Meter struct {
	Key       string
	CounterID string
	Name      string
	Type      string
	Unit      string
	RoomID    string

	Composition *Composition
}

// IsVirtual reports whether the meter carries a non-empty composition.
func (m Meter) IsVirtual() bool {
	return m.Composition != nil && !m.Composition.IsEmpty()
}

// Reading is one observation of a meter, physical or synthesized.
type Reading struct {
	MeterKey  string
	CounterID string
	Name      string
	Object    string
	Room      string
	RoomID    string
	Kind      MeterKind
	Type      string
	Unit      string

	Taken    DateParts
	RawValue string
	Value    *float64

	// ImageFile is the photo file name recorded with the observation,
	// empty when none was taken.
	ImageFile string
	// ImagePath is the resolved photo location relative to the report
	// root, filled by the image resolver.
	ImagePath string
	// ImageTarget is the absolute hyperlink target for the photo.
	ImageTarget string
}

// AnnotatedReading is a reading extended by the delta engine.
// Optional fields stay nil when the engine cannot derive them; see
// AnnotateSeries for the exact rules.
type AnnotatedReading struct {
	Reading

	PrevValue   *float64
	PrevDate    *time.Time
	Delta       *float64
	DeltaPerDay *float64
	Days        *int
	Reset       bool
	Remark      string
	CreatedAt   time.Time
}

// SnapshotRow is the representative reading of a meter for one
// calendar period, re-annotated against the neighbouring periods.
type SnapshotRow struct {
	AnnotatedReading

	Granularity Granularity
	PeriodStart time.Time
	PeriodLabel string
}

// TimeKey returns the storage key for the row's period.
func (r SnapshotRow) TimeKey() (TimeKey, error) {
	return NewTimeKey(r.Granularity, r.PeriodStart)
}

// Document is one folder's loaded dataset: the meter inventory, every
// recorded observation and the room names the reports resolve against.
type Document struct {
	Folder    string
	ObjectID  string
	Meters    []Meter
	Readings  []Reading
	RoomNames map[string]string
}
