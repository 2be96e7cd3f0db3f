package history

import "time"

// Status tells whether an entry was recorded by a removal or discovered on
// disk without a record.
type Status string

const (
	StatusKnown   Status = "known"
	StatusUnknown Status = "unknown"
)

// Label returns the display form of the status.
func (s Status) Label() string {
	switch s {
	case StatusKnown:
		return "Known"
	case StatusUnknown:
		return "Unknown"
	default:
		return string(s)
	}
}

// Unknown is the placeholder Location and Origin of discovered entries.
const Unknown = "Unknown"

// Entry describes one item held in the bucket.
type Entry struct {
	Status Status `json:"status"`

	// Index is the user-facing identifier, unique among live entries.
	Index int `json:"index"`

	// Name is the original base name, or the raw stored name for unknown entries.
	Name string `json:"name"`

	// Location is the shortened original path used for display.
	Location string `json:"location"`

	TrashedAt time.Time `json:"trashed_at"`

	// Origin is the absolute path the item is restored to.
	Origin string `json:"origin"`
}

// Row is the display projection of an Entry. It never carries Origin.
type Row struct {
	Index     int       `json:"index" yaml:"index"`
	Status    Status    `json:"status" yaml:"status"`
	Name      string    `json:"name" yaml:"name"`
	Location  string    `json:"location" yaml:"location"`
	TrashedAt time.Time `json:"trashed_at" yaml:"trashed_at"`
}

// Row returns the display projection of e.
func (e Entry) Row() Row {
	return Row{
		Index:     e.Index,
		Status:    e.Status,
		Name:      e.Name,
		Location:  e.Location,
		TrashedAt: e.TrashedAt,
	}
}

// Record pairs an entry with its storage key, the bucket-local item name.
type Record struct {
	Key   string `json:"key"`
	Entry Entry  `json:"entry"`
}
