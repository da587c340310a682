// Package taxonomy defines the closed, versioned vocabulary of semantic
// column types. Every prediction label and every persisted model is bound
// to a specific vocabulary version; the two are inseparable.
package taxonomy

// Version is bumped whenever a label is added, removed, or renamed.
// Artifacts persisted under a different version refuse to load.
const Version = 2

// Semantic type labels. Unknown is the floor every classifier can fall
// back to; it is always part of the vocabulary.
const (
	Diameter    = "diameter"
	Height      = "height"
	SpeciesName = "species_name"
	Latitude    = "latitude"
	Longitude   = "longitude"
	Date        = "date"
	PlotID      = "plot_id"
	StemCount   = "stem_count"
	WoodDensity = "wood_density"
	Unknown     = "unknown"
)

// Vocabulary is an ordered, closed label set. The order is part of the
// model contract: member probability vectors are indexed by it.
type Vocabulary struct {
	labels []string
	index  map[string]int
}

// Default returns the built-in vocabulary for the current Version.
func Default() Vocabulary {
	return New([]string{
		Diameter,
		Height,
		SpeciesName,
		Latitude,
		Longitude,
		Date,
		PlotID,
		StemCount,
		WoodDensity,
		Unknown,
	})
}

// New builds a vocabulary from an ordered label list.
func New(labels []string) Vocabulary {
	v := Vocabulary{
		labels: append([]string(nil), labels...),
		index:  make(map[string]int, len(labels)),
	}
	for i, l := range v.labels {
		v.index[l] = i
	}
	return v
}

// Labels returns the labels in vocabulary order. Callers must not modify
// the returned slice.
func (v Vocabulary) Labels() []string { return v.labels }

func (v Vocabulary) Len() int { return len(v.labels) }

// Index returns the position of a label, or -1 if it is not in the
// vocabulary.
func (v Vocabulary) Index(label string) int {
	if i, ok := v.index[label]; ok {
		return i
	}
	return -1
}

func (v Vocabulary) Contains(label string) bool { return v.Index(label) >= 0 }

// Label returns the label at position i, or Unknown when out of range.
func (v Vocabulary) Label(i int) string {
	if i < 0 || i >= len(v.labels) {
		return Unknown
	}
	return v.labels[i]
}

// Equal reports whether two vocabularies carry the same labels in the
// same order.
func (v Vocabulary) Equal(o Vocabulary) bool {
	if len(v.labels) != len(o.labels) {
		return false
	}
	for i := range v.labels {
		if v.labels[i] != o.labels[i] {
			return false
		}
	}
	return true
}
