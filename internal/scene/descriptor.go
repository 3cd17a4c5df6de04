package scene

import (
	"fmt"

	"github.com/dspacex/msview/internal/dspacex"
)

// Descriptor identifies one Morse-Smale decomposition. Two descriptors
// describe the same decomposition only if all six fields match.
type Descriptor struct {
	DatasetID        int    `yaml:"dataset_id"`
	Category         string `yaml:"category"`
	Field            string `yaml:"field"`
	Mode             string `yaml:"mode"`
	K                int    `yaml:"k"`
	PersistenceLevel int    `yaml:"persistence_level"`
}

// Equal reports whether d and other describe the same decomposition
func (d Descriptor) Equal(other Descriptor) bool {
	return d == other
}

// IsZero reports whether no decomposition is described
func (d Descriptor) IsZero() bool {
	return d == Descriptor{}
}

// Query converts the descriptor into a backend query
func (d Descriptor) Query() dspacex.Query {
	return dspacex.Query{
		DatasetID:        d.DatasetID,
		Category:         d.Category,
		Field:            d.Field,
		K:                d.K,
		PersistenceLevel: d.PersistenceLevel,
	}
}

func (d Descriptor) String() string {
	return fmt.Sprintf("dataset=%d %s/%s mode=%s k=%d level=%d",
		d.DatasetID, d.Category, d.Field, d.Mode, d.K, d.PersistenceLevel)
}
