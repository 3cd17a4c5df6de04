// Package dspacex is the client side of the dSpaceX backend: the operations
// the Morse-Smale viewer consumes and a websocket implementation of them.
package dspacex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Query selects one decomposition of a dataset
type Query struct {
	DatasetID        int
	Category         string
	Field            string
	K                int
	PersistenceLevel int
}

// Curve is the regression curve of one crystal. Colors has one entry per
// point.
type Curve struct {
	Points [][3]float64 `json:"points"`
	Colors [][3]float64 `json:"colors"`
}

// RegressionCurves holds one curve per crystal, indexed by crystal id
type RegressionCurves struct {
	Curves []Curve `json:"curves"`
}

// Extremum is a critical point of the decomposed field
type Extremum struct {
	Position [3]float64 `json:"position"`
	Color    [3]float64 `json:"color"`
}

// Extrema lists the extrema of a decomposition
type Extrema struct {
	Extrema []Extremum `json:"extrema"`
}

// CrystalPartition lists the samples that belong to a crystal
type CrystalPartition struct {
	CrystalSamples []int `json:"crystalSamples"`
}

// EvalRequest asks the model of a crystal for new samples at a position
// along the crystal
type EvalRequest struct {
	DatasetID        int
	Category         string
	Field            string
	PersistenceLevel int

	Crystal      int
	SampleCount  int
	ShowOriginal bool
	Validate     bool
	Percent      float64
}

// EvalResult is what the model returned. For a single sample the server may
// send scalars instead of arrays; both shapes decode to slices.
type EvalResult struct {
	Thumbnails  Thumbnails `json:"thumbnails"`
	FieldValues floats     `json:"fieldValues"`
	SampleIDs   ints       `json:"sampleIds"`
	Msg         string     `json:"msg,omitempty"`
}

// Service is the backend used by the viewer
type Service interface {
	FetchRegressionCurves(ctx context.Context, q Query) (*RegressionCurves, error)
	FetchExtrema(ctx context.Context, q Query) (*Extrema, error)
	FetchCrystalPartition(ctx context.Context, datasetID, persistenceLevel, crystal int) (*CrystalPartition, error)
	EvalModelForCrystal(ctx context.Context, req EvalRequest) (*EvalResult, error)
}

// Thumbnails decodes from either a single thumbnail object or an array
type Thumbnails []Thumbnail

func (t *Thumbnails) UnmarshalJSON(data []byte) error {
	return unmarshalOneOrMany(data, (*[]Thumbnail)(t))
}

type floats []float64

func (f *floats) UnmarshalJSON(data []byte) error {
	return unmarshalOneOrMany(data, (*[]float64)(f))
}

type ints []int

func (i *ints) UnmarshalJSON(data []byte) error {
	return unmarshalOneOrMany(data, (*[]int)(i))
}

func unmarshalOneOrMany[T any](data []byte, out *[]T) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*out = nil
		return nil
	case data[0] == '[':
		return json.Unmarshal(data, out)
	}

	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("decode single value: %w", err)
	}
	*out = []T{one}
	return nil
}
