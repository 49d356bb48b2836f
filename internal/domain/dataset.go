package domain

import (
	"fmt"
	"time"
)

// FileError records a source file whose contribution was skipped.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// Batch is everything read from the data source in one pass.
type Batch struct {
	Records []RawRecord
	Files   []string
	Failed  []FileError
}

// Dataset is the result of one refresh run: the merged team records and the
// statistics computed over them. Sinks receive it read-only.
type Dataset struct {
	RunID       string
	GeneratedAt time.Time
	Records     []CanonicalRecord
	Statistics  Statistics
	Cities      CityComparison
	CityFilter  []string
	// NoCityData is set when CityFilter matched none of the records.
	NoCityData  bool
	FilesLoaded []string
	FilesFailed []string
}

// Summary is the machine-readable view of a Dataset, without the records.
type Summary struct {
	RunID       string         `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	Team        Statistics     `json:"team" yaml:"team"`
	Cities      CityComparison `json:"cities" yaml:"cities"`
	CityFilter  []string       `json:"city_filter,omitempty" yaml:"city_filter,omitempty"`
	NoCityData  bool           `json:"no_city_data" yaml:"no_city_data"`
	FilesLoaded []string       `json:"files_loaded" yaml:"files_loaded"`
	FilesFailed []string       `json:"files_failed,omitempty" yaml:"files_failed,omitempty"`
}

// Summary returns the Dataset without its records.
func (d Dataset) Summary() Summary {
	return Summary{
		RunID:       d.RunID,
		GeneratedAt: d.GeneratedAt,
		Team:        d.Statistics,
		Cities:      d.Cities,
		CityFilter:  d.CityFilter,
		NoCityData:  d.NoCityData,
		FilesLoaded: d.FilesLoaded,
		FilesFailed: d.FilesFailed,
	}
}
