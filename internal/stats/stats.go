// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.



package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/mlnoga/hpxgrid/internal/qsort"
	"github.com/mlnoga/hpxgrid/internal/sparse"
)

// Basic statistics on sample values
type BasicStats struct {
	Count  int     // Number of finite values
	Min    float64 // Minimum
	Max    float64 // Maximum
	Mean   float64 // Mean (average)
	StdDev float64 // Standard deviation (norm 2, sigma)
	Median float64 // Median
	Mode   float64 // Peak of a normal distribution fitted to the histogram, NaN if the fit failed
}

// Pretty print basic stats to string
func (s *BasicStats) String() string {
	return fmt.Sprintf("Count %d Min %.6g Max %.6g Mean %.6g StdDev %.6g Median %.6g Mode %.6g",
		s.Count, s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.Mode)
}

// Pretty print basic stats to CSV header
func (s *BasicStats) ToCSVHeader() string {
	return "Count,Min,Max,Mean,StdDev,Median,Mode"
}

// Pretty print basic stats to CSV line item
func (s *BasicStats) ToCSVLine() string {
	return fmt.Sprintf("%d,%.6g,%.6g,%.6g,%.6g,%.6g,%.6g",
		s.Count, s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.Mode)
}

// Number of histogram bins used for the mode estimate
const modeBins = 256

// Calculate basic statistics for the given values. NaN values are ignored.
// Returns nil if there are no finite values
func Summarize(values []float64) *BasicStats {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return nil
	}

	s := &BasicStats{Count: len(finite), Min: finite[0], Max: finite[0]}
	for _, v := range finite {
		s.Min, s.Max = math.Min(s.Min, v), math.Max(s.Max, v)
	}
	s.Mean, s.StdDev = stat.MeanStdDev(finite, nil)
	if len(finite) < 2 {
		s.StdDev = 0
	}

	s.Mode = math.NaN()
	if s.Max > s.Min {
		bins := make([]int32, modeBins)
		Histogram(finite, s.Min, s.Max, bins)
		if mode, _, err := GetModeStdDevFromHistogram(bins, s.Min, s.Max); err == nil {
			s.Mode = mode
		}
	} else {
		s.Mode = s.Min
	}

	s.Median = qsort.QSelectMedianFloat64(finite) // reorders, so last
	return s
}

// Calculate basic statistics for the values of a record set
func SummarizeRecords(recs []sparse.SparseRecord) *BasicStats {
	values := make([]float64, len(recs))
	for i, r := range recs {
		values[i] = r.Value
	}
	return Summarize(values)
}
