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



package regrid

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/mlnoga/hpxgrid/internal/errs"
)

// Reduces the values of one block to a single value. Blocks are never empty, and values
// arrive in row-major order of their offset within the block
type Aggregator func(block []float64) float64

// Sum of the block values
func Sum(block []float64) float64 { return floats.Sum(block) }

// Largest block value
func Max(block []float64) float64 { return floats.Max(block) }

// Smallest block value
func Min(block []float64) float64 { return floats.Min(block) }

// Arithmetic mean of the block values
func Mean(block []float64) float64 { return floats.Sum(block) / float64(len(block)) }

var aggregators = map[string]Aggregator{
	"sum":  Sum,
	"max":  Max,
	"min":  Min,
	"mean": Mean,
}

// Looks up an aggregator by name, case insensitive
func AggregatorByName(name string) (Aggregator, error) {
	agg, ok := aggregators[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown aggregator %q, want one of %s",
			errs.ErrConfiguration, name, strings.Join(AggregatorNames(), ", "))
	}
	return agg, nil
}

// Names of all known aggregators, sorted
func AggregatorNames() []string {
	names := make([]string, 0, len(aggregators))
	for n := range aggregators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
