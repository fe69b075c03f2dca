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



package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/mlnoga/hpxgrid/internal/errs"
	"github.com/mlnoga/hpxgrid/internal/ops"
	"github.com/mlnoga/hpxgrid/internal/regrid"
	"github.com/mlnoga/hpxgrid/internal/sink"
)

/* Example job file ...

files:
  - data/*.fits
  - data/*.fits.gz
nside: 128
direct: true
threads: 8
output:
  file: records.csv
  format: csv
regrid:
  factors: [4]
  aggregator: mean
preview:
  file: coadd%d.jpg
  gamma: 2.2

*/

type Output struct {
	File   string `yaml:"file"`   // Record file, "-" for stdout. Empty for no records
	Format string `yaml:"format"` // csv or jsonl
}

type Regrid struct {
	Factors    []int  `yaml:"factors"` // Block factor per axis, or a single one for both
	Aggregator string `yaml:"aggregator"`
}

type Preview struct {
	File  string  `yaml:"file"` // Image file pattern, %d expands to the frame id. Empty for none
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Gamma float64 `yaml:"gamma"`
}

// A conversion job: which images to load, how to resample them and where the results go
type Job struct {
	Files   []string `yaml:"files"`
	Nside   int      `yaml:"nside"`
	Direct  bool     `yaml:"direct"` // Take images already in HPX projection as they are
	Threads int      `yaml:"threads"`
	Output  Output   `yaml:"output"`
	Regrid  Regrid   `yaml:"regrid"`
	Preview Preview  `yaml:"preview"`
}

func NewJob() Job {
	return Job{
		Files:   []string{},
		Nside:   64,
		Direct:  true,
		Output:  Output{Format: "csv"},
		Regrid:  Regrid{Aggregator: "sum"},
		Preview: Preview{Gamma: 1},
	}
}

// Loads a job from a YAML file, on top of the defaults
func LoadJob(filename string) (Job, error) {
	j := NewJob()

	if contents, err := os.ReadFile(filename); err != nil {
		return j, fmt.Errorf("read '%s': %w", filename, err)
	} else if err := yaml.Unmarshal(contents, &j); err != nil {
		return j, fmt.Errorf("parse '%s': %w", filename, err)
	}

	return j, j.Finalize()
}

// Finalize does sanity checks and fills in defaults for zero values
func (j *Job) Finalize() error {
	if j.Nside <= 0 {
		return fmt.Errorf("%w: nside must be positive, got %d", errs.ErrConfiguration, j.Nside)
	}
	if j.Output.Format == "" {
		j.Output.Format = "csv"
	}
	j.Output.Format = strings.ToLower(j.Output.Format)
	known := false
	for _, f := range sink.Formats {
		known = known || f == j.Output.Format
	}
	if !known {
		return fmt.Errorf("%w: unknown output format '%s'", errs.ErrConfiguration, j.Output.Format)
	}
	if j.Regrid.Aggregator == "" {
		j.Regrid.Aggregator = "sum"
	}
	if _, err := regrid.AggregatorByName(j.Regrid.Aggregator); err != nil {
		return err
	}
	if len(j.Regrid.Factors) > 2 {
		return fmt.Errorf("%w: %d regrid factors for a 2-dimensional grid", errs.ErrConfiguration, len(j.Regrid.Factors))
	}
	for _, d := range j.Regrid.Factors {
		if d < 1 {
			return fmt.Errorf("%w: regrid factor %d must be at least 1", errs.ErrConfiguration, d)
		}
	}
	if j.Preview.Gamma <= 0 {
		j.Preview.Gamma = 1
	}
	return nil
}

// Builds the operator sequence for the job. Records are only emitted if an output file is set
func (j *Job) Sequence() *ops.OpSequence {
	seq := ops.NewOpSequence(
		ops.NewOpLoadMany(j.Files),
		ops.NewOpToHPX(j.Nside, j.Direct),
	)
	if len(j.Regrid.Factors) > 0 {
		seq.Append(ops.NewOpRegrid(j.Regrid.Factors, j.Regrid.Aggregator))
	}
	if j.Output.File != "" {
		seq.Append(ops.NewOpSaveRecords())
	}
	if j.Preview.File != "" {
		save := ops.NewOpSave(j.Preview.File)
		save.Min, save.Max, save.Gamma = j.Preview.Min, j.Preview.Max, j.Preview.Gamma
		seq.Append(save)
	}
	return seq
}
