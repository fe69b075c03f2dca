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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlnoga/hpxgrid/internal/errs"
	"github.com/mlnoga/hpxgrid/internal/ops"
)

func writeJob(t *testing.T, text string) string {
	name := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(name, []byte(text), 0644))
	return name
}

func TestLoadJob(t *testing.T) {
	name := writeJob(t, `
files:
  - data/*.fits
nside: 128
threads: 4
output:
  file: out.jsonl
  format: JSONL
regrid:
  factors: [4]
  aggregator: mean
preview:
  file: coadd%d.jpg
  gamma: 2.2
`)
	j, err := LoadJob(name)
	require.NoError(t, err)
	assert.Equal(t, []string{"data/*.fits"}, j.Files)
	assert.Equal(t, 128, j.Nside)
	assert.True(t, j.Direct, "default kept")
	assert.Equal(t, 4, j.Threads)
	assert.Equal(t, "jsonl", j.Output.Format)
	assert.Equal(t, []int{4}, j.Regrid.Factors)
	assert.Equal(t, 2.2, j.Preview.Gamma)

	seq := j.Sequence()
	var types []string
	for _, s := range seq.Steps {
		types = append(types, s.GetType())
	}
	assert.Equal(t, []string{"loadMany", "toHPX", "regrid", "saveRecords", "save"}, types)
	save := seq.Steps[4].(*ops.OpSave)
	assert.Equal(t, 2.2, save.Gamma)
}

func TestDefaults(t *testing.T) {
	j := NewJob()
	j.Files = []string{"a.fits"}
	require.NoError(t, j.Finalize())
	assert.Equal(t, "csv", j.Output.Format)
	assert.Equal(t, "sum", j.Regrid.Aggregator)

	seq := j.Sequence()
	require.Len(t, seq.Steps, 2, "no regrid, records or preview by default")
}

func TestInvalidJobs(t *testing.T) {
	for _, text := range []string{
		"nside: 0\n",
		"output:\n  format: xml\n",
		"regrid:\n  aggregator: median\n",
		"regrid:\n  factors: [0]\n",
		"regrid:\n  factors: [2, 2, 2]\n",
	} {
		_, err := LoadJob(writeJob(t, text))
		assert.ErrorIs(t, err, errs.ErrConfiguration, text)
	}

	_, err := LoadJob(writeJob(t, "nside: [1, 2\n"))
	assert.Error(t, err)
	_, err = LoadJob(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
