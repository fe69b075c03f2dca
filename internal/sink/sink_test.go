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



package sink

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlnoga/hpxgrid/internal/errs"
	"github.com/mlnoga/hpxgrid/internal/sparse"
)

var testRecs = []sparse.SparseRecord{
	{Time: 86400, X: 3, Y: 17, Value: 1.25},
	{Time: 86400, X: 4, Y: 17, Value: -0.5},
	{Time: 172800, X: 3, Y: 17, Value: 2},
}

func TestEmitNeedsSink(t *testing.T) {
	assert.ErrorIs(t, Emit(nil, testRecs), errs.ErrConfiguration)
}

func TestCSVRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSV(&buf, nil)
	require.NoError(t, Emit(s, testRecs[:1]))
	require.NoError(t, Emit(s, testRecs[1:]))
	require.NoError(t, s.Close())
	assert.True(t, strings.HasPrefix(buf.String(), "time,x,y,value\n86400,3,17,1.25\n"))
	assert.Equal(t, 1, strings.Count(buf.String(), "time"), "header written once")

	recs, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, testRecs, recs)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("1,2,3\n"))
	assert.Error(t, err)
	_, err = ReadCSV(strings.NewReader("1,2,x,4\n"))
	assert.Error(t, err)
}

func TestJSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONLines(&buf, nil)
	require.NoError(t, s.Put(testRecs))
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(testRecs))
	assert.Equal(t, `{"time":86400,"x":3,"y":17,"value":1.25}`, lines[0])
	var rec sparse.SparseRecord
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &rec))
	assert.Equal(t, testRecs[2], rec)
}

func TestOpen(t *testing.T) {
	name := filepath.Join(t.TempDir(), "out.csv")
	s, err := Open(name, "CSV")
	require.NoError(t, err)
	require.NoError(t, s.Put(testRecs))
	require.NoError(t, s.Close())
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))

	_, err = Open(filepath.Join(t.TempDir(), "out.bin"), "parquet")
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := range testRecs {
		wg.Add(1)
		go func(r sparse.SparseRecord) {
			defer wg.Done()
			assert.NoError(t, c.Put([]sparse.SparseRecord{r}))
		}(testRecs[i])
	}
	wg.Wait()
	assert.Len(t, c.Records(), 3)
	assert.Equal(t, []int64{86400, 172800}, c.Times())

	g, err := c.Slice(86400, 8, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	v, ok := g.Get(4, 17)
	assert.True(t, ok)
	assert.Equal(t, -0.5, v)

	sum, err := c.Coadd(8, 20)
	require.NoError(t, err)
	v, _ = sum.Get(3, 17)
	assert.Equal(t, 3.25, v)
	assert.Equal(t, 2, sum.Len())

	_, err = c.Coadd(2, 2)
	assert.ErrorIs(t, err, errs.ErrShape)
}
