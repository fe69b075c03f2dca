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
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mlnoga/hpxgrid/internal/errs"
	"github.com/mlnoga/hpxgrid/internal/sparse"
)

// A storage collaborator receiving record batches. Put may be called from many goroutines
type Sink interface {
	Put(recs []sparse.SparseRecord) error
	Close() error
}

// Hands the records to the sink. A missing sink is a configuration error
func Emit(s Sink, recs []sparse.SparseRecord) error {
	if s == nil {
		return fmt.Errorf("%w: no record sink supplied", errs.ErrConfiguration)
	}
	return s.Put(recs)
}

// Output formats understood by Open
var Formats = []string{"csv", "jsonl"}

// Opens a file sink in the given format. File name "-" writes to stdout
func Open(fileName, format string) (Sink, error) {
	var w io.Writer
	var c io.Closer
	if fileName == "-" {
		w = os.Stdout
	} else {
		f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return nil, err
		}
		w, c = f, f
	}
	switch strings.ToLower(format) {
	case "csv":
		return NewCSV(w, c), nil
	case "jsonl", "json":
		return NewJSONLines(w, c), nil
	}
	if c != nil {
		c.Close()
	}
	return nil, fmt.Errorf("%w: unknown output format %q, want one of %s", errs.ErrConfiguration, format, strings.Join(Formats, ", "))
}

// Writes records as CSV with a time,x,y,value header line
type CSVSink struct {
	mu     sync.Mutex
	w      *csv.Writer
	c      io.Closer
	header bool
}

// Creates a CSV sink on w. The optional closer is closed with the sink
func NewCSV(w io.Writer, c io.Closer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w), c: c}
}

func (s *CSVSink) Put(recs []sparse.SparseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.header {
		if err := s.w.Write([]string{"time", "x", "y", "value"}); err != nil {
			return err
		}
		s.header = true
	}
	row := make([]string, 4)
	for _, r := range recs {
		row[0] = strconv.FormatInt(r.Time, 10)
		row[1] = strconv.FormatInt(r.X, 10)
		row[2] = strconv.FormatInt(r.Y, 10)
		row[3] = strconv.FormatFloat(r.Value, 'g', -1, 64)
		if err := s.w.Write(row); err != nil {
			return err
		}
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	err := s.w.Error()
	if s.c != nil {
		if cerr := s.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Writes one JSON object per record and line
type JSONLinesSink struct {
	mu  sync.Mutex
	buf *bufio.Writer
	enc *json.Encoder
	c   io.Closer
}

// Creates a JSON lines sink on w. The optional closer is closed with the sink
func NewJSONLines(w io.Writer, c io.Closer) *JSONLinesSink {
	buf := bufio.NewWriter(w)
	return &JSONLinesSink{buf: buf, enc: json.NewEncoder(buf), c: c}
}

func (s *JSONLinesSink) Put(recs []sparse.SparseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		if err := s.enc.Encode(r); err != nil {
			return err
		}
	}
	return s.buf.Flush()
}

func (s *JSONLinesSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.buf.Flush()
	if s.c != nil {
		if cerr := s.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reads records back from CSV as written by CSVSink
func ReadCSV(r io.Reader) ([]sparse.SparseRecord, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	var res []sparse.SparseRecord
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "time" {
			continue
		}
		if len(row) != 4 {
			return nil, fmt.Errorf("%w: line %d has %d fields, want 4", errs.ErrShape, i+1, len(row))
		}
		var rec sparse.SparseRecord
		var perr error
		parseInt := func(s string) int64 {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil && perr == nil {
				perr = err
			}
			return v
		}
		rec.Time, rec.X, rec.Y = parseInt(row[0]), parseInt(row[1]), parseInt(row[2])
		if rec.Value, err = strconv.ParseFloat(row[3], 64); err != nil && perr == nil {
			perr = err
		}
		if perr != nil {
			return nil, fmt.Errorf("line %d: %s", i+1, perr.Error())
		}
		res = append(res, rec)
	}
	return res, nil
}

// Keeps records in memory. Stands in for an array store supporting time slices and coadds
type Collector struct {
	mu   sync.Mutex
	recs []sparse.SparseRecord
}

func NewCollector() *Collector { return &Collector{} }

func (c *Collector) Put(recs []sparse.SparseRecord) error {
	c.mu.Lock()
	c.recs = append(c.recs, recs...)
	c.mu.Unlock()
	return nil
}

func (c *Collector) Close() error { return nil }

// Returns a copy of all records received so far, in order of arrival
func (c *Collector) Records() []sparse.SparseRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sparse.SparseRecord(nil), c.recs...)
}

// Returns the distinct record times in ascending order
func (c *Collector) Times() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[int64]bool)
	var res []int64
	for _, r := range c.recs {
		if !seen[r.Time] {
			seen[r.Time] = true
			res = append(res, r.Time)
		}
	}
	sort.Slice(res, func(a, b int) bool { return res[a] < res[b] })
	return res
}

// Returns the records of the given time as a sparse grid of the given size.
// Repeated indices within one time conflict
func (c *Collector) Slice(time int64, nx, ny int) (*sparse.SparseGrid, error) {
	c.mu.Lock()
	var recs []sparse.SparseRecord
	for _, r := range c.recs {
		if r.Time == time {
			recs = append(recs, r)
		}
	}
	c.mu.Unlock()
	return sparse.FromRecords(recs, nx, ny)
}

// Sums the records of all times per grid index, into a sparse grid of the given size.
// Adds in ascending time order, independent of arrival order
func (c *Collector) Coadd(nx, ny int) (*sparse.SparseGrid, error) {
	recs := c.Records()
	sort.SliceStable(recs, func(a, b int) bool { return recs[a].Time < recs[b].Time })
	res := sparse.NewSparseGrid(nx, ny)
	for _, r := range recs {
		v, _ := res.Get(r.X, r.Y)
		if err := res.Set(r.X, r.Y, v+r.Value); err != nil {
			return nil, err
		}
	}
	return res, nil
}
