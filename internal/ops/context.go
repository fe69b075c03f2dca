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



package ops

import (
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"

	"github.com/pbnjay/memory"

	"github.com/mlnoga/hpxgrid/internal/fits"
	"github.com/mlnoga/hpxgrid/internal/sink"
	"github.com/mlnoga/hpxgrid/internal/sparse"
)

// An execution context for operators
type Context struct {
	Log        io.Writer
	MemoryMB   int       // memory.TotalMemory()/1024/1024
	MaxThreads int       `json:"maxThreads"`
	Sink       sink.Sink // Storage collaborator receiving records, if any
	Sandboxed  bool      // If true, only relative file names inside the working directory are accepted
}

func NewContext(log io.Writer, maxThreads int) *Context {
	if maxThreads <= 0 {
		maxThreads = runtime.GOMAXPROCS(0)
	}
	return &Context{
		Log:        log,
		MemoryMB:   int(memory.TotalMemory() / 1024 / 1024),
		MaxThreads: maxThreads,
	}
}

// Memory budget for the working buffers of a single frame: 70% of physical memory,
// shared by the frames processed in parallel. Zero if physical memory is unknown
func (c *Context) FrameMemory() int64 {
	if c.MemoryMB <= 0 {
		return 0
	}
	threads := c.MaxThreads
	if threads < 1 {
		threads = 1
	}
	return int64(c.MemoryMB) * 1024 * 1024 * 7 / 10 / int64(threads)
}

// A unit of work flowing through operators: one source image and what was derived from it
type Frame struct {
	ID       int
	FileName string
	Image    *fits.Image        // Source image. Pixel data is dropped after conversion
	Grid     *sparse.SparseGrid // HPX grid, once converted
	Nside    int                // Resolution of Grid, before any regridding
	Step     [2]float64         // Cell size of Grid in degrees, per axis. Grows with regridding
	Time     int64              // Observation epoch in seconds
	HasTime  bool
}

// A promise for a frame. Returns a materialized frame, or an error
type Promise func() (f *Frame, err error)

// Materializes all promises with given concurrency limit. Per-frame errors are joined,
// while frames that succeeded are still returned
func MaterializeAll(ins []Promise, maxThreads int, forget bool) (outs []*Frame, err error) {
	if len(ins) == 0 {
		return nil, nil
	}
	if maxThreads < 1 {
		maxThreads = 1
	}
	if !forget {
		outs = make([]*Frame, len(ins))
	}
	limiter := make(chan bool, maxThreads)
	errs := make(chan error, len(ins))
	for i, in := range ins {
		limiter <- true
		go func(i int, theIn Promise) {
			defer func() { <-limiter }()
			f, err := theIn() // materialize the promise
			if err != nil {
				errs <- err
				return
			}
			if !forget {
				outs[i] = f
			}
			errs <- nil
		}(i, in)
	}
	for i := 0; i < cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
	for i := 0; i < len(ins); i++ { // collect errors
		e := <-errs
		if e != nil {
			if err == nil {
				err = e
			} else {
				err = errors.New(fmt.Sprintf("%s; %s", err.Error(), e.Error()))
			}
		}
	}
	return RemoveNils(outs), err
}

// Remove nils from an array of frames, editing the underlying array in place
func RemoveNils(frames []*Frame) []*Frame {
	o := 0
	for i := 0; i < len(frames); i += 1 {
		if frames[i] != nil {
			frames[o] = frames[i]
			o += 1
		}
	}
	for i := o; i < len(frames); i++ {
		frames[i] = nil
	}
	return frames[:o]
}

var nan = math.NaN()
