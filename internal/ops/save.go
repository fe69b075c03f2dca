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
	"strings"

	"github.com/mlnoga/hpxgrid/internal/errs"
	"github.com/mlnoga/hpxgrid/internal/fits"
	"github.com/mlnoga/hpxgrid/internal/hpx"
	"github.com/mlnoga/hpxgrid/internal/preview"
	"github.com/mlnoga/hpxgrid/internal/sink"
	"github.com/mlnoga/hpxgrid/internal/sparse"
	"github.com/mlnoga/hpxgrid/internal/stats"
)

// Hands the HPX grid of each frame as time-tagged records to the context's sink.
// Takes n inputs, produces n outputs
type OpSaveRecords struct {
	OpUnaryBase
}

func init() { SetOperatorFactory(func() Operator { return NewOpSaveRecordsDefault() }) } // register the operator for JSON decoding

func NewOpSaveRecordsDefault() *OpSaveRecords { return NewOpSaveRecords() }

func NewOpSaveRecords() *OpSaveRecords {
	op := OpSaveRecords{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "saveRecords", Active: true}},
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

func (op *OpSaveRecords) Apply(f *Frame, c *Context) (result *Frame, err error) {
	if f.Grid == nil {
		return nil, errors.New(fmt.Sprintf("%d: no HPX grid to save", f.ID))
	}
	if !f.HasTime {
		return nil, fmt.Errorf("%w: %d: records need an observation epoch", errs.ErrMissingKey, f.ID)
	}
	recs := f.Grid.Records(f.Time)
	if err := sink.Emit(c.Sink, recs); err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	fmt.Fprintf(c.Log, "%d: Stored %d records at time %d, %v\n", f.ID, len(recs), f.Time, stats.SummarizeRecords(recs))
	return f, nil
}

// Saves the HPX grid of each frame under a given filename, with pattern expansion for %d based
// on the frame id. FITS files hold the all-sky raster, JPEG and TIFF files a color preview.
// Takes n inputs, produces n outputs
type OpSave struct {
	OpUnaryBase
	FilePattern string  `json:"filePattern"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Gamma       float64 `json:"gamma"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpSaveDefault() }) } // register the operator for JSON decoding

func NewOpSaveDefault() *OpSave { return NewOpSave("") }

func NewOpSave(filenamePattern string) *OpSave {
	op := OpSave{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "save", Active: filenamePattern != ""}},
		FilePattern: filenamePattern,
		Gamma:       1,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

func (op *OpSave) Apply(f *Frame, c *Context) (result *Frame, err error) {
	if op.FilePattern == "" {
		return f, nil
	}
	if f.Grid == nil {
		return nil, errors.New(fmt.Sprintf("%d: no HPX grid to save", f.ID))
	}
	fileName := op.FilePattern
	if strings.Contains(fileName, "%d") {
		fileName = fmt.Sprintf(op.FilePattern, f.ID)
	}
	if c.Sandboxed && !isPathAllowed(fileName) {
		return nil, errors.New("Filename outside current directory tree, aborting")
	}
	fnLower := strings.ToLower(fileName)

	if strings.HasSuffix(fnLower, ".fits") || strings.HasSuffix(fnLower, ".fit") || strings.HasSuffix(fnLower, ".fts") {
		fmt.Fprintf(c.Log, "%d: Writing %dx%d pixel HPX FITS to %s\n", f.ID, f.Grid.Nx, f.Grid.Ny, fileName)
		err = GridImage(f).WriteFile(fileName)
	} else if strings.HasSuffix(fnLower, ".jpeg") || strings.HasSuffix(fnLower, ".jpg") ||
		strings.HasSuffix(fnLower, ".tiff") || strings.HasSuffix(fnLower, ".tif") {
		fmt.Fprintf(c.Log, "%d: Writing %dx%d pixel preview to %s ...\n", f.ID, f.Grid.Nx, f.Grid.Ny, fileName)
		opts := preview.DefaultOptions()
		opts.Min, opts.Max, opts.Gamma = op.Min, op.Max, op.Gamma
		err = preview.WriteFile(fileName, f.Grid, opts)
	} else {
		err = errors.New("Unknown suffix")
	}
	if err != nil {
		return nil, errors.New(fmt.Sprintf("%d: Error writing to file %s: %s\n", f.ID, fileName, err.Error()))
	}
	return f, nil
}

// Builds an all-sky FITS image in HPX projection from the grid of a frame, with the cell size
// of each axis as its scale. Absent cells are NaN
func GridImage(f *Frame) *fits.Image {
	g := f.Grid
	img := fits.NewImageFromNaxisn([]int32{int32(g.Nx), int32(g.Ny)}, g.Raster(nan))
	img.ID, img.FileName = f.ID, f.FileName

	step := f.Step
	if step[0] == 0 || step[1] == 0 {
		step = [2]float64{360 / float64(g.Nx), 360 / float64(g.Nx)}
	}
	h := sparse.GridHeader(hpx.IndexGrid{Nx: g.Nx, Ny: g.Ny, Step: step[0]})
	h.Cdelt[1], h.Crpix[1] = step[1], 1+90/step[1]
	if f.HasTime {
		h.Epoch, h.HasEpoch = float64(f.Time)/(24*60*60), true
	}
	img.SetWCSHeader(h)
	return img
}
