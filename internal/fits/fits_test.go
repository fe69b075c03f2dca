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



package fits

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlnoga/hpxgrid/internal/errs"
	"github.com/mlnoga/hpxgrid/internal/wcs"
)

func testImage() *Image {
	data := make([]float64, 4*3)
	for i := range data {
		data[i] = float64(i)*0.25 - 1
	}
	data[5] = math.NaN()
	f := NewImageFromNaxisn([]int32{4, 3}, data)
	f.SetWCSHeader(&wcs.Header{
		Ctype1: "RA---TAN", Ctype2: "DEC--TAN",
		Cunit1: "deg", Cunit2: "deg",
		Crpix: [2]float64{2.5, 2}, Crval: [2]float64{150.125, -30.5},
		Cdelt:    [2]float64{-0.001, 0.001},
		Epoch:    58849.75,
		HasEpoch: true,
	})
	f.Header.History = append(f.Header.History, "written by test")
	return f
}

func TestWriteReadRoundtrip(t *testing.T) {
	f := testImage()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	assert.Zero(t, buf.Len()%fitsBlockSize, "output is a whole number of FITS blocks")

	g := NewImage()
	require.NoError(t, g.Read(&buf, true, io.Discard))
	assert.Equal(t, int32(-64), g.Bitpix)
	assert.Equal(t, []int32{4, 3}, g.Naxisn)
	assert.Equal(t, int32(12), g.Pixels)
	assert.Equal(t, "4x3", g.DimensionsToString())
	require.Len(t, g.Data, len(f.Data))
	for i := range f.Data {
		if math.IsNaN(f.Data[i]) {
			assert.True(t, math.IsNaN(g.Data[i]), "pixel %d", i)
		} else {
			assert.Equal(t, f.Data[i], g.Data[i], "pixel %d", i)
		}
	}
	assert.Equal(t, []string{"written by test"}, trimAll(g.Header.History))

	w, err := g.WCSHeader()
	require.NoError(t, err)
	assert.Equal(t, 4, w.Naxis1)
	assert.Equal(t, 3, w.Naxis2)
	assert.Equal(t, "RA---TAN", w.Ctype1)
	assert.Equal(t, "DEC--TAN", w.Ctype2)
	assert.Equal(t, "deg", w.Cunit1)
	assert.Equal(t, [2]float64{2.5, 2}, w.Crpix)
	assert.Equal(t, [2]float64{150.125, -30.5}, w.Crval)
	assert.Equal(t, [2]float64{-0.001, 0.001}, w.Cdelt)
	assert.Nil(t, w.CD)
	assert.True(t, w.HasEpoch)
	assert.Equal(t, 58849.75, w.Epoch)
}

func trimAll(s []string) []string {
	res := make([]string, len(s))
	for i := range s {
		res[i] = strings.TrimSpace(s[i])
	}
	return res
}

func TestWCSHeaderCD(t *testing.T) {
	f := NewImageFromNaxisn([]int32{2, 2}, nil)
	f.Header.Strings["CTYPE1"] = "RA---HPX"
	f.Header.Strings["CTYPE2"] = "DEC--HPX"
	f.Header.Floats["CD1_1"] = 0.5
	f.Header.Floats["CD2_2"] = 0.25
	f.Header.Ints["MJD-OBS"] = 59000

	w, err := f.WCSHeader()
	require.NoError(t, err)
	require.NotNil(t, w.CD)
	assert.Equal(t, [2][2]float64{{0.5, 0}, {0, 0.25}}, *w.CD)
	assert.Equal(t, [2]float64{1, 1}, w.Crpix, "FITS default reference pixel")
	assert.True(t, w.HasEpoch)
	assert.Equal(t, 59000.0, w.Epoch)
	code, err := w.ProjectionCode()
	require.NoError(t, err)
	assert.Equal(t, "HPX", code)
}

func TestWCSHeaderNeeds2D(t *testing.T) {
	f := NewImageFromNaxisn([]int32{2, 2, 3}, nil)
	_, err := f.WCSHeader()
	assert.ErrorIs(t, err, errs.ErrShape)
}

// Builds a minimal 16-bit integer FITS file in memory
func int16FITS(values []int16, bzero float64) []byte {
	var sb strings.Builder
	writeBool(&sb, "SIMPLE", true, "")
	writeInt(&sb, "BITPIX", 16, "")
	writeInt(&sb, "NAXIS", 2, "")
	writeInt(&sb, "NAXIS1", int64(len(values)), "")
	writeInt(&sb, "NAXIS2", 1, "")
	writeFloat64(&sb, "BZERO", bzero, "")
	writeString(&sb, "OBJECT", "M 31", "target")
	writeEnd(&sb)
	sb.WriteString(strings.Repeat(" ", fitsBlockSize-sb.Len()%fitsBlockSize))

	buf := bytes.NewBufferString(sb.String())
	for _, v := range values {
		binary.Write(buf, binary.BigEndian, v)
	}
	return buf.Bytes()
}

func TestReadInt16WithBzero(t *testing.T) {
	raw := int16FITS([]int16{-32768, 0, 100}, 32768)
	f := NewImage()
	require.NoError(t, f.Read(bytes.NewReader(raw), true, io.Discard))
	assert.Equal(t, []float64{0, 32768, 32868}, f.Data)
	assert.Equal(t, 0.0, f.Bzero, "offset is folded into the data")
	obj, ok := f.Header.Text("OBJECT")
	assert.True(t, ok)
	assert.Equal(t, "M 31", obj)
}

func TestReadMetadataOnly(t *testing.T) {
	raw := int16FITS([]int16{1, 2}, 0)
	f := NewImage()
	require.NoError(t, f.Read(bytes.NewReader(raw), false, io.Discard))
	assert.Nil(t, f.Data)
	assert.Equal(t, int32(2), f.Pixels)
}

func TestReadTruncated(t *testing.T) {
	raw := int16FITS([]int16{1, 2, 3}, 0)
	f := NewImage()
	err := f.Read(bytes.NewReader(raw[:len(raw)-2]), true, io.Discard)
	assert.Error(t, err)
}

func TestReadNotFITS(t *testing.T) {
	f := NewImage()
	err := f.Read(bytes.NewReader(make([]byte, fitsBlockSize)), true, io.Discard)
	assert.Error(t, err)
}

func TestReadFileGzip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "img.fits")
	require.NoError(t, testImage().WriteFile(plain))

	raw, err := os.ReadFile(plain)
	require.NoError(t, err)
	var gzBuf bytes.Buffer
	zw := gzip.NewWriter(&gzBuf)
	_, err = zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	zipped := filepath.Join(dir, "img.fits.gz")
	require.NoError(t, os.WriteFile(zipped, gzBuf.Bytes(), 0644))

	for _, name := range []string{plain, zipped} {
		f, err := NewImageFromFile(name, 7, io.Discard)
		require.NoError(t, err, name)
		assert.Equal(t, 7, f.ID)
		assert.Equal(t, name, f.FileName)
		assert.Equal(t, testImage().Data[0], f.Data[0])
	}
}
