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



package preview

import (
	"bufio"
	"fmt"
	"image/jpeg"
	"io"
	"os"
	"path"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/mlnoga/hpxgrid/internal/errs"
	"github.com/mlnoga/hpxgrid/internal/sparse"
)

// Write a rendered grid to JPG
func WriteJPG(writer io.Writer, g *sparse.SparseGrid, opts Options) error {
	return jpeg.Encode(writer, Render(g, opts), &jpeg.Options{Quality: opts.Quality})
}

// Write a rendered grid to 16-bit TIFF
func WriteTIFF16(writer io.Writer, g *sparse.SparseGrid, opts Options) error {
	return tiff.Encode(writer, Render(g, opts), &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// Write a rendered grid to the given file, choosing the format from the file extension
func WriteFile(fileName string, g *sparse.SparseGrid, opts Options) error {
	var write func(io.Writer, *sparse.SparseGrid, Options) error
	switch strings.ToLower(path.Ext(fileName)) {
	case ".jpg", ".jpeg":
		write = WriteJPG
	case ".tif", ".tiff":
		write = WriteTIFF16
	default:
		return fmt.Errorf("%w: unknown preview format for %s, want .jpg or .tif", errs.ErrConfiguration, fileName)
	}

	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := write(writer, g, opts); err != nil {
		return err
	}
	return writer.Flush()
}
