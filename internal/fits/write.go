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
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Writes an in-memory FITS image to a file with given filename.
// Creates/overwrites the file if necessary
func (fits *Image) WriteFile(fileName string) error {
	f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return fits.Write(f)
}

// Keys which are written from the image structure, not from the header maps
var structuralKeys = map[string]bool{
	"SIMPLE": true, "BITPIX": true, "NAXIS": true, "BZERO": true, "BSCALE": true, "END": true,
}

// Writes an in-memory FITS image to an io.Writer, as 64-bit floating point values.
func (fits *Image) Write(f io.Writer) error {
	// Build header in string buffer
	sb := strings.Builder{}
	writeBool(&sb, "SIMPLE", true, "    FITS standard 4.0")
	writeInt(&sb, "BITPIX", -64, "    64-bit floating point")
	writeInt(&sb, "NAXIS", int64(len(fits.Naxisn)), "[1] Number of axis")
	for i := 0; i < len(fits.Naxisn); i++ {
		writeInt(&sb, fmt.Sprintf("NAXIS%d", i+1), int64(fits.Naxisn[i]), "[1] Axis size")
	}
	writeFloat64(&sb, "BZERO", fits.Bzero, "[1] Zero offset")
	if fits.Bscale != 1 && fits.Bscale != 0 {
		writeFloat64(&sb, "BSCALE", fits.Bscale, "[1] Value scale")
	}

	h := &fits.Header
	for _, k := range sortedKeys(h.Bools) {
		if !structuralKeys[k] {
			writeBool(&sb, k, h.Bools[k], "")
		}
	}
	for _, k := range sortedKeys(h.Ints) {
		if !structuralKeys[k] && !isNaxisKey(k) {
			writeInt(&sb, k, h.Ints[k], "")
		}
	}
	for _, k := range sortedKeys(h.Floats) {
		if !structuralKeys[k] && !math.IsNaN(h.Floats[k]) && !math.IsInf(h.Floats[k], 0) {
			writeFloat64(&sb, k, h.Floats[k], "")
		}
	}
	for _, k := range sortedKeys(h.Strings) {
		writeString(&sb, k, h.Strings[k], "")
	}
	for _, k := range sortedKeys(h.Dates) {
		writeString(&sb, k, h.Dates[k], "")
	}
	for _, c := range h.Comments {
		writeText(&sb, "COMMENT", c)
	}
	for _, c := range h.History {
		writeText(&sb, "HISTORY", c)
	}
	writeEnd(&sb)

	// Pad current header block with spaces if necessary
	if bytesInHeaderBlock := sb.Len() % fitsBlockSize; bytesInHeaderBlock > 0 {
		sb.WriteString(strings.Repeat(" ", fitsBlockSize-bytesInHeaderBlock))
	}

	// Write header block(s)
	_, err := f.Write([]byte(sb.String()))
	if err != nil {
		return err
	}

	// Write payload data and pad the final data block with zeros
	if err := writeFloat64Array(f, fits.Data); err != nil {
		return err
	}
	if bytesInDataBlock := (len(fits.Data) * 8) % fitsBlockSize; bytesInDataBlock > 0 {
		_, err = f.Write(make([]byte, fitsBlockSize-bytesInDataBlock))
	}
	return err
}

func isNaxisKey(k string) bool {
	if !strings.HasPrefix(k, "NAXIS") {
		return false
	}
	_, err := strconv.Atoi(k[5:])
	return err == nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Writes a FITS header boolean value
func writeBool(w io.Writer, key string, value bool, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	v := "F"
	if value {
		v = "T"
	}
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, v, comment)
}

// Writes a FITS header integer value
func writeInt(w io.Writer, key string, value int64, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	fmt.Fprintf(w, "%-8s= %20d / %-47s", key, value, comment)
}

// Writes a FITS header float64 value. Always uses exponent notation, so values read back as floats
func writeFloat64(w io.Writer, key string, value float64, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, strconv.FormatFloat(value, 'E', -1, 64), comment)
}

// Writes a FITS header string value, truncated to fit a single line
func writeString(w io.Writer, key, value, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}

	// escape ' characters
	value = strings.Join(strings.Split(value, "'"), "''")
	if len(value) > 68 {
		value = value[:68]
	}

	line := fmt.Sprintf("%-8s= '%-8s'", key, value)
	if comment != "" && len(line)+3+len(comment) <= HeaderLineSize {
		line += " / " + comment
	}
	fmt.Fprintf(w, "%-80s", line)
}

// Writes a FITS commentary line like COMMENT or HISTORY
func writeText(w io.Writer, key, text string) {
	if len(text) > 72 {
		text = text[:72]
	}
	fmt.Fprintf(w, "%-8s%-72s", key, text)
}

// Writes a FITS header end record
func writeEnd(w io.Writer) {
	fmt.Fprintf(w, "END%s", strings.Repeat(" ", 80-3))
}

// Writes FITS binary body data in network byte order.
func writeFloat64Array(w io.Writer, data []float64) error {
	buf := make([]byte, bufLen)

	for block := 0; block < len(data); block += (bufLen >> 3) {
		size := len(data) - block
		if size > (bufLen >> 3) {
			size = (bufLen >> 3)
		}

		for offset := 0; offset < size; offset++ {
			binary.BigEndian.PutUint64(buf[offset<<3:], math.Float64bits(data[block+offset]))
		}
		_, err := w.Write(buf[:(size << 3)])
		if err != nil {
			return err
		}
	}
	return nil
}
