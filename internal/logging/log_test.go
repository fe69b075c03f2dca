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



package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeeToFile(t *testing.T) {
	var out bytes.Buffer
	old := stdout
	stdout = &out
	defer func() { stdout = old }()

	name := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, LogAlsoToFile(name))
	_, err := LogPrintf("%d: converted %d records\n", 3, 42)
	require.NoError(t, err)
	require.NoError(t, LogClose())

	_, err = LogPrintln("after close")
	require.NoError(t, err)

	assert.Equal(t, "3: converted 42 records\nafter close\n", out.String())
	logged, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "3: converted 42 records\n", string(logged))
}
