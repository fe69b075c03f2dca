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



package errs

import (
	"errors"
)

// Error kinds. Wrap with fmt.Errorf("%w: ...") and test with errors.Is

// Coordinate outside the valid latitude or longitude range
var ErrDomain = errors.New("domain error")

// Array rank or shape does not match the declared dimensions
var ErrShape = errors.New("shape error")

// Scale matrix or projection type is not understood
var ErrUnsupportedProjection = errors.New("unsupported projection")

// A required collaborator, e.g. a record sink, was not supplied
var ErrConfiguration = errors.New("configuration error")

// A header lacks a key required for the requested output, e.g. the observation epoch
var ErrMissingKey = errors.New("missing header key")
