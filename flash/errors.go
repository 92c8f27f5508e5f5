// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package flash

import "errors"

var (
	// ErrInvalidArgument reports a bounds, sign, or alignment violation.
	// It is detected before any hardware access; the request can be fixed
	// and retried.
	ErrInvalidArgument = errors.New("flash: invalid argument")

	// ErrIO reports that the row-program primitive failed. Rows programmed
	// before the failure stay programmed; no rollback is attempted.
	ErrIO = errors.New("flash: i/o error")
)
