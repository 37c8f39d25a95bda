// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package typeref

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions is returned by NewBuilder for unusable options.
var ErrInvalidOptions = errors.New("invalid builder options")

// EntryError reports a failure attributed to one archive entry. It is only
// returned in strict mode; otherwise the entry or descriptor is skipped.
type EntryError struct {
	Entry string
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("typeref: entry %s: %v", e.Entry, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
