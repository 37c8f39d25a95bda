// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package descriptor

import (
	"errors"
	"fmt"
)

// ErrMalformedDescriptor is wrapped by every parse failure.
var ErrMalformedDescriptor = errors.New("malformed descriptor")

// SyntaxError reports where and why a descriptor could not be parsed.
type SyntaxError struct {
	// Input is the full descriptor being parsed.
	Input string

	// Offset is the byte offset at which parsing failed.
	Offset int

	// Reason describes the failure.
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s %q at offset %d: %s", ErrMalformedDescriptor, e.Input, e.Offset, e.Reason)
}

// Unwrap returns ErrMalformedDescriptor.
func (e *SyntaxError) Unwrap() error {
	return ErrMalformedDescriptor
}
