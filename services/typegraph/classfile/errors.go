// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classfile reads the type references of a compiled JVM class.
//
// Only the structures that name other types are decoded: the constant pool,
// the class header, field and method descriptors, the Signature and
// Exceptions attributes, and method bytecode with its
// LocalVariableTypeTable. Class attributes such as InnerClasses and
// NestMembers are skipped, so the pool entries they use never surface as
// references.
//
// # Thread Safety
//
// Parse is safe for concurrent use. A ClassFile is immutable after Parse.
package classfile

import (
	"errors"
	"fmt"
)

var (
	// ErrNotClassFile is returned when the input does not start with the class magic.
	ErrNotClassFile = errors.New("not a class file")

	// ErrTruncated is returned when the input ends inside a structure.
	ErrTruncated = errors.New("truncated class file")

	// ErrBadConstant is returned for an unknown constant tag, an index out of
	// range or a constant of the wrong kind.
	ErrBadConstant = errors.New("bad constant pool entry")

	// ErrBadCode is returned for an undefined opcode or a malformed switch.
	ErrBadCode = errors.New("bad bytecode")
)

// ParseError locates a failure inside the class bytes.
type ParseError struct {
	// Offset is the byte offset at which decoding failed.
	Offset int

	// Context names the structure being decoded.
	Context string

	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("classfile: %s at offset %d: %v", e.Context, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
