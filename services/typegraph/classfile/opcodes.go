// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package classfile

// Opcodes whose operands name types or members, plus the few that need
// special handling to be skipped.
const (
	OpNop             byte = 0x00
	OpIconst0         byte = 0x03
	OpLdc             byte = 0x12
	OpLdcW            byte = 0x13
	OpAload0          byte = 0x2a
	OpPop             byte = 0x57
	OpDup             byte = 0x59
	OpIinc            byte = 0x84
	OpTableSwitch     byte = 0xaa
	OpLookupSwitch    byte = 0xab
	OpReturn          byte = 0xb1
	OpGetStatic       byte = 0xb2
	OpPutStatic       byte = 0xb3
	OpGetField        byte = 0xb4
	OpPutField        byte = 0xb5
	OpInvokeVirtual   byte = 0xb6
	OpInvokeSpecial   byte = 0xb7
	OpInvokeStatic    byte = 0xb8
	OpInvokeInterface byte = 0xb9
	OpInvokeDynamic   byte = 0xba
	OpNew             byte = 0xbb
	OpANewArray       byte = 0xbd
	OpCheckCast       byte = 0xc0
	OpInstanceOf      byte = 0xc1
	OpWide            byte = 0xc4
	OpMultiANewArray  byte = 0xc5
)

// operandBytes is the fixed operand length of every opcode; -1 marks
// undefined opcodes. Switches and wide are decoded separately.
var operandBytes = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	set := func(from, to byte, n int8) {
		for op := int(from); op <= int(to); op++ {
			t[op] = n
		}
	}
	set(0x00, 0x0f, 0) // constants
	set(0x10, 0x10, 1) // bipush
	set(0x11, 0x11, 2) // sipush
	set(0x12, 0x12, 1) // ldc
	set(0x13, 0x14, 2) // ldc_w, ldc2_w
	set(0x15, 0x19, 1) // loads
	set(0x1a, 0x35, 0)
	set(0x36, 0x3a, 1) // stores
	set(0x3b, 0x83, 0)
	set(0x84, 0x84, 2) // iinc
	set(0x85, 0x98, 0)
	set(0x99, 0xa8, 2) // branches, jsr
	set(0xa9, 0xa9, 1) // ret
	set(0xac, 0xb1, 0) // returns
	set(0xb2, 0xb8, 2) // field and invoke
	set(0xb9, 0xba, 4) // invokeinterface, invokedynamic
	set(0xbb, 0xbb, 2) // new
	set(0xbc, 0xbc, 1) // newarray
	set(0xbd, 0xbd, 2) // anewarray
	set(0xbe, 0xbf, 0)
	set(0xc0, 0xc1, 2) // checkcast, instanceof
	set(0xc2, 0xc3, 0) // monitors
	set(0xc5, 0xc5, 3) // multianewarray
	set(0xc6, 0xc7, 2) // ifnull, ifnonnull
	set(0xc8, 0xc9, 4) // goto_w, jsr_w
	set(0xca, 0xca, 0) // breakpoint
	set(0xfe, 0xff, 0) // impdep
	return t
}()
