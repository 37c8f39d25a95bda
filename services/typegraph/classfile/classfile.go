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

import (
	"encoding/binary"
	"fmt"
)

// Magic is the first word of every class file.
const Magic uint32 = 0xCAFEBABE

// Constant pool tags.
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// ClassFile holds the type-naming parts of one class.
//
// Names are internal binary names ("java/util/Map$Entry"); descriptors and
// signatures are kept verbatim.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16

	// Name is this class.
	Name string

	// SuperName is empty for java/lang/Object and module-info.
	SuperName string

	Interfaces []string

	// Signature is the generic class signature, if any.
	Signature string

	Fields  []Member
	Methods []Member
}

// Member is a field or a method.
type Member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string

	// Signature is the generic signature, if any.
	Signature string

	// Exceptions lists the declared thrown classes of a method.
	Exceptions []string

	// Code is the method body; nil for fields, abstract and native methods.
	Code *Code
}

// Code holds what a method body refers to. Constant pool entries that only
// attributes such as InnerClasses or NestMembers point to never appear here.
type Code struct {
	// TypeRefs lists the class operands of new, anewarray, checkcast,
	// instanceof and ldc, in code order. Array classes appear as
	// descriptors ("[Ljava/lang/String;").
	TypeRefs []string

	// ArrayDescriptors lists the operands of multianewarray.
	ArrayDescriptors []string

	// MemberRefs lists field accesses and method invocations, in code order.
	MemberRefs []MemberRef

	// LocalSignatures lists the generic signatures of the
	// LocalVariableTypeTable.
	LocalSignatures []string
}

// MemberRef is a Fieldref, Methodref or InterfaceMethodref constant.
type MemberRef struct {
	Tag        uint8
	Owner      string
	Name       string
	Descriptor string
}

// IsField reports whether the reference names a field.
func (r MemberRef) IsField() bool { return r.Tag == TagFieldref }

type constant struct {
	tag  uint8
	a, b uint16
	utf8 string
}

// reader decodes big-endian values and remembers the first failure.
type reader struct {
	data []byte
	off  int
	err  error
	ctx  string
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = &ParseError{Offset: r.off, Context: r.ctx, Err: err}
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.fail(ErrTruncated)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u1() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u2() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u4() uint32 {
	if b := r.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

type pool []constant

func (p pool) entry(r *reader, index uint16, tag uint8) (constant, bool) {
	if index == 0 || int(index) >= len(p) || p[index].tag != tag {
		r.fail(fmt.Errorf("%w: index %d, want tag %d", ErrBadConstant, index, tag))
		return constant{}, false
	}
	return p[index], true
}

func (p pool) utf8(r *reader, index uint16) string {
	c, _ := p.entry(r, index, TagUtf8)
	return c.utf8
}

func (p pool) className(r *reader, index uint16) string {
	c, ok := p.entry(r, index, TagClass)
	if !ok {
		return ""
	}
	return p.utf8(r, c.a)
}

func (p pool) memberRef(r *reader, index uint16) MemberRef {
	if index == 0 || int(index) >= len(p) {
		r.fail(fmt.Errorf("%w: member index %d", ErrBadConstant, index))
		return MemberRef{}
	}
	c := p[index]
	switch c.tag {
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
	default:
		r.fail(fmt.Errorf("%w: index %d is not a member reference", ErrBadConstant, index))
		return MemberRef{}
	}
	nt, ok := p.entry(r, c.b, TagNameAndType)
	if !ok {
		return MemberRef{}
	}
	return MemberRef{
		Tag:        c.tag,
		Owner:      p.className(r, c.a),
		Name:       p.utf8(r, nt.a),
		Descriptor: p.utf8(r, nt.b),
	}
}

// Parse decodes a class file.
//
// Description:
//
//	Reads the constant pool, the class header, fields and methods with
//	their Signature and Exceptions attributes, and walks every method's
//	bytecode for the types and members it refers to.
//
// Inputs:
//
//	data - Raw class bytes.
//
// Outputs:
//
//	*ClassFile - Decoded references.
//	error - A *ParseError wrapping ErrNotClassFile, ErrTruncated,
//	        ErrBadConstant or ErrBadCode.
func Parse(data []byte) (*ClassFile, error) {
	if len(data) < 4 || binary.BigEndian.Uint32(data) != Magic {
		return nil, &ParseError{Offset: 0, Context: "header", Err: ErrNotClassFile}
	}
	r := &reader{data: data, off: 4, ctx: "header"}

	cf := &ClassFile{}
	cf.MinorVersion = r.u2()
	cf.MajorVersion = r.u2()

	r.ctx = "constant pool"
	cp := readPool(r)
	if r.err != nil {
		return nil, r.err
	}

	r.ctx = "class header"
	cf.AccessFlags = r.u2()
	thisIndex := r.u2()
	cf.Name = cp.className(r, thisIndex)
	if super := r.u2(); super != 0 {
		cf.SuperName = cp.className(r, super)
	}
	count := r.u2()
	for i := 0; i < int(count) && r.err == nil; i++ {
		cf.Interfaces = append(cf.Interfaces, cp.className(r, r.u2()))
	}

	r.ctx = "fields"
	cf.Fields = readMembers(r, cp)
	r.ctx = "methods"
	cf.Methods = readMembers(r, cp)

	r.ctx = "class attributes"
	for _, attr := range readAttributes(r, cp) {
		if attr.name == "Signature" {
			cf.Signature = attr.signature
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return cf, nil
}

func readPool(r *reader) pool {
	count := r.u2()
	cp := make(pool, count)
	for i := 1; i < int(count) && r.err == nil; i++ {
		tag := r.u1()
		c := constant{tag: tag}
		switch tag {
		case TagUtf8:
			c.utf8 = string(r.take(int(r.u2())))
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			c.a = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			c.a = r.u2()
			c.b = r.u2()
		case TagInteger, TagFloat:
			r.take(4)
		case TagLong, TagDouble:
			r.take(8)
			cp[i] = c
			// Eight-byte constants occupy two pool slots.
			i++
			continue
		case TagMethodHandle:
			r.take(1)
			c.a = r.u2()
		default:
			r.fail(fmt.Errorf("%w: unknown tag %d at index %d", ErrBadConstant, tag, i))
		}
		cp[i] = c
	}
	return cp
}

type attribute struct {
	name            string
	signature       string
	exceptions      []string
	code            *Code
	localSignatures []string
}

func readAttributes(r *reader, cp pool) []attribute {
	count := r.u2()
	var attrs []attribute
	for i := 0; i < int(count) && r.err == nil; i++ {
		attr := attribute{name: cp.utf8(r, r.u2())}
		length := int(r.u4())
		body := r.take(length)
		if body == nil {
			break
		}
		sub := &reader{data: body, ctx: r.ctx + " " + attr.name}
		switch attr.name {
		case "Signature":
			attr.signature = cp.utf8(sub, sub.u2())
		case "Exceptions":
			n := sub.u2()
			for j := 0; j < int(n) && sub.err == nil; j++ {
				attr.exceptions = append(attr.exceptions, cp.className(sub, sub.u2()))
			}
		case "Code":
			attr.code = readCode(sub, cp)
		case "LocalVariableTypeTable":
			n := sub.u2()
			for j := 0; j < int(n) && sub.err == nil; j++ {
				sub.take(6) // start_pc, length, name_index
				attr.localSignatures = append(attr.localSignatures, cp.utf8(sub, sub.u2()))
				sub.take(2) // index
			}
		}
		if sub.err != nil {
			if r.err == nil {
				r.err = sub.err
			}
			break
		}
		attrs = append(attrs, attr)
	}
	return attrs
}

func readMembers(r *reader, cp pool) []Member {
	count := r.u2()
	var members []Member
	for i := 0; i < int(count) && r.err == nil; i++ {
		m := Member{
			AccessFlags: r.u2(),
			Name:        cp.utf8(r, r.u2()),
			Descriptor:  cp.utf8(r, r.u2()),
		}
		for _, attr := range readAttributes(r, cp) {
			switch attr.name {
			case "Signature":
				m.Signature = attr.signature
			case "Exceptions":
				m.Exceptions = attr.exceptions
			case "Code":
				m.Code = attr.code
			}
		}
		members = append(members, m)
	}
	return members
}

// readCode decodes a Code attribute body.
func readCode(r *reader, cp pool) *Code {
	r.take(4) // max_stack, max_locals
	length := int(r.u4())
	body := r.take(length)
	code := &Code{}
	if body != nil {
		ins := &reader{data: body, ctx: r.ctx + " bytecode"}
		readInstructions(ins, cp, code)
		if ins.err != nil && r.err == nil {
			r.err = ins.err
		}
	}
	r.take(8 * int(r.u2())) // exception table
	for _, attr := range readAttributes(r, cp) {
		code.LocalSignatures = append(code.LocalSignatures, attr.localSignatures...)
	}
	return code
}

// readInstructions walks bytecode and records the operands that name types
// or members. Offsets in errors are relative to the start of the code.
func readInstructions(r *reader, cp pool, code *Code) {
	for r.err == nil && r.off < len(r.data) {
		pc := r.off
		op := r.u1()
		switch op {
		case OpNew, OpANewArray, OpCheckCast, OpInstanceOf:
			code.TypeRefs = append(code.TypeRefs, cp.className(r, r.u2()))
		case OpMultiANewArray:
			code.ArrayDescriptors = append(code.ArrayDescriptors, cp.className(r, r.u2()))
			r.u1() // dimensions
		case OpLdc:
			code.ldc(r, cp, uint16(r.u1()))
		case OpLdcW:
			code.ldc(r, cp, r.u2())
		case OpGetStatic, OpPutStatic, OpGetField, OpPutField,
			OpInvokeVirtual, OpInvokeSpecial, OpInvokeStatic:
			code.MemberRefs = append(code.MemberRefs, cp.memberRef(r, r.u2()))
		case OpInvokeInterface:
			code.MemberRefs = append(code.MemberRefs, cp.memberRef(r, r.u2()))
			r.take(2) // count, zero
		case OpTableSwitch:
			r.take(switchPadding(pc))
			r.take(4) // default
			low, high := int32(r.u4()), int32(r.u4())
			if high < low {
				r.fail(fmt.Errorf("%w: tableswitch bounds %d..%d", ErrBadCode, low, high))
				break
			}
			r.take(4 * (int(high) - int(low) + 1))
		case OpLookupSwitch:
			r.take(switchPadding(pc))
			r.take(4) // default
			pairs := int32(r.u4())
			if pairs < 0 {
				r.fail(fmt.Errorf("%w: lookupswitch with %d pairs", ErrBadCode, pairs))
				break
			}
			r.take(8 * int(pairs))
		case OpWide:
			if r.u1() == OpIinc {
				r.take(4)
			} else {
				r.take(2)
			}
		default:
			n := operandBytes[op]
			if n < 0 {
				r.fail(fmt.Errorf("%w: opcode 0x%02x at %d", ErrBadCode, op, pc))
				break
			}
			r.take(int(n))
		}
	}
}

// ldc records class literals; other loadable constants name no type.
func (c *Code) ldc(r *reader, cp pool, index uint16) {
	if index == 0 || int(index) >= len(cp) {
		r.fail(fmt.Errorf("%w: ldc index %d", ErrBadConstant, index))
		return
	}
	if cp[index].tag == TagClass {
		c.TypeRefs = append(c.TypeRefs, cp.className(r, index))
	}
}

// switchPadding aligns switch operands to four bytes from the code start.
func switchPadding(pc int) int {
	return (4 - (pc+1)%4) % 4
}
