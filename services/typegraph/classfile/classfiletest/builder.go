// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package classfiletest generates minimal class files for tests.
package classfiletest

import (
	"encoding/binary"

	"github.com/AleutianAI/typegraph/services/typegraph/classfile"
)

// Member describes a field or method to emit.
type Member struct {
	Name       string
	Descriptor string
	Signature  string
	Exceptions []string

	// Code becomes the method body. A method with only LocalSignatures gets
	// a body of a single return.
	Code []Insn

	// LocalSignatures become a LocalVariableTypeTable of the body.
	LocalSignatures []string
}

// Ref names a field or method.
type Ref struct {
	Owner      string
	Name       string
	Descriptor string
}

// Insn is one bytecode instruction. The operand used depends on Op: Class
// for type instructions and ldc, Ref for field and invoke instructions,
// Descriptor and Dims for multianewarray, Raw for everything else.
type Insn struct {
	Op         byte
	Class      string
	Ref        Ref
	Descriptor string
	Dims       byte

	// Raw holds the operand bytes. Switch padding is inserted automatically.
	Raw []byte
}

// InnerClass is one entry of an InnerClasses attribute.
type InnerClass struct {
	Inner string
	Outer string
	Name  string
}

// Class describes a class to emit. Names are internal binary names.
type Class struct {
	Name       string
	Super      string
	Interfaces []string
	Signature  string
	Fields     []Member
	Methods    []Member

	// InnerClasses is written the way javac does, into both the outer and
	// the nested class.
	InnerClasses []InnerClass

	NestHost    string
	NestMembers []string
}

type poolWriter struct {
	buf   []byte
	count uint16
	utf8s map[string]uint16
	class map[string]uint16
}

func (p *poolWriter) next() uint16 {
	p.count++
	return p.count
}

func (p *poolWriter) utf8(s string) uint16 {
	if i, ok := p.utf8s[s]; ok {
		return i
	}
	i := p.next()
	p.buf = append(p.buf, classfile.TagUtf8)
	p.buf = binary.BigEndian.AppendUint16(p.buf, uint16(len(s)))
	p.buf = append(p.buf, s...)
	p.utf8s[s] = i
	return i
}

func (p *poolWriter) classRef(name string) uint16 {
	if i, ok := p.class[name]; ok {
		return i
	}
	nameIndex := p.utf8(name)
	i := p.next()
	p.buf = append(p.buf, classfile.TagClass)
	p.buf = binary.BigEndian.AppendUint16(p.buf, nameIndex)
	p.class[name] = i
	return i
}

func (p *poolWriter) memberRef(tag uint8, r Ref) uint16 {
	owner := p.classRef(r.Owner)
	name := p.utf8(r.Name)
	desc := p.utf8(r.Descriptor)
	nt := p.next()
	p.buf = append(p.buf, classfile.TagNameAndType)
	p.buf = binary.BigEndian.AppendUint16(p.buf, name)
	p.buf = binary.BigEndian.AppendUint16(p.buf, desc)
	i := p.next()
	p.buf = append(p.buf, tag)
	p.buf = binary.BigEndian.AppendUint16(p.buf, owner)
	p.buf = binary.BigEndian.AppendUint16(p.buf, nt)
	return i
}

func (p *poolWriter) optionalClass(name string) uint16 {
	if name == "" {
		return 0
	}
	return p.classRef(name)
}

func (p *poolWriter) optionalUtf8(s string) uint16 {
	if s == "" {
		return 0
	}
	return p.utf8(s)
}

// Bytes encodes c as a class file (major version 61).
func (c Class) Bytes() []byte {
	p := &poolWriter{utf8s: map[string]uint16{}, class: map[string]uint16{}}

	this := p.classRef(c.Name)
	var super uint16
	if c.Super != "" {
		super = p.classRef(c.Super)
	}
	interfaces := make([]uint16, len(c.Interfaces))
	for i, name := range c.Interfaces {
		interfaces[i] = p.classRef(name)
	}

	var body []byte
	body = binary.BigEndian.AppendUint16(body, 0x0021)
	body = binary.BigEndian.AppendUint16(body, this)
	body = binary.BigEndian.AppendUint16(body, super)
	body = binary.BigEndian.AppendUint16(body, uint16(len(interfaces)))
	for _, i := range interfaces {
		body = binary.BigEndian.AppendUint16(body, i)
	}
	body = appendMembers(body, p, c.Fields)
	body = appendMembers(body, p, c.Methods)

	var attrs [][]byte
	if c.Signature != "" {
		attrs = append(attrs, signatureAttribute(p, c.Signature))
	}
	if len(c.InnerClasses) > 0 {
		var a []byte
		a = binary.BigEndian.AppendUint16(a, uint16(len(c.InnerClasses)))
		for _, ic := range c.InnerClasses {
			a = binary.BigEndian.AppendUint16(a, p.classRef(ic.Inner))
			a = binary.BigEndian.AppendUint16(a, p.optionalClass(ic.Outer))
			a = binary.BigEndian.AppendUint16(a, p.optionalUtf8(ic.Name))
			a = binary.BigEndian.AppendUint16(a, 0x0009)
		}
		attrs = append(attrs, attribute(p, "InnerClasses", a))
	}
	if c.NestHost != "" {
		attrs = append(attrs, attribute(p, "NestHost", binary.BigEndian.AppendUint16(nil, p.classRef(c.NestHost))))
	}
	if len(c.NestMembers) > 0 {
		a := binary.BigEndian.AppendUint16(nil, uint16(len(c.NestMembers)))
		for _, m := range c.NestMembers {
			a = binary.BigEndian.AppendUint16(a, p.classRef(m))
		}
		attrs = append(attrs, attribute(p, "NestMembers", a))
	}
	body = appendAttributes(body, attrs)

	out := binary.BigEndian.AppendUint32(nil, classfile.Magic)
	out = binary.BigEndian.AppendUint16(out, 0)
	out = binary.BigEndian.AppendUint16(out, 61)
	out = binary.BigEndian.AppendUint16(out, p.count+1)
	out = append(out, p.buf...)
	return append(out, body...)
}

func attribute(p *poolWriter, name string, data []byte) []byte {
	a := binary.BigEndian.AppendUint16(nil, p.utf8(name))
	a = binary.BigEndian.AppendUint32(a, uint32(len(data)))
	return append(a, data...)
}

func appendAttributes(body []byte, attrs [][]byte) []byte {
	body = binary.BigEndian.AppendUint16(body, uint16(len(attrs)))
	for _, a := range attrs {
		body = append(body, a...)
	}
	return body
}

func signatureAttribute(p *poolWriter, signature string) []byte {
	return attribute(p, "Signature", binary.BigEndian.AppendUint16(nil, p.utf8(signature)))
}

func appendMembers(body []byte, p *poolWriter, members []Member) []byte {
	body = binary.BigEndian.AppendUint16(body, uint16(len(members)))
	for _, m := range members {
		body = binary.BigEndian.AppendUint16(body, 0x0001)
		body = binary.BigEndian.AppendUint16(body, p.utf8(m.Name))
		body = binary.BigEndian.AppendUint16(body, p.utf8(m.Descriptor))

		var attrs [][]byte
		if m.Signature != "" {
			attrs = append(attrs, signatureAttribute(p, m.Signature))
		}
		if len(m.Exceptions) > 0 {
			a := binary.BigEndian.AppendUint16(nil, uint16(len(m.Exceptions)))
			for _, ex := range m.Exceptions {
				a = binary.BigEndian.AppendUint16(a, p.classRef(ex))
			}
			attrs = append(attrs, attribute(p, "Exceptions", a))
		}
		if len(m.Code) > 0 || len(m.LocalSignatures) > 0 {
			attrs = append(attrs, codeAttribute(p, m))
		}
		body = appendAttributes(body, attrs)
	}
	return body
}

func codeAttribute(p *poolWriter, m Member) []byte {
	insns := m.Code
	if len(insns) == 0 {
		insns = []Insn{{Op: classfile.OpReturn}}
	}
	var code []byte
	for _, in := range insns {
		code = appendInsn(code, p, in)
	}

	var attrs [][]byte
	if len(m.LocalSignatures) > 0 {
		a := binary.BigEndian.AppendUint16(nil, uint16(len(m.LocalSignatures)))
		for i, sig := range m.LocalSignatures {
			a = binary.BigEndian.AppendUint16(a, 0)
			a = binary.BigEndian.AppendUint16(a, uint16(len(code)))
			a = binary.BigEndian.AppendUint16(a, p.utf8("local"))
			a = binary.BigEndian.AppendUint16(a, p.utf8(sig))
			a = binary.BigEndian.AppendUint16(a, uint16(i))
		}
		attrs = append(attrs, attribute(p, "LocalVariableTypeTable", a))
	}

	var data []byte
	data = binary.BigEndian.AppendUint16(data, 4) // max_stack
	data = binary.BigEndian.AppendUint16(data, uint16(len(m.LocalSignatures)+1))
	data = binary.BigEndian.AppendUint32(data, uint32(len(code)))
	data = append(data, code...)
	data = binary.BigEndian.AppendUint16(data, 0) // exception table
	data = appendAttributes(data, attrs)
	return attribute(p, "Code", data)
}

func appendInsn(code []byte, p *poolWriter, in Insn) []byte {
	pc := len(code)
	code = append(code, in.Op)
	switch in.Op {
	case classfile.OpNew, classfile.OpANewArray, classfile.OpCheckCast, classfile.OpInstanceOf, classfile.OpLdcW:
		return binary.BigEndian.AppendUint16(code, p.classRef(in.Class))
	case classfile.OpLdc:
		return append(code, byte(p.classRef(in.Class)))
	case classfile.OpMultiANewArray:
		code = binary.BigEndian.AppendUint16(code, p.classRef(in.Descriptor))
		return append(code, in.Dims)
	case classfile.OpGetStatic, classfile.OpPutStatic, classfile.OpGetField, classfile.OpPutField:
		return binary.BigEndian.AppendUint16(code, p.memberRef(classfile.TagFieldref, in.Ref))
	case classfile.OpInvokeVirtual, classfile.OpInvokeSpecial, classfile.OpInvokeStatic:
		return binary.BigEndian.AppendUint16(code, p.memberRef(classfile.TagMethodref, in.Ref))
	case classfile.OpInvokeInterface:
		code = binary.BigEndian.AppendUint16(code, p.memberRef(classfile.TagInterfaceMethodref, in.Ref))
		return append(code, 1, 0)
	case classfile.OpTableSwitch, classfile.OpLookupSwitch:
		for (pc+1)%4 != 0 {
			code = append(code, 0)
			pc++
		}
	}
	return append(code, in.Raw...)
}
