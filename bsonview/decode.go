package bsonview

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TruncatedDocumentError reports a document whose declared length runs past
// the bytes actually available.
type TruncatedDocumentError struct {
	Offset   int
	Declared int
	Have     int
}

func (e *TruncatedDocumentError) Error() string {
	return fmt.Sprintf("truncated document at offset %d: declared %d bytes, have %d",
		e.Offset, e.Declared, e.Have)
}

// OverrunDocumentError reports a nested document or element whose declared
// length runs past the bounds of its enclosing document.
type OverrunDocumentError struct {
	Offset   int
	Declared int
	Bound    int
}

func (e *OverrunDocumentError) Error() string {
	return fmt.Sprintf("element at offset %d overruns enclosing document: declared %d bytes, %d remain",
		e.Offset, e.Declared, e.Bound)
}

// UnknownTypeError reports an element type tag outside the BSON format.
// Element lengths depend on the tag, so decoding cannot continue past one.
type UnknownTypeError struct {
	Tag    byte
	Offset int
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown element type 0x%02x at offset %d", e.Tag, e.Offset)
}

// Decode parses a BSON document from buf. The returned document is never
// nil: if decoding stops early, Doc.Err records why and Doc.Elements holds
// everything parsed before the failure.
func Decode(buf []byte) *Doc {
	elems, err := decodeBody(buf, 0)
	return &Doc{Elements: elems, Err: err}
}

// decodeBody parses the document starting at buf[0]. base is the offset of
// buf within the outermost buffer, used only for error locations.
func decodeBody(buf []byte, base int) ([]Element, error) {
	if len(buf) < EmptySize {
		return nil, &TruncatedDocumentError{Offset: base, Declared: EmptySize, Have: len(buf)}
	}
	declared := int(int32(binary.LittleEndian.Uint32(buf)))
	if declared < EmptySize {
		return nil, errors.Errorf("document at offset %d has impossible length %d", base, declared)
	}
	if declared > len(buf) {
		// Parse what survived so the healthy prefix still renders.
		elems, _ := parseElements(buf, 4, base)
		return elems, &TruncatedDocumentError{Offset: base, Declared: declared, Have: len(buf)}
	}
	return parseElements(buf[:declared], 4, base)
}

func parseElements(buf []byte, pos, base int) ([]Element, error) {
	var elems []Element
	for {
		if pos >= len(buf) {
			return elems, &TruncatedDocumentError{Offset: base + pos, Declared: len(buf) + 1, Have: len(buf)}
		}
		tag := buf[pos]
		if tag == 0x00 {
			return elems, nil
		}
		pos++
		name, n, err := readCString(buf, pos)
		if err != nil {
			return elems, errors.Wrapf(err, "element name at offset %d", base+pos)
		}
		pos += n
		val, n, err := readValue(tag, buf, pos, base)
		if err != nil {
			return elems, errors.Wrapf(err, "element %q", name)
		}
		elems = append(elems, Element{Name: name, Value: val})
		pos += n
	}
}

func readCString(buf []byte, pos int) (string, int, error) {
	i := bytes.IndexByte(buf[pos:], 0x00)
	if i < 0 {
		return "", 0, &TruncatedDocumentError{Offset: pos, Declared: len(buf) + 1, Have: len(buf)}
	}
	return string(buf[pos : pos+i]), i + 1, nil
}

// readValue decodes one element value. It returns the value and the number
// of bytes it occupied.
func readValue(tag byte, buf []byte, pos, base int) (interface{}, int, error) {
	remain := len(buf) - pos
	need := func(n int) error {
		if remain < n {
			return &TruncatedDocumentError{Offset: base + pos, Declared: n, Have: remain}
		}
		return nil
	}

	switch tag {
	case TagDouble:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		bits := binary.LittleEndian.Uint64(buf[pos:])
		return math.Float64frombits(bits), 8, nil

	case TagString, TagCode, TagSymbol:
		s, n, err := readLengthString(buf, pos, base)
		if err != nil {
			return nil, 0, err
		}
		switch tag {
		case TagCode:
			return JavaScript{Code: s}, n, nil
		case TagSymbol:
			return Symbol{Name: s}, n, nil
		}
		return s, n, nil

	case TagDocument, TagArray:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		inner := int(int32(binary.LittleEndian.Uint32(buf[pos:])))
		if inner < EmptySize {
			return nil, 0, errors.Errorf("document at offset %d has impossible length %d", base+pos, inner)
		}
		if inner > remain {
			return nil, 0, &OverrunDocumentError{Offset: base + pos, Declared: inner, Bound: remain}
		}
		elems, err := parseElements(buf[pos:pos+inner], 4, base+pos)
		if tag == TagArray {
			return &Arr{Elements: elems, Err: err}, inner, nil
		}
		return &Doc{Elements: elems, Err: err}, inner, nil

	case TagBinary:
		if err := need(5); err != nil {
			return nil, 0, err
		}
		size := int(int32(binary.LittleEndian.Uint32(buf[pos:])))
		subtype := buf[pos+4]
		if size < 0 || size > remain-5 {
			return nil, 0, &OverrunDocumentError{Offset: base + pos, Declared: size + 5, Bound: remain}
		}
		data := buf[pos+5 : pos+5+size]
		if subtype == BinarySubtypeUUID && size == 16 {
			id, err := uuid.FromBytes(data)
			if err == nil {
				return id, 5 + size, nil
			}
		}
		out := make([]byte, size)
		copy(out, data)
		return Binary{Subtype: subtype, Data: out}, 5 + size, nil

	case TagUndefined:
		return Undefined{}, 0, nil

	case TagObjectID:
		if err := need(12); err != nil {
			return nil, 0, err
		}
		var id ObjectID
		copy(id[:], buf[pos:])
		return id, 12, nil

	case TagBool:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return buf[pos] != 0, 1, nil

	case TagDate:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return Date{Millis: int64(binary.LittleEndian.Uint64(buf[pos:]))}, 8, nil

	case TagNull:
		return Null{}, 0, nil

	case TagRegex:
		pat, n1, err := readCString(buf, pos)
		if err != nil {
			return nil, 0, err
		}
		opt, n2, err := readCString(buf, pos+n1)
		if err != nil {
			return nil, 0, err
		}
		return Regex{Pattern: pat, Options: opt}, n1 + n2, nil

	case TagDBPointer:
		ref, n, err := readLengthString(buf, pos, base)
		if err != nil {
			return nil, 0, err
		}
		if len(buf)-(pos+n) < 12 {
			return nil, 0, &TruncatedDocumentError{Offset: base + pos + n, Declared: 12, Have: len(buf) - (pos + n)}
		}
		var id ObjectID
		copy(id[:], buf[pos+n:])
		return DBPointer{Ref: ref, ID: id}, n + 12, nil

	case TagCodeWithScope:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		total := int(int32(binary.LittleEndian.Uint32(buf[pos:])))
		if total < 4+EmptySize+EmptySize-1 || total > remain {
			return nil, 0, &OverrunDocumentError{Offset: base + pos, Declared: total, Bound: remain}
		}
		code, n, err := readLengthString(buf, pos+4, base)
		if err != nil {
			return nil, 0, err
		}
		scopeOff := pos + 4 + n
		elems, err := decodeBody(buf[scopeOff:pos+total], base+scopeOff)
		return CodeWithScope{Code: code, Scope: &Doc{Elements: elems, Err: err}}, total, nil

	case TagInt32:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return int32(binary.LittleEndian.Uint32(buf[pos:])), 4, nil

	case TagTimestamp:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		inc := binary.LittleEndian.Uint32(buf[pos:])
		sec := binary.LittleEndian.Uint32(buf[pos+4:])
		return Timestamp{Sec: sec, Inc: inc}, 8, nil

	case TagInt64:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return int64(binary.LittleEndian.Uint64(buf[pos:])), 8, nil

	case TagDecimal128:
		if err := need(16); err != nil {
			return nil, 0, err
		}
		low := binary.LittleEndian.Uint64(buf[pos:])
		high := binary.LittleEndian.Uint64(buf[pos+8:])
		return Decimal128{High: high, Low: low}, 16, nil

	case TagMaxKey:
		return MaxKey{}, 0, nil

	case TagMinKey:
		return MinKey{}, 0, nil
	}

	return nil, 0, &UnknownTypeError{Tag: tag, Offset: base + pos - 1}
}

// readLengthString reads an int32-prefixed NUL-terminated string.
func readLengthString(buf []byte, pos, base int) (string, int, error) {
	remain := len(buf) - pos
	if remain < 4 {
		return "", 0, &TruncatedDocumentError{Offset: base + pos, Declared: 4, Have: remain}
	}
	size := int(int32(binary.LittleEndian.Uint32(buf[pos:])))
	if size < 1 || size > remain-4 {
		return "", 0, &OverrunDocumentError{Offset: base + pos, Declared: size + 4, Bound: remain}
	}
	// size counts the trailing NUL.
	return string(buf[pos+4 : pos+4+size-1]), 4 + size, nil
}
