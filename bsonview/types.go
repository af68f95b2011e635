package bsonview

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Element type tags from the BSON wire format.
const (
	TagDouble        = 0x01
	TagString        = 0x02
	TagDocument      = 0x03
	TagArray         = 0x04
	TagBinary        = 0x05
	TagUndefined     = 0x06
	TagObjectID      = 0x07
	TagBool          = 0x08
	TagDate          = 0x09
	TagNull          = 0x0A
	TagRegex         = 0x0B
	TagDBPointer     = 0x0C
	TagCode          = 0x0D
	TagSymbol        = 0x0E
	TagCodeWithScope = 0x0F
	TagInt32         = 0x10
	TagTimestamp     = 0x11
	TagInt64         = 0x12
	TagDecimal128    = 0x13
	TagMaxKey        = 0x7F
	TagMinKey        = 0xFF
)

// EmptySize is the encoded size of a document with no elements: a 4-byte
// length prefix plus the trailing NUL.
const EmptySize = 5

// BinarySubtypeUUID marks binary payloads holding an RFC 4122 UUID.
const BinarySubtypeUUID = 0x04

// Doc is a decoded BSON document. Elements appear in stored order. Err is
// non-nil when decoding stopped early; the elements parsed before the
// failure are still present.
type Doc struct {
	Elements []Element
	Err      error
}

// Arr is a decoded BSON array. It shares the document encoding; the element
// names are the stringified indexes.
type Arr struct {
	Elements []Element
	Err      error
}

// Element is a single named value inside a document or array.
type Element struct {
	Name  string
	Value interface{}
}

// Undefined is the deprecated BSON undefined value (tag 0x06).
type Undefined struct{}

// Null is the BSON null value.
type Null struct{}

// MinKey sorts before every other BSON value.
type MinKey struct{}

// MaxKey sorts after every other BSON value.
type MaxKey struct{}

// ObjectID is a 12-byte BSON ObjectId.
type ObjectID [12]byte

func (id ObjectID) String() string {
	return fmt.Sprintf("ObjectID(\"%x\")", id[:])
}

// Binary is a BSON binary payload with a subtype other than UUID.
type Binary struct {
	Subtype byte
	Data    []byte
}

func (b Binary) String() string {
	return fmt.Sprintf("BinData(%d, %x)", b.Subtype, b.Data)
}

// maxFormattableMillis is the exclusive upper bound on counts rendered as
// calendar dates, one millisecond short of the end of the year 3000. Dates
// at or past it come from garbage memory more often than from real
// documents and are shown as a raw count.
const maxFormattableMillis = 32535215999000

// Date is a BSON UTC datetime. The raw millisecond count is always kept;
// the calendar form is derived on demand.
type Date struct {
	Millis int64
}

// Formattable reports whether the date fits the calendar range the server
// itself is willing to format.
func (d Date) Formattable() bool {
	return d.Millis >= 0 && d.Millis < maxFormattableMillis
}

func (d Date) String() string {
	if !d.Formattable() {
		return fmt.Sprintf("Date(%d)", d.Millis)
	}
	t := time.UnixMilli(d.Millis).UTC()
	return fmt.Sprintf("Date(%q)", t.Format("2006-01-02T15:04:05.000Z"))
}

// Regex is a BSON regular expression element.
type Regex struct {
	Pattern string
	Options string
}

func (r Regex) String() string {
	return "/" + r.Pattern + "/" + r.Options
}

// DBPointer is the deprecated BSON dbpointer element.
type DBPointer struct {
	Ref string
	ID  ObjectID
}

// JavaScript is a BSON code element without a scope.
type JavaScript struct {
	Code string
}

// Symbol is the deprecated BSON symbol element.
type Symbol struct {
	Name string
}

// CodeWithScope is a BSON code element carrying a scope document.
type CodeWithScope struct {
	Code  string
	Scope *Doc
}

// Timestamp is the internal BSON timestamp used by the oplog.
type Timestamp struct {
	Sec uint32
	Inc uint32
}

func (ts Timestamp) String() string {
	return fmt.Sprintf("Timestamp(%d, %d)", ts.Sec, ts.Inc)
}

// Decimal128 holds the two 64-bit halves of an IEEE 754-2008 decimal. The
// value is kept raw; rendering shows the halves in hex.
type Decimal128 struct {
	High uint64
	Low  uint64
}

func (d Decimal128) String() string {
	return fmt.Sprintf("NumberDecimal(%016x%016x)", d.High, d.Low)
}

func (d *Doc) String() string {
	var sb strings.Builder
	writeDoc(&sb, d.Elements, d.Err, "{", "}", false)
	return sb.String()
}

func (a *Arr) String() string {
	var sb strings.Builder
	writeDoc(&sb, a.Elements, a.Err, "[", "]", true)
	return sb.String()
}

func writeDoc(sb *strings.Builder, elems []Element, err error, open, closing string, isArray bool) {
	sb.WriteString(open)
	for i, el := range elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		if !isArray {
			sb.WriteString(strconv.Quote(el.Name))
			sb.WriteString(": ")
		}
		writeValue(sb, el.Value)
	}
	if err != nil {
		if len(elems) > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "<%v>", err)
	}
	sb.WriteString(closing)
}

func writeValue(sb *strings.Builder, v interface{}) {
	switch v := v.(type) {
	case string:
		sb.WriteString(strconv.Quote(v))
	case *Doc:
		writeDoc(sb, v.Elements, v.Err, "{", "}", false)
	case *Arr:
		writeDoc(sb, v.Elements, v.Err, "[", "]", true)
	case Undefined:
		sb.WriteString("undefined")
	case Null:
		sb.WriteString("null")
	case MinKey:
		sb.WriteString("MinKey")
	case MaxKey:
		sb.WriteString("MaxKey")
	case JavaScript:
		fmt.Fprintf(sb, "Code(%q)", v.Code)
	case Symbol:
		fmt.Fprintf(sb, "Symbol(%q)", v.Name)
	case CodeWithScope:
		fmt.Fprintf(sb, "Code(%q, ", v.Code)
		writeDoc(sb, v.Scope.Elements, v.Scope.Err, "{", "}", false)
		sb.WriteString(")")
	case DBPointer:
		fmt.Fprintf(sb, "DBPointer(%q, %s)", v.Ref, v.ID)
	default:
		fmt.Fprintf(sb, "%v", v)
	}
}
