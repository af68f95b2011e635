package printers

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/visemet/gdb-mongodb-server/bsonview"
	"github.com/visemet/gdb-mongodb-server/layout"
	"github.com/visemet/gdb-mongodb-server/target"
)

// maxBSONSize mirrors the server's BSONObjMaxInternalSize. A length prefix
// past it means the pointer did not lead to a real document.
const maxBSONSize = 16*1024*1024 + 16*1024

// ReadStringData decodes a mongo::StringData value. The member layout
// flipped when StringData became a std::string_view wrapper, so the layout
// fact picks which fields to read.
func ReadStringData(ctx *Context, v target.Value) (string, error) {
	lay, err := ctx.Layout.String(layout.FactStringDataLayout)
	if err != nil {
		return "", err
	}

	var dataField, sizeField string
	switch lay {
	case layout.StringDataLayoutPre73:
		dataField, sizeField = "_data", "_size"
	case layout.StringDataLayoutStringView:
		if sv, err := v.Field("_sv"); err == nil {
			v = sv
		}
		dataField, sizeField = "_M_str", "_M_len"
	default:
		return "", errors.Errorf("unknown StringData layout %q", lay)
	}

	data, err := v.Field(dataField)
	if err != nil {
		return "", err
	}
	addr, err := data.ReadUint()
	if err != nil {
		return "", err
	}
	size, err := v.ReadUintField(sizeField)
	if err != nil {
		return "", err
	}
	if size > maxStringBytes {
		return "", errors.Errorf("StringData at 0x%x claims %d bytes", v.Addr, size)
	}
	if addr == 0 {
		if size == 0 {
			return "", nil
		}
		return "", errors.Wrapf(target.ErrNil, "StringData at 0x%x", v.Addr)
	}
	b, err := target.ReadBytes(v.Target(), addr, size)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type stringDataPrinter struct {
	s string
}

func newStringDataPrinter(ctx *Context, v target.Value) (Printer, error) {
	s, err := ReadStringData(ctx, v)
	if err != nil {
		return nil, err
	}
	return &stringDataPrinter{s: s}, nil
}

func (p *stringDataPrinter) ToString() (string, error) {
	return strconv.Quote(p.s), nil
}

type statusPrinter struct {
	code   string
	reason string
	ok     bool
}

// newStatusPrinter decodes a mongo::Status. The _error member was a raw
// ErrorInfo pointer before it became an intrusive_ptr, so the storage fact
// decides whether an extra member hop is needed before dereferencing.
func newStatusPrinter(ctx *Context, v target.Value) (Printer, error) {
	storage, err := ctx.Layout.String(layout.FactStatusErrorStorage)
	if err != nil {
		return nil, err
	}
	errField, err := v.Field("_error")
	if err != nil {
		return nil, err
	}
	ptr := errField
	if storage == layout.StatusErrorIntrusivePtr {
		if ptr, err = errField.Field("px"); err != nil {
			return nil, err
		}
	}

	info, err := ptr.Deref()
	if err == target.ErrNil {
		return &statusPrinter{ok: true}, nil
	}
	if err != nil {
		return nil, err
	}

	codeVal, err := info.Field("code")
	if err != nil {
		return nil, err
	}
	code := renderDefault(codeVal)

	reasonVal, err := info.Field("reason")
	if err != nil {
		return nil, err
	}
	reason, err := ReadStdString(reasonVal)
	if err != nil {
		return nil, err
	}
	return &statusPrinter{code: code, reason: reason}, nil
}

func (p *statusPrinter) ToString() (string, error) {
	if p.ok {
		return "Status::OK()", nil
	}
	return fmt.Sprintf("Status(%s, %q)", p.code, p.reason), nil
}

type datePrinter struct {
	d bsonview.Date
}

func newDatePrinter(ctx *Context, v target.Value) (Printer, error) {
	millis, err := v.ReadIntField("millis")
	if err != nil {
		return nil, err
	}
	return &datePrinter{d: bsonview.Date{Millis: millis}}, nil
}

func (p *datePrinter) ToString() (string, error) {
	return p.d.String(), nil
}

type timestampPrinter struct {
	ts bsonview.Timestamp
}

func newTimestampPrinter(ctx *Context, v target.Value) (Printer, error) {
	secs, err := v.ReadUintField("secs")
	if err != nil {
		return nil, err
	}
	inc, err := v.ReadUintField("i")
	if err != nil {
		return nil, err
	}
	return &timestampPrinter{ts: bsonview.Timestamp{Sec: uint32(secs), Inc: uint32(inc)}}, nil
}

func (p *timestampPrinter) ToString() (string, error) {
	return p.ts.String(), nil
}

type oidPrinter struct {
	id bsonview.ObjectID
}

// newOIDPrinter reads a mongo::OID, which is nothing but its 12 bytes.
func newOIDPrinter(ctx *Context, v target.Value) (Printer, error) {
	b, err := target.ReadBytes(v.Target(), v.Addr, 12)
	if err != nil {
		return nil, err
	}
	var id bsonview.ObjectID
	copy(id[:], b)
	return &oidPrinter{id: id}, nil
}

func (p *oidPrinter) ToString() (string, error) {
	return p.id.String(), nil
}

type uuidPrinter struct {
	id uuid.UUID
}

// newUUIDPrinter reads a mongo::UUID, a bare std::array<std::uint8_t, 16>.
func newUUIDPrinter(ctx *Context, v target.Value) (Printer, error) {
	b, err := target.ReadBytes(v.Target(), v.Addr, 16)
	if err != nil {
		return nil, err
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return nil, err
	}
	return &uuidPrinter{id: id}, nil
}

func (p *uuidPrinter) ToString() (string, error) {
	return fmt.Sprintf("UUID(%q)", p.id), nil
}

type decimal128Printer struct {
	d bsonview.Decimal128
}

// newDecimal128Printer reads a mongo::Decimal128, two 64-bit halves kept
// inside a nested _value aggregate.
func newDecimal128Printer(ctx *Context, v target.Value) (Printer, error) {
	if inner, err := v.Field("_value"); err == nil {
		v = inner
	}
	low, err := v.ReadUintField("low64")
	if err != nil {
		return nil, err
	}
	high, err := v.ReadUintField("high64")
	if err != nil {
		return nil, err
	}
	return &decimal128Printer{d: bsonview.Decimal128{High: high, Low: low}}, nil
}

func (p *decimal128Printer) ToString() (string, error) {
	return p.d.String(), nil
}

// ReadBSONObj pulls the document a mongo::BSONObj points at out of target
// memory and decodes it.
func ReadBSONObj(v target.Value) (*bsonview.Doc, error) {
	objdata, err := v.Field("_objdata")
	if err != nil {
		return nil, err
	}
	addr, err := objdata.ReadUint()
	if err != nil {
		return nil, err
	}
	if addr == 0 {
		return nil, errors.Wrapf(target.ErrNil, "BSONObj at 0x%x", v.Addr)
	}
	lenBytes, err := target.ReadBytes(v.Target(), addr, 4)
	if err != nil {
		return nil, err
	}
	order := v.Target().ByteOrder()
	size := int(int32(order.Uint32(lenBytes)))
	if size < bsonview.EmptySize || size > maxBSONSize {
		return nil, errors.Errorf("BSONObj at 0x%x has impossible length %d", v.Addr, size)
	}
	buf, err := target.ReadBytes(v.Target(), addr, uint64(size))
	if err != nil {
		return nil, err
	}
	return bsonview.Decode(buf), nil
}

type bsonObjPrinter struct {
	doc *bsonview.Doc
}

func newBSONObjPrinter(ctx *Context, v target.Value) (Printer, error) {
	doc, err := ReadBSONObj(v)
	if err != nil {
		return nil, err
	}
	return &bsonObjPrinter{doc: doc}, nil
}

func (p *bsonObjPrinter) ToString() (string, error) {
	return p.doc.String(), nil
}
