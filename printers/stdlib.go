package printers

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/visemet/gdb-mongodb-server/target"
)

// maxStringBytes caps how much of a std::string is pulled out of target
// memory. A length field read from a smashed object can claim gigabytes.
const maxStringBytes = 1 << 20

// ReadStdString decodes a libstdc++ std::string value. The post-C++11 ABI
// keeps the character pointer in _M_dataplus._M_p and the length alongside
// it, for both heap and small-string storage.
func ReadStdString(v target.Value) (string, error) {
	dataplus, err := v.Field("_M_dataplus")
	if err != nil {
		return "", err
	}
	p, err := dataplus.Field("_M_p")
	if err != nil {
		return "", err
	}
	addr, err := p.ReadUint()
	if err != nil {
		return "", err
	}
	length, err := v.ReadUintField("_M_string_length")
	if err != nil {
		return "", err
	}
	if length > maxStringBytes {
		return "", errors.Errorf("std::string at 0x%x claims %d bytes", v.Addr, length)
	}
	b, err := target.ReadBytes(v.Target(), addr, length)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type stdStringPrinter struct {
	s string
}

func newStdStringPrinter(ctx *Context, v target.Value) (Printer, error) {
	s, err := ReadStdString(v)
	if err != nil {
		return nil, err
	}
	return &stdStringPrinter{s: s}, nil
}

func (p *stdStringPrinter) ToString() (string, error) {
	return strconv.Quote(p.s), nil
}

// VectorElems returns the live elements of a libstdc++ std::vector.
func VectorElems(v target.Value) ([]target.Value, error) {
	impl, err := v.Field("_M_impl")
	if err != nil {
		return nil, err
	}
	start, err := impl.Field("_M_start")
	if err != nil {
		return nil, err
	}
	finish, err := impl.Field("_M_finish")
	if err != nil {
		return nil, err
	}
	startAddr, err := start.ReadUint()
	if err != nil {
		return nil, err
	}
	finishAddr, err := finish.ReadUint()
	if err != nil {
		return nil, err
	}
	pt, ok := target.StripTypedefs(start.Type).(*target.PtrType)
	if !ok {
		return nil, errors.Errorf("std::vector _M_start has non-pointer type %s", start.Type)
	}
	elemSize := pt.Elem.Size()
	if elemSize == 0 || finishAddr < startAddr {
		return nil, errors.Errorf("std::vector at 0x%x has corrupt bounds [0x%x, 0x%x)",
			v.Addr, startAddr, finishAddr)
	}
	n := (finishAddr - startAddr) / elemSize
	elems := make([]target.Value, 0, n)
	for i := uint64(0); i < n; i++ {
		ev, err := start.Index(i)
		if err != nil {
			return elems, err
		}
		elems = append(elems, ev)
	}
	return elems, nil
}

type stdVectorPrinter struct {
	elems []target.Value
}

func newStdVectorPrinter(ctx *Context, v target.Value) (Printer, error) {
	elems, err := VectorElems(v)
	if err != nil {
		return nil, err
	}
	return &stdVectorPrinter{elems: elems}, nil
}

func (p *stdVectorPrinter) DisplayHint() string { return "array" }

func (p *stdVectorPrinter) Children() ([]Child, error) {
	children := make([]Child, 0, len(p.elems))
	for i, ev := range p.elems {
		children = append(children, Child{Name: strconv.Itoa(i), Value: ev})
	}
	return children, nil
}

// UniquePtrTarget digs the raw pointer out of a libstdc++ std::unique_ptr,
// whose tuple-of-empty-deleter layout buries it a few aggregates deep.
func UniquePtrTarget(v target.Value) (target.Value, error) {
	pv, ok := findPointerField(v, 4)
	if !ok {
		return target.Value{}, errors.Errorf("no pointer member inside %s at 0x%x", v.Type, v.Addr)
	}
	return pv, nil
}

func findPointerField(v target.Value, depth int) (target.Value, bool) {
	st, ok := target.StripTypedefs(v.Type).(*target.StructType)
	if !ok {
		return target.Value{}, false
	}
	for _, f := range st.Fields {
		fv := v.FieldAt(f)
		if _, ok := target.StripTypedefs(f.Type).(*target.PtrType); ok {
			return fv, true
		}
		if depth > 0 {
			if pv, ok := findPointerField(fv, depth-1); ok {
				return pv, true
			}
		}
	}
	return target.Value{}, false
}

type smartPtrPrinter struct {
	label string
	ptr   target.Value
}

func newStdUniquePtrPrinter(ctx *Context, v target.Value) (Printer, error) {
	ptr, err := UniquePtrTarget(v)
	if err != nil {
		return nil, err
	}
	return &smartPtrPrinter{label: "std::unique_ptr", ptr: ptr}, nil
}

func newStdSharedPtrPrinter(ctx *Context, v target.Value) (Printer, error) {
	ptr, err := v.Field("_M_ptr")
	if err != nil {
		return nil, err
	}
	return &smartPtrPrinter{label: "std::shared_ptr", ptr: ptr}, nil
}

func (p *smartPtrPrinter) ToString() (string, error) {
	addr, err := p.ptr.ReadUint()
	if err != nil {
		return "", err
	}
	if addr == 0 {
		return p.label + " = nullptr", nil
	}
	return p.label, nil
}

func (p *smartPtrPrinter) Children() ([]Child, error) {
	addr, err := p.ptr.ReadUint()
	if err != nil || addr == 0 {
		return nil, err
	}
	pointee, err := p.ptr.Deref()
	if err != nil {
		return nil, err
	}
	return []Child{{Name: "get()", Value: pointee}}, nil
}
