package printers

import (
	"github.com/pkg/errors"

	"github.com/visemet/gdb-mongodb-server/target"
)

// OptionalValue extracts the contained value of a boost::optional<T>. The
// second return is false for an empty optional. The storage is an aligned
// byte buffer, so the contained value is recovered by viewing the storage
// address as T, taken from the optional's template argument.
func OptionalValue(v target.Value) (target.Value, bool, error) {
	init, err := v.Field("m_initialized")
	if err != nil {
		return target.Value{}, false, err
	}
	ok, err := init.ReadBool()
	if err != nil {
		return target.Value{}, false, err
	}
	if !ok {
		return target.Value{}, false, nil
	}
	elemType, err := v.Type.TemplateArg(0)
	if err != nil {
		return target.Value{}, false, errors.Wrapf(err, "boost::optional at 0x%x", v.Addr)
	}
	storage, err := v.Field("m_storage")
	if err != nil {
		return target.Value{}, false, err
	}
	return target.NewValue(v.Target(), storage.Addr, elemType), true, nil
}

type boostOptionalPrinter struct {
	inner target.Value
	set   bool
}

func newBoostOptionalPrinter(ctx *Context, v target.Value) (Printer, error) {
	inner, set, err := OptionalValue(v)
	if err != nil {
		return nil, err
	}
	return &boostOptionalPrinter{inner: inner, set: set}, nil
}

func (p *boostOptionalPrinter) ToString() (string, error) {
	if !p.set {
		return "boost::none", nil
	}
	return "", nil
}

func (p *boostOptionalPrinter) Children() ([]Child, error) {
	if !p.set {
		return nil, nil
	}
	return []Child{{Name: "value", Value: p.inner}}, nil
}
