package printers

import (
	"github.com/visemet/gdb-mongodb-server/layout"
	"github.com/visemet/gdb-mongodb-server/target"
)

// Context carries everything a printer may need: the target to read memory
// from, the layout resolver for version-dependent structure facts, and the
// registry for re-dispatching nested values.
type Context struct {
	Target target.Target
	Layout *layout.Resolver
	Reg    *Registry
}

// Printer formats a single value. Concrete printers implement some subset
// of the capability interfaces below; a Printer with none of them renders
// as its type name.
type Printer interface{}

// ToStringer produces a one-line textual form of the value.
type ToStringer interface {
	ToString() (string, error)
}

// ChildLister enumerates the value's sub-values.
type ChildLister interface {
	Children() ([]Child, error)
}

// DisplayHinter distinguishes the shape of a printer's children: "array"
// for positional elements, "map" for alternating key/value pairs, "string"
// for text assembled from children.
type DisplayHinter interface {
	DisplayHint() string
}

// Child is one sub-value of a printed value. Either Value is set and the
// child is rendered by re-dispatching through the registry, or Text carries
// a pre-rendered leaf.
type Child struct {
	Name  string
	Value target.Value
	Text  string
}

// Factory builds a Printer for one value.
type Factory func(ctx *Context, v target.Value) (Printer, error)

// PrinterFor finds a factory for v's type and constructs the printer.
// It returns nil when no enabled collection claims the type; that is not
// an error, the value just gets default formatting.
func PrinterFor(ctx *Context, v target.Value) (Printer, error) {
	if !v.IsValid() {
		return nil, nil
	}
	f := ctx.Reg.Lookup(v.Type.Name())
	if f == nil {
		f = ctx.Reg.Lookup(target.StripTypedefs(v.Type).Name())
	}
	if f == nil {
		if _, ok := target.StripTypedefs(v.Type).(*target.PtrType); !ok {
			return nil, nil
		}
		// A printer registered for T also fields values reached through
		// T* chains: follow the chain to the pointee before building.
		f = ctx.Reg.Lookup(target.StripPointers(v.Type).Name())
		if f == nil {
			return nil, nil
		}
		for {
			_, ok := target.StripTypedefs(v.Type).(*target.PtrType)
			if !ok {
				break
			}
			pv, err := v.Deref()
			if err == target.ErrNil {
				return nil, nil // null pointers keep default formatting
			}
			if err != nil {
				return nil, err
			}
			v = pv
		}
	}
	return f(ctx, v)
}
