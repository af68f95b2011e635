package lockmgr

import (
	"github.com/pkg/errors"

	"github.com/visemet/gdb-mongodb-server/layout"
	"github.com/visemet/gdb-mongodb-server/printers"
	"github.com/visemet/gdb-mongodb-server/target"
)

// lockManagerDecoration finds the LockManager slot inside the global
// ServiceContext's decoration container. Servers since 5.0 keep the
// LockManager there rather than in a dedicated global.
//
// The container's registry records one entry per decoration: the
// constructor instantiated for the decoration's type and the slot's byte
// offset into the decoration buffer. The LockManager slot is the entry
// whose constructor pointer lands on the registry's constructAt
// instantiation for mongo::LockManager.
func lockManagerDecoration(ctx *printers.Context) (target.Value, error) {
	sc, err := globalServiceContext(ctx)
	if err != nil {
		return target.Value{}, err
	}
	ctorAddrs, err := decorationCtorAddrs(ctx)
	if err != nil {
		return target.Value{}, err
	}

	decorations, err := sc.Field("_decorations")
	if err != nil {
		return target.Value{}, err
	}
	registryPtr, err := decorations.Field("_registry")
	if err != nil {
		return target.Value{}, err
	}
	registry, err := registryPtr.Deref()
	if err != nil {
		return target.Value{}, errors.Wrap(err, "decoration registry")
	}
	info, err := registry.Field("_decorationInfo")
	if err != nil {
		return target.Value{}, err
	}
	entries, err := printers.VectorElems(info)
	if err != nil {
		return target.Value{}, err
	}

	buf, err := decorations.Field("_decorationData")
	if err != nil {
		return target.Value{}, err
	}
	bufPtr, err := printers.UniquePtrTarget(buf)
	if err != nil {
		return target.Value{}, err
	}
	bufAddr, err := bufPtr.ReadUint()
	if err != nil {
		return target.Value{}, err
	}

	lmType, err := ctx.Target.LookupType("mongo::LockManager")
	if err != nil {
		return target.Value{}, err
	}

	for i, entry := range entries {
		ctor, err := entry.ReadUintField("constructor")
		if err != nil {
			return target.Value{}, errors.Wrapf(err, "decoration %d", i)
		}
		if !ctorAddrs[ctor] {
			continue
		}
		desc, err := entry.Field("descriptor")
		if err != nil {
			return target.Value{}, errors.Wrapf(err, "decoration %d", i)
		}
		offset, err := desc.ReadUintField("_index")
		if err != nil {
			return target.Value{}, errors.Wrapf(err, "decoration %d", i)
		}
		return target.NewValue(ctx.Target, bufAddr+offset, lmType), nil
	}
	return target.Value{}, errors.Errorf("ServiceContext at 0x%x has no LockManager decoration", sc.Addr)
}

func globalServiceContext(ctx *printers.Context) (target.Value, error) {
	symbols, err := ctx.Layout.Strings(layout.FactServiceContextSymbols)
	if err != nil {
		return target.Value{}, err
	}
	var lastErr error
	for _, sym := range symbols {
		v, err := ctx.Target.LookupSymbol(sym)
		if err != nil {
			lastErr = err
			continue
		}
		// The global is a ServiceContext*.
		if _, ok := target.StripTypedefs(v.Type).(*target.PtrType); ok {
			if v, err = v.Deref(); err != nil {
				return target.Value{}, errors.Wrapf(err, "following %s", sym)
			}
		}
		return v, nil
	}
	if lastErr == nil {
		lastErr = &target.SymbolNotFoundError{Name: "ServiceContext"}
	}
	return target.Value{}, lastErr
}

// decorationCtorAddrs resolves the addresses that identify the
// LockManager's constructAt instantiation in the target.
func decorationCtorAddrs(ctx *printers.Context) (map[uint64]bool, error) {
	symbols, err := ctx.Layout.Strings(layout.FactLockManagerDecorationCtors)
	if err != nil {
		return nil, err
	}
	addrs := make(map[uint64]bool)
	for _, sym := range symbols {
		if v, err := ctx.Target.LookupSymbol(sym); err == nil {
			addrs[v.Addr] = true
		}
	}
	if len(addrs) == 0 {
		return nil, errors.New("no constructAt symbol for the LockManager decoration")
	}
	return addrs, nil
}
