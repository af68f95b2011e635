package printers

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/visemet/gdb-mongodb-server/target"
)

// maxHashCapacity rejects capacity fields that cannot describe a real
// table. Swiss tables grow in powers of two; anything past this came from
// reading the wrong memory.
const maxHashCapacity = 1 << 28

// HashContainerItems walks an Abseil swiss-table container (flat or node
// hash map or set) and returns the occupied slots in table order. A control
// byte with the sign bit clear marks a full slot; node containers store a
// pointer per slot, which is dereferenced so callers always see the element
// itself.
func HashContainerItems(v target.Value) ([]target.Value, error) {
	capacity, err := v.ReadUintField("capacity_")
	if err != nil {
		return nil, err
	}
	if capacity == 0 {
		return nil, nil
	}
	if capacity > maxHashCapacity {
		return nil, errors.Errorf("hash container at 0x%x claims capacity %d", v.Addr, capacity)
	}
	ctrl, err := v.Field("ctrl_")
	if err != nil {
		return nil, err
	}
	ctrlAddr, err := ctrl.ReadUint()
	if err != nil {
		return nil, err
	}
	if ctrlAddr == 0 {
		return nil, errors.Wrapf(target.ErrNil, "hash container at 0x%x control array", v.Addr)
	}
	slots, err := v.Field("slots_")
	if err != nil {
		return nil, err
	}

	ctrlBytes, err := target.ReadBytes(v.Target(), ctrlAddr, capacity)
	if err != nil {
		return nil, errors.Wrapf(err, "hash container at 0x%x control array", v.Addr)
	}

	var items []target.Value
	for i := uint64(0); i < capacity; i++ {
		if ctrlBytes[i]&0x80 != 0 {
			continue // empty, deleted, or sentinel
		}
		slot, err := slots.Index(i)
		if err != nil {
			return items, errors.Wrapf(err, "hash container slot %d", i)
		}
		if _, ok := target.StripTypedefs(slot.Type).(*target.PtrType); ok {
			// Node containers indirect each element through the heap.
			slot, err = slot.Deref()
			if err != nil {
				return items, errors.Wrapf(err, "hash container slot %d", i)
			}
		}
		items = append(items, slot)
	}
	return items, nil
}

type abslHashContainerPrinter struct {
	typeName string
	isMap    bool
	items    []target.Value
}

func newAbslHashContainerPrinter(ctx *Context, v target.Value, isMap bool) (Printer, error) {
	items, err := HashContainerItems(v)
	if err != nil {
		return nil, err
	}
	return &abslHashContainerPrinter{typeName: v.Type.Name(), isMap: isMap, items: items}, nil
}

func newAbslHashMapPrinter(ctx *Context, v target.Value) (Printer, error) {
	return newAbslHashContainerPrinter(ctx, v, true)
}

func newAbslHashSetPrinter(ctx *Context, v target.Value) (Printer, error) {
	return newAbslHashContainerPrinter(ctx, v, false)
}

func (p *abslHashContainerPrinter) ToString() (string, error) {
	return p.typeName + " with " + strconv.Itoa(len(p.items)) + " elements", nil
}

func (p *abslHashContainerPrinter) DisplayHint() string {
	if p.isMap {
		return "map"
	}
	return "array"
}

func (p *abslHashContainerPrinter) Children() ([]Child, error) {
	var children []Child
	for i, item := range p.items {
		if !p.isMap {
			children = append(children, Child{Name: strconv.Itoa(i), Value: item})
			continue
		}
		key, err := item.Field("first")
		if err != nil {
			return children, err
		}
		val, err := item.Field("second")
		if err != nil {
			return children, err
		}
		children = append(children, Child{Name: "[" + strconv.Itoa(i) + "] key", Value: key})
		children = append(children, Child{Name: "[" + strconv.Itoa(i) + "] value", Value: val})
	}
	return children, nil
}
