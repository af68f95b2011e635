package lockmgr

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/visemet/gdb-mongodb-server/layout"
	"github.com/visemet/gdb-mongodb-server/printers"
	"github.com/visemet/gdb-mongodb-server/target"
)

// UnknownDiscriminatorError reports an enum-like tag outside the modeled
// closed set. It is never coerced to a default variant; an unassigned code
// means corruption or an unmodeled server change, and both must be visible.
type UnknownDiscriminatorError struct {
	Kind  string
	Value uint64
}

func (e *UnknownDiscriminatorError) Error() string {
	return fmt.Sprintf("unknown %s discriminator %d", e.Kind, e.Value)
}

// ResourceID is a decoded lock resource identifier. The server packs the
// resource type into the top bits of a 64-bit hash and the identity of the
// resource into the rest.
type ResourceID struct {
	Raw   uint64
	Type  string
	Hash  uint64
	Label string // singleton name or mutex label, when one is known
}

func (r ResourceID) String() string {
	if r.Label != "" {
		return fmt.Sprintf("{%d: %s, %d, %s}", r.Raw, r.Type, r.Hash, r.Label)
	}
	return fmt.Sprintf("{%d: %s, %d}", r.Raw, r.Type, r.Hash)
}

// decodeResourceID splits a raw hash into its type discriminator and
// identity per the fingerprint's bit layout. An out-of-table discriminator
// is a hard error for this resource.
func decodeResourceID(res *layout.Resolver, fullHash uint64) (ResourceID, error) {
	bits, err := res.Uint(layout.FactResourceTypeBits)
	if err != nil {
		return ResourceID{Raw: fullHash}, err
	}
	names, err := res.Strings(layout.FactResourceTypeNames)
	if err != nil {
		return ResourceID{Raw: fullHash}, err
	}

	typeIdx := fullHash >> (64 - bits)
	hash := fullHash & (1<<(64-bits) - 1)
	if typeIdx >= uint64(len(names)) {
		return ResourceID{Raw: fullHash, Hash: hash},
			&UnknownDiscriminatorError{Kind: "resource type", Value: typeIdx}
	}

	id := ResourceID{Raw: fullHash, Type: names[typeIdx], Hash: hash}

	if id.Type == "Global" {
		globals, err := res.Strings(layout.FactResourceGlobalIDNames)
		switch err.(type) {
		case nil:
			if hash >= uint64(len(globals)) {
				return id, &UnknownDiscriminatorError{Kind: "global resource id", Value: hash}
			}
			id.Label = globals[hash]
		case *layout.UnsupportedVersionError:
			// Releases without ResourceGlobalId have nothing to label.
		default:
			return id, err
		}
	}
	return id, nil
}

// mutexLabel resolves the human label of a RESOURCE_MUTEX id from the
// target's ResourceIdFactory label table. A target without the factory
// symbol simply yields no label; labels are supplementary.
func mutexLabel(ctx *printers.Context, hash uint64) (string, error) {
	symbols, err := ctx.Layout.Strings(layout.FactMutexLabelSymbols)
	if err != nil {
		return "", err
	}

	var factory target.Value
	found := false
	for _, sym := range symbols {
		if v, err := ctx.Target.LookupSymbol(sym); err == nil {
			factory, found = v, true
			break
		}
	}
	if !found {
		return "", nil
	}

	labelsVec, err := factory.Field("_labels")
	if err != nil {
		return "", err
	}
	labels, err := printers.VectorElems(labelsVec)
	if err != nil {
		return "", err
	}
	if hash >= uint64(len(labels)) {
		return "", errors.Errorf("mutex resource %d has no label entry (%d labels)", hash, len(labels))
	}
	return printers.ReadStdString(labels[hash])
}
