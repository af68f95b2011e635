package lockmgr

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"

	"github.com/visemet/gdb-mongodb-server/layout"
	"github.com/visemet/gdb-mongodb-server/printers"
	"github.com/visemet/gdb-mongodb-server/target"
)

// numLockBucketsSymbol is the static holding the partition count. Not
// every build keeps it in the symbol table; the layout fact is the
// fallback.
const numLockBucketsSymbol = "mongo::LockManager::_numLockBuckets"

// Request is one thread's decoded interest in a resource.
type Request struct {
	Mode       string
	Status     string
	LockerID   uint64
	ThreadID   uint64
	ThreadName string
	Unresolved bool // no live thread matched ThreadID
	Err        error
}

// Resource is one LockHead's decoded state.
type Resource struct {
	ID      ResourceID
	Granted []Request
	Pending []Request
	Err     error
}

// Partition groups the resources found in one lock bucket. Only partitions
// with something to report appear in a dump.
type Partition struct {
	Index     int
	Resources []Resource
}

// Dump is a reconstructed LockManager report. Partitions keep their bucket
// index order and requests keep their stored FIFO order, so the same
// snapshot always produces the same dump.
type Dump struct {
	Partitions []Partition
}

// DumpFromGlobal locates the LockManager and dumps it. The dedicated
// global is tried first; servers that moved the LockManager onto the
// ServiceContext are reached through its decoration container. Failing
// both aborts: with no LockManager there is nothing to dump.
func DumpFromGlobal(ctx *printers.Context) (*Dump, error) {
	lm, err := findLockManager(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "locating the LockManager")
	}
	return DumpLockManager(ctx, lm)
}

func findLockManager(ctx *printers.Context) (target.Value, error) {
	symbols, err := ctx.Layout.Strings(layout.FactLockManagerSymbols)
	if err != nil {
		return target.Value{}, err
	}
	for _, sym := range symbols {
		v, err := ctx.Target.LookupSymbol(sym)
		if err != nil {
			continue
		}
		// The global may be the LockManager itself or a pointer to it.
		if _, ok := target.StripTypedefs(v.Type).(*target.PtrType); ok {
			if v, err = v.Deref(); err != nil {
				return target.Value{}, errors.Wrapf(err, "following %s", sym)
			}
		}
		return v, nil
	}
	return lockManagerDecoration(ctx)
}

// DumpLockManager walks an already-located LockManager value.
func DumpLockManager(ctx *printers.Context, lm target.Value) (*Dump, error) {
	numBuckets, err := bucketCount(ctx)
	if err != nil {
		return nil, err
	}
	buckets, err := lm.Field("_lockBuckets")
	if err != nil {
		return nil, err
	}

	dump := &Dump{}
	seen := mapset.NewThreadUnsafeSet[uint64]()
	for i := uint64(0); i < numBuckets; i++ {
		bucket, err := buckets.Index(i)
		if err != nil {
			return nil, errors.Wrapf(err, "lock bucket %d", i)
		}
		resources, err := dumpBucket(ctx, bucket, seen)
		if err != nil {
			return nil, errors.Wrapf(err, "lock bucket %d", i)
		}
		if len(resources) > 0 {
			dump.Partitions = append(dump.Partitions, Partition{Index: int(i), Resources: resources})
		}
	}
	return dump, nil
}

func bucketCount(ctx *printers.Context) (uint64, error) {
	if v, err := ctx.Target.LookupSymbol(numLockBucketsSymbol); err == nil {
		return v.ReadUint()
	}
	return ctx.Layout.Uint(layout.FactLockBucketCount)
}

// dumpBucket decodes every LockHead in one partition. Per-resource decode
// failures are annotated on the resource; only a failure to walk the
// bucket's map itself propagates.
func dumpBucket(ctx *printers.Context, bucket target.Value, seen mapset.Set[uint64]) ([]Resource, error) {
	data, err := bucket.Field("data")
	if err != nil {
		return nil, err
	}
	items, err := printers.HashContainerItems(data)
	if err != nil {
		return nil, err
	}

	var resources []Resource
	for _, item := range items {
		res, keep := dumpResource(ctx, item, seen)
		if keep {
			resources = append(resources, res)
		}
	}
	return resources, nil
}

// dumpResource decodes one (ResourceId, LockHead*) map entry. The second
// return is false for resources the report omits: healthy LockHeads whose
// granted list is empty, matching the server's own dump.
func dumpResource(ctx *printers.Context, item target.Value, seen mapset.Set[uint64]) (Resource, bool) {
	fullHash, err := readResourceHash(item)
	if err != nil {
		return Resource{Err: err}, true
	}

	id, idErr := decodeResourceID(ctx.Layout, fullHash)
	res := Resource{ID: id}
	if idErr != nil {
		res.Err = idErr
		return res, true
	}
	if !seen.Add(fullHash) {
		res.Err = errors.Errorf("resource %d appears in more than one partition", fullHash)
		return res, true
	}

	if id.Type == "Mutex" {
		label, err := mutexLabel(ctx, id.Hash)
		if err != nil {
			res.Err = err
			return res, true
		}
		res.ID.Label = label
	}

	headPtr, err := item.Field("second")
	if err != nil {
		res.Err = err
		return res, true
	}
	head, err := headPtr.Deref()
	if err != nil {
		res.Err = errors.Wrap(err, "LockHead")
		return res, true
	}

	res.Granted, err = dumpRequestList(ctx, head, "grantedList")
	if err != nil {
		res.Err = err
		return res, true
	}
	res.Pending, err = dumpRequestList(ctx, head, "conflictList")
	if err != nil {
		res.Err = err
		return res, true
	}

	if len(res.Granted) == 0 {
		return Resource{}, false
	}
	return res, true
}

func readResourceHash(item target.Value) (uint64, error) {
	resIDVal, err := item.Field("first")
	if err != nil {
		return 0, err
	}
	return resIDVal.ReadUintField("_fullHash")
}

// dumpRequestList walks one of a LockHead's intrusive request lists in
// stored order. The order is authoritative: it is the FIFO grant order and
// is never re-sorted.
func dumpRequestList(ctx *printers.Context, head target.Value, field string) ([]Request, error) {
	list, err := head.Field(field)
	if err != nil {
		return nil, err
	}
	front, err := list.Field("_front")
	if err != nil {
		return nil, err
	}

	limit, err := ctx.Layout.Uint(layout.FactLockRequestCap)
	if err != nil {
		return nil, err
	}

	var requests []Request
	visited := make(map[uint64]struct{})
	ptr := front
	for {
		addr, err := ptr.ReadUint()
		if err != nil {
			return requests, errors.Wrapf(err, "%s node %d", field, len(requests))
		}
		if addr == 0 {
			return requests, nil
		}
		if _, ok := visited[addr]; ok {
			return requests, errors.Errorf("%s cycles back to node 0x%x", field, addr)
		}
		if uint64(len(requests)) >= limit {
			return requests, errors.Errorf("%s exceeds %d nodes", field, limit)
		}
		visited[addr] = struct{}{}

		node, err := ptr.Deref()
		if err != nil {
			return requests, errors.Wrapf(err, "%s node %d", field, len(requests))
		}
		requests = append(requests, dumpRequest(ctx, node))

		if ptr, err = node.Field("next"); err != nil {
			return requests, err
		}
	}
}

// dumpRequest decodes one LockRequest node. Failures are annotated on the
// request so the rest of the list still reports.
func dumpRequest(ctx *printers.Context, node target.Value) Request {
	var req Request

	mode, err := node.ReadIntField("mode")
	if err != nil {
		req.Err = err
		return req
	}
	if req.Mode, err = closedSetName(ctx, layout.FactLockModeNames, "lock mode", mode); err != nil {
		req.Err = err
		return req
	}

	status, err := node.ReadIntField("status")
	if err != nil {
		req.Err = err
		return req
	}
	if req.Status, err = closedSetName(ctx, layout.FactRequestStatusNames, "request status", status); err != nil {
		req.Err = err
		return req
	}

	lockerPtr, err := node.Field("locker")
	if err != nil {
		req.Err = err
		return req
	}
	locker, err := lockerPtr.Deref()
	if err != nil {
		req.Err = errors.Wrap(err, "locker")
		return req
	}
	if req.LockerID, err = locker.ReadUintField("_id"); err != nil {
		req.Err = err
		return req
	}
	if req.ThreadID, err = locker.ReadUintField("_threadId"); err != nil {
		req.Err = err
		return req
	}

	resolveThread(ctx, &req)
	return req
}

// resolveThread matches the request's locking thread against the
// snapshot's thread registry. A stale id is reported, never dropped.
func resolveThread(ctx *printers.Context, req *Request) {
	named, err := ctx.Layout.Bool(layout.FactThreadNaming)
	if err != nil || !named {
		req.Unresolved = true
		return
	}
	threads, err := ctx.Target.Threads()
	if err != nil {
		req.Unresolved = true
		return
	}
	for _, th := range threads {
		// An exited thread's registry entry is stale: its id may have
		// been reused, so the name cannot be trusted.
		if th.ID == req.ThreadID && th.Live {
			req.ThreadName = th.Name
			return
		}
	}
	req.Unresolved = true
}

func closedSetName(ctx *printers.Context, key layout.FactKey, kind string, v int64) (string, error) {
	names, err := ctx.Layout.Strings(key)
	if err != nil {
		return "", err
	}
	if v < 0 || v >= int64(len(names)) {
		return "", &UnknownDiscriminatorError{Kind: kind, Value: uint64(v)}
	}
	return names[v], nil
}
