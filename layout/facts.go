package layout

// Fact keys understood by the default rule table. The keys are stable
// identifiers; callers treat the values as opaque data resolved per
// fingerprint.
const (
	// FactLockManagerSymbols is the ordered list of global symbol names
	// under which a dedicated LockManager instance may be found. Servers
	// that instead store the LockManager as a ServiceContext decoration
	// are reached through FactServiceContextSymbols.
	FactLockManagerSymbols FactKey = "lockmgr.global-symbols"

	// FactServiceContextSymbols is the ordered list of global symbol
	// names for the ServiceContext carrying the LockManager decoration
	// on releases without a dedicated LockManager global.
	FactServiceContextSymbols FactKey = "lockmgr.service-context-symbols"

	// FactLockManagerDecorationCtors is the ordered list of symbol names
	// of the decoration registry's constructAt instantiation for the
	// LockManager. A decoration entry whose constructor pointer lands on
	// one of these symbols is the LockManager slot.
	FactLockManagerDecorationCtors FactKey = "lockmgr.decoration-ctor-symbols"

	// FactLockBucketCount is the partition count of the lock-manager
	// bucket array, used when the _numLockBuckets static symbol is not
	// available in the target.
	FactLockBucketCount FactKey = "lockmgr.bucket-count"

	// FactLockRequestCap bounds intrusive-list traversal so a corrupted
	// snapshot with a cyclic list cannot hang a dump.
	FactLockRequestCap FactKey = "lockmgr.request-cap"

	// FactResourceTypeBits is the number of high bits of a ResourceId
	// hash that encode the resource type.
	FactResourceTypeBits FactKey = "resource-id.type-bits"

	// FactResourceTypeNames is the closed name table indexed by the
	// resource type discriminator.
	FactResourceTypeNames FactKey = "resource-id.type-names"

	// FactResourceGlobalIDNames is the closed name table for the
	// sub-ids of RESOURCE_GLOBAL. Only defined for releases that have
	// the ResourceGlobalId type (6.0 and the 4.4.15/5.0.10 backports).
	FactResourceGlobalIDNames FactKey = "resource-id.global-id-names"

	// FactMutexLabelSymbols is the ordered list of global symbol names
	// for the ResourceIdFactory holding RESOURCE_MUTEX labels.
	FactMutexLabelSymbols FactKey = "resource-id.mutex-label-symbols"

	// FactLockModeNames is the name table for lock modes.
	FactLockModeNames FactKey = "lockmgr.mode-names"

	// FactRequestStatusNames is the name table for lock request states.
	FactRequestStatusNames FactKey = "lockmgr.request-status-names"

	// FactStringDataLayout selects the StringData memory layout:
	// "pre-7.3" is (data, size), "string-view" is the std::string_view
	// wrapper layout (size, data) introduced in 7.3.
	FactStringDataLayout FactKey = "stringdata.layout"

	// FactStatusErrorStorage selects how Status stores its ErrorInfo:
	// "raw-ptr" before 5.1, "intrusive-ptr" from 5.1 on.
	FactStatusErrorStorage FactKey = "status.error-storage"

	// FactThreadNaming reports whether the target records full thread
	// names in memory at all.
	FactThreadNaming FactKey = "threads.naming"
)

// StringData layout fact values.
const (
	StringDataLayoutPre73      = "pre-7.3"
	StringDataLayoutStringView = "string-view"
)

// Status error storage fact values.
const (
	StatusErrorRawPtr       = "raw-ptr"
	StatusErrorIntrusivePtr = "intrusive-ptr"
)

// DefaultRules returns the rule table covering the modeled server
// releases. Within each key the rules are ordered most specific first;
// a new release is supported by appending rows, not by new code paths.
func DefaultRules() RuleTable {
	t := make(RuleTable)

	t.Add(FactLockManagerSymbols, Always,
		[]string{"mongo::(anonymous namespace)::globalLockManager"})

	// The dedicated global disappeared when the LockManager became a
	// ServiceContext decoration in 5.0.
	t.Add(FactServiceContextSymbols, Always,
		[]string{"mongo::(anonymous namespace)::globalServiceContext"})
	t.Add(FactLockManagerDecorationCtors, Always,
		[]string{
			"mongo::DecorationRegistry<mongo::ServiceContext>::constructAt<mongo::LockManager>",
			"void mongo::DecorationRegistry<mongo::ServiceContext>::constructAt<mongo::LockManager>(void*)",
		})

	t.Add(FactLockBucketCount, Always, uint64(128))
	t.Add(FactLockRequestCap, Always, uint64(1<<20))

	t.Add(FactResourceTypeBits, Always, uint64(3))

	// The top-level ParallelBatchWriterMode and ReplicationStateTransition
	// resource types were folded into RESOURCE_GLOBAL sub-ids in 6.0 and
	// the change was backported to 4.4.15 and 5.0.10.
	shortTypeNames := []string{"Invalid", "Global", "Database", "Collection", "Metadata", "Mutex"}
	globalIDNames := []string{
		"ParallelBatchWriterMode", "FeatureCompatibilityVersion",
		"ReplicationStateTransition", "Global",
	}
	for _, when := range []Predicate{
		ServerAtLeast(6, 0), ServerPatchAtLeast(5, 0, 10), ServerPatchAtLeast(4, 4, 15),
	} {
		t.Add(FactResourceTypeNames, when, shortTypeNames)
		t.Add(FactResourceGlobalIDNames, when, globalIDNames)
	}
	t.Add(FactResourceTypeNames, Always,
		[]string{
			"Invalid", "ParallelBatchWriterMode", "ReplicationStateTransition",
			"Global", "Database", "Collection", "Metadata", "Mutex",
		})

	t.Add(FactMutexLabelSymbols, Always,
		[]string{"mongo::(anonymous namespace)::resourceIdFactory"})

	t.Add(FactLockModeNames, Always, []string{"NONE", "IS", "IX", "S", "X"})
	t.Add(FactRequestStatusNames, Always,
		[]string{"NEW", "GRANTED", "WAITING", "CONVERTING"})

	// StringData became a thin wrapper over std::string_view in 7.3,
	// swapping its two words.
	t.Add(FactStringDataLayout, ServerAtLeast(7, 3), StringDataLayoutStringView)
	t.Add(FactStringDataLayout, Always, StringDataLayoutPre73)

	// Status::_error changed from ErrorInfo* to an intrusive_ptr in 5.1.
	t.Add(FactStatusErrorStorage, ServerAtLeast(5, 1), StatusErrorIntrusivePtr)
	t.Add(FactStatusErrorStorage, Always, StatusErrorRawPtr)

	// Full thread names are recorded in target memory from 4.4 on.
	t.Add(FactThreadNaming, ServerAtLeast(4, 4), true)
	t.Add(FactThreadNaming, Always, false)

	return t
}
