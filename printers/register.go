package printers

// Collection names understood by the engine. Only the essentials are on by
// default; the rest are opt-in since unqualified formatting of every
// stdlib and vendored type gets noisy fast.
const (
	CollectionEssentials  = "essentials"
	CollectionStdlib      = "stdlib"
	CollectionAbsl        = "absl"
	CollectionBoost       = "boost"
	CollectionMongoExtras = "mongo-extras"
)

// NewDefaultRegistry builds a registry with every known printer collection
// attached.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	ess := r.NewCollection(CollectionEssentials, true)
	ess.AddExact("mongo::StringData", newStringDataPrinter)
	ess.AddExact("mongo::Status", newStatusPrinter)
	ess.AddExact("mongo::Date_t", newDatePrinter)
	ess.AddExact("mongo::BSONObj", newBSONObjPrinter)

	std := r.NewCollection(CollectionStdlib, false)
	std.AddExact("std::string", newStdStringPrinter)
	std.AddPattern(`^std::(__cxx11::)?basic_string<char`, newStdStringPrinter)
	std.AddPattern(`^std::vector<`, newStdVectorPrinter)
	std.AddPattern(`^std::unique_ptr<`, newStdUniquePtrPrinter)
	std.AddPattern(`^std::shared_ptr<`, newStdSharedPtrPrinter)

	absl := r.NewCollection(CollectionAbsl, false)
	absl.AddPattern(`^absl::(lts_\w+::)?(flat|node)_hash_map<`, newAbslHashMapPrinter)
	absl.AddPattern(`^absl::(lts_\w+::)?(flat|node)_hash_set<`, newAbslHashSetPrinter)

	boost := r.NewCollection(CollectionBoost, false)
	boost.AddPattern(`^boost::optional<`, newBoostOptionalPrinter)

	extras := r.NewCollection(CollectionMongoExtras, false)
	extras.AddExact("mongo::Timestamp", newTimestampPrinter)
	extras.AddExact("mongo::OID", newOIDPrinter)
	extras.AddExact("mongo::UUID", newUUIDPrinter)
	extras.AddExact("mongo::Decimal128", newDecimal128Printer)

	return r
}
