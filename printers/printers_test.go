package printers

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visemet/gdb-mongodb-server/layout"
	"github.com/visemet/gdb-mongodb-server/target"
)

var (
	charType  = target.MakeNamedNumericType("char", target.NumericInt8)
	boolType  = target.MakeNamedNumericType("bool", target.NumericBool)
	int32Type = target.MakeNamedNumericType("int", target.NumericInt32)
	int64Type = target.MakeNamedNumericType("long long", target.NumericInt64)
	sizeType  = target.MakeNamedNumericType("unsigned long", target.NumericUint64)
	byteType  = target.MakeNamedNumericType("unsigned char", target.NumericUint8)
)

func testContext(img *target.Image, ver layout.Version) *Context {
	return &Context{
		Target: img,
		Layout: layout.NewResolver(layout.Fingerprint{Server: ver}, layout.DefaultRules()),
		Reg:    NewDefaultRegistry(),
	}
}

func newTestImage() *target.Image {
	img := target.NewImage(binary.LittleEndian, 8)
	img.MustSegment(0x1000, 0x1000) // objects
	img.MustSegment(0x8000, 0x1000) // character data
	return img
}

// stdStringType models the post-C++11 libstdc++ string layout.
func stdStringType() *target.StructType {
	charPtr := target.MakePtrType(charType, 8)
	return target.MakeStructType("std::string", 32, []target.StructField{
		{Name: "_M_dataplus", Type: target.MakeStructType("", 8, []target.StructField{
			{Name: "_M_p", Type: charPtr, Offset: 0},
		}), Offset: 0},
		{Name: "_M_string_length", Type: sizeType, Offset: 8},
	})
}

func putStdString(t *testing.T, img *target.Image, objAddr, dataAddr uint64, s string) {
	t.Helper()
	require.NoError(t, img.WriteBytes(dataAddr, []byte(s)))
	require.NoError(t, img.PutPointer(objAddr, dataAddr))
	require.NoError(t, img.PutUint(objAddr+8, 8, uint64(len(s))))
}

func mkFactory(tag string) Factory {
	return func(ctx *Context, v target.Value) (Printer, error) {
		return tag, nil
	}
}

func mustBuild(t *testing.T, f Factory) interface{} {
	t.Helper()
	require.NotNil(t, f)
	p, err := f(nil, target.Value{})
	require.NoError(t, err)
	return p
}

func TestRegistryLookupOrder(t *testing.T) {
	r := NewRegistry()
	a := r.NewCollection("a", true)
	b := r.NewCollection("b", true)

	a.AddPattern(`^mongo::`, mkFactory("a-pattern"))
	b.AddExact("mongo::Widget", mkFactory("b-exact"))

	// An exact entry beats a pattern even in a later collection.
	assert.Equal(t, "b-exact", mustBuild(t, r.Lookup("mongo::Widget")))
	assert.Equal(t, "a-pattern", mustBuild(t, r.Lookup("mongo::Other")))

	require.NoError(t, r.SetEnabled("b", false))
	assert.Equal(t, "a-pattern", mustBuild(t, r.Lookup("mongo::Widget")))

	require.NoError(t, r.SetEnabled("a", false))
	assert.Nil(t, r.Lookup("mongo::Widget"))

	assert.Error(t, r.SetEnabled("no-such-collection", true))
}

func TestRegistryPatternOrder(t *testing.T) {
	r := NewRegistry()
	c := r.NewCollection("c", true)
	c.AddPattern(`^std::vector<`, mkFactory("first"))
	c.AddPattern(`^std::`, mkFactory("second"))

	assert.Equal(t, "first", mustBuild(t, r.Lookup("std::vector<int>")))
	assert.Equal(t, "second", mustBuild(t, r.Lookup("std::deque<int>")))
}

func TestDefaultRegistryCollections(t *testing.T) {
	r := NewDefaultRegistry()
	enabled := map[string]bool{}
	for _, c := range r.Collections() {
		enabled[c.Name] = c.Enabled
	}
	assert.True(t, enabled[CollectionEssentials])
	assert.False(t, enabled[CollectionStdlib])
	assert.False(t, enabled[CollectionAbsl])
	assert.False(t, enabled[CollectionBoost])
	assert.False(t, enabled[CollectionMongoExtras])

	// Disabled collections are invisible to lookup.
	assert.Nil(t, r.Lookup("std::string"))
	assert.NotNil(t, r.Lookup("mongo::Date_t"))
}

func TestStdStringPrinter(t *testing.T) {
	img := newTestImage()
	strType := stdStringType()
	img.DefineType(strType)
	putStdString(t, img, 0x1000, 0x8000, "conn7")

	v := target.NewValue(img, 0x1000, strType)
	s, err := ReadStdString(v)
	require.NoError(t, err)
	assert.Equal(t, "conn7", s)

	ctx := testContext(img, layout.Version{Major: 6, Minor: 0, Patch: 5})
	require.NoError(t, ctx.Reg.SetEnabled(CollectionStdlib, true))
	assert.Equal(t, `"conn7"`, Render(ctx, v))
}

func TestStdVectorPrinter(t *testing.T) {
	img := newTestImage()
	intPtr := target.MakePtrType(int32Type, 8)
	vecType := target.MakeStructType("std::vector<int>", 24, []target.StructField{
		{Name: "_M_impl", Type: target.MakeStructType("", 24, []target.StructField{
			{Name: "_M_start", Type: intPtr, Offset: 0},
			{Name: "_M_finish", Type: intPtr, Offset: 8},
		}), Offset: 0},
	})

	// Three elements at 0x1100.
	for i, n := range []uint64{3, 5, 8} {
		require.NoError(t, img.PutUint(0x1100+uint64(i)*4, 4, n))
	}
	require.NoError(t, img.PutPointer(0x1000, 0x1100))
	require.NoError(t, img.PutPointer(0x1008, 0x1100+12))

	v := target.NewValue(img, 0x1000, vecType)
	elems, err := VectorElems(v)
	require.NoError(t, err)
	require.Len(t, elems, 3)

	ctx := testContext(img, layout.Version{Major: 6, Minor: 0, Patch: 5})
	require.NoError(t, ctx.Reg.SetEnabled(CollectionStdlib, true))
	assert.Equal(t, "[3, 5, 8]", Render(ctx, v))
}

func TestStringDataLayouts(t *testing.T) {
	charPtr := target.MakePtrType(charType, 8)

	t.Run("pre-7.3", func(t *testing.T) {
		img := newTestImage()
		sdType := target.MakeStructType("mongo::StringData", 16, []target.StructField{
			{Name: "_data", Type: charPtr, Offset: 0},
			{Name: "_size", Type: sizeType, Offset: 8},
		})
		require.NoError(t, img.WriteBytes(0x8000, []byte("admin.system")))
		require.NoError(t, img.PutPointer(0x1000, 0x8000))
		require.NoError(t, img.PutUint(0x1008, 8, 12))

		ctx := testContext(img, layout.Version{Major: 6, Minor: 0, Patch: 5})
		v := target.NewValue(img, 0x1000, sdType)
		s, err := ReadStringData(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, "admin.system", s)
		assert.Equal(t, `"admin.system"`, Render(ctx, v))
	})

	t.Run("string-view", func(t *testing.T) {
		img := newTestImage()
		sdType := target.MakeStructType("mongo::StringData", 16, []target.StructField{
			{Name: "_sv", Type: target.MakeStructType("std::string_view", 16, []target.StructField{
				{Name: "_M_len", Type: sizeType, Offset: 0},
				{Name: "_M_str", Type: charPtr, Offset: 8},
			}), Offset: 0},
		})
		require.NoError(t, img.WriteBytes(0x8000, []byte("local.oplog.rs")))
		require.NoError(t, img.PutUint(0x1000, 8, 14))
		require.NoError(t, img.PutPointer(0x1008, 0x8000))

		ctx := testContext(img, layout.Version{Major: 7, Minor: 3, Patch: 0})
		v := target.NewValue(img, 0x1000, sdType)
		s, err := ReadStringData(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, "local.oplog.rs", s)
	})
}

func TestStatusPrinter(t *testing.T) {
	img := newTestImage()
	strType := stdStringType()
	codeType := target.MakeEnumType("mongo::ErrorCodes::Error", target.NumericInt32, []target.EnumValue{
		{Name: "OK", Val: 0},
		{Name: "BadValue", Val: 2},
	})
	infoType := target.MakeStructType("mongo::Status::ErrorInfo", 40, []target.StructField{
		{Name: "code", Type: codeType, Offset: 0},
		{Name: "reason", Type: strType, Offset: 8},
	})
	infoPtr := target.MakePtrType(infoType, 8)
	statusType := target.MakeStructType("mongo::Status", 8, []target.StructField{
		{Name: "_error", Type: target.MakeStructType("boost::intrusive_ptr<mongo::Status::ErrorInfo>", 8, []target.StructField{
			{Name: "px", Type: infoPtr, Offset: 0},
		}), Offset: 0},
	})

	// ErrorInfo object at 0x1100: code BadValue, reason "bad field name".
	require.NoError(t, img.PutUint(0x1100, 4, 2))
	putStdString(t, img, 0x1108, 0x8000, "bad field name")

	require.NoError(t, img.PutPointer(0x1000, 0x1100)) // failed status
	require.NoError(t, img.PutPointer(0x1040, 0))      // OK status

	ctx := testContext(img, layout.Version{Major: 6, Minor: 0, Patch: 5})
	assert.Equal(t, `Status(BadValue, "bad field name")`, Render(ctx, target.NewValue(img, 0x1000, statusType)))
	assert.Equal(t, "Status::OK()", Render(ctx, target.NewValue(img, 0x1040, statusType)))
}

func TestStatusRawPointerStorage(t *testing.T) {
	img := newTestImage()
	strType := stdStringType()
	codeType := target.MakeEnumType("mongo::ErrorCodes::Error", target.NumericInt32, []target.EnumValue{
		{Name: "LockTimeout", Val: 24},
	})
	infoType := target.MakeStructType("mongo::Status::ErrorInfo", 40, []target.StructField{
		{Name: "code", Type: codeType, Offset: 0},
		{Name: "reason", Type: strType, Offset: 8},
	})
	statusType := target.MakeStructType("mongo::Status", 8, []target.StructField{
		{Name: "_error", Type: target.MakePtrType(infoType, 8), Offset: 0},
	})

	require.NoError(t, img.PutUint(0x1100, 4, 24))
	putStdString(t, img, 0x1108, 0x8000, "timed out")
	require.NoError(t, img.PutPointer(0x1000, 0x1100))

	ctx := testContext(img, layout.Version{Major: 4, Minor: 4, Patch: 13})
	assert.Equal(t, `Status(LockTimeout, "timed out")`, Render(ctx, target.NewValue(img, 0x1000, statusType)))
}

func TestDatePrinter(t *testing.T) {
	img := newTestImage()
	dateType := target.MakeStructType("mongo::Date_t", 8, []target.StructField{
		{Name: "millis", Type: int64Type, Offset: 0},
	})
	require.NoError(t, img.PutUint(0x1000, 8, 1577934245006))

	ctx := testContext(img, layout.Version{Major: 6, Minor: 0, Patch: 5})
	assert.Equal(t, `Date("2020-01-02T03:04:05.006Z")`, Render(ctx, target.NewValue(img, 0x1000, dateType)))
}

func TestMongoExtrasPrinters(t *testing.T) {
	img := newTestImage()
	tsType := target.MakeStructType("mongo::Timestamp", 8, []target.StructField{
		{Name: "i", Type: target.MakeNamedNumericType("unsigned int", target.NumericUint32), Offset: 0},
		{Name: "secs", Type: target.MakeNamedNumericType("unsigned int", target.NumericUint32), Offset: 4},
	})
	oidType := target.MakeStructType("mongo::OID", 12, []target.StructField{
		{Name: "_data", Type: target.MakeArrayType(byteType, 12), Offset: 0},
	})
	uuidType := target.MakeStructType("mongo::UUID", 16, []target.StructField{
		{Name: "_uuid", Type: target.MakeArrayType(byteType, 16), Offset: 0},
	})

	require.NoError(t, img.PutUint(0x1000, 4, 3))
	require.NoError(t, img.PutUint(0x1004, 4, 1661871600))
	require.NoError(t, img.WriteBytes(0x1010, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}))
	require.NoError(t, img.WriteBytes(0x1020, []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
	}))

	decType := target.MakeStructType("mongo::Decimal128", 16, []target.StructField{
		{Name: "_value", Type: target.MakeStructType("", 16, []target.StructField{
			{Name: "low64", Type: sizeType, Offset: 0},
			{Name: "high64", Type: sizeType, Offset: 8},
		}), Offset: 0},
	})
	require.NoError(t, img.PutUint(0x1030, 8, 2))
	require.NoError(t, img.PutUint(0x1038, 8, 0x30))

	ctx := testContext(img, layout.Version{Major: 6, Minor: 0, Patch: 5})
	require.NoError(t, ctx.Reg.SetEnabled(CollectionMongoExtras, true))

	assert.Equal(t, "NumberDecimal(00000000000000300000000000000002)",
		Render(ctx, target.NewValue(img, 0x1030, decType)))
	assert.Equal(t, "Timestamp(1661871600, 3)", Render(ctx, target.NewValue(img, 0x1000, tsType)))
	assert.Equal(t, `ObjectID("0102030405060708090a0b0c")`, Render(ctx, target.NewValue(img, 0x1010, oidType)))
	assert.Equal(t, `UUID("01020304-0506-0708-090a-0b0c0d0e0f10")`, Render(ctx, target.NewValue(img, 0x1020, uuidType)))
}

func TestBSONObjPrinter(t *testing.T) {
	img := newTestImage()
	charPtr := target.MakePtrType(charType, 8)
	objType := target.MakeStructType("mongo::BSONObj", 8, []target.StructField{
		{Name: "_objdata", Type: charPtr, Offset: 0},
	})

	// {"a": 1}
	doc := []byte{
		0x0c, 0x00, 0x00, 0x00,
		0x10, 'a', 0x00, 0x01, 0x00, 0x00, 0x00,
		0x00,
	}
	require.NoError(t, img.WriteBytes(0x8000, doc))
	require.NoError(t, img.PutPointer(0x1000, 0x8000))

	ctx := testContext(img, layout.Version{Major: 6, Minor: 0, Patch: 5})
	assert.Equal(t, `{"a": 1}`, Render(ctx, target.NewValue(img, 0x1000, objType)))
}

func TestAbslNodeHashMapItems(t *testing.T) {
	img := newTestImage()
	pairType := target.MakeStructType("std::pair<int, int>", 8, []target.StructField{
		{Name: "first", Type: int32Type, Offset: 0},
		{Name: "second", Type: int32Type, Offset: 4},
	})
	pairPtr := target.MakePtrType(pairType, 8)
	mapType := target.MakeStructType("absl::node_hash_map<int, int>", 32, []target.StructField{
		{Name: "ctrl_", Type: target.MakePtrType(byteType, 8), Offset: 0},
		{Name: "slots_", Type: target.MakePtrType(pairPtr, 8), Offset: 8},
		{Name: "size_", Type: sizeType, Offset: 16},
		{Name: "capacity_", Type: sizeType, Offset: 24},
	})

	// Control bytes: slots 0 and 3 full, 1 empty, 2 deleted.
	require.NoError(t, img.WriteBytes(0x1100, []byte{0x07, 0x80, 0xfe, 0x12}))
	// Slot pointer array.
	require.NoError(t, img.PutPointer(0x1200, 0x1300))
	require.NoError(t, img.PutPointer(0x1208, 0))
	require.NoError(t, img.PutPointer(0x1210, 0))
	require.NoError(t, img.PutPointer(0x1218, 0x1310))
	// The two pairs.
	require.NoError(t, img.PutUint(0x1300, 4, 1))
	require.NoError(t, img.PutUint(0x1304, 4, 10))
	require.NoError(t, img.PutUint(0x1310, 4, 2))
	require.NoError(t, img.PutUint(0x1314, 4, 20))
	// The container object.
	require.NoError(t, img.PutPointer(0x1000, 0x1100))
	require.NoError(t, img.PutPointer(0x1008, 0x1200))
	require.NoError(t, img.PutUint(0x1010, 8, 2))
	require.NoError(t, img.PutUint(0x1018, 8, 4))

	v := target.NewValue(img, 0x1000, mapType)
	items, err := HashContainerItems(v)
	require.NoError(t, err)
	require.Len(t, items, 2)

	for i, want := range []struct{ k, v int64 }{{1, 10}, {2, 20}} {
		key, err := items[i].Field("first")
		require.NoError(t, err)
		k, err := key.ReadInt()
		require.NoError(t, err)
		assert.Equal(t, want.k, k)

		val, err := items[i].Field("second")
		require.NoError(t, err)
		got, err := val.ReadInt()
		require.NoError(t, err)
		assert.Equal(t, want.v, got)
	}

	ctx := testContext(img, layout.Version{Major: 6, Minor: 0, Patch: 5})
	require.NoError(t, ctx.Reg.SetEnabled(CollectionAbsl, true))
	out := Render(ctx, v)
	assert.Contains(t, out, "with 2 elements")
	assert.Contains(t, out, "[0] key = 1")
	assert.Contains(t, out, "[1] value = 20")
}

func TestBoostOptionalPrinter(t *testing.T) {
	img := newTestImage()
	optType := target.MakeStructType("boost::optional<int>", 8, []target.StructField{
		{Name: "m_initialized", Type: boolType, Offset: 0},
		{Name: "m_storage", Type: target.MakeArrayType(charType, 4), Offset: 4},
	}, int32Type)

	require.NoError(t, img.PutUint(0x1000, 1, 1))
	require.NoError(t, img.PutUint(0x1004, 4, 42))
	require.NoError(t, img.PutUint(0x1010, 1, 0))

	ctx := testContext(img, layout.Version{Major: 6, Minor: 0, Patch: 5})
	require.NoError(t, ctx.Reg.SetEnabled(CollectionBoost, true))

	set := target.NewValue(img, 0x1000, optType)
	inner, ok, err := OptionalValue(set)
	require.NoError(t, err)
	require.True(t, ok)
	n, err := inner.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.Equal(t, "{value = 42}", Render(ctx, set))

	empty := target.NewValue(img, 0x1010, optType)
	_, ok, err = OptionalValue(empty)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "boost::none", Render(ctx, empty))
}

func TestPrinterDispatchThroughPointers(t *testing.T) {
	img := newTestImage()
	dateType := target.MakeStructType("mongo::Date_t", 8, []target.StructField{
		{Name: "millis", Type: int64Type, Offset: 0},
	})
	datePtr := target.MakePtrType(dateType, 8)

	require.NoError(t, img.PutUint(0x1000, 8, 1577934245006))
	require.NoError(t, img.PutPointer(0x1010, 0x1000))
	require.NoError(t, img.PutPointer(0x1018, 0x1010))
	require.NoError(t, img.PutPointer(0x1020, 0))

	ctx := testContext(img, layout.Version{Major: 6, Minor: 0, Patch: 5})

	// The Date_t printer fields Date_t* and Date_t** values too.
	want := `Date("2020-01-02T03:04:05.006Z")`
	assert.Equal(t, want, Render(ctx, target.NewValue(img, 0x1010, datePtr)))
	assert.Equal(t, want, Render(ctx, target.NewValue(img, 0x1018, target.MakePtrType(datePtr, 8))))

	// Null pointers keep the default hex form.
	assert.Equal(t, "0x0", Render(ctx, target.NewValue(img, 0x1020, datePtr)))
}

func TestRenderDefaultFormats(t *testing.T) {
	img := newTestImage()
	modeType := target.MakeEnumType("mongo::LockMode", target.NumericUint8, []target.EnumValue{
		{Name: "MODE_NONE", Val: 0},
		{Name: "MODE_IX", Val: 2},
	})
	require.NoError(t, img.PutUint(0x1000, 1, 2))
	require.NoError(t, img.PutUint(0x1001, 1, 9))

	ctx := testContext(img, layout.Version{Major: 6, Minor: 0, Patch: 5})
	assert.Equal(t, "MODE_IX", Render(ctx, target.NewValue(img, 0x1000, modeType)))
	assert.Equal(t, "9", Render(ctx, target.NewValue(img, 0x1001, modeType)))

	require.NoError(t, img.PutUint(0x1008, 4, 0xffffffff))
	assert.Equal(t, "-1", Render(ctx, target.NewValue(img, 0x1008, int32Type)))
}

func TestRenderAnnotatesUnreadableMemory(t *testing.T) {
	img := newTestImage()
	strType := stdStringType()
	// Length says 5 bytes but the data pointer leads outside every segment.
	require.NoError(t, img.PutPointer(0x1000, 0xdead0000))
	require.NoError(t, img.PutUint(0x1008, 8, 5))

	ctx := testContext(img, layout.Version{Major: 6, Minor: 0, Patch: 5})
	require.NoError(t, ctx.Reg.SetEnabled(CollectionStdlib, true))
	out := Render(ctx, target.NewValue(img, 0x1000, strType))
	assert.Contains(t, out, "<error:")
}
