// Package dtype describes element datatypes and maps Go types onto them.
//
// A [Datatype] is the in-memory model of an HDF5 datatype message restricted
// to the classes go-h5pp stores: integers, floats, fixed-width and
// variable-length strings, compounds and fixed-size arrays.
//
// # Type Mapping Strategy
//
//	Go type                      | Datatype
//	-----------------------------|--------------------------------
//	int8/16/32/64, int           | signed fixed-point of the same size
//	uint8/16/32/64, uint, bool   | unsigned fixed-point of the same size
//	float32, float64             | floating-point
//	string                       | variable-length string
//	[N]T, [N][M]T                | array of T with dims {N, M}
//	struct                       | compound, members at Go field offsets
//	[N]byte tagged h5:",string"  | fixed-width string of width N
//
// Struct fields are named by their h5 tag or their Go name. Fields tagged
// h5:"-" and unexported fields are left out.
//
// # Layouts
//
// [Datatype.Native] lays a compound out at natural alignment, which is what
// the Go compiler does for the matching struct. [Datatype.Pack] removes all
// padding. [Datatype.Subset] builds the packed record holding only some
// members, used for partial-field reads.
//
// # Conversion
//
// [Convert] rewrites elements from one layout to another, matching compound
// members by name:
//
//	packed, err := dtype.Convert(dt.Pack(), dt, raw, n)
package dtype
