package guest

// Header layout. All fields are little-endian u32 followed by one 8-byte
// slot per declared property.
//
//	+0   refcount
//	+4   type info
//	+8   object store handle
//	+12  class id
//	+16  flags
//	+20  reserved
//	+24  property slots
const (
	offRefcount = 0
	offTypeInfo = 4
	offHandle   = 8
	offClass    = 12
	offFlags    = 16

	// HeaderBaseSize is the size of a header with no declared properties.
	HeaderBaseSize = 24

	// PropertySize is the size of one property slot.
	PropertySize = 8

	// HeaderAlign is the alignment of every header and composite record.
	HeaderAlign = 8
)

// typeInfoObject tags a header as an object in the runtime's value model.
const typeInfoObject = 8

// Header flags.
const (
	flagFreeCalled      uint32 = 1 << 0
	flagHeaderDestroyed uint32 = 1 << 1
)

// HeaderSize returns the header size for a class with n properties.
func HeaderSize(n int) uint32 {
	return HeaderBaseSize + uint32(n)*PropertySize
}
