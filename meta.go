package godbf

// DBFHeader represents the structure of the fixed 32 byte DBF file header.
type DBFHeader struct {
	Version          byte
	LastUpdateYear   byte
	LastUpdateMonth  byte
	LastUpdateDay    byte
	NumRecords       uint32
	HeaderLength     uint16
	RecordLength     uint16
	Reserved         [2]byte
	Flag             byte
	EncryptFlag      byte
	Reserved2        [12]byte
	MDXFlag          byte
	LanguageDriverID byte
	Reserved3        [2]byte
}

// rawDescriptor is the on-disk layout of one 32 byte field descriptor.
type rawDescriptor struct {
	Name       [11]byte
	Type       byte
	Reserved1  [4]byte
	Length     byte
	Decimal    byte
	Reserved2  [2]byte
	WorkAreaID byte
	Reserved3  [10]byte
	Flag       byte
}

// FieldType is the single character type code of a field.
type FieldType byte

const (
	Character FieldType = 'C'
	Numeric   FieldType = 'N'
	Float     FieldType = 'F'
	Integer   FieldType = 'I'
	Currency  FieldType = 'Y'
)

func (t FieldType) String() string { return string(rune(t)) }

// FieldDescriptor is a decoded field descriptor. The order of descriptors
// defines the byte offsets inside a record.
type FieldDescriptor struct {
	Name    string
	Type    FieldType
	Length  uint8
	Decimal uint8
}
