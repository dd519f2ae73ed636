// Package pickle walks a pickle opcode stream without ever unpickling
// it, looking for GLOBAL/STACK_GLOBAL references that would execute
// code on load (spec.md §4.1).
package pickle

// Opcode constants, named after the CPython pickle module's byte
// values. Only the subset relevant to detecting unsafe global
// references and walking frames is listed.
const (
	opMark            = '('
	opStop            = '.'
	opGlobal          = 'c'
	opInst            = 'i'
	opObj             = 'o'
	opReduce          = 'R'
	opBuild           = 'b'
	opNewObj          = 0x81
	opNewObjEx        = 0x92
	opProto           = 0x80
	opFrame           = 0x95
	opShortBinunicode = 0x8c
	opBinunicode      = 'X'
	opBinunicode8     = 0x8d
	opShortBinstring  = 'U'
	opBinstring       = 'T'
	opUnicode         = 'V'
	opBinget          = 'h'
	opLongBinget      = 'j'
	opBinput          = 'q'
	opLongBinput      = 'r'
	opMemoize         = 0x94
	opStackGlobal     = 0x93
	opPersid          = 'P'
	opBinpersid       = 'Q'
	opEmptyDict       = '}'
	opEmptyList       = ']'
	opEmptyTuple      = ')'
	opNone            = 'N'
	opNewTrue         = 0x88
	opNewFalse        = 0x89
	opBinint          = 'J'
	opBinint1         = 'K'
	opBinint2         = 'M'
	opLong1           = 0x8a
	opLong4           = 0x8b
	opBinfloat        = 'G'
	opTuple           = 't'
	opTuple1          = 0x85
	opTuple2          = 0x86
	opTuple3          = 0x87
	opList            = 'l'
	opDict            = 'd'
	opAppend          = 'a'
	opAppends         = 'e'
	opSetItem         = 's'
	opSetItems        = 'u'
	opPop             = '0'
	opPopMark         = '1'
	opDup             = '2'
	opGet             = 'g'
	opPut             = 'p'
)

// MaxSupportedProtocol is the highest pickle protocol version this
// walker understands well enough to resolve GLOBAL references
// reliably. Streams claiming a higher version are still scanned
// opportunistically (spec.md §4.1 edge policy) but flagged WARNING.
const MaxSupportedProtocol = 5
