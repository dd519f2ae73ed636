package pickle

import (
	"encoding/binary"
	"errors"
	"math"
)

// GlobalRef is a single (module, attribute) reference extracted from a
// GLOBAL or STACK_GLOBAL opcode, with the byte offset it was found at.
type GlobalRef struct {
	Module string
	Attr   string
	Offset int64
}

// ErrTruncated indicates the opcode stream ended mid-argument.
var ErrTruncated = errors.New("truncated pickle stream")

// stackSlot tracks just enough of the pickle VM stack to resolve
// STACK_GLOBAL's two preceding string pushes; non-string opcodes push
// an empty, non-matching placeholder so offsets stay aligned.
type stackSlot struct {
	isString bool
	value    string
}

// Result is the outcome of walking one opcode stream.
type Result struct {
	Refs      []GlobalRef
	Protocol  int
	HighProto bool // protocol beyond MaxSupportedProtocol; scanned opportunistically
}

// Walk parses data as a pickle opcode stream and returns every
// GLOBAL/STACK_GLOBAL reference it finds, never interpreting REDUCE,
// BUILD, or any other opcode beyond recognizing its argument shape so
// the cursor can advance. A cancel func, checked between opcodes, lets
// the caller abort at the next opcode boundary.
func Walk(data []byte, cancelled func() bool) (Result, error) {
	var res Result
	var stack []stackSlot
	i := 0
	n := len(data)

	push := func(s stackSlot) {
		stack = append(stack, s)
	}
	popN := func(k int) []stackSlot {
		if len(stack) < k {
			out := make([]stackSlot, k)
			return out
		}
		popped := stack[len(stack)-k:]
		stack = stack[:len(stack)-k]
		return popped
	}

	need := func(k int) bool { return i+k <= n }

	for i < n {
		if cancelled != nil && cancelled() {
			return res, nil
		}
		op := data[i]
		start := int64(i)
		i++

		switch op {
		case opStop:
			return res, nil

		case opProto:
			if !need(1) {
				return res, ErrTruncated
			}
			res.Protocol = int(data[i])
			i++
			if res.Protocol > MaxSupportedProtocol {
				res.HighProto = true
			}

		case opFrame:
			if !need(8) {
				return res, ErrTruncated
			}
			i += 8

		case opGlobal:
			mod, rest, ok := readLine(data, i)
			if !ok {
				return res, ErrTruncated
			}
			attr, rest2, ok := readLine(data, rest)
			if !ok {
				return res, ErrTruncated
			}
			res.Refs = append(res.Refs, GlobalRef{Module: mod, Attr: attr, Offset: start})
			i = rest2
			push(stackSlot{})

		case opStackGlobal:
			popped := popN(2)
			if popped[0].isString && popped[1].isString {
				res.Refs = append(res.Refs, GlobalRef{Module: popped[0].value, Attr: popped[1].value, Offset: start})
			}
			push(stackSlot{})

		case opShortBinunicode:
			if !need(1) {
				return res, ErrTruncated
			}
			l := int(data[i])
			i++
			if !need(l) {
				return res, ErrTruncated
			}
			push(stackSlot{isString: true, value: string(data[i : i+l])})
			i += l

		case opBinunicode:
			if !need(4) {
				return res, ErrTruncated
			}
			l := int(binary.LittleEndian.Uint32(data[i : i+4]))
			i += 4
			if l < 0 || !need(l) {
				return res, ErrTruncated
			}
			push(stackSlot{isString: true, value: string(data[i : i+l])})
			i += l

		case opBinunicode8:
			if !need(8) {
				return res, ErrTruncated
			}
			l64 := binary.LittleEndian.Uint64(data[i : i+8])
			i += 8
			if l64 > math.MaxInt32 || !need(int(l64)) {
				return res, ErrTruncated
			}
			l := int(l64)
			push(stackSlot{isString: true, value: string(data[i : i+l])})
			i += l

		case opShortBinstring:
			if !need(1) {
				return res, ErrTruncated
			}
			l := int(data[i])
			i++
			if !need(l) {
				return res, ErrTruncated
			}
			push(stackSlot{isString: true, value: string(data[i : i+l])})
			i += l

		case opBinstring:
			if !need(4) {
				return res, ErrTruncated
			}
			l := int(binary.LittleEndian.Uint32(data[i : i+4]))
			i += 4
			if l < 0 || !need(l) {
				return res, ErrTruncated
			}
			push(stackSlot{isString: true, value: string(data[i : i+l])})
			i += l

		case opUnicode:
			s, rest, ok := readLine(data, i)
			if !ok {
				return res, ErrTruncated
			}
			push(stackSlot{isString: true, value: s})
			i = rest

		case opBinget:
			if !need(1) {
				return res, ErrTruncated
			}
			i++
			push(stackSlot{})

		case opBinput:
			// Memoizes top-of-stack in place; the stack is unchanged.
			if !need(1) {
				return res, ErrTruncated
			}
			i++

		case opLongBinget:
			if !need(4) {
				return res, ErrTruncated
			}
			i += 4
			push(stackSlot{})

		case opLongBinput:
			// Memoizes top-of-stack in place; the stack is unchanged.
			if !need(4) {
				return res, ErrTruncated
			}
			i += 4

		case opBinint:
			if !need(4) {
				return res, ErrTruncated
			}
			i += 4
			push(stackSlot{})

		case opBinint1:
			if !need(1) {
				return res, ErrTruncated
			}
			i++
			push(stackSlot{})

		case opBinint2:
			if !need(2) {
				return res, ErrTruncated
			}
			i += 2
			push(stackSlot{})

		case opBinfloat:
			if !need(8) {
				return res, ErrTruncated
			}
			i += 8
			push(stackSlot{})

		case opLong1:
			if !need(1) {
				return res, ErrTruncated
			}
			l := int(data[i])
			i++
			if !need(l) {
				return res, ErrTruncated
			}
			i += l
			push(stackSlot{})

		case opLong4:
			if !need(4) {
				return res, ErrTruncated
			}
			l := int(binary.LittleEndian.Uint32(data[i : i+4]))
			i += 4
			if l < 0 || !need(l) {
				return res, ErrTruncated
			}
			i += l
			push(stackSlot{})

		case opMemoize:
			// Memoizes top-of-stack in place; the stack is unchanged.

		case opPop, opPopMark, opDup, opNone, opNewTrue, opNewFalse,
			opMark, opEmptyDict, opEmptyList, opEmptyTuple,
			opAppend, opAppends, opSetItem, opSetItems,
			opTuple, opTuple1, opTuple2, opTuple3, opList, opDict,
			opObj, opInst, opReduce, opBuild, opNewObj, opNewObjEx:
			push(stackSlot{})

		case opGet:
			_, rest, ok := readLine(data, i)
			if !ok {
				return res, ErrTruncated
			}
			i = rest
			push(stackSlot{})

		case opPut:
			// Memoizes top-of-stack in place; the stack is unchanged.
			_, rest, ok := readLine(data, i)
			if !ok {
				return res, ErrTruncated
			}
			i = rest

		case opPersid:
			_, rest, ok := readLine(data, i)
			if !ok {
				return res, ErrTruncated
			}
			i = rest
			push(stackSlot{})

		case opBinpersid:
			popN(1)
			push(stackSlot{})

		default:
			// Unknown/unsupported opcode: there is no generic way to
			// know its argument length, so the scan stops here. This
			// is conservative: a scan-error is safer than silently
			// skipping bytes and misreading subsequent opcodes as
			// something they are not.
			return res, ErrTruncated
		}
	}
	return res, ErrTruncated
}

// readLine reads bytes from offset up to (excluding) the next '\n',
// returning the string and the offset just past the newline.
func readLine(data []byte, offset int) (string, int, bool) {
	for j := offset; j < len(data); j++ {
		if data[j] == '\n' {
			return string(data[offset:j]), j + 1, true
		}
	}
	return "", 0, false
}
