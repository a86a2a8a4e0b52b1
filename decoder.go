package amli

import "strings"

// decoder is the byte/word/dword/qword reader plus opcode and PkgLength
// grammar described by spec.md §4.2, grounded on the teacher's
// stream_reader.go (peek/consume/offset tracking) generalized from its
// unsafe-pointer-overlaid memory window to a plain owned []byte, per
// SPEC_FULL.md §A's hosted-vs-freestanding note.
type decoder struct {
	data      []byte
	offset    int
	windowEnd int // end of the current enclosing package/table window

	recursionDepth int
	maxRecursion   int
}

func newDecoder(data []byte, maxRecursion int) *decoder {
	return &decoder{data: data, offset: 0, windowEnd: len(data), maxRecursion: maxRecursion}
}

func (d *decoder) eof() bool { return d.offset >= d.windowEnd }

func (d *decoder) enter() *Error {
	d.recursionDepth++
	if d.recursionDepth > d.maxRecursion {
		return errRecursionExhausted
	}
	return nil
}

func (d *decoder) leave() { d.recursionDepth-- }

func (d *decoder) peekByte() (byte, *Error) {
	if d.offset >= d.windowEnd {
		return 0, errTruncatedStream
	}
	return d.data[d.offset], nil
}

func (d *decoder) consumeByte() (byte, *Error) {
	b, err := d.peekByte()
	if err != nil {
		return 0, err
	}
	d.offset++
	return b, nil
}

func (d *decoder) matchByte(expect byte) bool {
	if d.offset < d.windowEnd && d.data[d.offset] == expect {
		d.offset++
		return true
	}
	return false
}

func (d *decoder) consumeWord() (uint16, *Error) {
	if d.offset+2 > d.windowEnd {
		return 0, errTruncatedStream
	}
	v := uint16(d.data[d.offset]) | uint16(d.data[d.offset+1])<<8
	d.offset += 2
	return v, nil
}

func (d *decoder) consumeDword() (uint32, *Error) {
	if d.offset+4 > d.windowEnd {
		return 0, errTruncatedStream
	}
	v := uint32(d.data[d.offset]) | uint32(d.data[d.offset+1])<<8 | uint32(d.data[d.offset+2])<<16 | uint32(d.data[d.offset+3])<<24
	d.offset += 4
	return v, nil
}

func (d *decoder) consumeQword() (uint64, *Error) {
	lo, err := d.consumeDword()
	if err != nil {
		return 0, err
	}
	hi, err := d.consumeDword()
	if err != nil {
		return 0, err
	}
	return uint64(lo) | uint64(hi)<<32, nil
}

// peekOpcode / consumeOpcode resolve the two-level opcode table of spec.md
// §4.2: a first byte indexes a 256-entry table; ExtOpPrefix (0x5b) and the
// optional-match LNotOp (0x92) sub-table route to a second byte.
func (d *decoder) peekOpcode() (opcode, int, *Error) {
	b, err := d.peekByte()
	if err != nil {
		return badOpcode, 0, err
	}
	if b == extOpPrefix {
		if d.offset+1 >= d.windowEnd {
			return badOpcode, 0, errTruncatedStream
		}
		b2 := d.data[d.offset+1]
		op := opcode(0x100) + opcode(b2)
		if _, ok := opcodeTable[op]; ok {
			return op, 2, nil
		}
		return badOpcode, 0, errUnknownOpcode
	}
	if b == byte(lnotOp) {
		// LNotOp sub-table is optional-match: LNotEqual/LLessEqual/
		// LGreaterEqual only apply if the second byte also matches.
		if d.offset+1 < d.windowEnd {
			switch d.data[d.offset+1] {
			case byte(opLEqual):
				return opLNotEqual, 2, nil
			case byte(opLLess):
				return opLGreaterEqual, 2, nil
			case byte(opLGreater):
				return opLLessEqual, 2, nil
			}
		}
		return opLnot, 1, nil
	}
	if _, ok := opcodeTable[opcode(b)]; ok {
		return opcode(b), 1, nil
	}
	return badOpcode, 0, errUnknownOpcode
}

func (d *decoder) consumeOpcode() (opcode, *Error) {
	op, width, err := d.peekOpcode()
	if err != nil {
		return badOpcode, err
	}
	d.offset += width
	return op, nil
}

func (d *decoder) matchOpcode(expected opcode) bool {
	save := d.offset
	op, err := d.consumeOpcode()
	if err != nil || op != expected {
		d.offset = save
		return false
	}
	return true
}

// consumePkgLengthValue decodes the raw PkgLength-encoded integer without
// treating it as a window end, for the field-list bit-count encoding
// (ReservedField/NamedField) which reuses the PkgLength bit layout to carry
// a plain value rather than an enclosing-range size.
func (d *decoder) consumePkgLengthValue() (uint32, *Error) {
	lead, e := d.consumeByte()
	if e != nil {
		return 0, e
	}
	k := int(lead >> 6)
	var length uint32
	if k == 0 {
		length = uint32(lead & 0x3f)
	} else {
		length = uint32(lead & 0x0f)
		for i := 0; i < k; i++ {
			b, e := d.consumeByte()
			if e != nil {
				return 0, e
			}
			length |= uint32(b) << (4 + 8*i)
		}
	}
	return length, nil
}

// consumePackageLength implements spec.md §4.2's PkgLength grammar: first
// byte's bits [7:6] give extra byte count k in {0,1,2,3}; if k=0, bits
// [5:0] hold the length, otherwise bits [3:0] are the low nibble and the
// following k bytes concatenate as the next 8*k bits. Returns the absolute
// end offset of the package and validates it fits the enclosing window.
func (d *decoder) consumePackageLength() (pkgEnd int, err *Error) {
	start := d.offset
	length, e := d.consumePkgLengthValue()
	if e != nil {
		return 0, e
	}
	if int(length) < d.offset-start {
		return 0, errMalformedPkgLength
	}
	end := start + int(length)
	if end > d.windowEnd || end < start {
		return 0, errPkgLengthOutOfBounds
	}
	return end, nil
}

// --- Name strings (spec.md §4.2's "Name strings" paragraph) ---

type parsedNameString struct {
	isAbsolute bool
	parentHops int
	segments   []nameSegment
}

func isLeadNameChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || c == '_'
}

func isNameChar(c byte) bool {
	return isLeadNameChar(c) || (c >= '0' && c <= '9')
}

func validateSegment(seg nameSegment) *Error {
	if !isLeadNameChar(seg[0]) {
		return errBadNameSegment
	}
	for i := 1; i < 4; i++ {
		if !isNameChar(seg[i]) {
			return errBadNameSegment
		}
	}
	return nil
}

// consumeNameString parses the NameString grammar: optional leading `\` or
// one-or-more `^` prefixes, then NameSeg | DualNamePath(0x2e) |
// MultiNamePath(0x2f) | NullName(0x00).
func (d *decoder) consumeNameString() (parsedNameString, *Error) {
	var out parsedNameString
	if d.matchByte('\\') {
		out.isAbsolute = true
	}
	for d.matchByte('^') {
		out.parentHops++
	}

	if d.eof() {
		return out, errBadNamePrefix
	}
	b, err := d.peekByte()
	if err != nil {
		return out, err
	}

	switch b {
	case 0x00: // NullName
		d.offset++
		return out, nil
	case 0x2e: // DualNamePath
		d.offset++
		for i := 0; i < 2; i++ {
			seg, err := d.consumeRawSegment()
			if err != nil {
				return out, err
			}
			out.segments = append(out.segments, seg)
		}
		return out, nil
	case 0x2f: // MultiNamePath
		d.offset++
		count, err := d.consumeByte()
		if err != nil {
			return out, err
		}
		for i := byte(0); i < count; i++ {
			seg, err := d.consumeRawSegment()
			if err != nil {
				return out, err
			}
			out.segments = append(out.segments, seg)
		}
		return out, nil
	default:
		seg, err := d.consumeRawSegment()
		if err != nil {
			return out, err
		}
		out.segments = append(out.segments, seg)
		return out, nil
	}
}

func (d *decoder) consumeRawSegment() (nameSegment, *Error) {
	var seg nameSegment
	if d.offset+4 > d.windowEnd {
		return seg, errTruncatedStream
	}
	copy(seg[:], d.data[d.offset:d.offset+4])
	d.offset += 4
	if err := validateSegment(seg); err != nil {
		return seg, err
	}
	return seg, nil
}

// parseNameString parses a textual name path such as `\_SB.PCI0`, `^FOO` or
// `FOO` (outside the live decoder cursor): an optional `\` or run of `^`
// prefixes, then dot-separated segments of one to four characters, each
// underscore-padded to a full NameSeg. Used by EvaluateByPath and by Alias
// target resolution, whose targets are stored in nameStringToString's form.
func parseNameString(raw []byte) (parsedNameString, *Error) {
	s := string(raw)
	out := parsedNameString{isAbsolute: strings.HasPrefix(s, `\`)}
	s = strings.TrimPrefix(s, `\`)
	for strings.HasPrefix(s, "^") {
		out.parentHops, s = out.parentHops+1, s[1:]
	}
	if s == "" {
		return out, nil
	}
	for _, part := range strings.Split(s, ".") {
		seg := segmentFromString(part)
		if part == "" || len(part) > 4 || validateSegment(seg) != nil {
			return out, errBadNameSegment
		}
		out.segments = append(out.segments, seg)
	}
	return out, nil
}

func (d *decoder) matchNameString() (parsedNameString, bool) {
	save := d.offset
	n, err := d.consumeNameString()
	if err != nil {
		d.offset = save
		return parsedNameString{}, false
	}
	return n, true
}

// signExtendInteger sign-extends a value of bitWidth bits to 64 bits, per
// spec.md §4.2's classifier list ("sign_extend_integer").
func signExtendInteger(v uint64, bitWidth int) int64 {
	shift := 64 - bitWidth
	return int64(v<<uint(shift)) >> uint(shift)
}
