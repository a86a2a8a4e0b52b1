package amli

// FieldAccessType is the access-width selector of a field unit (spec.md
// §4.4), grounded on entity.go's FieldAccessType enum.
type FieldAccessType byte

const (
	FieldAccessAny FieldAccessType = iota
	FieldAccessByte
	FieldAccessWord
	FieldAccessDWord
	FieldAccessQWord
	FieldAccessBuffer
)

// FieldUpdateRule controls how bits outside the field, but inside the
// covered access window, are preserved on write (spec.md §4.4).
type FieldUpdateRule byte

const (
	UpdatePreserve FieldUpdateRule = iota
	UpdateWriteAsOnes
	UpdateWriteAsZeros
)

// FieldLockRule says whether the global lock must be held for the duration
// of an access (spec.md §4.4).
type FieldLockRule byte

const (
	LockNone FieldLockRule = iota
	LockRule
)

// FieldAccessAttrib carries the serial-bus protocol selector used by
// GenericSerialBus fields (SMBus/I2C/SPI protocol byte).
type FieldAccessAttrib byte

// FieldInfo describes Field/BankField/IndexField/BufferField objects
// (spec.md §3, §4.4).
type FieldInfo struct {
	AccessType   FieldAccessType
	LockRule     FieldLockRule
	UpdateRule   FieldUpdateRule
	AccessAttrib FieldAccessAttrib

	BitOffset uint64
	BitLength uint64

	// Backing: a plain field points at an OperationRegion object; an
	// IndexField points at two other field objects (index + data); a
	// BufferField points at a Buffer value's backing handle rather than a
	// region at all.
	region     *Object
	indexField *Object
	dataField  *Object
	bankField  *Object
	bankValue  uint64

	bufferField *bufferHandle
}

// ReadField performs the read-modify combine across one or more aligned
// access windows, per spec.md §4.4: "Read combines one or more aligned
// accesses of the selected width, assembling the field's bit range into an
// output."
func (st *State) ReadField(f *Object, scope *methodScope) (Value, *Error) {
	if f.Kind != ObjField && f.Kind != ObjBankField && f.Kind != ObjIndexField && f.Kind != ObjBufferField {
		return UninitializedValue, errTypeMismatch
	}
	fi := f.field

	if fi.bufferField != nil {
		return st.readBufferField(fi)
	}

	if f.Kind == ObjIndexField {
		return st.readIndexField(fi)
	}

	if fi.bankField != nil {
		if err := st.selectBank(fi); err != nil {
			return UninitializedValue, err
		}
	}

	if fi.LockRule == LockRule {
		if err := st.acquireGlobalLockForField(scope); err != nil {
			return UninitializedValue, err
		}
		defer st.releaseGlobalLockForField(scope)
	}

	region := fi.region.region
	widthBits := accessWidthBits(fi.AccessType, int(fi.BitLength))
	result := make([]byte, (int(fi.BitLength)+7)/8)

	bitPos := fi.BitOffset
	remaining := fi.BitLength
	outPos := uint64(0)
	for remaining > 0 {
		windowBit := (bitPos / uint64(widthBits)) * uint64(widthBits)
		var data RegionAccessData
		if err := st.accessRegion(region, windowBit, widthBits, fi.AccessType, false, &data); err != nil {
			return UninitializedValue, err
		}
		take := minU64(remaining, uint64(widthBits)-(bitPos-windowBit))
		shifted := data.Word >> (bitPos - windowBit)
		copyBitsInto(result, outPos, shifted, take)
		bitPos += take
		outPos += take
		remaining -= take
	}

	if len(result) <= 8 {
		var n uint64
		for i, b := range result {
			n |= uint64(b) << (8 * i)
		}
		n &= (uint64(1) << fi.BitLength) - 1
		if fi.BitLength >= 64 {
			n = binaryToU64(result)
		}
		return IntegerValue(n), nil
	}
	return BufferValue(result), nil
}

// WriteField writes v into the field, respecting UpdateRule for the bits of
// each covered access window that lie outside the field itself.
func (st *State) WriteField(f *Object, v Value, scope *methodScope) *Error {
	if f.Kind != ObjField && f.Kind != ObjBankField && f.Kind != ObjIndexField && f.Kind != ObjBufferField {
		return errTypeMismatch
	}
	fi := f.field

	n, err := v.asInteger(64)
	if err != nil {
		return err
	}

	if fi.bufferField != nil {
		return st.writeBufferField(fi, n)
	}
	if f.Kind == ObjIndexField {
		return st.writeIndexField(fi, n)
	}
	if fi.bankField != nil {
		if err := st.selectBank(fi); err != nil {
			return err
		}
	}

	if fi.LockRule == LockRule {
		if err := st.acquireGlobalLockForField(scope); err != nil {
			return err
		}
		defer st.releaseGlobalLockForField(scope)
	}

	region := fi.region.region
	widthBits := accessWidthBits(fi.AccessType, int(fi.BitLength))

	bitPos := fi.BitOffset
	remaining := fi.BitLength
	srcPos := uint64(0)
	for remaining > 0 {
		windowBit := (bitPos / uint64(widthBits)) * uint64(widthBits)
		take := minU64(remaining, uint64(widthBits)-(bitPos-windowBit))

		var cur RegionAccessData
		needReadModify := take < uint64(widthBits) && fi.UpdateRule == UpdatePreserve
		if needReadModify {
			if err := st.accessRegion(region, windowBit, widthBits, fi.AccessType, false, &cur); err != nil {
				return err
			}
		} else if fi.UpdateRule == UpdateWriteAsOnes {
			cur.Word = ^uint64(0)
		}

		mask := (uint64(1)<<take - 1) << (bitPos - windowBit)
		chunk := (n >> srcPos) & (uint64(1)<<take - 1)
		newWord := (cur.Word &^ mask) | (chunk << (bitPos - windowBit) & mask)

		out := RegionAccessData{Word: newWord}
		if err := st.accessRegion(region, windowBit, widthBits, fi.AccessType, true, &out); err != nil {
			return err
		}

		bitPos += take
		srcPos += take
		remaining -= take
	}
	return nil
}

func (st *State) selectBank(fi *FieldInfo) *Error {
	if fi.bankField == nil {
		return nil
	}
	return st.WriteField(fi.bankField, IntegerValue(fi.bankValue), nil)
}

func (st *State) readIndexField(fi *FieldInfo) (Value, *Error) {
	idxOffset := fi.BitOffset / 8
	if err := st.WriteField(fi.indexField, IntegerValue(idxOffset), nil); err != nil {
		return UninitializedValue, err
	}
	return st.ReadField(fi.dataField, nil)
}

func (st *State) writeIndexField(fi *FieldInfo, n uint64) *Error {
	idxOffset := fi.BitOffset / 8
	if err := st.WriteField(fi.indexField, IntegerValue(idxOffset), nil); err != nil {
		return err
	}
	return st.WriteField(fi.dataField, IntegerValue(n), nil)
}

func (st *State) readBufferField(fi *FieldInfo) (Value, *Error) {
	if fi.bufferField == nil {
		return UninitializedValue, errTypeMismatch
	}
	startByte := fi.BitOffset / 8
	n := extractBits(fi.bufferField.data, fi.BitOffset-startByte*8+startByte*8, fi.BitLength)
	if fi.BitLength > 64 {
		lo := fi.BitOffset / 8
		hi := (fi.BitOffset + fi.BitLength + 7) / 8
		if int(hi) <= len(fi.bufferField.data) {
			return BufferValue(append([]byte{}, fi.bufferField.data[lo:hi]...)), nil
		}
	}
	return IntegerValue(n), nil
}

func (st *State) writeBufferField(fi *FieldInfo, n uint64) *Error {
	if fi.bufferField == nil {
		return errTypeMismatch
	}
	insertBits(fi.bufferField.data, fi.BitOffset, fi.BitLength, n)
	return nil
}

func (st *State) acquireGlobalLockForField(scope *methodScope) *Error {
	gl := st.globalLockMutex
	if gl == nil {
		return nil
	}
	_, err := st.AcquireMutex(gl, scope, 0xFFFF)
	return err
}

func (st *State) releaseGlobalLockForField(scope *methodScope) {
	if st.globalLockMutex == nil {
		return
	}
	_ = st.ReleaseMutex(st.globalLockMutex, scope)
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func copyBitsInto(dst []byte, bitOffset uint64, word uint64, count uint64) {
	for i := uint64(0); i < count; i++ {
		bit := (word >> i) & 1
		byteIdx := (bitOffset + i) / 8
		bitIdx := (bitOffset + i) % 8
		if bit != 0 {
			dst[byteIdx] |= 1 << bitIdx
		}
	}
}

func extractBits(data []byte, bitOffset, bitLength uint64) uint64 {
	var n uint64
	for i := uint64(0); i < bitLength && i < 64; i++ {
		byteIdx := (bitOffset + i) / 8
		bitIdx := (bitOffset + i) % 8
		if int(byteIdx) >= len(data) {
			break
		}
		if data[byteIdx]&(1<<bitIdx) != 0 {
			n |= 1 << i
		}
	}
	return n
}

func insertBits(data []byte, bitOffset, bitLength uint64, value uint64) {
	for i := uint64(0); i < bitLength; i++ {
		byteIdx := (bitOffset + i) / 8
		bitIdx := (bitOffset + i) % 8
		if int(byteIdx) >= len(data) {
			break
		}
		if (value>>i)&1 != 0 {
			data[byteIdx] |= 1 << bitIdx
		} else {
			data[byteIdx] &^= 1 << bitIdx
		}
	}
}

func binaryToU64(b []byte) uint64 {
	var n uint64
	for i := 0; i < len(b) && i < 8; i++ {
		n |= uint64(b[i]) << (8 * i)
	}
	return n
}
