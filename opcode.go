package amli

// opcode identifies a decoded AML instruction. Opcodes in [0x00,0xff] are
// single-byte; two-byte opcodes (ExtOpPrefix 0x5b, or the optional-match
// LNotOp 0x92 sub-table) are offset by 0x100 so the whole space fits one
// lookup table, following the teacher's opcode_table.go layout.
type opcode uint16

const (
	badOpcode   = opcode(0xffff)
	extOpPrefix = byte(0x5b)
	lnotOp      = byte(0x92)

	opZero             = opcode(0x00)
	opOne              = opcode(0x01)
	opAlias            = opcode(0x06)
	opName             = opcode(0x08)
	opBytePrefix       = opcode(0x0a)
	opWordPrefix       = opcode(0x0b)
	opDwordPrefix      = opcode(0x0c)
	opStringPrefix     = opcode(0x0d)
	opQwordPrefix      = opcode(0x0e)
	opScope            = opcode(0x10)
	opBuffer           = opcode(0x11)
	opPackage          = opcode(0x12)
	opVarPackage       = opcode(0x13)
	opMethod           = opcode(0x14)
	opExternal         = opcode(0x15)
	opLocal0           = opcode(0x60)
	opLocal7           = opcode(0x67)
	opArg0             = opcode(0x68)
	opArg6             = opcode(0x6e)
	opStore            = opcode(0x70)
	opRefOf            = opcode(0x71)
	opAdd              = opcode(0x72)
	opConcat           = opcode(0x73)
	opSubtract         = opcode(0x74)
	opIncrement        = opcode(0x75)
	opDecrement        = opcode(0x76)
	opMultiply         = opcode(0x77)
	opDivide           = opcode(0x78)
	opShiftLeft        = opcode(0x79)
	opShiftRight       = opcode(0x7a)
	opAnd              = opcode(0x7b)
	opNand             = opcode(0x7c)
	opOr               = opcode(0x7d)
	opNor              = opcode(0x7e)
	opXor              = opcode(0x7f)
	opNot              = opcode(0x80)
	opFindSetLeftBit   = opcode(0x81)
	opFindSetRightBit  = opcode(0x82)
	opDerefOf          = opcode(0x83)
	opConcatRes        = opcode(0x84)
	opMod              = opcode(0x85)
	opNotify           = opcode(0x86)
	opSizeOf           = opcode(0x87)
	opIndex            = opcode(0x88)
	opMatch            = opcode(0x89)
	opCreateDWordField = opcode(0x8a)
	opCreateWordField  = opcode(0x8b)
	opCreateByteField  = opcode(0x8c)
	opCreateBitField   = opcode(0x8d)
	opObjectType       = opcode(0x8e)
	opCreateQWordField = opcode(0x8f)
	opLand             = opcode(0x90)
	opLor              = opcode(0x91)
	opLnot             = opcode(0x92)
	opLEqual           = opcode(0x93)
	opLGreater         = opcode(0x94)
	opLLess            = opcode(0x95)
	opToBuffer         = opcode(0x96)
	opToDecimalString  = opcode(0x97)
	opToHexString      = opcode(0x98)
	opToInteger        = opcode(0x99)
	opToString         = opcode(0x9c)
	opCopyObject       = opcode(0x9d)
	opMid              = opcode(0x9e)
	opContinue         = opcode(0x9f)
	opIf               = opcode(0xa0)
	opElse             = opcode(0xa1)
	opWhile            = opcode(0xa2)
	opNoop             = opcode(0xa3)
	opReturn           = opcode(0xa4)
	opBreak            = opcode(0xa5)
	opBreakPoint       = opcode(0xcc)
	opOnes             = opcode(0xff)

	// Extended (0x5b-prefixed) opcodes, offset by 0x100.
	opMutex       = opcode(0x100 + 0x01)
	opEvent       = opcode(0x100 + 0x02)
	opCondRefOf   = opcode(0x100 + 0x12)
	opCreateField = opcode(0x100 + 0x13)
	opLoadTable   = opcode(0x100 + 0x1f)
	opLoad        = opcode(0x100 + 0x20)
	opStall       = opcode(0x100 + 0x21)
	opSleep       = opcode(0x100 + 0x22)
	opAcquire     = opcode(0x100 + 0x23)
	opSignal      = opcode(0x100 + 0x24)
	opWait        = opcode(0x100 + 0x25)
	opReset       = opcode(0x100 + 0x26)
	opRelease     = opcode(0x100 + 0x27)
	opFromBCD     = opcode(0x100 + 0x28)
	opToBCD       = opcode(0x100 + 0x29)
	opUnload      = opcode(0x100 + 0x2a)
	opRevision    = opcode(0x100 + 0x30)
	opDebug       = opcode(0x100 + 0x31)
	opFatal       = opcode(0x100 + 0x32)
	opTimer       = opcode(0x100 + 0x33)
	opOpRegion    = opcode(0x100 + 0x80)
	opField       = opcode(0x100 + 0x81)
	opDevice      = opcode(0x100 + 0x82)
	opProcessor   = opcode(0x100 + 0x83)
	opPowerRes    = opcode(0x100 + 0x84)
	opThermalZone = opcode(0x100 + 0x85)
	opIndexField  = opcode(0x100 + 0x86)
	opBankField   = opcode(0x100 + 0x87)
	opDataRegion  = opcode(0x100 + 0x88)

	// LNotOp optional-match sub-table (spec.md §4.2): when the byte after
	// 0x92 (LNotOp) matches LEqualOp/LLessOp/LGreaterOp, the full two-byte
	// sequence is the combined opcode; otherwise LNotOp stands alone.
	// Offset by 0x200 to keep them out of the single-byte and ExtOpPrefix
	// ranges.
	opLNotEqual     = opcode(0x200 + 0x93)
	opLGreaterEqual = opcode(0x200 + 0x95)
	opLLessEqual    = opcode(0x200 + 0x94)
)

// argKind classifies one positional argument of an opcode, mirroring the
// arg-type constants of the teacher's opcode table (opArgNameString,
// opArgTermObj, ...), collapsed to what this decoder actually branches on.
type argKind uint8

const (
	argNone argKind = iota
	argByteData
	argWordData
	argDwordData
	argQwordData
	argStringData
	argNameString
	argTermArg    // a single evaluatable TermArg, consumed opaquely by the decoder
	argSuperName  // SimpleName | DebugObj | reference-producing expression
	argTarget     // SuperName or NullName, a store destination
	argTermList   // a scoped sequence of terms (PkgLength-framed)
	argByteList   // raw bytes to the end of the enclosing package
	argFieldList  // FieldElement* inside a Field/IndexField/BankField body
)

// opcodeInfo is one row of the two-level opcode table described in spec.md
// §4.2: validity, name, whether the opcode carries its own PkgLength, whether
// it declares a name (namespace modifier / named object), whether it opens a
// nested scope, and the fixed argument shape.
type opcodeInfo struct {
	op          opcode
	name        string
	hasPkgLen   bool
	isNamed     bool
	opensScope  bool
	isStatement bool
	isExpr      bool
	args        []argKind
}

// opcodeTable maps each recognized opcode directly to its row: single-byte
// opcodes by value, ExtOpPrefix opcodes as 0x100 + second byte, and the
// LNot combinations as 0x200 + second byte (added in init). An opcode with
// no entry is not a valid opcode start.
var opcodeTable = map[opcode]*opcodeInfo{
	opZero:             {opZero, "Zero", false, false, false, false, true, nil},
	opOne:              {opOne, "One", false, false, false, false, true, nil},
	opOnes:             {opOnes, "Ones", false, false, false, false, true, nil},
	opRevision:         {opRevision, "Revision", false, false, false, false, true, nil},
	opAlias:            {opAlias, "Alias", false, true, false, false, false, []argKind{argNameString, argNameString}},
	opName:             {opName, "Name", false, true, false, false, false, []argKind{argNameString, argTermArg}},
	opBytePrefix:       {opBytePrefix, "BytePrefix", false, false, false, false, true, []argKind{argByteData}},
	opWordPrefix:       {opWordPrefix, "WordPrefix", false, false, false, false, true, []argKind{argWordData}},
	opDwordPrefix:      {opDwordPrefix, "DwordPrefix", false, false, false, false, true, []argKind{argDwordData}},
	opStringPrefix:     {opStringPrefix, "StringPrefix", false, false, false, false, true, []argKind{argStringData}},
	opQwordPrefix:      {opQwordPrefix, "QwordPrefix", false, false, false, false, true, []argKind{argQwordData}},
	opScope:            {opScope, "Scope", true, true, true, false, false, []argKind{argNameString, argTermList}},
	opBuffer:           {opBuffer, "Buffer", true, false, false, false, true, []argKind{argTermArg, argByteList}},
	opPackage:          {opPackage, "Package", true, false, false, false, true, []argKind{argByteData, argTermList}},
	opVarPackage:       {opVarPackage, "VarPackage", true, false, false, false, true, []argKind{argTermArg, argTermList}},
	opMethod:           {opMethod, "Method", true, true, true, false, false, []argKind{argNameString, argByteData, argTermList}},
	opExternal:         {opExternal, "External", false, true, false, false, false, []argKind{argNameString, argByteData, argByteData}},
	opStore:            {opStore, "Store", false, false, false, true, false, []argKind{argTermArg, argSuperName}},
	opRefOf:            {opRefOf, "RefOf", false, false, false, false, true, []argKind{argSuperName}},
	opAdd:              {opAdd, "Add", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opConcat:           {opConcat, "Concat", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opSubtract:         {opSubtract, "Subtract", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opIncrement:        {opIncrement, "Increment", false, false, false, false, true, []argKind{argSuperName}},
	opDecrement:        {opDecrement, "Decrement", false, false, false, false, true, []argKind{argSuperName}},
	opMultiply:         {opMultiply, "Multiply", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opDivide:           {opDivide, "Divide", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget, argTarget}},
	opShiftLeft:        {opShiftLeft, "ShiftLeft", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opShiftRight:       {opShiftRight, "ShiftRight", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opAnd:              {opAnd, "And", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opNand:             {opNand, "Nand", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opOr:               {opOr, "Or", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opNor:              {opNor, "Nor", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opXor:              {opXor, "Xor", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opNot:              {opNot, "Not", false, false, false, false, true, []argKind{argTermArg, argTarget}},
	opFindSetLeftBit:   {opFindSetLeftBit, "FindSetLeftBit", false, false, false, false, true, []argKind{argTermArg, argTarget}},
	opFindSetRightBit:  {opFindSetRightBit, "FindSetRightBit", false, false, false, false, true, []argKind{argTermArg, argTarget}},
	opDerefOf:          {opDerefOf, "DerefOf", false, false, false, false, true, []argKind{argTermArg}},
	opConcatRes:        {opConcatRes, "ConcatRes", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opMod:              {opMod, "Mod", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opNotify:           {opNotify, "Notify", false, false, false, true, false, []argKind{argSuperName, argTermArg}},
	opSizeOf:           {opSizeOf, "SizeOf", false, false, false, false, true, []argKind{argSuperName}},
	opIndex:            {opIndex, "Index", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opMatch:            {opMatch, "Match", false, false, false, false, true, []argKind{argTermArg, argByteData, argTermArg, argByteData, argTermArg, argTermArg}},
	opCreateDWordField: {opCreateDWordField, "CreateDWordField", false, true, false, false, false, []argKind{argTermArg, argTermArg, argNameString}},
	opCreateWordField:  {opCreateWordField, "CreateWordField", false, true, false, false, false, []argKind{argTermArg, argTermArg, argNameString}},
	opCreateByteField:  {opCreateByteField, "CreateByteField", false, true, false, false, false, []argKind{argTermArg, argTermArg, argNameString}},
	opCreateBitField:   {opCreateBitField, "CreateBitField", false, true, false, false, false, []argKind{argTermArg, argTermArg, argNameString}},
	opCreateQWordField: {opCreateQWordField, "CreateQWordField", false, true, false, false, false, []argKind{argTermArg, argTermArg, argNameString}},
	opObjectType:       {opObjectType, "ObjectType", false, false, false, false, true, []argKind{argSuperName}},
	opLand:             {opLand, "LAnd", false, false, false, false, true, []argKind{argTermArg, argTermArg}},
	opLor:              {opLor, "LOr", false, false, false, false, true, []argKind{argTermArg, argTermArg}},
	opLnot:             {opLnot, "LNot", false, false, false, false, true, []argKind{argTermArg}},
	opLEqual:           {opLEqual, "LEqual", false, false, false, false, true, []argKind{argTermArg, argTermArg}},
	opLGreater:         {opLGreater, "LGreater", false, false, false, false, true, []argKind{argTermArg, argTermArg}},
	opLLess:            {opLLess, "LLess", false, false, false, false, true, []argKind{argTermArg, argTermArg}},
	opToBuffer:         {opToBuffer, "ToBuffer", false, false, false, false, true, []argKind{argTermArg, argTarget}},
	opToDecimalString:  {opToDecimalString, "ToDecimalString", false, false, false, false, true, []argKind{argTermArg, argTarget}},
	opToHexString:      {opToHexString, "ToHexString", false, false, false, false, true, []argKind{argTermArg, argTarget}},
	opToInteger:        {opToInteger, "ToInteger", false, false, false, false, true, []argKind{argTermArg, argTarget}},
	opToString:         {opToString, "ToString", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTarget}},
	opCopyObject:       {opCopyObject, "CopyObject", false, false, false, true, false, []argKind{argTermArg, argSuperName}},
	opMid:              {opMid, "Mid", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTermArg, argTarget}},
	opContinue:         {opContinue, "Continue", false, false, false, true, false, nil},
	opIf:               {opIf, "If", true, false, true, true, false, []argKind{argTermArg, argTermList}},
	opElse:             {opElse, "Else", true, false, true, true, false, []argKind{argTermList}},
	opWhile:            {opWhile, "While", true, false, true, true, false, []argKind{argTermArg, argTermList}},
	opNoop:             {opNoop, "Noop", false, false, false, true, false, nil},
	opReturn:           {opReturn, "Return", false, false, false, true, false, []argKind{argTermArg}},
	opBreak:            {opBreak, "Break", false, false, false, true, false, nil},
	opBreakPoint:       {opBreakPoint, "BreakPoint", false, false, false, true, false, nil},
	opMutex:            {opMutex, "Mutex", false, true, false, false, false, []argKind{argNameString, argByteData}},
	opEvent:            {opEvent, "Event", false, true, false, false, false, []argKind{argNameString}},
	opCondRefOf:        {opCondRefOf, "CondRefOf", false, false, false, false, true, []argKind{argSuperName, argTarget}},
	opCreateField:      {opCreateField, "CreateField", false, true, false, false, false, []argKind{argTermArg, argTermArg, argTermArg, argNameString}},
	opLoadTable:        {opLoadTable, "LoadTable", false, false, false, false, true, []argKind{argTermArg, argTermArg, argTermArg, argTermArg, argTermArg, argTermArg, argTermArg}},
	opLoad:             {opLoad, "Load", false, false, false, true, false, []argKind{argNameString, argSuperName}},
	opStall:            {opStall, "Stall", false, false, false, true, false, []argKind{argTermArg}},
	opSleep:            {opSleep, "Sleep", false, false, false, true, false, []argKind{argTermArg}},
	opAcquire:          {opAcquire, "Acquire", false, false, false, true, true, []argKind{argSuperName, argWordData}},
	opSignal:           {opSignal, "Signal", false, false, false, true, false, []argKind{argSuperName}},
	opWait:             {opWait, "Wait", false, false, false, false, true, []argKind{argSuperName, argTermArg}},
	opReset:            {opReset, "Reset", false, false, false, true, false, []argKind{argSuperName}},
	opRelease:          {opRelease, "Release", false, false, false, true, false, []argKind{argSuperName}},
	opFromBCD:          {opFromBCD, "FromBCD", false, false, false, false, true, []argKind{argTermArg, argTarget}},
	opToBCD:            {opToBCD, "ToBCD", false, false, false, false, true, []argKind{argTermArg, argTarget}},
	opUnload:           {opUnload, "Unload", false, false, false, true, false, []argKind{argSuperName}},
	opDebug:            {opDebug, "Debug", false, false, false, false, true, nil},
	opFatal:            {opFatal, "Fatal", false, false, false, true, false, []argKind{argByteData, argDwordData, argTermArg}},
	opTimer:            {opTimer, "Timer", false, false, false, false, true, nil},
	opOpRegion:         {opOpRegion, "OpRegion", false, true, false, false, false, []argKind{argNameString, argByteData, argTermArg, argTermArg}},
	opField:            {opField, "Field", true, true, false, false, false, []argKind{argNameString, argByteData, argFieldList}},
	opDevice:           {opDevice, "Device", true, true, true, false, false, []argKind{argNameString, argTermList}},
	opProcessor:        {opProcessor, "Processor", true, true, true, false, false, []argKind{argNameString, argByteData, argDwordData, argByteData, argTermList}},
	opPowerRes:         {opPowerRes, "PowerRes", true, true, true, false, false, []argKind{argNameString, argByteData, argWordData, argTermList}},
	opThermalZone:      {opThermalZone, "ThermalZone", true, true, true, false, false, []argKind{argNameString, argTermList}},
	opIndexField:       {opIndexField, "IndexField", true, true, false, false, false, []argKind{argNameString, argNameString, argByteData, argFieldList}},
	opBankField:        {opBankField, "BankField", true, true, false, false, false, []argKind{argNameString, argNameString, argTermArg, argByteData, argFieldList}},
	opDataRegion:       {opDataRegion, "DataRegion", false, true, false, false, false, []argKind{argNameString, argTermArg, argTermArg, argTermArg}},
}

func init() {
	opcodeTable[opLNotEqual] = &opcodeInfo{opLNotEqual, "LNotEqual", false, false, false, false, true, []argKind{argTermArg, argTermArg}}
	opcodeTable[opLGreaterEqual] = &opcodeInfo{opLGreaterEqual, "LGreaterEqual", false, false, false, false, true, []argKind{argTermArg, argTermArg}}
	opcodeTable[opLLessEqual] = &opcodeInfo{opLLessEqual, "LLessEqual", false, false, false, false, true, []argKind{argTermArg, argTermArg}}
	for i := opLocal0; i <= opLocal7; i++ {
		opcodeTable[i] = &opcodeInfo{i, "Local", false, false, false, false, true, nil}
	}
	for i := opArg0; i <= opArg6; i++ {
		opcodeTable[i] = &opcodeInfo{i, "Arg", false, false, false, false, true, nil}
	}
}

func isLocalOp(op opcode) bool { return op >= opLocal0 && op <= opLocal7 }
func isArgOp(op opcode) bool   { return op >= opArg0 && op <= opArg6 }

// isExpressionOp reports whether op produces a value (DataObject or an
// expression opcode, per spec.md's is_expression_op classifier).
func isExpressionOp(op opcode) bool {
	info := opcodeTable[op]
	return info != nil && info.isExpr
}

// isStatementOp reports whether op is executed for its side effect alone.
func isStatementOp(op opcode) bool {
	info := opcodeTable[op]
	return info != nil && info.isStatement
}

// isNamespaceModifierOp / isNamedObjectOp split the "declares a name" group
// the way spec.md §4.7's declaration pass wants: modifiers (Alias/Name/Scope)
// introduce a name without necessarily creating a full object record, while
// named-object opcodes (Method/Device/OpRegion/...) create one.
func isNamespaceModifierOp(op opcode) bool {
	return op == opAlias || op == opName || op == opScope
}

func isNamedObjectOp(op opcode) bool {
	info := opcodeTable[op]
	return info != nil && info.isNamed && !isNamespaceModifierOp(op)
}

func isDataObjectOp(op opcode) bool {
	switch op {
	case opZero, opOne, opOnes, opRevision, opBytePrefix, opWordPrefix, opDwordPrefix, opQwordPrefix, opStringPrefix, opBuffer, opPackage, opVarPackage:
		return true
	default:
		return false
	}
}
