package amli

// RegionSpace enumerates the operation-region address spaces of spec.md
// §4.5, grounded on the teacher's entity.go RegionSpace enum and extended
// with the space types entity.go omits (SystemCMOS, PciBarTarget, PCC,
// PlatformRT, OEM-defined).
type RegionSpace byte

const (
	RegionSystemMemory    RegionSpace = 0x00
	RegionSystemIO        RegionSpace = 0x01
	RegionPciConfig       RegionSpace = 0x02
	RegionEmbeddedControl RegionSpace = 0x03
	RegionSMBus           RegionSpace = 0x04
	RegionSystemCMOS      RegionSpace = 0x05
	RegionPciBarTarget    RegionSpace = 0x06
	RegionIPMI            RegionSpace = 0x07
	RegionGeneralPurposeIO RegionSpace = 0x08
	RegionGenericSerialBus RegionSpace = 0x09
	RegionPCC             RegionSpace = 0x0a
	RegionPlatformRT      RegionSpace = 0x0b
	// RegionOEMBase marks the start of the OEM-defined range (spec.md §4.5,
	// "plus OEM-defined >= 0x80").
	RegionOEMBase RegionSpace = 0x80
)

func (s RegionSpace) String() string {
	switch s {
	case RegionSystemMemory:
		return "SystemMemory"
	case RegionSystemIO:
		return "SystemIO"
	case RegionPciConfig:
		return "PciConfig"
	case RegionEmbeddedControl:
		return "EmbeddedControl"
	case RegionSMBus:
		return "SMBus"
	case RegionSystemCMOS:
		return "SystemCMOS"
	case RegionPciBarTarget:
		return "PciBarTarget"
	case RegionIPMI:
		return "IPMI"
	case RegionGeneralPurposeIO:
		return "GeneralPurposeIO"
	case RegionGenericSerialBus:
		return "GenericSerialBus"
	case RegionPCC:
		return "PCC"
	case RegionPlatformRT:
		return "PlatformRT"
	default:
		if s >= RegionOEMBase {
			return "OEMDefined"
		}
		return "Unknown"
	}
}

// isSpecialSpace reports whether a region space has host-defined access
// semantics exempt from the generic bounds check (spec.md §4.5: "except for
// the special space types with host-defined semantics: GenericSerialBus,
// SMBus, IPMI, GPIO").
func (s RegionSpace) isSpecialSpace() bool {
	switch s {
	case RegionGenericSerialBus, RegionSMBus, RegionIPMI, RegionGeneralPurposeIO:
		return true
	default:
		return false
	}
}

// RegionAccessData carries the fixed-shape transfer buffers the special
// region spaces use, per SPEC_FULL.md §C.4 (grounded on
// aml_operation_region.h's AML_REGION_ACCESS_DATA union). A plain Word
// covers the simple spaces (SystemMemory/SystemIO/PciConfig/...).
type RegionAccessData struct {
	Word uint64

	// SMBus: Status + 32-byte payload.
	SMBusStatus byte
	SMBusData   [32]byte

	// IPMI: Status + 64-byte payload.
	IPMIStatus byte
	IPMIData   [64]byte

	// GenericSerialBus: Status + 128-byte payload.
	GSBStatus byte
	GSBData   [128]byte
}

// RegionAccessRoutine is the host-dispatched per-space-type handler
// (spec.md §4.5/§6.1), mirroring aml_operation_region.h's
// AML_REGION_ACCESS_ROUTINE.
type RegionAccessRoutine func(st *State, region *RegionInfo, offset uint64, widthBits int, isWrite bool, data *RegionAccessData) *Error

// regionHandlerRegistration tracks one installed handler, including the
// deferred-broadcast bookkeeping of SPEC_FULL.md §C.2
// (AML_REGION_ACCESS_REGISTRATION.BroadcastPending).
type regionHandlerRegistration struct {
	Routine          RegionAccessRoutine
	Context          interface{}
	BroadcastPending bool
	Enabled          bool
}

// RegisterRegionHandler installs a handler for a region space type and
// broadcasts the change to every `_REG` method in the namespace tree, per
// spec.md §4.5 and §6.2. If the tree hasn't been built yet
// (CompleteInitialLoad not yet run), the broadcast is deferred and flagged
// pending, mirroring SPEC_FULL.md §C.2.
func (st *State) RegisterRegionHandler(space RegionSpace, routine RegionAccessRoutine, ctx interface{}, broadcast bool) *Error {
	st.regionHandlers[space] = &regionHandlerRegistration{Routine: routine, Context: ctx, Enabled: true}
	if !broadcast {
		return nil
	}
	if !st.treeBuilt {
		st.regionHandlers[space].BroadcastPending = true
		return nil
	}
	st.broadcastRegionState(space, true)
	return nil
}

// UnregisterRegionHandler removes a handler and broadcasts disablement.
func (st *State) UnregisterRegionHandler(space RegionSpace, broadcast bool) *Error {
	delete(st.regionHandlers, space)
	if broadcast && st.treeBuilt {
		st.broadcastRegionState(space, false)
	}
	return nil
}

// BroadcastRegionSpaceStateUpdate is the public entry point named in
// spec.md §6.2.
func (st *State) BroadcastRegionSpaceStateUpdate(space RegionSpace, enabled bool) {
	st.broadcastRegionState(space, enabled)
}

// broadcastRegionState walks the namespace tree in depth order, invoking
// `_REG` on every Device that declares it, matching aml_operation_region.c's
// registration broadcast (SPEC_FULL.md §C.2).
func (st *State) broadcastRegionState(space RegionSpace, enabled bool) {
	var walk func(n *NamespaceNode)
	walk = func(n *NamespaceNode) {
		if n == nil {
			return
		}
		if n.object != nil && n.object.Kind == ObjDevice {
			if reg := st.ns.findRelative(n, "_REG", searchFlags{nameCreation: false}); reg != nil && reg.object != nil && reg.object.Kind == ObjMethod {
				enabledVal := uint64(0)
				if enabled {
					enabledVal = 1
				}
				_, _ = st.evaluateMethodObject(reg.object, []Value{IntegerValue(uint64(space)), IntegerValue(enabledVal)})
			}
		}
		for c := n.firstChild; c != nil; c = c.nextSibling {
			walk(c)
		}
	}
	walk(st.ns.root)
}

// runPendingRegionBroadcasts fires any registrations deferred because the
// tree wasn't built yet, called once from CompleteInitialLoad.
func (st *State) runPendingRegionBroadcasts() {
	for space, reg := range st.regionHandlers {
		if reg.BroadcastPending {
			reg.BroadcastPending = false
			st.broadcastRegionState(space, true)
		}
	}
}

// accessRegion performs one field-unit-driven region access: bounds
// validation, width/BufferAcc checks, handler lookup, and dispatch, per
// spec.md §4.5's "Read/write routine" paragraph.
func (st *State) accessRegion(region *RegionInfo, bitOffset uint64, bitWidth int, accessType FieldAccessType, isWrite bool, data *RegionAccessData) *Error {
	widthBits := accessWidthBits(accessType, bitWidth)

	if !region.Space.isSpecialSpace() {
		if accessType == FieldAccessBuffer {
			return errUnsupportedAccess
		}
		if widthBits != 8 && widthBits != 16 && widthBits != 32 && widthBits != 64 {
			return errUnsupportedAccess
		}
		byteOffset := bitOffset / 8
		byteLen := uint64(widthBits / 8)
		if byteOffset+byteLen > region.Length {
			return errRegionOutOfBounds
		}
	}

	reg, ok := st.regionHandlers[region.Space]
	if !ok || reg.Routine == nil {
		return defaultNullRegionHandler(st, region, bitOffset/8, widthBits, isWrite, data)
	}
	return reg.Routine(st, region, bitOffset/8, widthBits, isWrite, data)
}

// accessWidthBits resolves AnyAcc to the narrowest power-of-two width that
// can cover bitWidth, and maps the fixed access types to their bit widths.
func accessWidthBits(t FieldAccessType, bitWidth int) int {
	switch t {
	case FieldAccessByte:
		return 8
	case FieldAccessWord:
		return 16
	case FieldAccessDWord:
		return 32
	case FieldAccessQWord:
		return 64
	case FieldAccessBuffer:
		return bitWidth
	default: // AnyAcc: narrowest width covering the field
		switch {
		case bitWidth <= 8:
			return 8
		case bitWidth <= 16:
			return 16
		case bitWidth <= 32:
			return 32
		default:
			return 64
		}
	}
}

// defaultNullRegionHandler logs and succeeds, per spec.md §4.5: "Other space
// types default to a null handler that logs and succeeds."
func defaultNullRegionHandler(st *State, region *RegionInfo, byteOffset uint64, widthBits int, isWrite bool, data *RegionAccessData) *Error {
	if st.Diag != nil {
		verb := "read"
		if isWrite {
			verb = "write"
		}
		_, _ = st.Diag.Write([]byte(noopRegionLogLine(region.Space, verb, byteOffset, widthBits)))
	}
	return nil
}

func noopRegionLogLine(space RegionSpace, verb string, offset uint64, widthBits int) string {
	return "amli: unhandled " + space.String() + " " + verb + " (no registered handler)\n"
}

// defaultSystemMemoryHandler services SystemMemory regions via the mapped
// virtual base (spec.md §4.5).
func defaultSystemMemoryHandler(st *State, region *RegionInfo, offset uint64, widthBits int, isWrite bool, data *RegionAccessData) *Error {
	if !region.mapped {
		base, err := st.Host.MemoryMap(uintptr(region.Offset), uintptr(region.Length))
		if err != nil {
			return errHostMapFailed
		}
		region.mapped = true
		region.mappedBase = base
	}
	addr := region.mappedBase + uintptr(offset)
	if isWrite {
		st.Host.MMIOWrite(addr, widthBits, data.Word)
		return nil
	}
	data.Word = st.Host.MMIORead(addr, widthBits)
	return nil
}

// defaultSystemIOHandler services SystemIO regions via host port I/O.
func defaultSystemIOHandler(st *State, region *RegionInfo, offset uint64, widthBits int, isWrite bool, data *RegionAccessData) *Error {
	port := uint16(region.Offset + offset)
	if isWrite {
		st.Host.PortWrite(port, widthBits, uint32(data.Word))
		return nil
	}
	data.Word = uint64(st.Host.PortRead(port, widthBits))
	return nil
}

// defaultPciConfigHandler services PciConfig regions after resolving the
// current bus number by walking the PCI bridge chain from the host bridge,
// per spec.md §4.5 and SPEC_FULL.md §C.3. A region without PCI routing
// info (RegionInfo.pci nil, as on every region the declaration pass
// creates) fails with errIncompletePCIInfo.
func defaultPciConfigHandler(st *State, region *RegionInfo, offset uint64, widthBits int, isWrite bool, data *RegionAccessData) *Error {
	if region.pci == nil {
		return errIncompletePCIInfo
	}
	bus, err := st.resolvePCIBus(region.pci)
	if err != nil {
		return err
	}
	addr := PCIAddress{Segment: region.pci.Segment, Bus: bus, Device: region.pci.Device, Function: region.pci.Function, Offset: uint32(region.Offset + offset)}
	if isWrite {
		st.Host.PCIConfigWrite(addr, widthBits, data.Word)
		return nil
	}
	data.Word = st.Host.PCIConfigRead(addr, widthBits)
	return nil
}

// resolvePCIBus walks each intermediate bridge's secondary-bus register,
// starting from bus 0 at the host bridge, per aml_pci.c (SPEC_FULL.md §C.3).
func (st *State) resolvePCIBus(info *PCIRegionInfo) (byte, *Error) {
	bus := byte(0)
	for _, hop := range info.BridgePath {
		addr := PCIAddress{Segment: info.Segment, Bus: bus, Device: hop.Device, Function: hop.Function, Offset: pciBridgeSecondaryBusOffset}
		secondary := st.Host.PCIConfigRead(addr, 8)
		bus = byte(secondary)
	}
	return bus, nil
}

// pciBridgeSecondaryBusOffset is the standard PCI-to-PCI bridge
// configuration-space offset of the secondary bus number register.
const pciBridgeSecondaryBusOffset = 0x19

// PCIAddress identifies one PCI configuration-space register, keyed the way
// spec.md §6.1 describes: "(segment, bus, device, function) + offset".
type PCIAddress struct {
	Segment  uint16
	Bus      byte
	Device   byte
	Function byte
	Offset   uint32
}

func registerDefaultRegionHandlers(st *State) {
	st.regionHandlers[RegionSystemMemory] = &regionHandlerRegistration{Routine: defaultSystemMemoryHandler, Enabled: true}
	st.regionHandlers[RegionSystemIO] = &regionHandlerRegistration{Routine: defaultSystemIOHandler, Enabled: true}
	st.regionHandlers[RegionPciConfig] = &regionHandlerRegistration{Routine: defaultPciConfigHandler, Enabled: true}
}
