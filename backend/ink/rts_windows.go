//go:build windows

package ink

import (
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

// Tablet PC COM identities, from the RealTimeStylus headers.
var (
	clsidRealTimeStylus   = ole.NewGUID("{E26B366D-F998-43CE-836F-CB6D904432B0}")
	iidIRealTimeStylus    = ole.NewGUID("{A8BB5D22-3144-4A7B-93CD-F34A16BE513A}")
	iidIStylusPlugin      = ole.NewGUID("{A81436D8-4757-4FD1-A185-133F97C6C545}")
	iidIStylusAsyncPlugin = ole.NewGUID("{A7CCA85A-31BC-4CD2-AADC-3289A3AF11C8}")
	iidIMarshal           = ole.NewGUID("{00000003-0000-0000-C000-000000000046}")
)

const (
	hrOK          = 0
	hrNoInterface = 0x80004002
)

var (
	modole32                          = windows.NewLazySystemDLL("ole32.dll")
	procCoCreateFreeThreadedMarshaler = modole32.NewProc("CoCreateFreeThreadedMarshaler")

	moduser32            = windows.NewLazySystemDLL("user32.dll")
	procGetDpiForWindow  = moduser32.NewProc("GetDpiForWindow")
	procGetDpiForSystem  = moduser32.NewProc("GetDpiForSystem")
)

// windowDPI reports the dots per inch the window renders at, falling
// back to the system DPI and then the historical default of 96. The
// DPI procs are missing before Windows 10 1607.
func windowDPI(hwnd uintptr) float32 {
	if hwnd != 0 && procGetDpiForWindow.Find() == nil {
		if dpi, _, _ := procGetDpiForWindow.Call(hwnd); dpi != 0 {
			return float32(dpi)
		}
	}
	if procGetDpiForSystem.Find() == nil {
		if dpi, _, _ := procGetDpiForSystem.Call(); dpi != 0 {
			return float32(dpi)
		}
	}
	return 96
}

// propertyMetrics mirrors the PROPERTY_METRICS packet property layout.
type propertyMetrics struct {
	LogicalMin int32
	LogicalMax int32
	Units      int32
	Resolution float32
}

// packetProperty mirrors PACKET_PROPERTY.
type packetProperty struct {
	GUID    ole.GUID
	Metrics propertyMetrics
}

// stylusInfo mirrors the StylusInfo struct packet callbacks receive.
type stylusInfo struct {
	TCID     uint32
	CID      uint32
	Inverted int32
}

// rtsVtbl is the IRealTimeStylus vtable, in declaration order.
type rtsVtbl struct {
	ole.IUnknownVtbl
	GetEnabled                   uintptr
	PutEnabled                   uintptr
	GetHWND                      uintptr
	PutHWND                      uintptr
	GetWindowInputRectangle      uintptr
	PutWindowInputRectangle      uintptr
	AddStylusSyncPlugin          uintptr
	RemoveStylusSyncPlugin       uintptr
	RemoveAllStylusSyncPlugins   uintptr
	GetStylusSyncPlugin          uintptr
	GetStylusSyncPluginCount     uintptr
	AddStylusAsyncPlugin         uintptr
	RemoveStylusAsyncPlugin      uintptr
	RemoveAllStylusAsyncPlugins  uintptr
	GetStylusAsyncPlugin         uintptr
	GetStylusAsyncPluginCount    uintptr
	GetChildRealTimeStylusPlugin uintptr
	PutChildRealTimeStylusPlugin uintptr
	ClearStylusQueues            uintptr
	SetAllTabletsMode            uintptr
	SetSingleTabletMode          uintptr
	GetTablet                    uintptr
	GetTabletContextIDFromTablet uintptr
	GetTabletFromTabletContextID uintptr
	GetTabletContextIDs          uintptr
	GetPacketDescriptionData     uintptr
	GetStyluses                  uintptr
	GetStylusForID               uintptr
	SetDesiredPacketDescription  uintptr
	GetDesiredPacketDescription  uintptr
	GetHotRegionIDs              uintptr
	SetHotRegionIDs              uintptr
}

// realTimeStylus wraps the IRealTimeStylus COM interface.
type realTimeStylus struct {
	unk *ole.IUnknown
}

func createRealTimeStylus() (*realTimeStylus, error) {
	unk, err := ole.CreateInstance(clsidRealTimeStylus, iidIRealTimeStylus)
	if err != nil {
		return nil, err
	}
	return &realTimeStylus{unk: unk}, nil
}

func (r *realTimeStylus) vtbl() *rtsVtbl {
	return (*rtsVtbl)(unsafe.Pointer(r.unk.RawVTable))
}

func (r *realTimeStylus) call(method uintptr, args ...uintptr) error {
	full := append([]uintptr{uintptr(unsafe.Pointer(r.unk))}, args...)
	hr, _, _ := syscall.SyscallN(method, full...)
	if hr != hrOK {
		return ole.NewError(hr)
	}
	return nil
}

func (r *realTimeStylus) release() {
	if r.unk != nil {
		r.unk.Release()
		r.unk = nil
	}
}

func boolArg(v bool) uintptr {
	if v {
		return 1
	}
	return 0
}

func (r *realTimeStylus) putEnabled(on bool) error {
	return r.call(r.vtbl().PutEnabled, boolArg(on))
}

func (r *realTimeStylus) putHWND(hwnd uintptr) error {
	return r.call(r.vtbl().PutHWND, hwnd)
}

// setAllTabletsMode enables every attached digitizer; mouseToo also
// routes synthesized mouse packets through the stylus queues.
func (r *realTimeStylus) setAllTabletsMode(mouseToo bool) error {
	return r.call(r.vtbl().SetAllTabletsMode, boolArg(mouseToo))
}

func (r *realTimeStylus) addAsyncPlugin(index uint32, plugin unsafe.Pointer) error {
	return r.call(r.vtbl().AddStylusAsyncPlugin, uintptr(index), uintptr(plugin))
}

// setDesiredPacketDescription asks for the property layout in guids.
// Tablets report the subset they support, in this order.
func (r *realTimeStylus) setDesiredPacketDescription(guids []ole.GUID) error {
	return r.call(r.vtbl().SetDesiredPacketDescription,
		uintptr(len(guids)), uintptr(unsafe.Pointer(&guids[0])))
}

// tabletContextIDs lists the contexts of every attached tablet.
func (r *realTimeStylus) tabletContextIDs() ([]uint32, error) {
	var count uint32
	var raw *uint32
	err := r.call(r.vtbl().GetTabletContextIDs,
		uintptr(unsafe.Pointer(&count)), uintptr(unsafe.Pointer(&raw)))
	if err != nil {
		return nil, err
	}
	if raw == nil || count == 0 {
		return nil, nil
	}
	out := make([]uint32, count)
	copy(out, unsafe.Slice(raw, count))
	windows.CoTaskMemFree(unsafe.Pointer(raw))
	return out, nil
}

// packetDescription reports the packet property layout one tablet
// actually supports, plus the ink-space scale factors.
func (r *realTimeStylus) packetDescription(tcid uint32) ([]packetProperty, error) {
	var scaleX, scaleY float32
	var count uint32
	var raw *packetProperty
	err := r.call(r.vtbl().GetPacketDescriptionData, uintptr(tcid),
		uintptr(unsafe.Pointer(&scaleX)), uintptr(unsafe.Pointer(&scaleY)),
		uintptr(unsafe.Pointer(&count)), uintptr(unsafe.Pointer(&raw)))
	if err != nil {
		return nil, err
	}
	if raw == nil || count == 0 {
		return nil, nil
	}
	out := make([]packetProperty, count)
	copy(out, unsafe.Slice(raw, count))
	windows.CoTaskMemFree(unsafe.Pointer(raw))
	return out, nil
}

// tablet returns the IInkTablet behind a context id as an IDispatch,
// for the automation properties (Name, PlugAndPlayId).
func (r *realTimeStylus) tablet(tcid uint32) (*ole.IDispatch, error) {
	var unk *ole.IUnknown
	err := r.call(r.vtbl().GetTabletFromTabletContextID,
		uintptr(tcid), uintptr(unsafe.Pointer(&unk)))
	if err != nil {
		return nil, err
	}
	if unk == nil {
		return nil, ole.NewError(hrNoInterface)
	}
	disp, err := unk.QueryInterface(ole.IID_IDispatch)
	unk.Release()
	return disp, err
}
