//go:build windows

package ink

import (
	"sync/atomic"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
)

// RealTimeStylusDataInterest flags.
const (
	rtsdiError                  = 1 << 0
	rtsdiRealTimeStylusEnabled  = 1 << 1
	rtsdiRealTimeStylusDisabled = 1 << 2
	rtsdiStylusNew              = 1 << 3
	rtsdiStylusInRange          = 1 << 4
	rtsdiInAirPackets           = 1 << 5
	rtsdiStylusOutOfRange       = 1 << 6
	rtsdiStylusDown             = 1 << 7
	rtsdiPackets                = 1 << 8
	rtsdiStylusUp               = 1 << 9
	rtsdiStylusButtonUp         = 1 << 10
	rtsdiStylusButtonDown       = 1 << 11
	rtsdiTabletAdded            = 1 << 13
	rtsdiTabletRemoved          = 1 << 14
	rtsdiUpdateMapping          = 1 << 16
)

// interestMask lists the callbacks the plugin consumes. In-range is
// implicit in packet handling; everything else stays off the queue.
const interestMask = rtsdiError |
	rtsdiRealTimeStylusEnabled | rtsdiRealTimeStylusDisabled |
	rtsdiTabletAdded | rtsdiTabletRemoved |
	rtsdiStylusOutOfRange |
	rtsdiInAirPackets | rtsdiPackets |
	rtsdiStylusDown | rtsdiStylusUp |
	rtsdiStylusButtonUp | rtsdiStylusButtonDown |
	rtsdiUpdateMapping

// pluginVtbl is the IStylusAsyncPlugin vtable, in declaration order.
type pluginVtbl struct {
	ole.IUnknownVtbl
	RealTimeStylusEnabled  uintptr
	RealTimeStylusDisabled uintptr
	StylusInRange          uintptr
	StylusOutOfRange       uintptr
	StylusDown             uintptr
	StylusUp               uintptr
	StylusButtonDown       uintptr
	StylusButtonUp         uintptr
	InAirPackets           uintptr
	Packets                uintptr
	CustomStylusDataAdded  uintptr
	SystemEvent            uintptr
	TabletAdded            uintptr
	TabletRemoved          uintptr
	Error                  uintptr
	UpdateMapping          uintptr
	DataInterest           uintptr
}

// plugin is the Go-implemented COM object handed to the stylus. The
// vtable pointer must stay the first field; COM reads it through the
// object pointer. Marshaling across apartments is delegated to an
// aggregated free-threaded marshaler so callbacks arrive directly on
// the stylus thread.
type plugin struct {
	lpVtbl  *pluginVtbl
	refs    int32
	ftm     *ole.IUnknown
	backend *Backend
}

// The callback trampolines are process-global; syscall.NewCallback
// allocations are never released.
var stylusPluginVtbl = pluginVtbl{
	IUnknownVtbl: ole.IUnknownVtbl{
		QueryInterface: syscall.NewCallback(pluginQueryInterface),
		AddRef:         syscall.NewCallback(pluginAddRef),
		Release:        syscall.NewCallback(pluginRelease),
	},
	RealTimeStylusEnabled:  syscall.NewCallback(pluginEnabled),
	RealTimeStylusDisabled: syscall.NewCallback(pluginDisabled),
	StylusInRange:          syscall.NewCallback(pluginStylusInRange),
	StylusOutOfRange:       syscall.NewCallback(pluginStylusOutOfRange),
	StylusDown:             syscall.NewCallback(pluginStylusDown),
	StylusUp:               syscall.NewCallback(pluginStylusUp),
	StylusButtonDown:       syscall.NewCallback(pluginStylusButtonDown),
	StylusButtonUp:         syscall.NewCallback(pluginStylusButtonUp),
	InAirPackets:           syscall.NewCallback(pluginInAirPackets),
	Packets:                syscall.NewCallback(pluginPackets),
	CustomStylusDataAdded:  syscall.NewCallback(pluginCustomData),
	SystemEvent:            syscall.NewCallback(pluginSystemEvent),
	TabletAdded:            syscall.NewCallback(pluginTabletAdded),
	TabletRemoved:          syscall.NewCallback(pluginTabletRemoved),
	Error:                  syscall.NewCallback(pluginError),
	UpdateMapping:          syscall.NewCallback(pluginUpdateMapping),
	DataInterest:           syscall.NewCallback(pluginDataInterest),
}

func newPlugin(b *Backend) (*plugin, error) {
	p := &plugin{lpVtbl: &stylusPluginVtbl, refs: 1, backend: b}
	hr, _, _ := procCoCreateFreeThreadedMarshaler.Call(
		uintptr(unsafe.Pointer(p)), uintptr(unsafe.Pointer(&p.ftm)))
	if hr != hrOK {
		return nil, ole.NewError(hr)
	}
	return p, nil
}

func (p *plugin) comPointer() unsafe.Pointer { return unsafe.Pointer(p) }

func pluginQueryInterface(this *plugin, iid *ole.GUID, out *unsafe.Pointer) uintptr {
	if out == nil {
		return hrNoInterface
	}
	switch {
	case ole.IsEqualGUID(iid, ole.IID_IUnknown),
		ole.IsEqualGUID(iid, iidIStylusPlugin),
		ole.IsEqualGUID(iid, iidIStylusAsyncPlugin):
		atomic.AddInt32(&this.refs, 1)
		*out = unsafe.Pointer(this)
		return hrOK
	case ole.IsEqualGUID(iid, iidIMarshal):
		vt := (*ole.IUnknownVtbl)(unsafe.Pointer(this.ftm.RawVTable))
		hr, _, _ := syscall.SyscallN(vt.QueryInterface,
			uintptr(unsafe.Pointer(this.ftm)),
			uintptr(unsafe.Pointer(iid)),
			uintptr(unsafe.Pointer(out)))
		return hr
	default:
		*out = nil
		return hrNoInterface
	}
}

func pluginAddRef(this *plugin) uintptr {
	return uintptr(atomic.AddInt32(&this.refs, 1))
}

func pluginRelease(this *plugin) uintptr {
	n := atomic.AddInt32(&this.refs, -1)
	if n == 0 && this.ftm != nil {
		this.ftm.Release()
		this.ftm = nil
	}
	return uintptr(n)
}

func pluginDataInterest(this *plugin, out *uint32) uintptr {
	if out == nil {
		return hrNoInterface
	}
	*out = interestMask
	return hrOK
}

func pluginEnabled(this *plugin, rts uintptr, count uint32, tcids *uint32) uintptr {
	defer this.backend.recoverPoison()
	var ids []uint32
	if tcids != nil && count > 0 {
		ids = unsafe.Slice(tcids, count)
	}
	this.backend.stylusEnabled(ids)
	return hrOK
}

func pluginDisabled(this *plugin, rts uintptr, count uint32, tcids *uint32) uintptr {
	defer this.backend.recoverPoison()
	this.backend.stylusDisabled()
	return hrOK
}

func pluginStylusInRange(this *plugin, rts uintptr, tcid, sid uint32) uintptr {
	return hrOK
}

func pluginStylusOutOfRange(this *plugin, rts uintptr, tcid, sid uint32) uintptr {
	defer this.backend.recoverPoison()
	this.backend.stylusOutOfRange(tcid, sid)
	return hrOK
}

func pluginStylusDown(this *plugin, rts uintptr, info *stylusInfo, propCount uint32, packet *int32, inOut **int32) uintptr {
	defer this.backend.recoverPoison()
	if info != nil && packet != nil {
		this.backend.handlePackets(*info, unsafe.Slice(packet, propCount), true)
	}
	return hrOK
}

func pluginStylusUp(this *plugin, rts uintptr, info *stylusInfo, propCount uint32, packet *int32, inOut **int32) uintptr {
	defer this.backend.recoverPoison()
	if info != nil && packet != nil {
		this.backend.handleStylusUp(*info, unsafe.Slice(packet, propCount))
	}
	return hrOK
}

func pluginStylusButtonDown(this *plugin, rts uintptr, sid uint32, guid *ole.GUID, pos uintptr) uintptr {
	defer this.backend.recoverPoison()
	this.backend.stylusButton(sid, true)
	return hrOK
}

func pluginStylusButtonUp(this *plugin, rts uintptr, sid uint32, guid *ole.GUID, pos uintptr) uintptr {
	defer this.backend.recoverPoison()
	this.backend.stylusButton(sid, false)
	return hrOK
}

func pluginInAirPackets(this *plugin, rts uintptr, info *stylusInfo, pktCount, wordCount uint32, pkts *int32, outCount *uint32, outPkts uintptr) uintptr {
	defer this.backend.recoverPoison()
	if info != nil && pkts != nil {
		this.backend.handlePackets(*info, unsafe.Slice(pkts, wordCount), false)
	}
	return hrOK
}

func pluginPackets(this *plugin, rts uintptr, info *stylusInfo, pktCount, wordCount uint32, pkts *int32, outCount *uint32, outPkts uintptr) uintptr {
	defer this.backend.recoverPoison()
	if info != nil && pkts != nil {
		this.backend.handlePackets(*info, unsafe.Slice(pkts, wordCount), true)
	}
	return hrOK
}

func pluginCustomData(this *plugin, rts uintptr, guid *ole.GUID, count uint32, data uintptr) uintptr {
	return hrOK
}

func pluginSystemEvent(this *plugin, rts uintptr, tcid, sid uint32, event uint16, eventData uintptr) uintptr {
	return hrOK
}

func pluginTabletAdded(this *plugin, rts uintptr, tablet *ole.IUnknown) uintptr {
	defer this.backend.recoverPoison()
	this.backend.tabletAdded(tablet)
	return hrOK
}

func pluginTabletRemoved(this *plugin, rts uintptr, index int32) uintptr {
	defer this.backend.recoverPoison()
	this.backend.tabletRemoved(index)
	return hrOK
}

func pluginError(this *plugin, rts uintptr, source uintptr, dataInterest int32, hr int32, key *uintptr) uintptr {
	defer this.backend.recoverPoison()
	this.backend.stylusError(hr)
	return hrOK
}

func pluginUpdateMapping(this *plugin, rts uintptr) uintptr {
	defer this.backend.recoverPoison()
	this.backend.updateMapping()
	return hrOK
}
