package wayland

// Interface names tracked in the object table. Only the slice of the
// protocol this backend binds is listed.
const (
	ifDisplay    = "wl_display"
	ifRegistry   = "wl_registry"
	ifCallback   = "wl_callback"
	ifSeat       = "wl_seat"
	ifTabletMgr  = "zwp_tablet_manager_v2"
	ifTabletSeat = "zwp_tablet_seat_v2"
	ifTablet     = "zwp_tablet_v2"
	ifTool       = "zwp_tablet_tool_v2"
	ifPad        = "zwp_tablet_pad_v2"
	ifGroup      = "zwp_tablet_pad_group_v2"
	ifRing       = "zwp_tablet_pad_ring_v2"
	ifStrip      = "zwp_tablet_pad_strip_v2"
)

// wl_display requests and events.
const (
	displayObject uint32 = 1

	reqDisplaySync        = 0
	reqDisplayGetRegistry = 1

	evtDisplayError    = 0
	evtDisplayDeleteID = 1
)

// wl_registry.
const (
	reqRegistryBind = 0

	evtRegistryGlobal       = 0
	evtRegistryGlobalRemove = 1
)

// wl_callback.
const evtCallbackDone = 0

// zwp_tablet_manager_v2.
const reqMgrGetTabletSeat = 0

// zwp_tablet_seat_v2 events: each announces a new object.
const (
	evtSeatTabletAdded = 0
	evtSeatToolAdded   = 1
	evtSeatPadAdded    = 2
)

// zwp_tablet_v2 events.
const (
	evtTabletName    = 0
	evtTabletID      = 1
	evtTabletPath    = 2
	evtTabletDone    = 3
	evtTabletRemoved = 4
)

// zwp_tablet_tool_v2 events.
const (
	evtToolType           = 0
	evtToolHardwareSerial = 1
	evtToolHardwareWacom  = 2
	evtToolCapability     = 3
	evtToolDone           = 4
	evtToolRemoved        = 5
	evtToolProximityIn    = 6
	evtToolProximityOut   = 7
	evtToolDown           = 8
	evtToolUp             = 9
	evtToolMotion         = 10
	evtToolPressure       = 11
	evtToolDistance       = 12
	evtToolTilt           = 13
	evtToolRotation       = 14
	evtToolSlider         = 15
	evtToolWheel          = 16
	evtToolButton         = 17
	evtToolFrame          = 18
)

// zwp_tablet_tool_v2.type values.
const (
	wlToolPen      = 0x140
	wlToolEraser   = 0x141
	wlToolBrush    = 0x142
	wlToolPencil   = 0x143
	wlToolAirbrush = 0x144
	wlToolFinger   = 0x145
	wlToolMouse    = 0x146
	wlToolLens     = 0x147
)

// zwp_tablet_tool_v2.capability values.
const (
	wlCapTilt     = 1
	wlCapPressure = 2
	wlCapDistance = 3
	wlCapRotation = 4
	wlCapSlider   = 5
	wlCapWheel    = 6
)

// zwp_tablet_pad_v2 events.
const (
	evtPadGroup   = 0
	evtPadPath    = 1
	evtPadButtons = 2
	evtPadDone    = 3
	evtPadButton  = 4
	evtPadEnter   = 5
	evtPadLeave   = 6
	evtPadRemoved = 7
)

// zwp_tablet_pad_group_v2 events.
const (
	evtGroupButtons    = 0
	evtGroupRing       = 1
	evtGroupStrip      = 2
	evtGroupModes      = 3
	evtGroupDone       = 4
	evtGroupModeSwitch = 5
)

// zwp_tablet_pad_ring_v2 / zwp_tablet_pad_strip_v2 events. The two
// interfaces share a shape.
const (
	evtDialSource = 0
	evtDialValue  = 1 // ring: angle in degrees; strip: position 0..65535
	evtDialStop   = 2
	evtDialFrame  = 3
)

// source values for rings and strips.
const wlSourceFinger = 1
