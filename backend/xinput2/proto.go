package xinput2

// Core protocol opcodes used during setup.
const (
	opInternAtom     = 16
	opGetProperty    = 20
	opQueryExtension = 98
)

// extName is the canonical extension name announced by the server.
const extName = "XInputExtension"

// XInput extension minor opcodes.
const (
	xiSelectEvents = 46
	xiQueryVersion = 47
	xiQueryDevice  = 48
	xiGetProperty  = 59
)

// Device ids with special meaning in XISelectEvents and XIQueryDevice.
const (
	xiAllDevices       = 0
	xiAllMasterDevices = 1
)

// XI2 event types, doubling as mask bit positions.
const (
	xiDeviceChanged    = 1
	xiButtonPress      = 4
	xiButtonRelease    = 5
	xiMotion           = 6
	xiHierarchyChanged = 11
	xiPropertyEvent    = 12
)

// Device use field of XIDeviceInfo.
const (
	useMasterPointer  = 1
	useMasterKeyboard = 2
	useSlavePointer   = 3
	useSlaveKeyboard  = 4
	useFloatingSlave  = 5
)

// Input class types inside an XIDeviceInfo.
const (
	classKey      = 0
	classButton   = 1
	classValuator = 2
)

// Core wire message kinds, from the first byte.
const (
	msgError        = 0
	msgReply        = 1
	msgGenericEvent = 35
)

// Valuator label atoms are interned by name; these are the labels the
// evdev, libinput and wacom drivers attach to tablet axes.
const (
	labelPressure  = "Abs Pressure"
	labelTiltX     = "Abs Tilt X"
	labelTiltY     = "Abs Tilt Y"
	labelDistance  = "Abs Distance"
	labelWheel     = "Abs Wheel"
	labelRotationZ = "Abs Rotary Z"
)

// Device properties consulted during classification.
const (
	propWacomToolType = "Wacom Tool Type"
	propProductID     = "Device Product ID"
)

// Wacom tool type atom names, the values of propWacomToolType.
const (
	wacomTypeStylus = "STYLUS"
	wacomTypeEraser = "ERASER"
	wacomTypeCursor = "CURSOR"
	wacomTypePad    = "PAD"
	wacomTypeTouch  = "TOUCH"
)
