package zaber

import "fmt"

// ReplyError is returned when the device answers a request with an Error reply
type ReplyError struct {
	Request Command
	Code    int32
}

func (e *ReplyError) Error() string {
	info, ok := deviceErrors[e.Code]
	if !ok {
		return fmt.Sprintf("%s failed: device error %d", e.Request, e.Code)
	}
	return fmt.Sprintf("%s failed: device error %d (%s): %s", e.Request, e.Code, info.name, info.description)
}

// Name is the short name of the device error code
func (e *ReplyError) Name() string {
	return deviceErrors[e.Code].name
}

type errorInfo struct {
	name        string
	description string
}

var deviceErrors = map[int32]errorInfo{
	1:    {"Cannot home", "Device has traveled a long distance without triggering the home sensor. Device may be stalling or slipping."},
	2:    {"Device number invalid", "Renumbering data out of range."},
	14:   {"Voltage low", "Power supply voltage too low."},
	15:   {"Voltage high", "Power supply voltage too high."},
	18:   {"Stored position invalid", "The position stored in the requested register is no longer valid."},
	20:   {"Absolute position invalid", "Move Absolute target position out of range."},
	21:   {"Relative position invalid", "Move Relative target position out of range."},
	22:   {"Velocity invalid", "Constant velocity move velocity out of range."},
	36:   {"Peripheral ID invalid", "Restore Settings peripheral id is invalid."},
	37:   {"Resolution invalid", "Microstep resolution may only be 1, 2, 4, 8, 16, 32, 64 or 128."},
	38:   {"Run current invalid", "Run current out of range."},
	39:   {"Hold current invalid", "Hold current out of range."},
	40:   {"Mode invalid", "One or more of the device mode bits is invalid."},
	41:   {"Home speed invalid", "Home speed out of range for the current resolution."},
	42:   {"Speed invalid", "Target speed out of range for the current resolution."},
	43:   {"Acceleration invalid", "Target acceleration out of range for the current resolution."},
	44:   {"Maximum range invalid", "Maximum range must be between 1 and 16,777,215."},
	45:   {"Current position invalid", "Current position must be between 0 and the maximum range."},
	46:   {"Maximum relative move invalid", "Maximum relative move must be between 0 and 16,777,215."},
	47:   {"Offset invalid", "Home offset must be between 0 and the maximum range."},
	48:   {"Alias invalid", "Alias out of range."},
	49:   {"Lock state invalid", "Lock state must be 1 (locked) or 0 (unlocked)."},
	53:   {"Setting invalid", "Return Setting data is not a valid setting command number."},
	64:   {"Command invalid", "Command number not valid in this firmware version."},
	255:  {"Busy", "Another command is executing and cannot be pre-empted."},
	1600: {"Save position invalid", "Save Current Position register out of range (must be 0-15)."},
	1601: {"Save position not homed", "Save Current Position is not allowed unless the device has been homed."},
	1700: {"Return position invalid", "Return Stored Position register out of range (must be 0-15)."},
	1800: {"Move position invalid", "Move to Stored Position register out of range (must be 0-15)."},
	1801: {"Move position not homed", "Move to Stored Position is not allowed unless the device has been homed."},
	2146: {"Relative position limited", "Move Relative exceeded the maximum relative move range."},
	3600: {"Settings locked", "Lock State must be cleared first."},
	4008: {"Disable auto home invalid", "Disable Auto Home is used for rotary actuators only."},
	4010: {"Bit 10 invalid", "Device mode bit 10 is reserved and must be 0."},
	4012: {"Home switch invalid", "Device mode bit 12 cannot be changed on this device."},
	4013: {"Bit 13 invalid", "Device mode bit 13 is reserved and must be 0."},
}
