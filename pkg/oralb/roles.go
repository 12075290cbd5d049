package oralb

import (
	"fmt"

	"github.com/srg/oralb/internal/device"
)

// Role is the semantic function of a vendor characteristic.
type Role int

const (
	RoleModelID Role = iota
	RoleStatus
	RoleBattery
	RoleMode
	RoleBrushingTime
	RoleControl
	RoleClock
	RoleAvailableModes
	RoleSessionInfo
)

// Roles lists every role in resolution order.
var Roles = []Role{
	RoleModelID,
	RoleStatus,
	RoleBattery,
	RoleMode,
	RoleBrushingTime,
	RoleControl,
	RoleClock,
	RoleAvailableModes,
	RoleSessionInfo,
}

// vendorUUID expands a 16-bit vendor short id onto the a0f0xxxx-5047-4d53-8208-4f72616c2d42 base.
func vendorUUID(short uint16) string {
	return device.NormalizeUUID(fmt.Sprintf("a0f0%04x-5047-4d53-8208-4f72616c2d42", short))
}

var roleInfo = map[Role]struct {
	name string
	uuid string
}{
	RoleModelID:        {"model_id", vendorUUID(0xff02)},
	RoleStatus:         {"status", vendorUUID(0xff04)},
	RoleBattery:        {"battery", vendorUUID(0xff05)},
	RoleMode:           {"mode", vendorUUID(0xff07)},
	RoleBrushingTime:   {"brushing_time", vendorUUID(0xff08)},
	RoleControl:        {"control", vendorUUID(0xff21)},
	RoleClock:          {"clock", vendorUUID(0xff22)},
	RoleAvailableModes: {"available_modes", vendorUUID(0xff25)},
	RoleSessionInfo:    {"session_info", vendorUUID(0xff29)},
}

func (r Role) String() string {
	if info, ok := roleInfo[r]; ok {
		return info.name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// UUID returns the normalized characteristic UUID bound to the role.
func (r Role) UUID() string {
	return roleInfo[r].uuid
}
