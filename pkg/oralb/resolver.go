package oralb

import (
	"github.com/srg/oralb/internal/device"
)

// Binding ties a role to the characteristic discovered for it on this connection.
type Binding struct {
	Role Role
	device.CharacteristicInfo
}

// Bindings maps roles to their discovered characteristic. Missing roles are unsupported.
type Bindings map[Role]*Binding

// Get returns the binding for a role, nil when the firmware does not expose it.
func (b Bindings) Get(r Role) *Binding {
	return b[r]
}

// Resolve binds every known role to the first characteristic with a matching UUID,
// in the enumeration order of chars. Unmatched roles are left out.
func Resolve(chars []device.CharacteristicInfo) Bindings {
	bindings := make(Bindings, len(Roles))
	for _, role := range Roles {
		want := role.UUID()
		for _, c := range chars {
			if device.NormalizeUUID(c.UUID) == want {
				bindings[role] = &Binding{Role: role, CharacteristicInfo: c}
				break
			}
		}
	}
	return bindings
}
