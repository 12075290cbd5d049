package device

import "strings"

// Property is the characteristic properties bitmask as declared in the GATT characteristic declaration.
type Property uint8

const (
	PropBroadcast Property = 1 << iota
	PropRead
	PropWriteWithoutResponse
	PropWrite
	PropNotify
	PropIndicate
	PropAuthenticatedSignedWrites
	PropExtendedProperties
)

var propertyNames = []struct {
	p    Property
	name string
}{
	{PropBroadcast, "Broadcast"},
	{PropRead, "Read"},
	{PropWriteWithoutResponse, "WriteWithoutResponse"},
	{PropWrite, "Write"},
	{PropNotify, "Notify"},
	{PropIndicate, "Indicate"},
	{PropAuthenticatedSignedWrites, "AuthenticatedSignedWrites"},
	{PropExtendedProperties, "ExtendedProperties"},
}

// Has reports whether every bit of q is set in p.
func (p Property) Has(q Property) bool {
	return p&q == q
}

// CanNotify reports whether the characteristic supports notifications or indications.
func (p Property) CanNotify() bool {
	return p&(PropNotify|PropIndicate) != 0
}

// Names returns the human-readable names of the set bits in declaration order.
func (p Property) Names() []string {
	var names []string
	for _, pn := range propertyNames {
		if p&pn.p != 0 {
			names = append(names, pn.name)
		}
	}
	return names
}

func (p Property) String() string {
	if p == 0 {
		return "None"
	}
	return strings.Join(p.Names(), "|")
}
