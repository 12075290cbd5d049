package testutils

import (
	"encoding/json"
	"fmt"
	"strings"

	blelib "github.com/go-ble/ble"
	"github.com/srg/oralb/internal/testutils/mocks"
)

// CharacteristicConfig represents a BLE characteristic configuration for mocking
type CharacteristicConfig struct {
	UUID        string `json:"uuid"`
	Properties  string `json:"properties,omitempty"` // e.g., "read,write,notify"
	ValueHandle uint16 `json:"handle,omitempty"`     // 0 mimics CoreBluetooth, which hides ATT handles
	Value       []byte `json:"value,omitempty"`
}

// ServiceConfig represents a BLE service configuration for mocking
type ServiceConfig struct {
	UUID            string                 `json:"uuid"`
	Characteristics []CharacteristicConfig `json:"characteristics,omitempty"`
}

// ProfileConfig represents the complete GATT profile for mocking
type ProfileConfig struct {
	Services []ServiceConfig `json:"services"`
}

// ProfileBuilder builds a go-ble profile and a mocked client serving it.
type ProfileBuilder struct {
	profile ProfileConfig
}

// NewProfileBuilder creates an empty profile builder
func NewProfileBuilder() *ProfileBuilder {
	return &ProfileBuilder{}
}

// WithService adds a service to the profile
func (b *ProfileBuilder) WithService(uuid string) *ProfileBuilder {
	b.profile.Services = append(b.profile.Services, ServiceConfig{UUID: uuid})
	return b
}

// WithCharacteristic adds a characteristic to the last added service
func (b *ProfileBuilder) WithCharacteristic(uuid, properties string, handle uint16, value []byte) *ProfileBuilder {
	if len(b.profile.Services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}
	last := &b.profile.Services[len(b.profile.Services)-1]
	last.Characteristics = append(last.Characteristics, CharacteristicConfig{
		UUID:        uuid,
		Properties:  properties,
		ValueHandle: handle,
		Value:       value,
	})
	return b
}

// FromJSON fills the profile from JSON
func (b *ProfileBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *ProfileBuilder {
	var config ProfileConfig
	if err := json.Unmarshal([]byte(fmt.Sprintf(jsonStrFmt, args...)), &config); err != nil {
		panic(fmt.Sprintf("ProfileBuilder.FromJSON: failed to unmarshal: %v", err))
	}
	b.profile = config
	return b
}

// parseCharacteristicProperties converts a comma-separated property list to ble.Property flags
func parseCharacteristicProperties(props string) blelib.Property {
	if props == "" {
		return blelib.CharRead | blelib.CharWrite | blelib.CharNotify
	}

	var property blelib.Property
	for _, p := range strings.Split(props, ",") {
		switch strings.TrimSpace(p) {
		case "read":
			property |= blelib.CharRead
		case "write":
			property |= blelib.CharWrite
		case "write_nr":
			property |= blelib.CharWriteNR
		case "notify":
			property |= blelib.CharNotify
		case "indicate":
			property |= blelib.CharIndicate
		default:
			panic(fmt.Sprintf("unknown characteristic property %q", p))
		}
	}
	return property
}

// BuildProfile creates the go-ble profile without a client.
func (b *ProfileBuilder) BuildProfile() *blelib.Profile {
	profile := &blelib.Profile{}
	for _, svcConfig := range b.profile.Services {
		svc := &blelib.Service{UUID: blelib.MustParse(svcConfig.UUID)}
		for _, cc := range svcConfig.Characteristics {
			ch := &blelib.Characteristic{
				UUID:        blelib.MustParse(cc.UUID),
				Property:    parseCharacteristicProperties(cc.Properties),
				ValueHandle: cc.ValueHandle,
				Value:       cc.Value,
			}
			if cc.ValueHandle > 0 {
				ch.Handle = cc.ValueHandle - 1
			}
			svc.Characteristics = append(svc.Characteristics, ch)
		}
		profile.Services = append(profile.Services, svc)
	}
	return profile
}

// Build creates the profile and a mocked client returning it from DiscoverProfile.
// Readable characteristics answer reads with their configured value.
func (b *ProfileBuilder) Build() (*mocks.MockClient, *blelib.Profile) {
	profile := b.BuildProfile()
	client := &mocks.MockClient{}

	client.On("DiscoverProfile", true).Return(profile, nil)
	client.On("CancelConnection").Return(nil)

	for _, svc := range profile.Services {
		for _, ch := range svc.Characteristics {
			if ch.Property&blelib.CharRead != 0 {
				client.On("ReadCharacteristic", ch).Return(ch.Value, nil)
			} else {
				client.On("ReadCharacteristic", ch).Return(nil, fmt.Errorf("characteristic does not support read"))
			}
		}
	}
	return client, profile
}

// FindCharacteristic returns the profile characteristic with uuid, or nil.
func FindCharacteristic(profile *blelib.Profile, uuid string) *blelib.Characteristic {
	want := blelib.MustParse(uuid)
	for _, svc := range profile.Services {
		for _, ch := range svc.Characteristics {
			if ch.UUID.Equal(want) {
				return ch
			}
		}
	}
	return nil
}
