// Package mocks holds testify mocks of the go-ble client surface used by the transport.
package mocks

import (
	"sync"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of the go-ble GATT client.
type MockClient struct {
	mock.Mock

	once         sync.Once
	disconnected chan struct{}
}

func (m *MockClient) DiscoverProfile(force bool) (*ble.Profile, error) {
	args := m.Called(force)
	var p *ble.Profile
	if v := args.Get(0); v != nil {
		p = v.(*ble.Profile)
	}
	return p, args.Error(1)
}

func (m *MockClient) ReadCharacteristic(c *ble.Characteristic) ([]byte, error) {
	args := m.Called(c)
	var data []byte
	if v := args.Get(0); v != nil {
		data = v.([]byte)
	}
	return data, args.Error(1)
}

func (m *MockClient) WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error {
	return m.Called(c, value, noRsp).Error(0)
}

func (m *MockClient) Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
	return m.Called(c, ind, h).Error(0)
}

func (m *MockClient) Unsubscribe(c *ble.Characteristic, ind bool) error {
	return m.Called(c, ind).Error(0)
}

func (m *MockClient) CancelConnection() error {
	return m.Called().Error(0)
}

// Disconnected mirrors the CoreBluetooth client's link-loss channel.
func (m *MockClient) Disconnected() <-chan struct{} {
	m.once.Do(func() { m.disconnected = make(chan struct{}) })
	return m.disconnected
}

// SimulateDisconnect closes the Disconnected channel once.
func (m *MockClient) SimulateDisconnect() {
	ch := m.Disconnected()
	select {
	case <-ch:
	default:
		close(m.disconnected)
	}
}
