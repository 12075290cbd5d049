package goble

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/oralb/internal/device"
	"github.com/srg/oralb/internal/testutils"
	"github.com/srg/oralb/internal/testutils/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	testAddress = "00:00:00:00:00:01"
	serviceUUID = "a0f0fff0-5047-4d53-8208-4f72616c2d42"
	statusUUID  = "a0f0ff04-5047-4d53-8208-4f72616c2d42"
	batteryUUID = "a0f0ff05-5047-4d53-8208-4f72616c2d42"
	controlUUID = "a0f0ff21-5047-4d53-8208-4f72616c2d42"
)

type ConnectionTestSuite struct {
	suite.Suite
	helper  *testutils.TestHelper
	client  *mocks.MockClient
	profile *ble.Profile
	conn    *Connection
	origDF  func(context.Context, string) (Client, error)
}

func (s *ConnectionTestSuite) SetupTest() {
	s.helper = testutils.NewTestHelper(s.T())
	s.client, s.profile = testutils.NewProfileBuilder().
		WithService(serviceUUID).
		WithCharacteristic(statusUUID, "read,notify", 0x0010, []byte{3}).
		WithCharacteristic(batteryUUID, "read,notify", 0x0013, []byte{80}).
		WithCharacteristic(controlUUID, "read,write", 0x0016, []byte{0, 0}).
		Build()

	s.origDF = DialFunc
	DialFunc = func(context.Context, string) (Client, error) { return s.client, nil }
	s.conn = NewConnection(s.helper.Logger)
}

func (s *ConnectionTestSuite) TearDownTest() {
	DialFunc = s.origDF
}

func (s *ConnectionTestSuite) connect(opts *device.ConnectOptions) {
	s.Require().NoError(s.conn.Connect(context.Background(), testAddress, opts), "connection MUST succeed")
}

func (s *ConnectionTestSuite) char(uuid string) *ble.Characteristic {
	ch := testutils.FindCharacteristic(s.profile, uuid)
	s.Require().NotNil(ch)
	return ch
}

func (s *ConnectionTestSuite) TestConnectIndexesCharacteristicsInDiscoveryOrder() {
	s.connect(nil)
	s.True(s.conn.IsConnected())

	chars, err := s.conn.Characteristics()
	s.Require().NoError(err)
	s.Equal([]device.CharacteristicInfo{
		{UUID: device.NormalizeUUID(statusUUID), Handle: 0x0010, Properties: device.PropRead | device.PropNotify},
		{UUID: device.NormalizeUUID(batteryUUID), Handle: 0x0013, Properties: device.PropRead | device.PropNotify},
		{UUID: device.NormalizeUUID(controlUUID), Handle: 0x0016, Properties: device.PropRead | device.PropWrite},
	}, chars)
}

func (s *ConnectionTestSuite) TestConnectTwiceFails() {
	s.connect(nil)
	err := s.conn.Connect(context.Background(), testAddress, nil)
	s.ErrorIs(err, device.ErrAlreadyConnected)
}

func (s *ConnectionTestSuite) TestConnectEmptyAddress() {
	err := s.conn.Connect(context.Background(), "  ", nil)
	s.Error(err)
	s.False(s.conn.IsConnected())
}

func (s *ConnectionTestSuite) TestConnectDialFailureIsNormalized() {
	DialFunc = func(context.Context, string) (Client, error) {
		return nil, errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?")
	}
	err := s.conn.Connect(context.Background(), testAddress, nil)
	s.ErrorIs(err, device.ErrBluetoothOff)
}

func (s *ConnectionTestSuite) TestConnectDiscoveryFailureCancelsConnection() {
	client := &mocks.MockClient{}
	client.On("DiscoverProfile", true).Return(nil, errors.New("att: timeout"))
	client.On("CancelConnection").Return(nil).Once()
	DialFunc = func(context.Context, string) (Client, error) { return client, nil }

	err := s.conn.Connect(context.Background(), testAddress, nil)
	s.Error(err)
	s.False(s.conn.IsConnected())
	client.AssertExpectations(s.T())
}

func (s *ConnectionTestSuite) TestReadByHandle() {
	s.connect(nil)

	data, err := s.conn.ReadCharacteristic(0x0013)
	s.Require().NoError(err)
	s.Equal([]byte{80}, data)
	s.client.AssertCalled(s.T(), "ReadCharacteristic", s.char(batteryUUID))
}

func (s *ConnectionTestSuite) TestReadUnknownHandle() {
	s.connect(nil)

	_, err := s.conn.ReadCharacteristic(0x0042)
	var nf *device.NotFoundError
	s.Require().ErrorAs(err, &nf)
	s.Equal("handle", nf.Resource)
	s.Equal("0x0042", nf.ID)
}

func (s *ConnectionTestSuite) TestOperationsWhileDisconnected() {
	_, err := s.conn.ReadCharacteristic(0x0010)
	s.ErrorIs(err, device.ErrNotConnected)
	s.ErrorIs(s.conn.WriteCharacteristic(0x0016, []byte{1}, true), device.ErrNotConnected)
	_, err = s.conn.Characteristics()
	s.ErrorIs(err, device.ErrNotConnected)
}

func (s *ConnectionTestSuite) TestReadTimeout() {
	client := &mocks.MockClient{}
	profile := testutils.NewProfileBuilder().
		WithService(serviceUUID).
		WithCharacteristic(batteryUUID, "read", 0x0013, nil).
		BuildProfile()
	client.On("DiscoverProfile", true).Return(profile, nil)
	client.On("ReadCharacteristic", mock.Anything).After(500*time.Millisecond).Return([]byte{1}, nil)
	DialFunc = func(context.Context, string) (Client, error) { return client, nil }

	s.connect(&device.ConnectOptions{ReadTimeout: 20 * time.Millisecond})
	_, err := s.conn.ReadCharacteristic(0x0013)
	s.ErrorIs(err, device.ErrTimeout)
}

func (s *ConnectionTestSuite) TestWriteValueHandle() {
	s.connect(nil)
	ctl := s.char(controlUUID)
	s.client.On("WriteCharacteristic", ctl, []byte{0x37, 0x26}, false).Return(nil).Once()
	s.client.On("WriteCharacteristic", ctl, []byte{0x02, 0x00}, true).Return(nil).Once()

	s.Require().NoError(s.conn.WriteCharacteristic(0x0016, []byte{0x37, 0x26}, true))
	s.Require().NoError(s.conn.WriteCharacteristic(0x0016, []byte{0x02, 0x00}, false))
	s.client.AssertExpectations(s.T())
}

func (s *ConnectionTestSuite) TestCCCDWritesDriveSubscriptions() {
	s.connect(nil)
	battery := s.char(batteryUUID)

	var notify ble.NotificationHandler
	s.client.On("Subscribe", battery, false, mock.Anything).
		Run(func(args mock.Arguments) { notify = args.Get(2).(ble.NotificationHandler) }).
		Return(nil).Once()
	s.client.On("Unsubscribe", battery, false).Return(nil).Once()

	type frame struct {
		handle uint16
		data   []byte
	}
	var frames []frame
	s.conn.SetNotificationHandler(func(handle uint16, data []byte) {
		frames = append(frames, frame{handle, data})
	})

	s.Require().NoError(s.conn.WriteCharacteristic(0x0014, []byte{0x01, 0x00}, true))
	s.Require().NotNil(notify)

	notify([]byte{79})
	s.Equal([]frame{{0x0013, []byte{79}}}, frames)

	s.Require().NoError(s.conn.WriteCharacteristic(0x0014, []byte{0x00, 0x00}, true))
	// second disable has nothing to undo
	s.Require().NoError(s.conn.WriteCharacteristic(0x0014, []byte{0x00, 0x00}, true))
	s.client.AssertExpectations(s.T())
	s.client.AssertNumberOfCalls(s.T(), "Unsubscribe", 1)
}

func (s *ConnectionTestSuite) TestCCCDIndicate() {
	s.connect(nil)
	status := s.char(statusUUID)
	s.client.On("Subscribe", status, true, mock.Anything).Return(nil).Once()
	s.client.On("Unsubscribe", status, true).Return(nil).Once()

	s.Require().NoError(s.conn.WriteCharacteristic(0x0011, []byte{0x02, 0x00}, true))
	s.Require().NoError(s.conn.WriteCharacteristic(0x0011, []byte{0x00, 0x00}, true))
	s.client.AssertExpectations(s.T())
}

func (s *ConnectionTestSuite) TestCCCDInvalidWrites() {
	s.connect(nil)

	s.ErrorIs(s.conn.WriteCharacteristic(0x0011, []byte{0x05, 0x00}, true), device.ErrUnsupported)
	s.ErrorIs(s.conn.WriteCharacteristic(0x0011, []byte{0x01}, true), device.ErrUnsupported)

	var nf *device.NotFoundError
	s.ErrorAs(s.conn.WriteCharacteristic(0x0030, []byte{0x01, 0x00}, true), &nf)
}

func (s *ConnectionTestSuite) TestSubscribeFailureIsReturned() {
	s.connect(nil)
	battery := s.char(batteryUUID)
	s.client.On("Subscribe", battery, false, mock.Anything).Return(errors.New("device not connected"))

	err := s.conn.WriteCharacteristic(0x0014, []byte{0x01, 0x00}, true)
	s.ErrorIs(err, device.ErrNotConnected)
}

func (s *ConnectionTestSuite) TestNotificationWithoutHandlerIsDropped() {
	s.connect(nil)
	s.NotPanics(func() { s.conn.deliver(0x0013, []byte{1}) })
}

func (s *ConnectionTestSuite) TestDisconnectUnsubscribesActive() {
	s.connect(nil)
	battery := s.char(batteryUUID)
	s.client.On("Subscribe", battery, false, mock.Anything).Return(nil)
	s.client.On("Unsubscribe", battery, false).Return(nil).Once()

	s.Require().NoError(s.conn.WriteCharacteristic(0x0014, []byte{0x01, 0x00}, true))
	ctx := s.conn.ConnectionContext()

	s.Require().NoError(s.conn.Disconnect())
	s.False(s.conn.IsConnected())
	s.client.AssertCalled(s.T(), "CancelConnection")
	s.client.AssertCalled(s.T(), "Unsubscribe", battery, false)

	<-ctx.Done()
	s.ErrorIs(context.Cause(ctx), context.Canceled, "normal disconnect MUST not carry a link-loss cause")

	s.NoError(s.conn.Disconnect(), "second disconnect is a no-op")
}

func (s *ConnectionTestSuite) TestLinkLossCancelsConnectionContext() {
	s.connect(nil)
	ctx := s.conn.ConnectionContext()

	s.client.SimulateDisconnect()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		s.FailNow("connection context MUST be cancelled on link loss")
	}
	s.ErrorIs(context.Cause(ctx), device.ErrNotConnected)
	s.Eventually(func() bool { return !s.conn.IsConnected() }, time.Second, 5*time.Millisecond)
}

func TestConnectionTestSuite(t *testing.T) {
	suite.Run(t, new(ConnectionTestSuite))
}

func TestSyntheticHandles(t *testing.T) {
	profile := testutils.NewProfileBuilder().
		WithService(serviceUUID).
		WithCharacteristic(statusUUID, "read,notify", 0, nil).
		WithCharacteristic(batteryUUID, "read,notify", 0, nil).
		WithService("180f").
		WithCharacteristic("2a19", "read", 0, nil).
		BuildProfile()

	c := NewConnection(logrus.New())
	c.indexProfile(profile)

	require.Len(t, c.chars, 3)
	assert.Equal(t, syntheticHandleBase, c.chars[0].Handle)
	assert.Equal(t, syntheticHandleBase+2, c.chars[1].Handle)
	assert.Equal(t, syntheticHandleBase+4, c.chars[2].Handle)
	assert.Equal(t, "2a19", c.chars[2].UUID)
	for _, ch := range c.chars {
		assert.Nil(t, c.byHandle[ch.CCCDHandle()], "CCCD handle MUST not alias a value handle")
	}
}

func TestNewProperties(t *testing.T) {
	assert.Equal(t, device.PropRead|device.PropNotify, NewProperties(ble.CharRead|ble.CharNotify))
	assert.Equal(t, device.PropWrite|device.PropWriteWithoutResponse, NewProperties(ble.CharWrite|ble.CharWriteNR))
	assert.Equal(t, device.PropIndicate, NewProperties(ble.CharIndicate))
	assert.Equal(t, device.Property(0), NewProperties(0))
}

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{name: "bluetooth off", err: errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?"), target: device.ErrBluetoothOff},
		{name: "not connected", err: errors.New("Device Not Connected"), target: device.ErrNotConnected},
		{name: "disconnected", err: errors.New("peripheral disconnected"), target: device.ErrNotConnected},
		{name: "already connected", err: errors.New("device already connected"), target: device.ErrAlreadyConnected},
		{name: "not initialized", err: errors.New("connection is not initialized"), target: device.ErrNotInitialized},
		{name: "deadline", err: context.DeadlineExceeded, target: device.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeError(tt.err)
			assert.ErrorIs(t, got, tt.target)
			assert.Contains(t, got.Error(), tt.err.Error())
		})
	}

	assert.NoError(t, NormalizeError(nil))
	plain := errors.New("att: invalid handle")
	assert.Same(t, plain, NormalizeError(plain))
}

func TestDialDeviceFactoryFailure(t *testing.T) {
	orig := DeviceFactory
	defer func() { DeviceFactory = orig }()
	DeviceFactory = func() (ble.Device, error) {
		return nil, errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?")
	}

	_, err := DialFunc(context.Background(), "E4:7F:D8:00:00:01")
	assert.ErrorIs(t, err, device.ErrBluetoothOff)
	assert.ErrorContains(t, err, "failed to create BLE device")
}
