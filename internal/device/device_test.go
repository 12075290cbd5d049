package device

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionError(t *testing.T) {
	t.Run("errors.Is matches by state", func(t *testing.T) {
		err := fmt.Errorf("read failed: %w", &ConnectionError{State: NotConnected, Msg: "link lost"})

		assert.ErrorIs(t, err, ErrNotConnected)
		assert.NotErrorIs(t, err, ErrAlreadyConnected)
		assert.True(t, IsConnectionState(err, NotConnected))
		assert.False(t, IsConnectionState(err, BluetoothOff))
	})

	t.Run("message formatting", func(t *testing.T) {
		assert.Equal(t, "not_connected", ErrNotConnected.Error())
		assert.Equal(t, "bluetooth_off: bluetooth is turned off", ErrBluetoothOff.Error())

		var nilErr *ConnectionError
		assert.Equal(t, "<nil>", nilErr.Error())
		assert.False(t, nilErr.Is(ErrNotConnected))
	})

	t.Run("plain errors are not connection states", func(t *testing.T) {
		assert.False(t, IsConnectionState(errors.New("boom"), NotConnected))
	})
}

func TestNotFoundError(t *testing.T) {
	assert.Equal(t, "handle not found", (&NotFoundError{Resource: "handle"}).Error())
	assert.Equal(t, `handle "0x0010" not found`, (&NotFoundError{Resource: "handle", ID: "0x0010"}).Error())

	var nf *NotFoundError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", &NotFoundError{Resource: "characteristic", ID: "2a19"}), &nf))
	assert.Equal(t, "characteristic", nf.Resource)
}
