package oralb

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/srg/oralb/internal/device"
	"github.com/srg/oralb/pkg/oralb/protocol"
)

// SessionSlots is the number of history slots the handle keeps.
const SessionSlots = 10

// Session is a stateful wrapper around a connected toothbrush.
// Requests are not serialized internally; issue one at a time.
type Session struct {
	peripheral device.Peripheral
	bindings   Bindings
	registry   *Registry
	logger     *logrus.Logger
}

// NewSession enumerates the peripheral's characteristics, binds the known roles and
// installs the session registry as the peripheral's notification handler.
func NewSession(p device.Peripheral, logger *logrus.Logger) (*Session, error) {
	if p == nil {
		return nil, fmt.Errorf("peripheral is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}

	chars, err := p.Characteristics()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate characteristics: %w", err)
	}

	s := &Session{
		peripheral: p,
		bindings:   Resolve(chars),
		registry:   NewRegistry(p, logger),
		logger:     logger,
	}

	for _, role := range Roles {
		fields := logrus.Fields{"role": role.String()}
		if b := s.bindings.Get(role); b != nil {
			fields["uuid"] = device.ShortenUUID(b.UUID)
			fields["handle"] = fmt.Sprintf("0x%04x", b.Handle)
			fields["properties"] = b.Properties.String()
			logger.WithFields(fields).Debug("Bound characteristic")
		} else {
			logger.WithFields(fields).Debug("Characteristic not exposed by firmware")
		}
	}
	logger.WithFields(logrus.Fields{
		"characteristics": len(chars),
		"bound":           len(s.bindings),
	}).Info("Toothbrush session ready")

	p.SetNotificationHandler(s.registry.Dispatch)
	return s, nil
}

// Bindings returns the resolved role bindings.
func (s *Session) Bindings() Bindings {
	return s.bindings
}

// Supports reports whether the firmware exposes the characteristic for role.
func (s *Session) Supports(role Role) bool {
	return s.bindings.Get(role) != nil
}

// Registry returns the session's notification registry.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Close unsubscribes every active handler and detaches the dispatcher.
// The connection itself is left to its owner.
func (s *Session) Close() error {
	err := s.registry.UnsubscribeAll()
	s.peripheral.SetNotificationHandler(nil)
	return err
}

func (s *Session) read(b *Binding) ([]byte, error) {
	data, err := s.peripheral.ReadCharacteristic(b.Handle)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.Role, err)
	}
	s.logger.WithFields(logrus.Fields{
		"role": b.Role.String(),
		"data": hex.EncodeToString(data),
	}).Debug("Read characteristic")
	return data, nil
}

func (s *Session) write(b *Binding, data []byte) error {
	s.logger.WithFields(logrus.Fields{
		"role": b.Role.String(),
		"data": hex.EncodeToString(data),
	}).Debug("Writing characteristic")
	if err := s.peripheral.WriteCharacteristic(b.Handle, data, true); err != nil {
		return fmt.Errorf("write %s: %w", b.Role, err)
	}
	return nil
}

func (s *Session) control(ctl *Binding, frame protocol.ControlFrame) error {
	if err := s.write(ctl, frame.Bytes()); err != nil {
		return fmt.Errorf("control %s: %w", frame, err)
	}
	return nil
}

// bound returns the bindings for all roles, or nil when any of them is missing.
func (s *Session) bound(roles ...Role) []*Binding {
	out := make([]*Binding, len(roles))
	for i, r := range roles {
		if out[i] = s.bindings.Get(r); out[i] == nil {
			s.logger.WithField("role", r.String()).Debug("Skipping operation, characteristic not supported")
			return nil
		}
	}
	return out
}

func readValue[T any](s *Session, role Role, decode func([]byte) (T, error), onRead func(T)) error {
	b := s.bound(role)
	if b == nil {
		return nil
	}
	data, err := s.read(b[0])
	if err != nil {
		return err
	}
	v, err := decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", role, err)
	}
	if onRead != nil {
		onRead(v)
	}
	return nil
}

func setHandler[T any](s *Session, role Role, decode func([]byte) (T, error), fn func(T)) error {
	b := s.bindings.Get(role)
	if fn == nil {
		return s.registry.Unsubscribe(b)
	}
	return s.registry.Subscribe(b, func(data []byte) {
		v, err := decode(data)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"role": role.String(),
				"data": hex.EncodeToString(data),
			}).WithError(err).Warn("Dropping undecodable notification")
			return
		}
		fn(v)
	})
}

// ErrSessionSlot wraps a failure while walking the session history.
var ErrSessionSlot = errors.New("session slot")
