package oralb

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/oralb/internal/device"
	"github.com/srg/oralb/pkg/oralb/protocol"
)

// Handler receives the raw payload of a notification.
type Handler func(data []byte)

type registration struct {
	binding *Binding
	handler Handler
}

// Registry maps characteristic value handles to a single notification handler each
// and toggles the device-side CCCD when registrations are added or removed.
//
// Subscribe/Unsubscribe run on the caller's goroutine while Dispatch runs on the
// transport's delivery goroutine; the table is a lock-free concurrent map.
type Registry struct {
	peripheral device.Peripheral
	entries    *hashmap.Map[uint16, *registration]
	logger     *logrus.Logger
}

// NewRegistry creates an empty registry writing CCCDs through p.
func NewRegistry(p device.Peripheral, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		peripheral: p,
		entries:    hashmap.New[uint16, *registration](),
		logger:     logger,
	}
}

// Subscribe stores h for the binding's handle, replacing any previous handler, and
// enables notifications with an acknowledged CCCD write. A nil binding is a no-op.
// If the CCCD write fails the previous registration is restored.
func (r *Registry) Subscribe(b *Binding, h Handler) error {
	if b == nil {
		return nil
	}
	if h == nil {
		return r.Unsubscribe(b)
	}

	prev, hadPrev := r.entries.Get(b.Handle)
	r.entries.Set(b.Handle, &registration{binding: b, handler: h})

	fields := logrus.Fields{
		"role":   b.Role.String(),
		"handle": fmt.Sprintf("0x%04x", b.Handle),
	}

	if !b.Properties.Has(device.PropNotify) {
		r.logger.WithFields(fields).Debug("Characteristic does not declare notify, handler stored without CCCD write")
		return nil
	}

	if err := r.peripheral.WriteCharacteristic(b.CCCDHandle(), protocol.CCCDEnableNotify, true); err != nil {
		if hadPrev {
			r.entries.Set(b.Handle, prev)
		} else {
			r.entries.Del(b.Handle)
		}
		r.logger.WithFields(fields).WithError(err).Error("Failed to enable notifications")
		return fmt.Errorf("enable notifications for %s: %w", b.Role, err)
	}

	r.logger.WithFields(fields).WithField("replaced", hadPrev).Debug("Subscribed to notifications")
	return nil
}

// Unsubscribe removes the binding's handler and disables notifications.
// A nil binding, or a handle without a registration, is a no-op.
func (r *Registry) Unsubscribe(b *Binding) error {
	if b == nil {
		return nil
	}

	fields := logrus.Fields{
		"role":   b.Role.String(),
		"handle": fmt.Sprintf("0x%04x", b.Handle),
	}

	if !r.entries.Del(b.Handle) {
		r.logger.WithFields(fields).Debug("Unsubscribe without registration, nothing to do")
		return nil
	}

	if err := r.peripheral.WriteCharacteristic(b.CCCDHandle(), protocol.CCCDDisable, true); err != nil {
		r.logger.WithFields(fields).WithError(err).Error("Failed to disable notifications")
		return fmt.Errorf("disable notifications for %s: %w", b.Role, err)
	}

	r.logger.WithFields(fields).Debug("Unsubscribed from notifications")
	return nil
}

// UnsubscribeAll removes every registration, disabling each CCCD.
// All registrations are dropped even when some descriptor writes fail.
func (r *Registry) UnsubscribeAll() error {
	var bindings []*Binding
	r.entries.Range(func(_ uint16, reg *registration) bool {
		bindings = append(bindings, reg.binding)
		return true
	})

	var errs []error
	for _, b := range bindings {
		if err := r.Unsubscribe(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Registered reports whether a handler is stored for the handle.
func (r *Registry) Registered(handle uint16) bool {
	_, ok := r.entries.Get(handle)
	return ok
}

// Len returns the number of active registrations.
func (r *Registry) Len() int {
	return r.entries.Len()
}

// Dispatch is the transport's notification entry point. It runs the handler stored
// for handle synchronously and drops frames for unknown handles. It never panics.
func (r *Registry) Dispatch(handle uint16, data []byte) {
	reg, ok := r.entries.Get(handle)
	if !ok {
		r.logger.WithFields(logrus.Fields{
			"handle": fmt.Sprintf("0x%04x", handle),
			"data":   hex.EncodeToString(data),
		}).Debug("Dropping notification for unregistered handle")
		return
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.WithFields(logrus.Fields{
				"role":   reg.binding.Role.String(),
				"handle": fmt.Sprintf("0x%04x", handle),
				"panic":  p,
			}).Error("Notification handler panicked")
		}
	}()

	reg.handler(data)
}
