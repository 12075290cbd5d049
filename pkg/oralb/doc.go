// Package oralb is a client-side driver for Oral-B Bluetooth toothbrushes.
//
// A Session wraps a connected device.Peripheral. On creation it binds the vendor
// characteristics it knows about, then exposes typed reads, writes and live
// update handlers for battery, brushing state, mode, brushing time, model id,
// the device clock, the available-modes list and the session history.
//
// Characteristics the firmware does not expose are tolerated: every operation
// depending on a missing characteristic is a silent no-op. Use Session.Supports
// to tell an unsupported role apart from a successful call.
//
// Notifications arrive through Registry.Dispatch, installed as the peripheral's
// notification handler. Handlers run synchronously on the transport's delivery
// goroutine; a panicking handler is recovered and logged.
package oralb
