// Package device defines the transport-agnostic view of a connected BLE peripheral
// used by the toothbrush session.
//
// It provides:
//   - The handle-level Peripheral capability (enumerate, read, write, notify)
//   - Characteristic metadata and the properties bitmask
//   - UUID normalisation shared by transports and resolvers
//   - The error taxonomy (connection state errors, NotFoundError, timeouts)
//
// Concrete transports live in sub-packages (see goble).
package device
