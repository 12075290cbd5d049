package main

const (
	exampleDeviceAddress = "E4:7F:D8:00:12:34"
	deviceAddressNote    = "Device address: MAC address on Linux, 128-bit peripheral UUID on macOS.\n  It may also be set once as 'address' in the config file."
)
