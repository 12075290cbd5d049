package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// DateSize is the encoded size of a device date.
const DateSize = 4

// Epoch is the reference point of the device clock.
var Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// DecodeDate decodes a little-endian count of seconds since Epoch.
func DecodeDate(data []byte) (time.Time, error) {
	if len(data) < DateSize {
		return time.Time{}, shortPayload("date", DateSize, data)
	}
	secs := binary.LittleEndian.Uint32(data)
	return Epoch.Add(time.Duration(secs) * time.Second), nil
}

// EncodeDate encodes t as seconds since Epoch. Sub-second precision is dropped.
func EncodeDate(t time.Time) ([]byte, error) {
	secs := t.Sub(Epoch) / time.Second
	if t.Before(Epoch) || int64(secs) > math.MaxUint32 {
		return nil, fmt.Errorf("%s: %w", t.Format(time.RFC3339), ErrDateOutOfRange)
	}
	buf := make([]byte, DateSize)
	binary.LittleEndian.PutUint32(buf, uint32(secs))
	return buf, nil
}
