package utils

import (
	"crypto/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const roomIDLen = 8

// NewClientID returns a unique opaque identity id.
func NewClientID() string {
	return uuid.NewString()
}

// NewRoomID returns a short random hex room id.
func NewRoomID() string {
	const hexdigits = "0123456789abcdef"

	buf := make([]byte, roomIDLen)
	if _, err := rand.Read(buf); err != nil {
		// Fallback to timestamp if crypto/rand is unavailable.
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	for i, b := range buf {
		buf[i] = hexdigits[int(b)%len(hexdigits)]
	}
	return string(buf)
}
