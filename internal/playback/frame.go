package playback

import "encoding/binary"

// frameHeaderSize is the binary header prefixed to every frame on the wire:
// 8 bytes big-endian sample position, 4 bytes sample count.
const frameHeaderSize = 12

// Encode renders the frame for transport: header plus PCM payload.
func (f Frame) Encode() []byte {
	out := make([]byte, frameHeaderSize+len(f.Data))
	binary.BigEndian.PutUint64(out[0:8], f.Position)
	binary.BigEndian.PutUint32(out[8:12], uint32(f.Samples))
	copy(out[frameHeaderSize:], f.Data)
	return out
}

// DecodeFrame parses an encoded frame. The room is not on the wire; each
// subscriber only ever receives its own room's stream.
func DecodeFrame(data []byte) (Frame, bool) {
	if len(data) < frameHeaderSize {
		return Frame{}, false
	}
	return Frame{
		Position: binary.BigEndian.Uint64(data[0:8]),
		Samples:  int(binary.BigEndian.Uint32(data[8:12])),
		Data:     data[frameHeaderSize:],
	}, true
}
