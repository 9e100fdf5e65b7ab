package wasmemit

// LEB128 encoding helpers for the WASM binary format. Hand-rolled
// against a plain byte slice, the same posture ines/ines.go and
// nesformat/header.go take toward their own binary headers: no parsing
// library, direct byte manipulation.

func appendULEB128(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			return buf
		}
	}
}

func appendSLEB128(buf []byte, v int64) []byte {
	more := true
	for more {
		b := byte(v & 0x7F)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

// appendVec prepends a ULEB128 length to a vector's already-encoded
// contents, matching the "vec(B)" production used throughout the WASM
// binary format.
func appendVec(buf []byte, contents []byte) []byte {
	buf = appendULEB128(buf, uint64(len(contents)))
	return append(buf, contents...)
}

func appendName(buf []byte, s string) []byte {
	buf = appendULEB128(buf, uint64(len(s)))
	return append(buf, s...)
}

// section prepends a section id byte and a ULEB128 byte-length to
// contents.
func section(id byte, contents []byte) []byte {
	out := []byte{id}
	out = appendULEB128(out, uint64(len(contents)))
	return append(out, contents...)
}
