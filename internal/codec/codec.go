// Package codec holds the reversible byte obfuscation applied to namespace
// content at rest, and the base64 encoding used for downloads.
//
// The XOR key is fixed and public. This hides text from casual inspection
// and nothing more.
package codec

import (
	"encoding/base64"
	"unicode/utf8"
)

// Key is the XOR key applied to every content byte.
const Key byte = 0x53

// invalidText is returned by Decode when the result is not valid UTF-8.
const invalidText = "??"

// Obfuscate XORs every byte with Key. Applying it twice returns the input.
func Obfuscate(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ Key
	}
	return out
}

// Encode obfuscates text for storage.
func Encode(text string) []byte {
	return Obfuscate([]byte(text))
}

// Decode reverses Encode. Content that does not decode to valid UTF-8
// yields "??".
func Decode(data []byte) string {
	plain := Obfuscate(data)
	if !utf8.Valid(plain) {
		return invalidText
	}
	return string(plain)
}

// Base64 returns the standard padded base64 encoding of data.
func Base64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
