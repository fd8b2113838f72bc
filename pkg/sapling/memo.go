package sapling

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// MemoSize is the size of the memo field of a note plaintext.
const MemoSize = 512

// Memo is the 512-byte memo field.
//
// A first byte of 0xF4 or less means UTF-8 text padded with zeros; 0xF6
// followed by zeros means "no memo".
type Memo [MemoSize]byte

// EmptyMemo is the memo of a note carrying no memo.
var EmptyMemo = Memo{0xF6}

// MemoFromText encodes s as a text memo. An empty s gives EmptyMemo.
func MemoFromText(s string) (Memo, error) {
	if s == "" {
		return EmptyMemo, nil
	}
	if len(s) > MemoSize {
		return Memo{}, fmt.Errorf("memo is %d bytes, maximum is %d", len(s), MemoSize)
	}
	if !utf8.ValidString(s) {
		return Memo{}, fmt.Errorf("memo is not valid UTF-8")
	}
	if s[0] > 0xF4 {
		return Memo{}, fmt.Errorf("memo text cannot start with byte 0x%02x", s[0])
	}
	var m Memo
	copy(m[:], s)
	return m, nil
}

// Text returns the memo as text. It returns false for memos that are empty or
// not text.
func (m Memo) Text() (string, bool) {
	if m[0] > 0xF4 {
		return "", false
	}
	text := bytes.TrimRight(m[:], "\x00")
	if len(text) == 0 || !utf8.Valid(text) {
		return "", false
	}
	return string(text), true
}
