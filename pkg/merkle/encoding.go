package merkle

import (
	"bytes"
	"fmt"
	"io"

	"github.com/suffix-labs/pivx-shield/pkg/crypto"
)

// Optional values are encoded as 0x00 (absent) or 0x01 followed by the value.

func readNode(r io.Reader) (Node, error) {
	var n Node
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return n, err
	}
	return n, nil
}

func readOptionalNode(r io.Reader) (*Node, error) {
	present, err := readOptionalFlag(r)
	if err != nil || !present {
		return nil, err
	}
	n, err := readNode(r)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func readOptionalFlag(r io.Reader) (bool, error) {
	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return false, err
	}
	switch flag[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid optional flag 0x%02x", flag[0])
	}
}

func writeOptionalNode(w *bytes.Buffer, n *Node) {
	if n == nil {
		w.WriteByte(0)
		return
	}
	w.WriteByte(1)
	w.Write(n[:])
}

// readVectorLen reads a CompactSize vector length bounded by max.
func readVectorLen(r io.Reader, max uint64) (int, error) {
	n, err := crypto.ReadCompactSize(r)
	if err != nil {
		return 0, err
	}
	if n > max {
		return 0, fmt.Errorf("vector length %d exceeds %d", n, max)
	}
	return int(n), nil
}
