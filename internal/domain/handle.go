package domain

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

const HandleBits = 128

var ErrMalformedHandle = errors.New("malformed handle")

// Handle is an opaque reference to an encrypted value held by the
// confidential-compute coprocessor. It is an unsigned integer of at most 128 bits.
type Handle struct {
	v uint256.Int
}

// ParseHandle parses a base-10 numeral. Anything else is an error.
func ParseHandle(s string) (Handle, error) {
	if s == "" {
		return Handle{}, fmt.Errorf("%w: empty", ErrMalformedHandle)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Handle{}, fmt.Errorf("%w: %q", ErrMalformedHandle, s)
		}
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %q: %v", ErrMalformedHandle, s, err)
	}
	if v.BitLen() > HandleBits {
		return Handle{}, fmt.Errorf("%w: %q exceeds %d bits", ErrMalformedHandle, s, HandleBits)
	}
	return Handle{v: *v}, nil
}

func MustParseHandle(s string) Handle {
	h, err := ParseHandle(s)
	if err != nil {
		panic(err)
	}
	return h
}

func HandleFromUint64(n uint64) Handle {
	var h Handle
	h.v.SetUint64(n)
	return h
}

// HandleFromLE16 decodes the 16-byte little-endian form used on the ledger.
func HandleFromLE16(b []byte) (Handle, error) {
	if len(b) != 16 {
		return Handle{}, fmt.Errorf("%w: want 16 bytes, got %d", ErrMalformedHandle, len(b))
	}
	be := make([]byte, 16)
	for i := range b {
		be[15-i] = b[i]
	}
	var h Handle
	h.v.SetBytes(be)
	return h, nil
}

// LE16 is the u128 little-endian encoding used in seeds and instruction args.
func (h Handle) LE16() [16]byte {
	be := h.v.Bytes32()
	var out [16]byte
	for i := 0; i < 16; i++ {
		out[i] = be[31-i]
	}
	return out
}

func (h Handle) String() string { return h.v.Dec() }

func (h Handle) IsZero() bool { return h.v.IsZero() }

func (h Handle) Equal(o Handle) bool { return h.v.Eq(&o.v) }

func (h Handle) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Handle) UnmarshalText(text []byte) error {
	parsed, err := ParseHandle(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
