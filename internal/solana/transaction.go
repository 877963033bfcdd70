package solana

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
)

const maxAccountKeys = 256

var (
	ErrNoInstructions  = errors.New("solana: transaction has no instructions")
	ErrTooManyAccounts = errors.New("solana: too many account keys")
	ErrMissingSigner   = errors.New("solana: missing signer")
)

// Signer signs serialized transaction messages.
type Signer interface {
	PublicKey() PublicKey
	Sign(ctx context.Context, message []byte) (Signature, error)
}

type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Message is a legacy (unversioned) transaction message.
type Message struct {
	Header          MessageHeader
	AccountKeys     []PublicKey
	RecentBlockhash Hash
	Instructions    []CompiledInstruction
}

type Transaction struct {
	Signatures []Signature
	Message    Message
}

type keyMeta struct {
	key      PublicKey
	signer   bool
	writable bool
}

// NewTransaction compiles instructions into an unsigned legacy transaction paid by payer.
func NewTransaction(instructions []Instruction, blockhash Hash, payer PublicKey) (*Transaction, error) {
	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}

	metas := []keyMeta{{key: payer, signer: true, writable: true}}
	index := map[PublicKey]int{payer: 0}
	add := func(pk PublicKey, signer, writable bool) {
		if i, ok := index[pk]; ok {
			metas[i].signer = metas[i].signer || signer
			metas[i].writable = metas[i].writable || writable
			return
		}
		index[pk] = len(metas)
		metas = append(metas, keyMeta{key: pk, signer: signer, writable: writable})
	}
	for _, ix := range instructions {
		for _, a := range ix.Accounts {
			add(a.PublicKey, a.IsSigner, a.IsWritable)
		}
		add(ix.ProgramID, false, false)
	}

	if len(metas) > maxAccountKeys {
		return nil, fmt.Errorf("%w: %d", ErrTooManyAccounts, len(metas))
	}

	// payer stays first; the rest keep first-seen order inside each class
	ordered := make([]keyMeta, 0, len(metas))
	ordered = append(ordered, metas[0])
	for _, class := range []struct{ signer, writable bool }{
		{true, true}, {true, false}, {false, true}, {false, false},
	} {
		for _, m := range metas[1:] {
			if m.signer == class.signer && m.writable == class.writable {
				ordered = append(ordered, m)
			}
		}
	}

	var header MessageHeader
	keys := make([]PublicKey, len(ordered))
	position := make(map[PublicKey]uint8, len(ordered))
	for i, m := range ordered {
		keys[i] = m.key
		position[m.key] = uint8(i)
		switch {
		case m.signer:
			header.NumRequiredSignatures++
			if !m.writable {
				header.NumReadonlySignedAccounts++
			}
		case !m.writable:
			header.NumReadonlyUnsignedAccounts++
		}
	}

	compiled := make([]CompiledInstruction, len(instructions))
	for i, ix := range instructions {
		accounts := make([]uint8, len(ix.Accounts))
		for j, a := range ix.Accounts {
			accounts[j] = position[a.PublicKey]
		}
		compiled[i] = CompiledInstruction{
			ProgramIDIndex: position[ix.ProgramID],
			Accounts:       accounts,
			Data:           ix.Data,
		}
	}

	return &Transaction{
		Signatures: make([]Signature, header.NumRequiredSignatures),
		Message: Message{
			Header:          header,
			AccountKeys:     keys,
			RecentBlockhash: blockhash,
			Instructions:    compiled,
		},
	}, nil
}

// Serialize encodes the message in wire format; this is the byte string signers sign.
func (m *Message) Serialize() []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, m.Header.NumRequiredSignatures, m.Header.NumReadonlySignedAccounts, m.Header.NumReadonlyUnsignedAccounts)

	buf = AppendCompactU16(buf, len(m.AccountKeys))
	for _, k := range m.AccountKeys {
		buf = append(buf, k[:]...)
	}
	buf = append(buf, m.RecentBlockhash[:]...)

	buf = AppendCompactU16(buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf = append(buf, ix.ProgramIDIndex)
		buf = AppendCompactU16(buf, len(ix.Accounts))
		buf = append(buf, ix.Accounts...)
		buf = AppendCompactU16(buf, len(ix.Data))
		buf = append(buf, ix.Data...)
	}
	return buf
}

// Sign fills in the signature of every required signer.
func (tx *Transaction) Sign(ctx context.Context, signers ...Signer) error {
	msg := tx.Message.Serialize()

	required := tx.Message.AccountKeys[:tx.Message.Header.NumRequiredSignatures]
	for i, key := range required {
		var signer Signer
		for _, s := range signers {
			if s.PublicKey() == key {
				signer = s
				break
			}
		}
		if signer == nil {
			return fmt.Errorf("%w: %s", ErrMissingSigner, key)
		}
		sig, err := signer.Sign(ctx, msg)
		if err != nil {
			return fmt.Errorf("sign with %s: %w", key, err)
		}
		tx.Signatures[i] = sig
	}
	return nil
}

// Signature returns the first signature, which identifies the transaction.
func (tx *Transaction) Signature() Signature {
	if len(tx.Signatures) == 0 {
		return Signature{}
	}
	return tx.Signatures[0]
}

func (tx *Transaction) Serialize() []byte {
	msg := tx.Message.Serialize()
	buf := make([]byte, 0, 1+len(tx.Signatures)*SignatureLength+len(msg))
	buf = AppendCompactU16(buf, len(tx.Signatures))
	for _, s := range tx.Signatures {
		buf = append(buf, s[:]...)
	}
	return append(buf, msg...)
}

func (tx *Transaction) Base64() string {
	return base64.StdEncoding.EncodeToString(tx.Serialize())
}

// AppendCompactU16 appends n in the 1-3 byte "shortvec" length encoding.
func AppendCompactU16(b []byte, n int) []byte {
	v := uint16(n)
	for {
		elem := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, elem)
		}
		b = append(b, elem|0x80)
	}
}

// DecodeCompactU16 returns the decoded value and the number of bytes consumed.
func DecodeCompactU16(b []byte) (int, int, error) {
	var v int
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, errors.New("solana: truncated compact-u16")
		}
		elem := int(b[i])
		v |= (elem & 0x7f) << (7 * i)
		if elem&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, errors.New("solana: compact-u16 overflow")
}
