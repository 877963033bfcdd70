package solana

// AccountMeta describes one account an instruction touches.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

func Writable(pk PublicKey) AccountMeta {
	return AccountMeta{PublicKey: pk, IsWritable: true}
}

func ReadOnly(pk PublicKey) AccountMeta {
	return AccountMeta{PublicKey: pk}
}

func WritableSigner(pk PublicKey) AccountMeta {
	return AccountMeta{PublicKey: pk, IsSigner: true, IsWritable: true}
}

type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// WithAccounts returns a copy of ix with extra accounts appended. The
// receiver's slices are not shared with the result.
func (ix Instruction) WithAccounts(extra ...AccountMeta) Instruction {
	accounts := make([]AccountMeta, 0, len(ix.Accounts)+len(extra))
	accounts = append(accounts, ix.Accounts...)
	accounts = append(accounts, extra...)

	data := make([]byte, len(ix.Data))
	copy(data, ix.Data)

	return Instruction{ProgramID: ix.ProgramID, Accounts: accounts, Data: data}
}
