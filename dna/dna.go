// Package dna encodes nucleotide sequences into the dense symbol alphabet
// used by the genome index and the device kernels.
package dna

// Encoded nucleotide symbols. Symbols below AlphabetSize are searchable bases.
const (
	A byte = iota
	C
	G
	T
	N
)

// AlphabetSize is the number of searchable symbols (A, C, G, T).
const AlphabetSize = 4

var (
	encodeTable [256]byte
	decodeTable = [...]byte{A: 'A', C: 'C', G: 'G', T: 'T', N: 'N'}
)

func init() {
	for i := range encodeTable {
		encodeTable[i] = N
	}
	for sym, ch := range decodeTable {
		encodeTable[ch] = byte(sym)
		encodeTable[ch|0x20] = byte(sym) // lower case
	}
}

// EncodeBase encodes one ASCII nucleotide. Anything that is not ACGT maps to N.
func EncodeBase(ch byte) byte { return encodeTable[ch] }

// Encode converts an ASCII sequence into symbols.
func Encode(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, ch := range seq {
		out[i] = encodeTable[ch]
	}
	return out
}

// EncodeString is Encode for string input.
func EncodeString(seq string) []byte {
	out := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		out[i] = encodeTable[seq[i]]
	}
	return out
}

// Decode converts symbols back into upper-case ASCII. Out-of-range symbols decode as N.
func Decode(key []byte) []byte {
	out := make([]byte, len(key))
	for i, sym := range key {
		if sym > N {
			sym = N
		}
		out[i] = decodeTable[sym]
	}
	return out
}

// IsBase reports whether sym is one of A, C, G, T.
func IsBase(sym byte) bool { return sym < AlphabetSize }

// Complement returns the complementary base; N stays N.
func Complement(sym byte) byte {
	if sym < AlphabetSize {
		return T - sym
	}
	return N
}

// ReverseComplement returns the reverse complement of an encoded key.
func ReverseComplement(key []byte) []byte {
	out := make([]byte, len(key))
	for i, sym := range key {
		out[len(key)-1-i] = Complement(sym)
	}
	return out
}
