package fmindex

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/hupe1980/rpstage/dna"
)

const maxFASTALine = 16 << 20

// ReadFASTA parses FASTA records and encodes their bases. The record name is
// the first whitespace-delimited word of the header.
func ReadFASTA(r io.Reader) ([]Sequence, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFASTALine)

	var (
		seqs []Sequence
		cur  *Sequence
		line int
	)
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 || b[0] == ';' {
			continue
		}
		if b[0] == '>' {
			fields := bytes.Fields(b[1:])
			if len(fields) == 0 {
				return nil, fmt.Errorf("%w: line %d: empty header", ErrInvalidFASTA, line)
			}
			seqs = append(seqs, Sequence{Name: string(fields[0])})
			cur = &seqs[len(seqs)-1]
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("%w: line %d: sequence data before header", ErrInvalidFASTA, line)
		}
		for _, ch := range b {
			cur.Seq = append(cur.Seq, dna.EncodeBase(ch))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return seqs, nil
}
