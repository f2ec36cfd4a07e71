// Package mcfile loads BatPU-2 machine-code text files: one line per
// instruction, each line sixteen '0'/'1' characters, most significant
// bit first.
package mcfile

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/batpu2/recomp/pkg/inst"
)

// Load reads the machine-code text file at path and decodes every line
// into an Instruction, in file order (line N becomes the instruction at
// program counter N). Blank and comment lines are not supported: every
// line must be exactly 16 '0'/'1' characters, or the file is malformed.
func Load(path string) ([]inst.Instruction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "mcfile: open %s", path)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads machine code text from r, in the same line format Load
// uses. Split out so callers that already have the content in memory
// (tests, embedded programs) don't need a filesystem round trip.
func Decode(r io.Reader) ([]inst.Instruction, error) {
	scanner := bufio.NewScanner(r)

	var code []inst.Instruction
	pc := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if len(line) != 16 {
			return nil, errors.Errorf("mcfile: line %d: expected 16 bits, got %d", lineNo, len(line))
		}

		word, err := strconv.ParseUint(line, 2, 16)
		if err != nil {
			return nil, errors.Wrapf(err, "mcfile: line %d: not a binary word", lineNo)
		}

		code = append(code, inst.Decode(pc, uint16(word)))
		pc++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "mcfile: reading")
	}
	return code, nil
}
