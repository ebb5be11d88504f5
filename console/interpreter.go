// Package console runs scripts of memory accesses against an MMU.
//
// Each line is one command:
//
//	r <address>          read a byte and print "0xADDR => 0xVALUE"
//	w <address> <value>  write a byte
//
// Operands are hexadecimal with an optional 0x prefix. An empty line or the
// end of the input ends the session.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Accessor is the memory the interpreter reads from and writes to.
type Accessor interface {
	Read(address uint64) (byte, error)
	Write(address uint64, value byte) error
}

// A SyntaxError reports a line that is not a valid command.
type SyntaxError struct {
	Line   int
	Text   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Interpreter executes commands against an Accessor.
type Interpreter struct {
	accessor    Accessor
	numCommands int
}

// NewInterpreter creates an Interpreter that accesses the given memory.
func NewInterpreter(accessor Accessor) *Interpreter {
	return &Interpreter{accessor: accessor}
}

// NumCommands returns the number of commands executed so far.
func (i *Interpreter) NumCommands() int {
	return i.numCommands
}

// Run executes the commands in the input until an empty line or the end of
// the input, writing read results to out. It stops at the first invalid
// line, returning a *SyntaxError, or at the first failed access.
func (i *Interpreter) Run(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++

		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			return nil
		}

		err := i.execute(lineNumber, line, out)
		if err != nil {
			return err
		}

		i.numCommands++
	}

	return scanner.Err()
}

func (i *Interpreter) execute(lineNumber int, line string, out io.Writer) error {
	tokens := strings.Fields(line)
	syntaxErr := func(reason string) error {
		return &SyntaxError{Line: lineNumber, Text: line, Reason: reason}
	}

	switch tokens[0] {
	case "r":
		if len(tokens) != 2 {
			return syntaxErr("r takes one operand")
		}

		address, err := parseAddress(tokens[1])
		if err != nil {
			return syntaxErr(err.Error())
		}

		value, err := i.accessor.Read(address)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNumber, err)
		}

		_, err = fmt.Fprintf(out, "0x%04X => 0x%X\n", address, value)

		return err
	case "w":
		if len(tokens) != 3 {
			return syntaxErr("w takes two operands")
		}

		address, err := parseAddress(tokens[1])
		if err != nil {
			return syntaxErr(err.Error())
		}

		value, err := parseByte(tokens[2])
		if err != nil {
			return syntaxErr(err.Error())
		}

		err = i.accessor.Write(address, value)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNumber, err)
		}

		return nil
	default:
		return syntaxErr("unknown command " + tokens[0])
	}
}

func trimHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}

	return s
}

func parseAddress(s string) (uint64, error) {
	address, err := strconv.ParseUint(trimHexPrefix(s), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %s", s)
	}

	return address, nil
}

func parseByte(s string) (byte, error) {
	value, err := strconv.ParseUint(trimHexPrefix(s), 16, 8)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("value %s does not fit in a byte", s)
	}

	if err != nil {
		return 0, fmt.Errorf("invalid value %s", s)
	}

	return byte(value), nil
}
