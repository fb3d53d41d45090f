package telemetry

import (
	"math"
	"strconv"
	"strings"

	"github.com/terraguard/terraguard-go/internal/errors"
)

// ParseLine validates a line against the fixed telemetry record grammar
//
//	Moisture: <num>  Mn=<num> | Tilt: <num>  Tn=<num> | Vibration: <num>  Vn=<num> | Risk=<num> | LEVEL: <token>
//
// and extracts a Reading. Whitespace amounts between tokens are flexible, the
// separators are not. Numeric fields are strict (signed floating point);
// the level token is lenient, with unrecognized tokens defaulting to LOW.
// Numeric ranges are not clamped.
//
// A line that violates the grammar yields a nil Reading and an error saying
// where parsing stopped. Callers skip such lines and continue; a parse
// failure is never fatal to the stream.
func ParseLine(line string) (*Reading, error) {
	sc := scanner{s: line}

	moisture, err := sc.labeledNumber("Moisture", ':')
	if err != nil {
		return nil, err
	}
	mn, err := sc.labeledNumber("Mn", '=')
	if err != nil {
		return nil, err
	}
	if err := sc.separator(); err != nil {
		return nil, err
	}

	tilt, err := sc.labeledNumber("Tilt", ':')
	if err != nil {
		return nil, err
	}
	tn, err := sc.labeledNumber("Tn", '=')
	if err != nil {
		return nil, err
	}
	if err := sc.separator(); err != nil {
		return nil, err
	}

	vibration, err := sc.labeledNumber("Vibration", ':')
	if err != nil {
		return nil, err
	}
	vn, err := sc.labeledNumber("Vn", '=')
	if err != nil {
		return nil, err
	}
	if err := sc.separator(); err != nil {
		return nil, err
	}

	risk, err := sc.labeledNumber("Risk", '=')
	if err != nil {
		return nil, err
	}
	if err := sc.separator(); err != nil {
		return nil, err
	}

	levelToken, err := sc.labeledToken("LEVEL", ':')
	if err != nil {
		return nil, err
	}
	if err := sc.end(); err != nil {
		return nil, err
	}

	return &Reading{
		MoistureRaw:  int(math.Round(moisture)),
		Tilt:         tilt,
		VibrationRaw: int(math.Round(vibration)),
		Mn:           mn,
		Tn:           tn,
		Vn:           vn,
		Risk:         risk,
		Level:        ParseRiskLevel(strings.ToUpper(levelToken)),
	}, nil
}

// scanner is a minimal cursor over one record line.
type scanner struct {
	s   string
	pos int
}

func (sc *scanner) skipSpace() {
	for sc.pos < len(sc.s) && (sc.s[sc.pos] == ' ' || sc.s[sc.pos] == '\t' || sc.s[sc.pos] == '\r') {
		sc.pos++
	}
}

func (sc *scanner) parseError(what string) error {
	return errors.Newf("telemetry record: expected %s at offset %d", what, sc.pos).
		Component("telemetry").
		Category(errors.CategoryLineParse).
		Build()
}

// label consumes the exact label word followed by the given separator
// character, with flexible whitespace around both.
func (sc *scanner) label(word string, sep byte) error {
	sc.skipSpace()
	if !strings.HasPrefix(sc.s[sc.pos:], word) {
		return sc.parseError("label " + strconv.Quote(word))
	}
	sc.pos += len(word)
	sc.skipSpace()
	if sc.pos >= len(sc.s) || sc.s[sc.pos] != sep {
		return sc.parseError("separator " + strconv.QuoteRune(rune(sep)))
	}
	sc.pos++
	return nil
}

// number consumes a signed floating point value.
func (sc *scanner) number() (float64, error) {
	sc.skipSpace()
	start := sc.pos
	for sc.pos < len(sc.s) && isNumberChar(sc.s[sc.pos]) {
		sc.pos++
	}
	if sc.pos == start {
		return 0, sc.parseError("number")
	}
	v, err := strconv.ParseFloat(sc.s[start:sc.pos], 64)
	if err != nil {
		sc.pos = start
		return 0, sc.parseError("number")
	}
	return v, nil
}

func isNumberChar(c byte) bool {
	return c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.' || c == 'e' || c == 'E'
}

// token consumes a run of non-whitespace, non-separator characters.
func (sc *scanner) token() (string, error) {
	sc.skipSpace()
	start := sc.pos
	for sc.pos < len(sc.s) {
		c := sc.s[sc.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '|' {
			break
		}
		sc.pos++
	}
	if sc.pos == start {
		return "", sc.parseError("level token")
	}
	return sc.s[start:sc.pos], nil
}

func (sc *scanner) labeledNumber(word string, sep byte) (float64, error) {
	if err := sc.label(word, sep); err != nil {
		return 0, err
	}
	return sc.number()
}

func (sc *scanner) labeledToken(word string, sep byte) (string, error) {
	if err := sc.label(word, sep); err != nil {
		return "", err
	}
	return sc.token()
}

// separator consumes the '|' field separator.
func (sc *scanner) separator() error {
	sc.skipSpace()
	if sc.pos >= len(sc.s) || sc.s[sc.pos] != '|' {
		return sc.parseError("field separator '|'")
	}
	sc.pos++
	return nil
}

// end asserts that only whitespace remains.
func (sc *scanner) end() error {
	sc.skipSpace()
	if sc.pos != len(sc.s) {
		return sc.parseError("end of record")
	}
	return nil
}
