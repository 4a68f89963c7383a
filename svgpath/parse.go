package svgpath

import (
	"fmt"
	"strconv"
)

// Diagnostic describes why the parsing of a path
// stopped before the end of its input.
type Diagnostic struct {
	Offset  int    // byte offset of the offending token
	Command byte   // command being parsed, 0 if none
	Msg     string // human readable reason
}

func (d Diagnostic) String() string {
	if d.Command == 0 {
		return fmt.Sprintf("path data, offset %d: %s", d.Offset, d.Msg)
	}
	return fmt.Sprintf("path data, offset %d (command %c): %s", d.Offset, d.Command, d.Msg)
}

// Parse compiles the path data `d` (the value of a 'd' attribute)
// into a normalized Path.
// Parse never fails : when an invalid or incomplete command is
// found, the operations built so far are returned and the rest
// of the input is ignored. In particular, a path not starting
// with a moveto command is empty.
func Parse(d string) Path {
	return ParseReport(d, nil)
}

// ParseReport is the same as Parse, but calls `report` (if not nil)
// when the parsing stops early.
// The returned Path is not affected by `report`.
func ParseReport(d string, report func(Diagnostic)) Path {
	pp := pathParser{scanner: scanner{src: d}, report: report}
	pp.run()
	return pp.path
}

// scanner splits path data into command letters,
// numbers and flags
type scanner struct {
	src string
	pos int
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isLetter(c byte) bool { return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') }

func (s *scanner) done() bool { return s.pos >= len(s.src) }

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) && isSpace(s.src[s.pos]) {
		s.pos++
	}
}

// skipSeparator skips white spaces and at most one comma.
func (s *scanner) skipSeparator() {
	s.skipSpace()
	if s.pos < len(s.src) && s.src[s.pos] == ',' {
		s.pos++
		s.skipSpace()
	}
}

// number scans a number at the cursor. A number ends as soon as
// the next byte can't extend it, so that "100.5.5" is read as
// "100.5" followed by ".5", and "10-5" as "10" followed by "-5".
func (s *scanner) number() (float64, bool) {
	const (
		stSign = iota
		stInt
		stFrac
		stExp
	)
	src, i := s.src, s.pos
	digits := 0
	end := -1 // end of the longest valid number found so far
	state := stSign
scan:
	for ; i < len(src); i++ {
		c := src[i]
		switch state {
		case stSign:
			state = stInt
			if c == '+' || c == '-' {
				continue
			}
			i-- // re-read c as part of the mantissa
		case stInt, stFrac:
			switch {
			case isDigit(c):
				digits++
				end = i + 1
			case c == '.' && state == stInt:
				state = stFrac
				if digits > 0 { // "1." is a complete number
					end = i + 1
				}
			case (c == 'e' || c == 'E') && digits > 0:
				state = stExp
				// the exponent is only consumed when it has digits
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j >= len(src) || !isDigit(src[j]) {
					break scan
				}
				for j < len(src) && isDigit(src[j]) {
					j++
				}
				end = j
				break scan
			default:
				break scan
			}
		}
	}
	if digits == 0 || end == -1 {
		return 0, false
	}
	v, err := strconv.ParseFloat(src[s.pos:end], 64)
	if err != nil { // out of range
		return 0, false
	}
	s.pos = end
	return v, true
}

// flag scans an arc flag, a single '0' or '1'
func (s *scanner) flag() (bool, bool) {
	if s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '0':
			s.pos++
			return false, true
		case '1':
			s.pos++
			return true, true
		}
	}
	return false, false
}

// arity returns the number of operands of one group of the command,
// or -1 if `cmd` is not a path command.
func arity(cmd byte) int {
	switch cmd | 0x20 { // lower case
	case 'z':
		return 0
	case 'h', 'v':
		return 1
	case 'm', 'l', 't':
		return 2
	case 's', 'q':
		return 4
	case 'c':
		return 6
	case 'a':
		return 7
	default:
		return -1
	}
}

// pathParser is the state machine turning path data into a Path.
type pathParser struct {
	scanner
	report func(Diagnostic)
	path   Path

	cur   Point // current point
	start Point // start of the current sub-path
	// control point used by the smooth variants; after a non curve
	// command it is the current point, so its reflection is the current point.
	ctrl Point
}

func (pp *pathParser) fail(cmd byte, format string, args ...interface{}) {
	if pp.report != nil {
		pp.report(Diagnostic{Offset: pp.pos, Command: cmd, Msg: fmt.Sprintf(format, args...)})
	}
}

func (pp *pathParser) run() {
	var cmd byte // 0 until the first command
	for {
		pp.skipSeparator()
		if pp.done() {
			return
		}
		c := pp.src[pp.pos]
		switch {
		case isLetter(c):
			if arity(c) == -1 {
				pp.fail(cmd, "unknown command %q", c)
				return
			}
			if cmd == 0 && c != 'M' && c != 'm' {
				pp.fail(c, "path data must start with a moveto")
				return
			}
			cmd = c
			pp.pos++
			if arity(cmd) == 0 {
				pp.closePath()
				continue
			}
		case cmd == 0:
			pp.fail(0, "path data must start with a moveto")
			return
		case arity(cmd) == 0:
			pp.fail(cmd, "unexpected operand after closepath")
			return
		default: // implicit repetition of the current command
			if cmd == 'M' {
				cmd = 'L'
			} else if cmd == 'm' {
				cmd = 'l'
			}
		}
		if !pp.segment(cmd) {
			return
		}
	}
}

// segment reads one operand group for `cmd`, and
// emits the corresponding operations.
func (pp *pathParser) segment(cmd byte) bool {
	var args [7]float64
	n := arity(cmd)
	isArc := cmd|0x20 == 'a'
	for i := 0; i < n; i++ {
		if i == 0 {
			pp.skipSpace()
		} else {
			pp.skipSeparator()
		}
		var ok bool
		if isArc && (i == 3 || i == 4) {
			var f bool
			f, ok = pp.flag()
			if f {
				args[i] = 1
			}
		} else {
			args[i], ok = pp.number()
		}
		if !ok {
			pp.fail(cmd, "expected %d operands, got %d", n, i)
			return false
		}
	}
	pp.apply(cmd, args[:n])
	return true
}

func (pp *pathParser) apply(cmd byte, a []float64) {
	var off Point // origin of the coordinates
	if cmd >= 'a' {
		off = pp.cur
	}
	switch cmd | 0x20 {
	case 'm':
		pt := off.add(a[0], a[1])
		pp.path.Start(pt)
		pp.cur, pp.start, pp.ctrl = pt, pt, pt
	case 'l':
		pp.lineTo(off.add(a[0], a[1]))
	case 'h':
		pp.lineTo(Point{off.X + a[0], pp.cur.Y})
	case 'v':
		pp.lineTo(Point{pp.cur.X, off.Y + a[0]})
	case 'c':
		pp.cubicTo(off.add(a[0], a[1]), off.add(a[2], a[3]), off.add(a[4], a[5]))
	case 's':
		pp.cubicTo(pp.ctrl.reflect(pp.cur), off.add(a[0], a[1]), off.add(a[2], a[3]))
	case 'q':
		pp.quadTo(off.add(a[0], a[1]), off.add(a[2], a[3]))
	case 't':
		pp.quadTo(pp.ctrl.reflect(pp.cur), off.add(a[0], a[1]))
	case 'a':
		pp.arcTo(a[0], a[1], a[2], a[3] != 0, a[4] != 0, off.add(a[5], a[6]))
	}
}

func (pp *pathParser) lineTo(pt Point) {
	pp.path.Line(pt)
	pp.cur, pp.ctrl = pt, pt
}

func (pp *pathParser) cubicTo(c1, c2, end Point) {
	pp.path.CubeBezier(c1, c2, end)
	pp.cur, pp.ctrl = end, c2
}

func (pp *pathParser) quadTo(q, end Point) {
	c1, c2 := liftQuad(pp.cur, q, end)
	pp.path.CubeBezier(c1, c2, end)
	pp.cur, pp.ctrl = end, q
}

func (pp *pathParser) arcTo(rx, ry, rot float64, largeArc, sweep bool, end Point) {
	if rx == 0 || ry == 0 || pp.cur == end {
		pp.lineTo(end)
		return
	}
	pp.cur = pp.path.addArc(pp.cur, end, rx, ry, rot, largeArc, sweep)
	pp.ctrl = pp.cur
}

func (pp *pathParser) closePath() {
	pp.path.Stop(true)
	pp.cur, pp.ctrl = pp.start, pp.start
}
