package engine

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Command is a GUI to engine message.
type Command interface {
	fmt.Stringer
	command()
}

type UCI struct{}
type IsReady struct{}
type NewGame struct{}
type Stop struct{}
type Quit struct{}

// Position sets the board. An empty FEN means the standard start position.
type Position struct {
	FEN   string
	Moves []string
}

// Go starts a search. Infinite takes precedence over Depth, Depth over
// MoveTime.
type Go struct {
	Infinite bool
	Depth    int
	MoveTime time.Duration
}

// Display asks the engine to print the current board. It is a Stockfish
// extension answered with free-form lines.
type Display struct{}

// SetOption assigns an engine option. An empty Value is sent without the
// value clause, which is how buttons are pressed.
type SetOption struct {
	Name  string
	Value string
}

func (UCI) String() string     { return "uci" }
func (IsReady) String() string { return "isready" }
func (NewGame) String() string { return "ucinewgame" }
func (Stop) String() string    { return "stop" }
func (Quit) String() string    { return "quit" }

func (p Position) String() string {
	var sb strings.Builder
	sb.WriteString("position ")
	if p.FEN == "" {
		sb.WriteString("startpos")
	} else {
		sb.WriteString("fen ")
		sb.WriteString(p.FEN)
	}
	if len(p.Moves) > 0 {
		sb.WriteString(" moves ")
		sb.WriteString(strings.Join(p.Moves, " "))
	}
	return sb.String()
}

func (Display) String() string { return "d" }

func (g Go) String() string {
	if g.Infinite {
		return "go infinite"
	}
	if g.Depth > 0 {
		return fmt.Sprintf("go depth %d", g.Depth)
	}
	return fmt.Sprintf("go movetime %d", g.MoveTime.Milliseconds())
}

// EmptyString stands for an empty string option value on the wire. A
// setoption without a value clause presses a button instead.
const EmptyString = "<empty>"

func (s SetOption) String() string {
	if s.Value == "" {
		return "setoption name " + s.Name
	}
	return "setoption name " + s.Name + " value " + s.Value
}

func (UCI) command()       {}
func (IsReady) command()   {}
func (NewGame) command()   {}
func (Stop) command()      {}
func (Quit) command()      {}
func (Position) command()  {}
func (Go) command()        {}
func (SetOption) command() {}
func (Display) command()   {}

// Response is an engine to GUI message.
type Response interface {
	response()
}

type IDName struct{ Name string }
type IDAuthor struct{ Author string }
type UCIOK struct{}
type ReadyOK struct{}

// OptionDecl is an option declared during the handshake.
type OptionDecl struct {
	Name   string
	Option Option
}

// BestMove terminates a search. Ponder is empty when not suggested.
type BestMove struct {
	Move   string
	Ponder string
}

// Info is search progress, kept verbatim.
type Info struct{ Raw string }

// Unrecognized is any line outside the known vocabulary.
type Unrecognized struct{ Raw string }

func (IDName) response()       {}
func (IDAuthor) response()     {}
func (UCIOK) response()        {}
func (ReadyOK) response()      {}
func (OptionDecl) response()   {}
func (BestMove) response()     {}
func (Info) response()         {}
func (Unrecognized) response() {}

// Encode writes cmd as one newline-terminated line and flushes w when it
// buffers.
func Encode(w io.Writer, cmd Command) error {
	if _, err := io.WriteString(w, cmd.String()+"\n"); err != nil {
		return err
	}
	if bw, ok := w.(*bufio.Writer); ok {
		return bw.Flush()
	}
	return nil
}

// Parse decodes one engine output line. It never fails: anything it does
// not understand comes back as Unrecognized.
func Parse(line string) Response {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Unrecognized{Raw: line}
	}

	switch fields[0] {
	case "uciok":
		return UCIOK{}
	case "readyok":
		return ReadyOK{}
	case "info":
		return Info{Raw: line}
	case "id":
		if len(fields) < 3 {
			break
		}
		value := strings.Join(fields[2:], " ")
		switch fields[1] {
		case "name":
			return IDName{Name: value}
		case "author":
			return IDAuthor{Author: value}
		}
	case "bestmove":
		if len(fields) < 2 {
			break
		}
		bm := BestMove{Move: fields[1]}
		if len(fields) >= 4 && fields[2] == "ponder" {
			bm.Ponder = fields[3]
		}
		return bm
	case "option":
		if decl, ok := parseOptionDecl(fields[1:]); ok {
			return decl
		}
	}

	return Unrecognized{Raw: line}
}

var optionKeywords = map[string]bool{
	"name": true, "type": true, "default": true, "min": true, "max": true, "var": true,
}

// parseOptionDecl handles "name <words> type <t> [default <words>] [min n]
// [max n] [var <words>]*". Names and values may contain spaces.
func parseOptionDecl(tokens []string) (OptionDecl, bool) {
	fields := make(map[string]string)
	var vars []string
	var key string
	var words []string

	flush := func() {
		if key == "" {
			return
		}
		value := strings.Join(words, " ")
		if key == "var" {
			vars = append(vars, value)
		} else {
			fields[key] = value
		}
		words = words[:0]
	}

	for _, tok := range tokens {
		if optionKeywords[tok] {
			flush()
			key = tok
			continue
		}
		if key == "" {
			return OptionDecl{}, false
		}
		words = append(words, tok)
	}
	flush()

	name := fields["name"]
	if name == "" {
		return OptionDecl{}, false
	}
	def := fields["default"]
	if def == EmptyString {
		def = ""
	}

	var opt Option
	switch fields["type"] {
	case "check":
		b, err := strconv.ParseBool(def)
		if err != nil {
			return OptionDecl{}, false
		}
		opt = &CheckOption{Default: b}
	case "spin":
		d, err1 := strconv.ParseInt(def, 10, 64)
		lo, err2 := strconv.ParseInt(fields["min"], 10, 64)
		hi, err3 := strconv.ParseInt(fields["max"], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return OptionDecl{}, false
		}
		opt = &SpinOption{Min: lo, Max: hi, Default: d}
	case "combo":
		opt = &ComboOption{Default: def, Vars: vars}
	case "string":
		opt = &StringOption{Default: def}
	case "button":
		opt = &ButtonOption{}
	default:
		return OptionDecl{}, false
	}

	return OptionDecl{Name: name, Option: opt}, true
}
