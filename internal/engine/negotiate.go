package engine

import (
	"time"
)

// DefaultDrain is how long the handshake collects declarations when the
// engine never sends uciok.
const DefaultDrain = 100 * time.Millisecond

// Identity names an engine as it reports itself.
type Identity struct {
	Name   string `toml:"name"`
	Author string `toml:"author"`
}

// Details is what the handshake learned about an engine.
type Details struct {
	Identity Identity
	Options  *Options
}

// Handshake sends uci and collects the identity and option declarations
// that arrive before uciok or within drain, whichever comes first. An engine
// that exits early yields whatever it declared so far.
func (p *Process) Handshake(drain time.Duration) (*Details, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.busy.Store(false)

	tx, rx := p.Split()
	var acc []Response
	if !InterleaveUntil(tx, rx, NewQueue(UCI{}), &acc, Has[UCIOK](), drain) {
		p.log.Debug("Handshake ended without uciok", "responses", len(acc))
	}

	details := ExtractDetails(acc)
	p.log.Info("Engine identified", "name", details.Identity.Name, "author", details.Identity.Author, "options", details.Options.Len())
	return details, nil
}

// ExtractDetails builds identity and options from handshake responses in
// arrival order. Later declarations of the same field win.
func ExtractDetails(acc []Response) *Details {
	d := &Details{Options: NewOptions()}
	for _, r := range acc {
		switch m := r.(type) {
		case IDName:
			d.Identity.Name = m.Name
		case IDAuthor:
			d.Identity.Author = m.Author
		case OptionDecl:
			d.Options.Put(m.Name, m.Option)
		}
	}
	return d
}

// LoadProfile applies overrides recorded for identity. Nothing is applied
// unless identity matches the live engine exactly. Keys that are unknown or
// whose value has the wrong kind are skipped individually. It returns the
// number of options applied.
func (d *Details) LoadProfile(identity Identity, overrides map[string]any) int {
	if identity != d.Identity {
		return 0
	}
	applied := 0
	for name, value := range overrides {
		if d.Options.Set(name, value) == nil {
			applied++
		}
	}
	return applied
}

// SetOptionQueue returns one setoption per option holding a value, in
// declaration order. Buttons and untouched options are left out.
func (d *Details) SetOptionQueue() []Command {
	var cmds []Command
	for name, opt := range d.Options.All() {
		if opt.Kind() == KindButton {
			continue
		}
		value, ok := opt.Current()
		if !ok {
			continue
		}
		if value == "" && opt.Kind() == KindString {
			value = EmptyString
		}
		cmds = append(cmds, SetOption{Name: name, Value: value})
	}
	return cmds
}

// Ready sends queued commands followed by isready and waits for readyok.
func (p *Process) Ready(budget time.Duration, cmds ...Command) error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer p.busy.Store(false)

	tx, rx := p.Split()
	q := NewQueue(cmds...)
	q.Push(IsReady{})

	var acc []Response
	if !InterleaveUntil(tx, rx, q, &acc, Has[ReadyOK](), budget) {
		return ErrNotReady
	}
	return nil
}
