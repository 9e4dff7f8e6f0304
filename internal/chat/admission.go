package chat

import "strings"

// Decision is the outcome of admitting one incoming connection.
type Decision struct {
	Accept bool
	Reason string
}

func Admit() Decision { return Decision{Accept: true} }

func Reject(reason string) Decision { return Decision{Reason: reason} }

// AdmissionPolicy decides, from the peer's address alone, whether a new
// connection may join. Implementations must be pure.
type AdmissionPolicy interface {
	Evaluate(addr string) Decision
}

type PolicyFunc func(addr string) Decision

func (f PolicyFunc) Evaluate(addr string) Decision { return f(addr) }

// AllowAll admits every peer.
var AllowAll AdmissionPolicy = PolicyFunc(func(string) Decision { return Admit() })

// Denylist rejects peers whose address exactly matches an entry.
type Denylist map[string]struct{}

func NewDenylist(addrs ...string) Denylist {
	d := make(Denylist, len(addrs))
	for _, a := range addrs {
		if a = strings.TrimSpace(a); a != "" {
			d[a] = struct{}{}
		}
	}
	return d
}

func (d Denylist) Evaluate(addr string) Decision {
	if _, banned := d[addr]; banned {
		return Reject("banned address")
	}
	return Admit()
}

// Policies composes rules; the first rejection wins.
type Policies []AdmissionPolicy

func (ps Policies) Evaluate(addr string) Decision {
	for _, p := range ps {
		if d := p.Evaluate(addr); !d.Accept {
			return d
		}
	}
	return Admit()
}
