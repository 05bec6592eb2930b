package domain

import "github.com/ethereum/go-ethereum/common"

// Participants is the append-only registry of the addresses that entered a
// round, kept in deposit order. Membership is answered through an index so a
// full round does not degrade into linear scans.
type Participants struct {
	Addresses []common.Address
	index     map[common.Address]struct{}
}

func NewParticipants(addresses ...common.Address) Participants {
	p := Participants{
		Addresses: make([]common.Address, 0, len(addresses)),
		index:     make(map[common.Address]struct{}, len(addresses)),
	}
	for _, addr := range addresses {
		p.Add(addr)
	}
	return p
}

func (p Participants) Has(addr common.Address) bool {
	if p.index == nil {
		// Decoded from a store without the index: fall back to a scan rather
		// than mutating a value that may be shared with readers.
		for _, a := range p.Addresses {
			if a == addr {
				return true
			}
		}
		return false
	}
	_, ok := p.index[addr]
	return ok
}

func (p Participants) Count() int {
	return len(p.Addresses)
}

func (p Participants) At(i int) common.Address {
	return p.Addresses[i]
}

func (p Participants) List() []common.Address {
	return append([]common.Address{}, p.Addresses...)
}

// Add appends addr. Callers check membership and capacity beforehand.
func (p *Participants) Add(addr common.Address) {
	if p.index == nil {
		p.reindex()
	}
	p.Addresses = append(p.Addresses, addr)
	p.index[addr] = struct{}{}
}

func (p Participants) clone() Participants {
	return NewParticipants(p.Addresses...)
}

func (p *Participants) reindex() {
	p.index = make(map[common.Address]struct{}, len(p.Addresses))
	for _, a := range p.Addresses {
		p.index[a] = struct{}{}
	}
}
