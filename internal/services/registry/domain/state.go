package domain

// SubdomainRef addresses one subdomain under one domain.
type SubdomainRef struct {
	DomainHash    Key
	SubdomainHash Key
}

// Pointer is the record stored for a subdomain hash.
type Pointer struct {
	SubgraphID      SubgraphID
	MetadataPointer MetadataPointer
}

// IsZero reports whether the record is absent.
func (p Pointer) IsZero() bool {
	return p == Pointer{}
}

// State holds the three registry mappings.
//
// Absent entries and zero-valued entries are indistinguishable to readers;
// Fold deletes entries instead of storing zero values.
type State struct {
	owners     map[Key]Identity
	subdomains map[SubdomainRef]bool
	pointers   map[Key]Pointer
}

// NewState returns an empty registry state.
func NewState() *State {
	return &State{
		owners:     make(map[Key]Identity),
		subdomains: make(map[SubdomainRef]bool),
		pointers:   make(map[Key]Pointer),
	}
}

// Owner returns the owner of a domain hash.
func (s *State) Owner(domainHash Key) (Identity, bool) {
	owner, ok := s.owners[domainHash]
	return owner, ok
}

// SubdomainExists reports whether a subdomain is attached under a domain.
func (s *State) SubdomainExists(domainHash, subdomainHash Key) bool {
	return s.subdomains[SubdomainRef{DomainHash: domainHash, SubdomainHash: subdomainHash}]
}

// Pointer returns the pointer record of a subdomain hash, zero when absent.
func (s *State) Pointer(subdomainHash Key) Pointer {
	return s.pointers[subdomainHash]
}

// Counts reports the number of owned domains, attached subdomains, and pointer records.
func (s *State) Counts() (domains, subdomains, pointers int) {
	return len(s.owners), len(s.subdomains), len(s.pointers)
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	clone := &State{
		owners:     make(map[Key]Identity, len(s.owners)),
		subdomains: make(map[SubdomainRef]bool, len(s.subdomains)),
		pointers:   make(map[Key]Pointer, len(s.pointers)),
	}
	for k, v := range s.owners {
		clone.owners[k] = v
	}
	for k, v := range s.subdomains {
		clone.subdomains[k] = v
	}
	for k, v := range s.pointers {
		clone.pointers[k] = v
	}
	return clone
}
