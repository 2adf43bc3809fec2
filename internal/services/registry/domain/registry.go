package domain

// EventSink receives accepted events in apply order.
type EventSink interface {
	Emit(evt Event)
}

// Log is an in-memory EventSink that keeps every event in order.
type Log struct {
	events []Event
}

// Emit appends evt to the log.
func (l *Log) Emit(evt Event) {
	l.events = append(l.events, evt)
}

// Events returns a copy of the logged events.
func (l *Log) Events() []Event {
	return append([]Event(nil), l.events...)
}

// Registry is the single-writer registry state machine.
//
// It performs no locking; callers present commands one at a time.
type Registry struct {
	state *State
	sink  EventSink
}

// NewRegistry returns an empty registry that emits to sink. A nil sink
// discards events.
func NewRegistry(sink EventSink) *Registry {
	return &Registry{state: NewState(), sink: sink}
}

// State returns a snapshot of the current state.
func (r *Registry) State() *State {
	return r.state.Clone()
}

// Counts reports the number of owned domains, attached subdomains, and
// pointer records without copying state.
func (r *Registry) Counts() (domains, subdomains, pointers int) {
	return r.state.Counts()
}

// Decide evaluates cmd without mutating state.
func (r *Registry) Decide(cmd Command) (Event, error) {
	return Decide(r.state, cmd)
}

// Apply folds an accepted event and emits it.
func (r *Registry) Apply(evt Event) error {
	if err := Fold(r.state, evt); err != nil {
		return err
	}
	if r.sink != nil {
		r.sink.Emit(evt)
	}
	return nil
}

// Restore folds a previously emitted event without emitting it again.
func (r *Registry) Restore(evt Event) error {
	return Fold(r.state, evt)
}

// Execute decides and applies cmd.
func (r *Registry) Execute(cmd Command) (Event, error) {
	evt, err := r.Decide(cmd)
	if err != nil {
		return Event{}, err
	}
	if err := r.Apply(evt); err != nil {
		return Event{}, err
	}
	return evt, nil
}

// ClaimDomain claims name for caller and returns the domain hash.
func (r *Registry) ClaimDomain(name string, caller Identity) (Key, error) {
	evt, err := r.Execute(ClaimDomain(name, caller))
	return evt.DomainHash, err
}

// AttachSubdomain attaches a pointer record under an owned domain and returns
// the subdomain hash.
func (r *Registry) AttachSubdomain(domainHash Key, subdomainName string, subgraphID SubgraphID, metadata MetadataPointer, caller Identity) (Key, error) {
	evt, err := r.Execute(AttachSubdomain(domainHash, subdomainName, subgraphID, metadata, caller))
	return evt.SubdomainHash, err
}

// ChangeMetadata replaces the metadata pointer of a subdomain record.
func (r *Registry) ChangeMetadata(metadata MetadataPointer, domainHash, subdomainHash Key, caller Identity) error {
	_, err := r.Execute(ChangeMetadata(metadata, domainHash, subdomainHash, caller))
	return err
}

// ChangeSubgraphID replaces the subgraph id of an attached subdomain.
func (r *Registry) ChangeSubgraphID(domainHash, subdomainHash Key, subgraphID SubgraphID, caller Identity) error {
	_, err := r.Execute(ChangeSubgraphID(domainHash, subdomainHash, subgraphID, caller))
	return err
}

// DeleteSubdomain removes a subdomain and clears its pointer record.
func (r *Registry) DeleteSubdomain(domainHash, subdomainHash Key, caller Identity) error {
	_, err := r.Execute(DeleteSubdomain(domainHash, subdomainHash, caller))
	return err
}

// ChangeAccountMetadata emits an account metadata notification.
func (r *Registry) ChangeAccountMetadata(metadata MetadataPointer, caller Identity) error {
	_, err := r.Execute(ChangeAccountMetadata(metadata, caller))
	return err
}
