package domain

// Decide evaluates every guard for cmd against state and returns the event
// an accepted command emits. State is only read.
//
// Existence guards run before ownership guards, so a duplicate attach or a
// subgraph change on an unregistered subdomain is rejected the same way for
// every caller.
func Decide(state *State, cmd Command) (Event, error) {
	if cmd.Caller == (Identity{}) {
		return Event{}, ErrCallerRequired
	}
	switch cmd.Type {
	case CommandClaimDomain:
		domainHash := HashName(cmd.DomainName)
		if _, owned := state.Owner(domainHash); owned {
			return Event{}, ErrAlreadyOwned
		}
		return Event{
			Type:       EventDomainClaimed,
			Caller:     cmd.Caller,
			DomainHash: domainHash,
			Payload:    DomainClaimedPayload{Owner: cmd.Caller, DomainName: cmd.DomainName},
		}, nil

	case CommandAttachSubdomain:
		subdomainHash := HashName(cmd.SubdomainName)
		if state.SubdomainExists(cmd.DomainHash, subdomainHash) {
			return Event{}, ErrAlreadyAttached
		}
		if !isOwner(state, cmd.DomainHash, cmd.Caller) {
			return Event{}, ErrNotOwner
		}
		return Event{
			Type:          EventSubgraphAttached,
			Caller:        cmd.Caller,
			DomainHash:    cmd.DomainHash,
			SubdomainHash: subdomainHash,
			Payload: SubgraphAttachedPayload{
				SubgraphID:      cmd.SubgraphID,
				SubdomainName:   cmd.SubdomainName,
				MetadataPointer: cmd.MetadataPointer,
			},
		}, nil

	case CommandChangeMetadata:
		// No existence check: metadata may be set on a record that was never attached.
		if !isOwner(state, cmd.DomainHash, cmd.Caller) {
			return Event{}, ErrNotOwner
		}
		return Event{
			Type:          EventMetadataChanged,
			Caller:        cmd.Caller,
			DomainHash:    cmd.DomainHash,
			SubdomainHash: cmd.SubdomainHash,
			Payload:       MetadataChangedPayload{MetadataPointer: cmd.MetadataPointer},
		}, nil

	case CommandChangeSubgraphID:
		if !state.SubdomainExists(cmd.DomainHash, cmd.SubdomainHash) {
			return Event{}, ErrSubdomainNotRegistered
		}
		if !isOwner(state, cmd.DomainHash, cmd.Caller) {
			return Event{}, ErrNotOwner
		}
		return Event{
			Type:          EventSubgraphIDChanged,
			Caller:        cmd.Caller,
			DomainHash:    cmd.DomainHash,
			SubdomainHash: cmd.SubdomainHash,
			Payload:       SubgraphIDChangedPayload{SubgraphID: cmd.SubgraphID},
		}, nil

	case CommandDeleteSubdomain:
		if !isOwner(state, cmd.DomainHash, cmd.Caller) {
			return Event{}, ErrNotOwner
		}
		return Event{
			Type:          EventSubgraphDeleted,
			Caller:        cmd.Caller,
			DomainHash:    cmd.DomainHash,
			SubdomainHash: cmd.SubdomainHash,
			Payload:       SubgraphDeletedPayload{},
		}, nil

	case CommandChangeAccountMetadata:
		return Event{
			Type:    EventAccountMetadataChanged,
			Caller:  cmd.Caller,
			Payload: AccountMetadataChangedPayload{Account: cmd.Caller, MetadataPointer: cmd.MetadataPointer},
		}, nil

	default:
		return Event{}, ErrCommandUnsupported
	}
}

func isOwner(state *State, domainHash Key, caller Identity) bool {
	owner, ok := state.Owner(domainHash)
	return ok && owner == caller
}
