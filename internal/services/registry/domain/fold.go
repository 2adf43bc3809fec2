package domain

import "fmt"

// Fold applies an accepted event to state.
func Fold(state *State, evt Event) error {
	if evt.Payload == nil || evt.Payload.EventType() != evt.Type {
		return fmt.Errorf("fold %s: payload does not match event type", evt.Type)
	}
	switch payload := evt.Payload.(type) {
	case DomainClaimedPayload:
		state.owners[evt.DomainHash] = payload.Owner

	case SubgraphAttachedPayload:
		state.subdomains[SubdomainRef{DomainHash: evt.DomainHash, SubdomainHash: evt.SubdomainHash}] = true
		state.setPointer(evt.SubdomainHash, Pointer{
			SubgraphID:      payload.SubgraphID,
			MetadataPointer: payload.MetadataPointer,
		})

	case MetadataChangedPayload:
		record := state.pointers[evt.SubdomainHash]
		record.MetadataPointer = payload.MetadataPointer
		state.setPointer(evt.SubdomainHash, record)

	case SubgraphIDChangedPayload:
		record := state.pointers[evt.SubdomainHash]
		record.SubgraphID = payload.SubgraphID
		state.setPointer(evt.SubdomainHash, record)

	case SubgraphDeletedPayload:
		delete(state.subdomains, SubdomainRef{DomainHash: evt.DomainHash, SubdomainHash: evt.SubdomainHash})
		delete(state.pointers, evt.SubdomainHash)

	case AccountMetadataChangedPayload:
		// Notification only.

	default:
		return fmt.Errorf("fold %s: unsupported payload %T", evt.Type, payload)
	}
	return nil
}

func (s *State) setPointer(subdomainHash Key, record Pointer) {
	if record.IsZero() {
		delete(s.pointers, subdomainHash)
		return
	}
	s.pointers[subdomainHash] = record
}
