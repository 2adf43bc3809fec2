package domain

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
)

var (
	ownerU1 = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	otherU2 = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	otherU3 = common.HexToAddress("0x00000000000000000000000000000000000000c3")

	subgraphS1 = common.HexToHash("0x5151515151515151515151515151515151515151515151515151515151515151")
	subgraphS2 = common.HexToHash("0x5252525252525252525252525252525252525252525252525252525252525252")
	metadataM1 = common.HexToHash("0x6d316d316d316d316d316d316d316d316d316d316d316d316d316d316d316d31")
	metadataM2 = common.HexToHash("0x6d326d326d326d326d326d326d326d326d326d326d326d326d326d326d326d32")
)

const (
	topLevelDomain = "thegraph.com"
	subdomainName  = "david.thegraph.com"
)

func newClaimedRegistry(t *testing.T) (*Registry, *Log, Key) {
	t.Helper()
	log := &Log{}
	reg := NewRegistry(log)
	domainHash, err := reg.ClaimDomain(topLevelDomain, ownerU1)
	if err != nil {
		t.Fatalf("claim domain: %v", err)
	}
	return reg, log, domainHash
}

func TestHashName_IsKeccak256(t *testing.T) {
	// keccak256("") is a fixed, well-known constant.
	want := common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	if got := HashName(""); got != want {
		t.Fatalf("HashName(\"\") = %s, want %s", got.Hex(), want.Hex())
	}
	if HashName(topLevelDomain) == HashName(subdomainName) {
		t.Fatal("expected distinct names to hash differently")
	}
}

func TestClaimDomain_SetsOwnerAndEmits(t *testing.T) {
	reg, log, domainHash := newClaimedRegistry(t)

	if domainHash != HashName(topLevelDomain) {
		t.Fatalf("domain hash = %s, want hash of name", domainHash.Hex())
	}
	owner, ok := reg.State().Owner(domainHash)
	if !ok || owner != ownerU1 {
		t.Fatalf("owner = %s (%v), want %s", owner.Hex(), ok, ownerU1.Hex())
	}

	events := log.Events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	want := Event{
		Type:       EventDomainClaimed,
		Caller:     ownerU1,
		DomainHash: domainHash,
		Payload:    DomainClaimedPayload{Owner: ownerU1, DomainName: topLevelDomain},
	}
	if diff := cmp.Diff(want, events[0]); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestClaimDomain_RejectsSecondClaim(t *testing.T) {
	for _, caller := range []Identity{ownerU1, otherU2} {
		reg, log, domainHash := newClaimedRegistry(t)

		_, err := reg.ClaimDomain(topLevelDomain, caller)
		if !errors.Is(err, ErrAlreadyOwned) {
			t.Fatalf("claim by %s: err = %v, want %v", caller.Hex(), err, ErrAlreadyOwned)
		}
		if owner, _ := reg.State().Owner(domainHash); owner != ownerU1 {
			t.Fatalf("owner changed to %s", owner.Hex())
		}
		if len(log.Events()) != 1 {
			t.Fatalf("rejected claim emitted an event")
		}
	}
}

func TestDecide_RejectsZeroCaller(t *testing.T) {
	reg := NewRegistry(nil)
	if _, err := reg.ClaimDomain(topLevelDomain, Identity{}); !errors.Is(err, ErrCallerRequired) {
		t.Fatalf("err = %v, want %v", err, ErrCallerRequired)
	}
	if err := reg.ChangeAccountMetadata(metadataM1, Identity{}); !errors.Is(err, ErrCallerRequired) {
		t.Fatalf("err = %v, want %v", err, ErrCallerRequired)
	}
}

func TestDecide_RejectsUnknownCommand(t *testing.T) {
	_, err := Decide(NewState(), Command{Type: "domain.transfer", Caller: ownerU1})
	if !errors.Is(err, ErrCommandUnsupported) {
		t.Fatalf("err = %v, want %v", err, ErrCommandUnsupported)
	}
}

func TestAttachSubdomain_OwnerOnlyAndOnce(t *testing.T) {
	reg, log, domainHash := newClaimedRegistry(t)

	if _, err := reg.AttachSubdomain(domainHash, "other.thegraph.com", subgraphS1, metadataM1, otherU3); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner attach: err = %v, want %v", err, ErrNotOwner)
	}

	subdomainHash, err := reg.AttachSubdomain(domainHash, subdomainName, subgraphS1, metadataM1, ownerU1)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if subdomainHash != HashName(subdomainName) {
		t.Fatalf("subdomain hash = %s, want hash of name", subdomainHash.Hex())
	}
	state := reg.State()
	if !state.SubdomainExists(domainHash, subdomainHash) {
		t.Fatal("expected subdomain to exist")
	}
	if got := state.Pointer(subdomainHash); got != (Pointer{SubgraphID: subgraphS1, MetadataPointer: metadataM1}) {
		t.Fatalf("pointer = %+v", got)
	}

	if _, err := reg.AttachSubdomain(domainHash, subdomainName, subgraphS2, metadataM2, ownerU1); !errors.Is(err, ErrAlreadyAttached) {
		t.Fatalf("second attach: err = %v, want %v", err, ErrAlreadyAttached)
	}
	if got := reg.State().Pointer(subdomainHash); got.SubgraphID != subgraphS1 {
		t.Fatalf("rejected attach changed pointer to %+v", got)
	}

	events := log.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	want := Event{
		Type:          EventSubgraphAttached,
		Caller:        ownerU1,
		DomainHash:    domainHash,
		SubdomainHash: subdomainHash,
		Payload: SubgraphAttachedPayload{
			SubgraphID:      subgraphS1,
			SubdomainName:   subdomainName,
			MetadataPointer: metadataM1,
		},
	}
	if diff := cmp.Diff(want, events[1]); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestAttachSubdomain_UnclaimedDomainRejectsEveryCaller(t *testing.T) {
	reg := NewRegistry(nil)
	_, err := reg.AttachSubdomain(HashName("unclaimed.com"), subdomainName, subgraphS1, metadataM1, ownerU1)
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want %v", err, ErrNotOwner)
	}
}

func TestChangeMetadata(t *testing.T) {
	reg, log, domainHash := newClaimedRegistry(t)
	subdomainHash, err := reg.AttachSubdomain(domainHash, subdomainName, subgraphS1, metadataM1, ownerU1)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	if err := reg.ChangeMetadata(metadataM2, domainHash, subdomainHash, otherU3); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner change: err = %v, want %v", err, ErrNotOwner)
	}
	if err := reg.ChangeMetadata(metadataM2, domainHash, subdomainHash, ownerU1); err != nil {
		t.Fatalf("change metadata: %v", err)
	}
	if got := reg.State().Pointer(subdomainHash); got != (Pointer{SubgraphID: subgraphS1, MetadataPointer: metadataM2}) {
		t.Fatalf("pointer = %+v, want subgraph unchanged and new metadata", got)
	}

	events := log.Events()
	last := events[len(events)-1]
	want := Event{
		Type:          EventMetadataChanged,
		Caller:        ownerU1,
		DomainHash:    domainHash,
		SubdomainHash: subdomainHash,
		Payload:       MetadataChangedPayload{MetadataPointer: metadataM2},
	}
	if diff := cmp.Diff(want, last); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestChangeMetadata_AllowsUnattachedSubdomain(t *testing.T) {
	reg, _, domainHash := newClaimedRegistry(t)
	unattached := HashName("ghost.thegraph.com")

	if err := reg.ChangeMetadata(metadataM1, domainHash, unattached, ownerU1); err != nil {
		t.Fatalf("change metadata on unattached subdomain: %v", err)
	}
	state := reg.State()
	if state.SubdomainExists(domainHash, unattached) {
		t.Fatal("metadata change must not create the subdomain")
	}
	if got := state.Pointer(unattached); got != (Pointer{MetadataPointer: metadataM1}) {
		t.Fatalf("pointer = %+v", got)
	}
}

func TestChangeSubgraphID(t *testing.T) {
	reg, log, domainHash := newClaimedRegistry(t)
	subdomainHash, err := reg.AttachSubdomain(domainHash, subdomainName, subgraphS1, metadataM1, ownerU1)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	unregistered := common.HexToHash("0x1234")
	for _, caller := range []Identity{ownerU1, otherU3} {
		if err := reg.ChangeSubgraphID(domainHash, unregistered, subgraphS2, caller); !errors.Is(err, ErrSubdomainNotRegistered) {
			t.Fatalf("unregistered change by %s: err = %v, want %v", caller.Hex(), err, ErrSubdomainNotRegistered)
		}
	}
	if err := reg.ChangeSubgraphID(domainHash, subdomainHash, subgraphS2, otherU3); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner change: err = %v, want %v", err, ErrNotOwner)
	}
	before := len(log.Events())

	if err := reg.ChangeSubgraphID(domainHash, subdomainHash, subgraphS2, ownerU1); err != nil {
		t.Fatalf("change subgraph id: %v", err)
	}
	if got := reg.State().Pointer(subdomainHash); got != (Pointer{SubgraphID: subgraphS2, MetadataPointer: metadataM1}) {
		t.Fatalf("pointer = %+v", got)
	}
	events := log.Events()
	if len(events) != before+1 {
		t.Fatalf("events = %d, want %d", len(events), before+1)
	}
	want := Event{
		Type:          EventSubgraphIDChanged,
		Caller:        ownerU1,
		DomainHash:    domainHash,
		SubdomainHash: subdomainHash,
		Payload:       SubgraphIDChangedPayload{SubgraphID: subgraphS2},
	}
	if diff := cmp.Diff(want, events[len(events)-1]); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteSubdomain_RestoresPreCreationState(t *testing.T) {
	reg, log, domainHash := newClaimedRegistry(t)
	before := reg.State()

	subdomainHash, err := reg.AttachSubdomain(domainHash, subdomainName, subgraphS1, metadataM1, ownerU1)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := reg.DeleteSubdomain(domainHash, subdomainHash, otherU3); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner delete: err = %v, want %v", err, ErrNotOwner)
	}
	if err := reg.DeleteSubdomain(domainHash, subdomainHash, ownerU1); err != nil {
		t.Fatalf("delete: %v", err)
	}

	after := reg.State()
	if after.SubdomainExists(domainHash, subdomainHash) {
		t.Fatal("expected subdomain to be removed")
	}
	if !after.Pointer(subdomainHash).IsZero() {
		t.Fatalf("pointer = %+v, want zero", after.Pointer(subdomainHash))
	}
	if diff := cmp.Diff(before, after, cmp.AllowUnexported(State{})); diff != "" {
		t.Fatalf("state after delete differs from before attach (-before +after):\n%s", diff)
	}
	if err := reg.ChangeSubgraphID(domainHash, subdomainHash, subgraphS2, ownerU1); !errors.Is(err, ErrSubdomainNotRegistered) {
		t.Fatalf("change after delete: err = %v, want %v", err, ErrSubdomainNotRegistered)
	}

	events := log.Events()
	last := events[len(events)-1]
	if last.Type != EventSubgraphDeleted || last.DomainHash != domainHash || last.SubdomainHash != subdomainHash {
		t.Fatalf("unexpected delete event: %+v", last)
	}
}

func TestDeleteSubdomain_IsIdempotent(t *testing.T) {
	reg, log, domainHash := newClaimedRegistry(t)
	missing := HashName("never.thegraph.com")

	for i := 0; i < 2; i++ {
		if err := reg.DeleteSubdomain(domainHash, missing, ownerU1); err != nil {
			t.Fatalf("delete attempt %d: %v", i+1, err)
		}
	}
	events := log.Events()
	if len(events) != 3 {
		t.Fatalf("events = %d, want claim plus two deletes", len(events))
	}
	for _, evt := range events[1:] {
		if evt.Type != EventSubgraphDeleted {
			t.Fatalf("event type = %s, want %s", evt.Type, EventSubgraphDeleted)
		}
	}
}

func TestChangeAccountMetadata_EmitsWithoutStateChange(t *testing.T) {
	reg, log, _ := newClaimedRegistry(t)
	before := reg.State()

	for _, caller := range []Identity{ownerU1, otherU2} {
		if err := reg.ChangeAccountMetadata(metadataM1, caller); err != nil {
			t.Fatalf("account metadata by %s: %v", caller.Hex(), err)
		}
	}
	if diff := cmp.Diff(before, reg.State(), cmp.AllowUnexported(State{})); diff != "" {
		t.Fatalf("account metadata mutated state (-before +after):\n%s", diff)
	}

	events := log.Events()
	last := events[len(events)-1]
	want := Event{
		Type:    EventAccountMetadataChanged,
		Caller:  otherU2,
		Payload: AccountMetadataChangedPayload{Account: otherU2, MetadataPointer: metadataM1},
	}
	if diff := cmp.Diff(want, last); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestEndToEndScenario(t *testing.T) {
	log := &Log{}
	reg := NewRegistry(log)

	domainHash, err := reg.ClaimDomain(topLevelDomain, ownerU1)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	subdomainHash, err := reg.AttachSubdomain(domainHash, subdomainName, subgraphS1, metadataM1, ownerU1)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := reg.AttachSubdomain(domainHash, subdomainName, subgraphS1, metadataM1, otherU2); !errors.Is(err, ErrAlreadyAttached) {
		t.Fatalf("attach by U2: err = %v, want %v", err, ErrAlreadyAttached)
	}
	if err := reg.ChangeSubgraphID(domainHash, subdomainHash, subgraphS2, ownerU1); err != nil {
		t.Fatalf("change subgraph id: %v", err)
	}
	if got := reg.State().Pointer(subdomainHash); got != (Pointer{SubgraphID: subgraphS2, MetadataPointer: metadataM1}) {
		t.Fatalf("pointer = %+v, want (S2, M1)", got)
	}
	if err := reg.DeleteSubdomain(domainHash, subdomainHash, ownerU1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	state := reg.State()
	if !state.Pointer(subdomainHash).IsZero() || state.SubdomainExists(domainHash, subdomainHash) {
		t.Fatal("expected zero pointer and exists=false after delete")
	}

	var types []EventType
	for _, evt := range log.Events() {
		types = append(types, evt.Type)
	}
	want := []EventType{EventDomainClaimed, EventSubgraphAttached, EventSubgraphIDChanged, EventSubgraphDeleted}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Fatalf("event order mismatch (-want +got):\n%s", diff)
	}
}

func TestRestore_DoesNotEmit(t *testing.T) {
	log := &Log{}
	reg := NewRegistry(log)
	evt := Event{
		Type:       EventDomainClaimed,
		Caller:     ownerU1,
		DomainHash: HashName(topLevelDomain),
		Payload:    DomainClaimedPayload{Owner: ownerU1, DomainName: topLevelDomain},
	}
	if err := reg.Restore(evt); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(log.Events()) != 0 {
		t.Fatal("restore must not emit")
	}
	if owner, ok := reg.State().Owner(evt.DomainHash); !ok || owner != ownerU1 {
		t.Fatal("expected restored owner")
	}
}

func TestFold_RejectsMismatchedPayload(t *testing.T) {
	err := Fold(NewState(), Event{Type: EventDomainClaimed, Payload: SubgraphDeletedPayload{}})
	if err == nil {
		t.Fatal("expected mismatched payload error")
	}
	if err := Fold(NewState(), Event{Type: EventDomainClaimed}); err == nil {
		t.Fatal("expected missing payload error")
	}
}

func TestPayloadRoundTripThroughJSON(t *testing.T) {
	payloads := []Payload{
		DomainClaimedPayload{Owner: ownerU1, DomainName: topLevelDomain},
		SubgraphAttachedPayload{SubgraphID: subgraphS1, SubdomainName: subdomainName, MetadataPointer: metadataM1},
		MetadataChangedPayload{MetadataPointer: metadataM2},
		SubgraphIDChangedPayload{SubgraphID: subgraphS2},
		SubgraphDeletedPayload{},
		AccountMetadataChangedPayload{Account: otherU2, MetadataPointer: metadataM1},
	}
	for _, payload := range payloads {
		data, err := EncodePayload(payload)
		if err != nil {
			t.Fatalf("encode %s: %v", payload.EventType(), err)
		}
		decoded, err := DecodePayload(payload.EventType(), data)
		if err != nil {
			t.Fatalf("decode %s: %v", payload.EventType(), err)
		}
		if diff := cmp.Diff(payload, decoded); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", payload.EventType(), diff)
		}
	}
	if _, err := DecodePayload("unknown", []byte(`{}`)); err == nil {
		t.Fatal("expected unknown event type error")
	}
}
