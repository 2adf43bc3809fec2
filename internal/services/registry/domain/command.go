package domain

// CommandType identifies a registry command.
type CommandType string

const (
	CommandClaimDomain           CommandType = "domain.claim"
	CommandAttachSubdomain       CommandType = "subgraph.attach"
	CommandChangeMetadata        CommandType = "subgraph.change_metadata"
	CommandChangeSubgraphID      CommandType = "subgraph.change_id"
	CommandDeleteSubdomain       CommandType = "subgraph.delete"
	CommandChangeAccountMetadata CommandType = "account.change_metadata"
)

// Command is one requested state change from an authenticated caller.
//
// Only the fields relevant to Type are read.
type Command struct {
	Type            CommandType
	Caller          Identity
	DomainName      string
	DomainHash      Key
	SubdomainName   string
	SubdomainHash   Key
	SubgraphID      SubgraphID
	MetadataPointer MetadataPointer
}

// ClaimDomain builds a domain claim command.
func ClaimDomain(name string, caller Identity) Command {
	return Command{Type: CommandClaimDomain, Caller: caller, DomainName: name}
}

// AttachSubdomain builds a subdomain attach command.
func AttachSubdomain(domainHash Key, subdomainName string, subgraphID SubgraphID, metadata MetadataPointer, caller Identity) Command {
	return Command{
		Type:            CommandAttachSubdomain,
		Caller:          caller,
		DomainHash:      domainHash,
		SubdomainName:   subdomainName,
		SubgraphID:      subgraphID,
		MetadataPointer: metadata,
	}
}

// ChangeMetadata builds a subdomain metadata change command.
func ChangeMetadata(metadata MetadataPointer, domainHash, subdomainHash Key, caller Identity) Command {
	return Command{
		Type:            CommandChangeMetadata,
		Caller:          caller,
		DomainHash:      domainHash,
		SubdomainHash:   subdomainHash,
		MetadataPointer: metadata,
	}
}

// ChangeSubgraphID builds a subgraph id change command.
func ChangeSubgraphID(domainHash, subdomainHash Key, subgraphID SubgraphID, caller Identity) Command {
	return Command{
		Type:          CommandChangeSubgraphID,
		Caller:        caller,
		DomainHash:    domainHash,
		SubdomainHash: subdomainHash,
		SubgraphID:    subgraphID,
	}
}

// DeleteSubdomain builds a subdomain delete command.
func DeleteSubdomain(domainHash, subdomainHash Key, caller Identity) Command {
	return Command{
		Type:          CommandDeleteSubdomain,
		Caller:        caller,
		DomainHash:    domainHash,
		SubdomainHash: subdomainHash,
	}
}

// ChangeAccountMetadata builds an account metadata command.
func ChangeAccountMetadata(metadata MetadataPointer, caller Identity) Command {
	return Command{
		Type:            CommandChangeAccountMetadata,
		Caller:          caller,
		MetadataPointer: metadata,
	}
}
