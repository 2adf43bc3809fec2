package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeDomainAlreadyOwned        = "DOMAIN_ALREADY_OWNED"
	CodeDomainNotOwner            = "DOMAIN_NOT_OWNER"
	CodeSubdomainAlreadyAttached  = "SUBDOMAIN_ALREADY_ATTACHED"
	CodeSubdomainNotRegistered    = "SUBDOMAIN_NOT_REGISTERED"
	CodeCallerRequired            = "CALLER_REQUIRED"
	CodeCommandUnsupported        = "COMMAND_UNSUPPORTED"
	CodeInvalidArgument           = "INVALID_ARGUMENT"
	CodeJournalIntegrityViolation = "JOURNAL_INTEGRITY_VIOLATION"
	CodeNotFound                  = "NOT_FOUND"
)

var enUSMessages = map[Code]string{
	CodeDomainAlreadyOwned:        "Domain is already owned.",
	CodeDomainNotOwner:            "Only the domain owner can call this operation.",
	CodeSubdomainAlreadyAttached:  "This subdomain already has a subgraph attached.",
	CodeSubdomainNotRegistered:    "The subdomain must be registered before its subgraph ID can change.",
	CodeCallerRequired:            "A caller account is required.",
	CodeCommandUnsupported:        "This operation is not supported.",
	CodeInvalidArgument:           "Invalid {{.Field}}.",
	CodeJournalIntegrityViolation: "The event journal failed integrity verification.",
	CodeNotFound:                  "Record not found.",
}

var ptBRMessages = map[Code]string{
	CodeDomainAlreadyOwned:        "O domínio já possui dono.",
	CodeDomainNotOwner:            "Apenas o dono do domínio pode executar esta operação.",
	CodeSubdomainAlreadyAttached:  "Este subdomínio já possui um subgraph associado.",
	CodeSubdomainNotRegistered:    "O subdomínio precisa estar registrado para alterar o subgraph.",
	CodeCallerRequired:            "É necessário informar a conta de origem.",
	CodeCommandUnsupported:        "Esta operação não é suportada.",
	CodeInvalidArgument:           "{{.Field}} inválido.",
	CodeJournalIntegrityViolation: "O diário de eventos falhou na verificação de integridade.",
	CodeNotFound:                  "Registro não encontrado.",
}
