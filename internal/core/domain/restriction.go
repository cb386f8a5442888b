package domain

// FormConfig é a configuração de restrição de acesso de um formulário.
type FormConfig struct {
	FormID   int64
	Policies RestrictionPolicies
}

// RestrictionPolicies carrega as políticas habilitadas; nil significa desabilitada.
// Evaluation order is fixed regardless of how the policies were declared:
// password, denylist, allowlist, ticket.
type RestrictionPolicies struct {
	Password  *PasswordPolicy
	Denylist  *ListPolicy
	Allowlist *ListPolicy
	Ticket    *TicketPolicy
}

// Enabled reports whether any restriction is active.
func (p RestrictionPolicies) Enabled() bool {
	return p.Password != nil || p.Denylist != nil || p.Allowlist != nil || p.Ticket != nil
}

type PasswordPolicy struct {
	ValidationCode string
}

// ListPolicy holds identifiers exactly as configured; they are normalized at check time.
type ListPolicy struct {
	Entries []string
}

type TicketPolicy struct {
	Codes []string
	// IgnoreDashes makes "ABC-DEF-123" and "ABCDEF123" the same ticket.
	IgnoreDashes bool
}

// RestrictionAttempt é o que o visitante enviou para as políticas do formulário.
type RestrictionAttempt struct {
	FormID     int64
	Identifier string
	Password   string
	TicketCode string
}

// RestrictionReason identifica a política que negou a tentativa.
type RestrictionReason string

const (
	RestrictionNone            RestrictionReason = ""
	RestrictionPasswordMissing RestrictionReason = "password_missing"
	RestrictionPasswordInvalid RestrictionReason = "password_invalid"
	RestrictionDenied          RestrictionReason = "denylisted"
	RestrictionNotAllowed      RestrictionReason = "not_allowlisted"
	RestrictionTicketMissing   RestrictionReason = "ticket_missing"
	RestrictionTicketInvalid   RestrictionReason = "ticket_invalid"
)

// RestrictionResult é o resultado de AccessRestrictionChecker.Check.
//
// IsTicket=true means a ticket policy passed and the caller must consume
// Ticket, the matched pool entry as stored, exactly once after the submission is saved. The result is not
// authoritative for the ticket until that consumption succeeds.
type RestrictionResult struct {
	Allowed  bool
	Reason   RestrictionReason
	Message  string
	IsTicket bool
	Ticket   string
}

var RestrictionMessages = map[RestrictionReason]string{
	RestrictionPasswordMissing: "Please enter the access code for this form.",
	RestrictionPasswordInvalid: "The access code is incorrect.",
	RestrictionDenied:          "Your identifier is blocked from submitting this form.",
	RestrictionNotAllowed:      "Your identifier is not authorized to submit this form.",
	RestrictionTicketMissing:   "Please enter your ticket code.",
	RestrictionTicketInvalid:   "Invalid or already used ticket.",
}
