package domain

import "time"

// Submission reúne tudo que o gatekeeper precisa avaliar de uma submissão.
type Submission struct {
	FormID     int64
	IP         string
	Email      string
	Identifier string
	UserID     int64
	Password   string
	TicketCode string
	Security   SecurityFields
}

// Stage é a etapa do gatekeeper que produziu a decisão.
type Stage string

const (
	StageChallenge   Stage = "challenge"
	StageRateLimit   Stage = "rate_limit"
	StageRestriction Stage = "restriction"
	StageAdmitted    Stage = "admitted"
)

// GateDecision é o resultado composto de Gatekeeper.Admit.
type GateDecision struct {
	DecisionID  string
	Allowed     bool
	Stage       Stage
	Reason      string
	Message     string
	WaitSeconds int
	Scope       Scope
	Subject     string
	IsTicket    bool
	Ticket      string
}

// AuditEvent é o registro entregue ao AuditSink.
type AuditEvent struct {
	ID         string
	Kind       string
	Allowed    bool
	Stage      Stage
	Scope      Scope
	Reason     string
	Subject    string
	FormID     int64
	OccurredAt time.Time
	Detail     string
}

const (
	AuditKindDecision = "decision"
	AuditKindDegraded = "degraded"
)
