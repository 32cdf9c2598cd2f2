package model

// DomainEventKind names an event the ledger contract emits in transaction
// logs. Unrecognized event names are not an error: the ledger client keeps
// them as-is and skips only log lines it cannot decode.
type DomainEventKind string

// DomainEventKind values. The ledger client maps the contract's
// "streak_increased" and "new_sloth" event names onto these.
const (
	DomainEventStreakIncreased DomainEventKind = "StreakIncreased"
	DomainEventNewSloth        DomainEventKind = "NewSloth"
)

// DomainEvent is one decoded transaction log line. Payload is kept as raw
// JSON since the bot only forwards these for observability.
type DomainEvent struct {
	Kind    DomainEventKind
	Payload []byte
}
