// Package gameengine implements the pari-mutuel wagering core inside the
// wagering context.
//
// The module owns game lifecycle orchestration (create/admit/settle), the
// staking and winner-determination policies, and settlement event production
// through outbox-backed workers. It keeps business rules in application and
// domain layers and isolates infrastructure concerns behind ports and
// adapters.
package gameengine
