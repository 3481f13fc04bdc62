package domain

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// TicketKind distinguishes the four ticket types the CAS protocol issues.
type TicketKind string

const (
	KindServiceTicket        TicketKind = "ST"
	KindProxyTicket          TicketKind = "PT"
	KindProxyGrantingTicket  TicketKind = "PGT"
	KindTicketGrantingTicket TicketKind = "TGT"
)

// prefix returns the wire prefix used when minting an identifier of this kind.
func (k TicketKind) prefix() string {
	return string(k)
}

const ticketSuffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Ticket is the persisted record backing every CAS ticket kind. Not every
// field applies to every kind: Service and Consumed apply to ST/PT,
// GrantedByST and GrantedByPT apply only to a PGT (exactly one of them is
// set), GrantedByPGT applies only to a PT, PGTIOU applies only to PGT.
type Ticket struct {
	ID               string
	Kind             TicketKind
	Principal        string
	Service          string
	CreatedAt        time.Time
	ExpiresAt        time.Time
	Consumed         bool
	GrantedByTGT     string // TGT this ticket (ST, PGT or PT) was ultimately issued under
	GrantedByST      string // ST this PGT was issued from, when granted directly to a service
	GrantedByPT      string // PT this PGT was issued from, when issued via a proxy chain
	GrantedByPGT     string // PGT this PT was issued from
	PGTIOU           string // correlator handed to the service in place of the PGT itself
	ProxyCallbackURL string // pgtUrl supplied by the service that requested this PGT
}

// NewTicketID mints a CAS-format ticket identifier: PREFIX-10digits-32alnum.
// The numeric and random segments are independent of each other; only the
// random segment needs to be unguessable.
func NewTicketID(kind TicketKind, sequence uint64) (string, error) {
	suffix, err := randomAlphanumeric(32)
	if err != nil {
		return "", fmt.Errorf("generate ticket suffix: %w", err)
	}
	return fmt.Sprintf("%s-%010d-%s", kind.prefix(), sequence%10000000000, suffix), nil
}

func randomAlphanumeric(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	alphabetLen := byte(len(ticketSuffixAlphabet))
	for i, b := range buf {
		out[i] = ticketSuffixAlphabet[b%alphabetLen]
	}
	return string(out), nil
}

// IsExpired reports whether the ticket's lifetime has elapsed as of now.
func (t *Ticket) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// SingleUse reports whether this ticket kind must be consumed exactly once
// on successful validation. TGT and PGT are reusable for the life of the
// session; ST and PT are not.
func (t *Ticket) SingleUse() bool {
	return t.Kind == KindServiceTicket || t.Kind == KindProxyTicket
}

// MatchesService applies the CAS service-URL comparison rule: strip one
// trailing slash from both sides, then compare scheme, host and path
// case-sensitively. The query string, if any, is preserved literally and
// participates in the comparison.
func MatchesService(ticketService, requestService string) bool {
	return strings.TrimSuffix(ticketService, "/") == strings.TrimSuffix(requestService, "/")
}
