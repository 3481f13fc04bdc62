package domain_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/cas-server/internal/core/domain"
)

func TestNewTicketID_MatchesWireFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^ST-\d{10}-[A-Za-z0-9]{32}$`)

	id, err := domain.NewTicketID(domain.KindServiceTicket, 42)
	require.NoError(t, err)
	assert.Regexp(t, pattern, id)
	assert.Contains(t, id, "-0000000042-")
}

func TestNewTicketID_SequenceWrapsAtTenDigits(t *testing.T) {
	id, err := domain.NewTicketID(domain.KindTicketGrantingTicket, 10_000_000_005)
	require.NoError(t, err)
	assert.Contains(t, id, "-0000000005-")
}

func TestNewTicketID_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id, err := domain.NewTicketID(domain.KindProxyTicket, uint64(i))
		require.NoError(t, err)
		require.False(t, seen[id], "generated duplicate ticket id %s", id)
		seen[id] = true
	}
}

func TestTicket_IsExpired(t *testing.T) {
	now := time.Now()
	ticket := &domain.Ticket{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, ticket.IsExpired(now))
	assert.True(t, ticket.IsExpired(now.Add(2*time.Minute)))
}

func TestTicket_SingleUse(t *testing.T) {
	assert.True(t, (&domain.Ticket{Kind: domain.KindServiceTicket}).SingleUse())
	assert.True(t, (&domain.Ticket{Kind: domain.KindProxyTicket}).SingleUse())
	assert.False(t, (&domain.Ticket{Kind: domain.KindProxyGrantingTicket}).SingleUse())
	assert.False(t, (&domain.Ticket{Kind: domain.KindTicketGrantingTicket}).SingleUse())
}

func TestMatchesService(t *testing.T) {
	cases := []struct {
		name     string
		stored   string
		supplied string
		want     bool
	}{
		{"exact match", "http://www.example.com/", "http://www.example.com/", true},
		{"trailing slash on one side", "http://www.example.com", "http://www.example.com/", true},
		{"trailing slash on both", "http://www.example.com/", "http://www.example.com", true},
		{"different host", "http://www.example.com/", "http://www.example.org/", false},
		{"query string must match literally", "http://www.example.com/?a=1", "http://www.example.com/?a=2", false},
		{"case sensitive path", "http://www.example.com/App", "http://www.example.com/app", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.MatchesService(tc.stored, tc.supplied))
		})
	}
}
