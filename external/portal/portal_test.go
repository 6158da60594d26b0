package portal

import (
	"context"
	"errors"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyFixture = `
<html><body>
<table><tr><th>Ticket</th><th>Risk</th></tr><tr><td>1</td><td>$10</td></tr></table>
<table>
  <tr><th>Beginning of Week</th><th>Mon</th><th>Tue</th><th>Wed</th><th>Thu</th><th>Fri</th><th>Sat</th><th>Sun</th><th>Total</th></tr>
  <tr><td>Balance</td><td>$500</td><td>$500</td><td>$500</td><td>$500</td><td>$500</td><td>$500</td><td>$500</td><td></td></tr>
  <tr><td>Win/Loss</td><td>$120.00</td><td>-$45.50</td><td>($30.00)</td><td>$0</td><td>$1,250</td><td>-</td><td>$10</td><td>$1,304.50</td></tr>
</table>
</body></html>`

func TestParseWeeklyHistory(t *testing.T) {
	t.Parallel()

	history, err := ParseWeeklyHistory(historyFixture, DefaultMarkers())
	require.NoError(t, err)
	require.Len(t, history.Days, 7)
	assert.Equal(t, usecase.ExternalDayProfit{Day: "Mon", Profit: 120}, history.Days[0])
	assert.Equal(t, -45.5, history.Days[1].Profit)
	assert.Equal(t, -30.0, history.Days[2].Profit)
	assert.Equal(t, 1250.0, history.Days[4].Profit)
	assert.Equal(t, 0.0, history.Days[5].Profit)
	assert.Equal(t, 1304.5, history.WeekTotal)
}

func TestParseWeeklyHistory_SpanishHeadersWithoutTotal(t *testing.T) {
	t.Parallel()

	html := `<table>
	  <tr><td></td><td>Lun</td><td>Mar</td><td>Mié</td></tr>
	  <tr><td>Ganar/Perder</td><td>50</td><td>-20</td><td>5.5</td></tr>
	</table>`
	history, err := ParseWeeklyHistory(html, DefaultMarkers())
	require.NoError(t, err)
	require.Len(t, history.Days, 3)
	assert.Equal(t, 35.5, history.WeekTotal)
}

func TestParseWeeklyHistory_NoTable(t *testing.T) {
	t.Parallel()

	_, err := ParseWeeklyHistory(`<table><tr><td>nothing</td></tr></table>`, DefaultMarkers())
	require.ErrorIs(t, err, ErrHistoryTableNotFound)
}

func TestParseMoney(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"$1,250.00", 1250, true},
		{"-$40", -40, true},
		{"($40.00)", -40, true},
		{"+15", 15, true},
		{"-", 0, false},
		{"n/a", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseMoney(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseMoney(%q) = (%v, %v), want (%v, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestPickSelector(t *testing.T) {
	t.Parallel()

	present := map[string]bool{`input[type="text"]`: true, `input[type="password"]`: true}
	exists := func(s string) bool { return present[s] }

	got, ok := pickSelector(DefaultUserSelectors, exists)
	require.True(t, ok)
	assert.Equal(t, `input[type="text"]`, got)

	_, ok = pickSelector(DefaultSubmitSelectors, exists)
	assert.False(t, ok)
}

type stubSession struct {
	html   string
	err    error
	closed bool
}

func (s *stubSession) Fetch(context.Context, string) (string, error) { return s.html, s.err }
func (s *stubSession) Close() error                                  { s.closed = true; return nil }

type stubSessions struct {
	session *stubSession
	err     error
}

func (s stubSessions) Open(context.Context) (Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

func TestClient_FetchWeeklyHistory(t *testing.T) {
	t.Parallel()

	session := &stubSession{html: historyFixture}
	client := NewClient(stubSessions{session: session}, ClientConfig{HistoryURL: "https://portal.test/history"})

	history, err := client.FetchWeeklyHistory(context.Background())
	require.NoError(t, err)
	assert.Len(t, history.Days, 7)
	assert.True(t, session.closed)
}

func TestClient_FetchWeeklyHistory_LoginFailure(t *testing.T) {
	t.Parallel()

	client := NewClient(stubSessions{err: errors.New("login field not found")}, ClientConfig{HistoryURL: "https://portal.test/history"})
	_, err := client.FetchWeeklyHistory(context.Background())
	if !crerr.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
}
