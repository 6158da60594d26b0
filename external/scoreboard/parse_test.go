package scoreboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scoreboardFixture = `
<html><body>
<section class="Scoreboard">
  <a href="/nba/team/_/name/bos/boston-celtics">Boston Celtics</a>
  <a href="/nba/team/_/name/bos/boston-celtics">Boston Celtics</a>
  <a href="/nba/team/_/name/ny/new-york-knicks">New York Knicks</a>
  <div class="Odds">Line: BOS -4.5 o224.5</div>
  <div class="status">7:30 PM</div>
</section>
<section class="Scoreboard">
  <a href="/mens-college-basketball/team/_/id/150/duke">12 Duke Blue Devils</a>
  <a href="/mens-college-basketball/team/_/id/153/unc">North Carolina Tar Heels</a>
  <div class="status">Final</div>
  <div class="ScoreCell__Score">81</div>
  <div class="ScoreCell__Score">77</div>
</section>
<section class="Scoreboard">
  <a href="/nba/team/_/name/den/denver-nuggets">Denver Nuggets</a>
  <div class="Odds">O/U 238</div>
</section>
</body></html>`

func TestParse_ExtractsCards(t *testing.T) {
	t.Parallel()

	games, err := Parse(scoreboardFixture, DefaultSelectors())
	require.NoError(t, err)
	require.Len(t, games, 2)

	first := games[0]
	assert.Equal(t, "Boston Celtics", first.AwayTeam)
	assert.Equal(t, "New York Knicks", first.HomeTeam)
	assert.Equal(t, "/nba/team/_/name/bos/boston-celtics", first.AwayRef)
	require.NotNil(t, first.Total)
	assert.Equal(t, 224.5, *first.Total)
	assert.Equal(t, "7:30 PM", first.Time)
	assert.Nil(t, first.FinalScore)

	second := games[1]
	assert.Equal(t, "Duke Blue Devils", second.AwayTeam)
	assert.Nil(t, second.Total)
	require.NotNil(t, second.FinalScore)
	assert.Equal(t, 158, second.FinalScore.Combined())
}

func TestParse_OneTeamCardYieldsNoGame(t *testing.T) {
	t.Parallel()

	html := `<section class="Scoreboard"><a href="/nba/team/_/name/den">Denver Nuggets</a><div class="Odds">o230</div></section>`
	games, err := Parse(html, DefaultSelectors())
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestParse_CompactMarkup(t *testing.T) {
	t.Parallel()

	html := `<section class="Scoreboard"><a href="/nba/team/_/name/bos">Boston Celtics</a><a href="/nba/team/_/name/ny">New York Knicks</a>` +
		`<span>Line</span><span>o224.5</span><span>Tip</span><span>7:30 PM</span></section>` +
		`<section class="Scoreboard"><a href="/nba/team/_/name/lal">Los Angeles Lakers</a><a href="/nba/team/_/name/phx">Phoenix Suns</a>` +
		`<span>Final</span><span class="score">110</span><span class="score">104</span></section>`

	games, err := Parse(html, DefaultSelectors())
	require.NoError(t, err)
	require.Len(t, games, 2)

	require.NotNil(t, games[0].Total)
	assert.Equal(t, 224.5, *games[0].Total)
	assert.Equal(t, "7:30 PM", games[0].Time)

	require.NotNil(t, games[1].FinalScore)
	assert.Equal(t, 110, games[1].FinalScore.Away)
	assert.Equal(t, 104, games[1].FinalScore.Home)
}

func TestCleanTeamName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"  12 Duke ":          "Duke",
		"(3) Houston":         "Houston",
		"Philadelphia  76ers": "Philadelphia 76ers",
		"":                    "",
	}
	for raw, want := range tests {
		if got := CleanTeamName(raw); got != want {
			t.Fatalf("CleanTeamName(%q) = %q, want %q", raw, got, want)
		}
	}
}

type stubFetcher struct {
	html string
	err  error
	url  string
}

func (s *stubFetcher) Fetch(_ context.Context, pageURL string) (string, error) {
	s.url = pageURL
	return s.html, s.err
}

func TestClient_FetchScoreboard(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{html: scoreboardFixture}
	client := NewClient(fetcher, ClientConfig{URLTemplate: "https://scores.test/{league}/{date}?d={iso_date}"})

	games, err := client.FetchScoreboard(context.Background(), "NBA", time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, games, 2)
	assert.Equal(t, "https://scores.test/nba/20260116?d=2026-01-16", fetcher.url)
}

func TestClient_FetchScoreboard_FetchError(t *testing.T) {
	t.Parallel()

	client := NewClient(&stubFetcher{err: errors.New("timeout")}, ClientConfig{})
	_, err := client.FetchScoreboard(context.Background(), "nba", time.Now())
	require.Error(t, err)
}
