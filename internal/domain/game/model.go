package game

import "math"

type Recommendation string

const (
	RecommendationOver  Recommendation = "OVER"
	RecommendationUnder Recommendation = "UNDER"
	RecommendationNone  Recommendation = ""
)

// EdgeThreshold is the absolute edge at which a game becomes an opportunity.
const EdgeThreshold = 9.0

type Color string

const (
	ColorGreen Color = "green"
	ColorRed   Color = "red"
)

// Score is a completed game's final score.
type Score struct {
	Away int `json:"away"`
	Home int `json:"home"`
}

func (s Score) Combined() int {
	return s.Away + s.Home
}

// Game is one scheduled or played contest inside a daily record.
// Pointer fields are absent until a pass produces a value for them.
type Game struct {
	GameNum        int            `json:"game_num"`
	AwayTeam       string         `json:"away_team"`
	HomeTeam       string         `json:"home_team"`
	AwayRef        string         `json:"away_ref,omitempty"`
	HomeRef        string         `json:"home_ref,omitempty"`
	Time           string         `json:"time"`
	Total          *float64       `json:"total"`
	OpeningTotal   *float64       `json:"opening_total,omitempty"`
	FinalScore     *Score         `json:"final_score"`
	AwayPPG        *float64       `json:"away_ppg_value"`
	HomePPG        *float64       `json:"home_ppg_value"`
	AwayRank       *int           `json:"away_ppg_rank"`
	HomeRank       *int           `json:"home_ppg_rank"`
	CombinedPPG    *float64       `json:"combined_ppg"`
	Edge           *float64       `json:"edge"`
	Recommendation Recommendation `json:"recommendation"`
	AwayDots       string         `json:"away_dots"`
	HomeDots       string         `json:"home_dots"`
}

// Line returns the total the edge is measured against.
func (g Game) Line() *float64 {
	if g.Total != nil {
		return g.Total
	}
	return g.OpeningTotal
}

// Dots returns the two-character rank indicator, away first.
func (g Game) Dots() string {
	away := g.AwayDots
	if away == "" {
		away = DotNeutral
	}
	home := g.HomeDots
	if home == "" {
		home = DotNeutral
	}
	return away + home
}

// Play is the betting-opportunity view of a game.
type Play struct {
	GameNum        int            `json:"game_num"`
	AwayTeam       string         `json:"away_team"`
	HomeTeam       string         `json:"home_team"`
	Time           string         `json:"time"`
	Total          *float64       `json:"total"`
	CombinedPPG    *float64       `json:"combined_ppg"`
	Edge           *float64       `json:"edge"`
	Recommendation Recommendation `json:"recommendation"`
	Color          Color          `json:"color"`
}

// TeamStat is the per-run scoring sample of one team.
// Last3 is chronological: oldest first, most recent last.
type TeamStat struct {
	TeamName string  `json:"team_name"`
	Last3    []int   `json:"last3_scores"`
	Last3Avg float64 `json:"last3_avg"`
	Rank     int     `json:"rank,omitempty"`
}

// NewTeamStat builds a stat from chronological scores, keeping the last three.
func NewTeamStat(name string, scores []int) (TeamStat, bool) {
	if len(scores) == 0 {
		return TeamStat{}, false
	}
	if len(scores) > 3 {
		scores = scores[len(scores)-3:]
	}

	sum := 0
	for _, score := range scores {
		sum += score
	}

	return TeamStat{
		TeamName: name,
		Last3:    append([]int(nil), scores...),
		Last3Avg: Round1(float64(sum) / float64(len(scores))),
	}, true
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
