package game

import "sort"

const (
	DotGreen   = "🟢"
	DotBlue    = "🔵"
	DotYellow  = "🟡"
	DotRed     = "🔴"
	DotNeutral = "⚪"
)

// RecommendationFor maps an edge to a recommendation and nothing else.
func RecommendationFor(edge *float64) Recommendation {
	if edge == nil {
		return RecommendationNone
	}
	switch {
	case *edge >= EdgeThreshold:
		return RecommendationOver
	case *edge <= -EdgeThreshold:
		return RecommendationUnder
	default:
		return RecommendationNone
	}
}

func ColorFor(rec Recommendation) Color {
	switch rec {
	case RecommendationOver:
		return ColorGreen
	case RecommendationUnder:
		return ColorRed
	default:
		return ""
	}
}

// DotForRank places rank as a percentile of the ranked field.
func DotForRank(rank *int, rankedCount int) string {
	if rank == nil || *rank < 1 || rankedCount < 1 {
		return DotNeutral
	}

	pct := float64(*rank) / float64(rankedCount)
	switch {
	case pct <= 0.25:
		return DotGreen
	case pct <= 0.50:
		return DotBlue
	case pct <= 0.75:
		return DotYellow
	default:
		return DotRed
	}
}

// RankTeamStats orders stats by Last3Avg descending and assigns 1-based
// ranks. Ties keep their input order.
func RankTeamStats(stats []TeamStat) []TeamStat {
	out := append([]TeamStat(nil), stats...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Last3Avg > out[j].Last3Avg
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// PlayResult grades a play against a final score.
type PlayResult string

const (
	ResultWin     PlayResult = "WIN"
	ResultLoss    PlayResult = "LOSS"
	ResultPush    PlayResult = "PUSH"
	ResultPending PlayResult = "PENDING"
)

func ResultOf(play Play, final *Score) PlayResult {
	if final == nil || play.Total == nil {
		return ResultPending
	}

	combined := float64(final.Combined())
	switch {
	case combined == *play.Total:
		return ResultPush
	case play.Recommendation == RecommendationOver && combined > *play.Total,
		play.Recommendation == RecommendationUnder && combined < *play.Total:
		return ResultWin
	case play.Recommendation == RecommendationNone:
		return ResultPending
	default:
		return ResultLoss
	}
}
