package game

// Patch carries the fields a pass produced. A nil field means "no new data"
// and never clears the stored value.
type Patch struct {
	AwayRef      *string
	HomeRef      *string
	Time         *string
	Total        *float64
	OpeningTotal *float64
	FinalScore   *Score
	AwayPPG      *float64
	HomePPG      *float64
	AwayRank     *int
	HomeRank     *int
	CombinedPPG  *float64
	AwayDots     *string
	HomeDots     *string
}

// Apply overlays the patch and recomputes edge and recommendation.
// The opening total is only taken when none is stored yet.
func (g Game) Apply(p Patch) Game {
	if p.AwayRef != nil && *p.AwayRef != "" {
		g.AwayRef = *p.AwayRef
	}
	if p.HomeRef != nil && *p.HomeRef != "" {
		g.HomeRef = *p.HomeRef
	}
	if p.Time != nil && *p.Time != "" {
		g.Time = *p.Time
	}
	if p.Total != nil {
		g.Total = cloneFloat(p.Total)
	}
	if p.OpeningTotal != nil && g.OpeningTotal == nil {
		g.OpeningTotal = cloneFloat(p.OpeningTotal)
	}
	if p.FinalScore != nil {
		score := *p.FinalScore
		g.FinalScore = &score
	}
	if p.AwayPPG != nil {
		g.AwayPPG = cloneFloat(p.AwayPPG)
	}
	if p.HomePPG != nil {
		g.HomePPG = cloneFloat(p.HomePPG)
	}
	if p.AwayRank != nil {
		g.AwayRank = cloneInt(p.AwayRank)
	}
	if p.HomeRank != nil {
		g.HomeRank = cloneInt(p.HomeRank)
	}
	if p.CombinedPPG != nil {
		g.CombinedPPG = cloneFloat(p.CombinedPPG)
	}
	if p.AwayDots != nil && *p.AwayDots != "" {
		g.AwayDots = *p.AwayDots
	}
	if p.HomeDots != nil && *p.HomeDots != "" {
		g.HomeDots = *p.HomeDots
	}

	return g.derive()
}

func (g Game) derive() Game {
	if line := g.Line(); line != nil && g.CombinedPPG != nil {
		edge := Round1(*g.CombinedPPG - *line)
		g.Edge = &edge
	}
	g.Recommendation = RecommendationFor(g.Edge)
	return g
}

// Merge folds freshly scraped team stats into the stored games. Games keep
// their stored order and are renumbered from 1.
func Merge(existing []Game, stats []TeamStat) []Game {
	ranked := RankTeamStats(stats)
	lookup := make(map[string]TeamStat, len(ranked))
	for _, stat := range ranked {
		if stat.TeamName == "" {
			continue
		}
		if _, seen := lookup[stat.TeamName]; seen {
			continue
		}
		lookup[stat.TeamName] = stat
	}
	rankedCount := len(ranked)

	out := make([]Game, 0, len(existing))
	for i, item := range existing {
		var patch Patch

		away, awayOK := Find(item.AwayTeam, lookup)
		if awayOK {
			patch.AwayPPG = floatPtr(away.Last3Avg)
			patch.AwayRank = intPtr(away.Rank)
			patch.AwayDots = stringPtr(DotForRank(patch.AwayRank, rankedCount))
		}
		home, homeOK := Find(item.HomeTeam, lookup)
		if homeOK {
			patch.HomePPG = floatPtr(home.Last3Avg)
			patch.HomeRank = intPtr(home.Rank)
			patch.HomeDots = stringPtr(DotForRank(patch.HomeRank, rankedCount))
		}
		if awayOK && homeOK {
			patch.CombinedPPG = floatPtr(Round1(away.Last3Avg + home.Last3Avg))
		}

		merged := item.Apply(patch)
		merged.GameNum = i + 1
		out = append(out, merged)
	}

	return out
}

// SelectPlays returns the games carrying a recommendation, in game order.
func SelectPlays(games []Game) []Play {
	out := make([]Play, 0)
	for _, item := range games {
		if item.Recommendation == RecommendationNone {
			continue
		}
		out = append(out, Play{
			GameNum:        item.GameNum,
			AwayTeam:       item.AwayTeam,
			HomeTeam:       item.HomeTeam,
			Time:           item.Time,
			Total:          cloneFloat(item.Line()),
			CombinedPPG:    cloneFloat(item.CombinedPPG),
			Edge:           cloneFloat(item.Edge),
			Recommendation: item.Recommendation,
			Color:          ColorFor(item.Recommendation),
		})
	}
	return out
}

// SameTeam reports whether two spellings resolve to the same team.
func SameTeam(a, b string) bool {
	if b == "" {
		return false
	}
	_, ok := Find(a, map[string]struct{}{b: {}})
	return ok
}

// IndexOf finds the stored game for a scraped matchup.
func IndexOf(games []Game, away, home string) (int, bool) {
	for i, item := range games {
		if item.AwayTeam == away && item.HomeTeam == home {
			return i, true
		}
	}
	for i, item := range games {
		if SameTeam(away, item.AwayTeam) && SameTeam(home, item.HomeTeam) {
			return i, true
		}
	}
	return -1, false
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func stringPtr(v string) *string { return &v }

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
