package scoreboard

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/external/markup"
	"github.com/riskibarqy/sports-trading/internal/domain/game"
	"github.com/riskibarqy/sports-trading/internal/usecase"
)

// Selectors describe where a scoreboard page keeps its game cards.
type Selectors struct {
	Card     string
	TeamLink string
	Score    string
	Odds     string
}

func DefaultSelectors() Selectors {
	return Selectors{
		Card:     "section.Scoreboard, article.game-card, [data-game-card]",
		TeamLink: "a[href*='/team/']",
		Score:    ".ScoreCell__Score, .score, [data-score]",
		Odds:     ".Odds, .odds, [data-odds]",
	}
}

var (
	totalRegex     = regexp.MustCompile(`(?i)(?:\bo/u|\bo)\s*(\d{2,3}(?:\.\d)?)\b`)
	timeRegex      = regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}\s?[AP]M)\b`)
	finalRegex     = regexp.MustCompile(`(?i)\bfinal\b`)
	leadRankRegex  = regexp.MustCompile(`^\(?\d{1,2}\)?\s+`)
	whitespaceExpr = regexp.MustCompile(`\s+`)
)

// Parse extracts game cards. A card with fewer than two distinct team links
// is dropped rather than stored as a one-sided game.
func Parse(html string, sel Selectors) ([]usecase.ExternalScoreboardGame, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, crerr.Wrap(err, "parse scoreboard html")
	}

	out := make([]usecase.ExternalScoreboardGame, 0, 16)
	doc.Find(sel.Card).Each(func(_ int, card *goquery.Selection) {
		item, ok := parseCard(card, sel)
		if ok {
			out = append(out, item)
		}
	})
	return out, nil
}

func parseCard(card *goquery.Selection, sel Selectors) (usecase.ExternalScoreboardGame, bool) {
	teams := make([]usecase.TeamRef, 0, 2)
	seen := make(map[string]struct{}, 2)
	card.Find(sel.TeamLink).Each(func(_ int, link *goquery.Selection) {
		name := CleanTeamName(link.Text())
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		teams = append(teams, usecase.TeamRef{Name: name, Ref: strings.TrimSpace(link.AttrOr("href", ""))})
	})
	if len(teams) < 2 {
		return usecase.ExternalScoreboardGame{}, false
	}

	text := markup.Text(card)
	item := usecase.ExternalScoreboardGame{
		AwayTeam: teams[0].Name,
		AwayRef:  teams[0].Ref,
		HomeTeam: teams[1].Name,
		HomeRef:  teams[1].Ref,
	}

	oddsText := markup.Text(card.Find(sel.Odds))
	if oddsText == "" {
		oddsText = text
	}
	item.Total = parseTotal(oddsText)

	if m := timeRegex.FindStringSubmatch(text); len(m) == 2 {
		item.Time = strings.ToUpper(normalizeSpace(m[1]))
	}

	if finalRegex.MatchString(text) {
		item.FinalScore = parseFinalScore(card, sel)
	}
	return item, true
}

// CleanTeamName strips poll ranks and collapses whitespace.
func CleanTeamName(raw string) string {
	name := normalizeSpace(raw)
	name = leadRankRegex.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

func parseTotal(text string) *float64 {
	m := totalRegex.FindStringSubmatch(text)
	if len(m) != 2 {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

func parseFinalScore(card *goquery.Selection, sel Selectors) *game.Score {
	scores := make([]int, 0, 2)
	card.Find(sel.Score).EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		v, err := strconv.Atoi(markup.Text(cell))
		if err != nil {
			return true
		}
		scores = append(scores, v)
		return len(scores) < 2
	})
	if len(scores) != 2 {
		return nil
	}
	return &game.Score{Away: scores[0], Home: scores[1]}
}

func normalizeSpace(s string) string {
	return strings.TrimSpace(whitespaceExpr.ReplaceAllString(s, " "))
}
