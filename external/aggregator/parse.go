package aggregator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/external/markup"
)

// ScoreRange bounds plausible single-team scores; anything outside is
// treated as a parsing artifact.
type ScoreRange struct {
	Min int
	Max int
}

func DefaultScoreRange() ScoreRange {
	return ScoreRange{Min: 40, Max: 160}
}

var resultRegex = regexp.MustCompile(`(?i)^([WL])\s*(\d{1,3})\s*[-–]\s*(\d{1,3})\b`)

// scheduleMarkers identify the schedule table by its header cells, caption
// or nearest preceding heading.
var scheduleMarkers = []string{"result", "schedule"}

// ParseTeamSchedule returns the team's own scores of completed games in page
// order, which schedule pages list oldest first. Results are written winner
// first, so the team's score is the left number on a win and the right one
// on a loss. Only the schedule table is read; other result widgets on the
// page are ignored.
func ParseTeamSchedule(html string, bounds ScoreRange) ([]int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, crerr.Wrap(err, "parse schedule html")
	}

	out := make([]int, 0, 16)
	table, ok := scheduleTable(doc)
	if !ok {
		return out, nil
	}

	resultCol := columnIndex(table, "result")
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if resultCol >= 0 && resultCol < cells.Length() {
			cells = cells.Eq(resultCol)
		}
		cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			own, ok := ownScore(markup.Text(cell))
			if !ok {
				return true
			}
			if own >= bounds.Min && own <= bounds.Max {
				out = append(out, own)
			}
			return false
		})
	})
	return out, nil
}

func ownScore(text string) (int, bool) {
	m := resultRegex.FindStringSubmatch(text)
	if len(m) != 4 {
		return 0, false
	}
	a, errA := strconv.Atoi(m[2])
	b, errB := strconv.Atoi(m[3])
	if errA != nil || errB != nil {
		return 0, false
	}
	if strings.EqualFold(m[1], "W") {
		return a, true
	}
	return b, true
}

func scheduleTable(doc *goquery.Document) (*goquery.Selection, bool) {
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		label := markup.Text(table.Find("th, caption")) + " " + precedingHeading(table)
		if containsMarker(label) {
			found = table
			return false
		}
		return true
	})
	return found, found != nil
}

// precedingHeading finds the closest heading before the table, looking at
// the table's siblings and then at its ancestors' siblings.
func precedingHeading(table *goquery.Selection) string {
	const headings = "h1, h2, h3, h4, h5, h6"
	for node := table; node.Length() > 0 && !node.Is("body"); node = node.Parent() {
		if heading := node.PrevAllFiltered(headings).First(); heading.Length() > 0 {
			return markup.Text(heading)
		}
	}
	return ""
}

func columnIndex(table *goquery.Selection, marker string) int {
	idx := -1
	table.Find("tr").First().Find("th").EachWithBreak(func(i int, th *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(markup.Text(th)), marker) {
			idx = i
			return false
		}
		return true
	})
	return idx
}

func containsMarker(text string) bool {
	text = strings.ToLower(text)
	for _, marker := range scheduleMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
