package portal

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/external/markup"
	"github.com/riskibarqy/sports-trading/internal/usecase"
)

// Markers are the header and row labels used to find the weekly table.
type Markers struct {
	Days      []string
	WeekStart []string
	WinLoss   []string
	Total     []string
}

func DefaultMarkers() Markers {
	return Markers{
		Days:      []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun", "lun", "mar", "mié", "mie", "jue", "vie", "sáb", "sab", "dom"},
		WeekStart: []string{"beginning of week", "inicio de semana", "week of"},
		WinLoss:   []string{"win/loss", "w/l", "ganar/perder", "gan/perd"},
		Total:     []string{"total", "week", "semana"},
	}
}

var ErrHistoryTableNotFound = crerr.New("weekly history table not found")

// ParseWeeklyHistory finds the weekly figures table and aligns its header
// cells with the win/loss row. The week total comes from a total column when
// present and is otherwise the sum of the days.
func ParseWeeklyHistory(html string, markers Markers) (usecase.ExternalWeeklyHistory, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return usecase.ExternalWeeklyHistory{}, crerr.Wrap(err, "parse history html")
	}

	var (
		header []string
		values []string
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := tableRows(table)
		headerIdx := -1
		for i, row := range rows {
			if isHeaderRow(row, markers) {
				headerIdx = i
				break
			}
		}
		if headerIdx < 0 {
			return true
		}
		for _, row := range rows[headerIdx+1:] {
			if len(row) > 0 && containsAny(row[0], markers.WinLoss) {
				header, values = rows[headerIdx], row
				return false
			}
		}
		return true
	})
	if header == nil {
		return usecase.ExternalWeeklyHistory{}, ErrHistoryTableNotFound
	}

	out := usecase.ExternalWeeklyHistory{}
	hasTotal := false
	for i := 1; i < len(header) && i < len(values); i++ {
		label := strings.TrimSpace(header[i])
		if label == "" {
			continue
		}
		amount, _ := ParseMoney(values[i])
		if containsAny(label, markers.Total) {
			out.WeekTotal = amount
			hasTotal = true
			continue
		}
		out.Days = append(out.Days, usecase.ExternalDayProfit{Day: label, Profit: amount})
	}
	if !hasTotal {
		for _, day := range out.Days {
			out.WeekTotal += day.Profit
		}
	}
	return out, nil
}

// ParseMoney reads amounts such as "$1,250.00", "-$40" and "($40.00)".
func ParseMoney(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "").Replace(s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimPrefix(s, "-")
	}
	s = strings.TrimPrefix(s, "+")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

func tableRows(table *goquery.Selection) [][]string {
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, markup.Text(cell))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows
}

func isHeaderRow(cells []string, markers Markers) bool {
	days := 0
	for _, cell := range cells {
		if containsAny(cell, markers.WeekStart) {
			return true
		}
		if isDayLabel(cell, markers.Days) {
			days++
		}
	}
	return days >= 3
}

func isDayLabel(cell string, days []string) bool {
	word := strings.ToLower(strings.TrimSpace(cell))
	if fields := strings.Fields(word); len(fields) > 0 {
		word = strings.TrimRight(fields[0], ".,")
	}
	for _, day := range days {
		if strings.HasPrefix(word, day) {
			return true
		}
	}
	return false
}

func containsAny(text string, needles []string) bool {
	text = strings.ToLower(text)
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
