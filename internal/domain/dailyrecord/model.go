package dailyrecord

import (
	"time"

	"github.com/riskibarqy/sports-trading/internal/domain/game"
)

const (
	DateLayout        = "2006-01-02"
	LastUpdatedLayout = "03:04 PM"
)

// Record is the persisted display state for one league and date.
type Record struct {
	League      string
	Date        string
	Games       []game.Game
	Plays       []game.Play
	LastUpdated string
	DataSource  string
	PPGLocked   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Update names the only fields a write may replace. Anything else stored
// alongside the record is left untouched.
type Update struct {
	League      string
	Date        string
	Games       []game.Game
	Plays       []game.Play
	LastUpdated string
	DataSource  string
	PPGLocked   bool
}

func (r Record) ToUpdate() Update {
	return Update{
		League:      r.League,
		Date:        r.Date,
		Games:       r.Games,
		Plays:       r.Plays,
		LastUpdated: r.LastUpdated,
		DataSource:  r.DataSource,
		PPGLocked:   r.PPGLocked,
	}
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func FormatLastUpdated(t time.Time) string {
	return t.Format(LastUpdatedLayout)
}
