package httpapi

import (
	"time"

	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/domain/game"
)

type dailyRecordDTO struct {
	League      string      `json:"league"`
	Date        string      `json:"date"`
	Games       []game.Game `json:"games"`
	Plays       []game.Play `json:"plays"`
	LastUpdated string      `json:"last_updated"`
	DataSource  string      `json:"data_source"`
	PPGLocked   bool        `json:"ppg_locked"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
}

func recordToDTO(record dailyrecord.Record) dailyRecordDTO {
	out := dailyRecordDTO{
		League:      record.League,
		Date:        record.Date,
		Games:       record.Games,
		Plays:       record.Plays,
		LastUpdated: record.LastUpdated,
		DataSource:  record.DataSource,
		PPGLocked:   record.PPGLocked,
	}
	if out.Games == nil {
		out.Games = []game.Game{}
	}
	if out.Plays == nil {
		out.Plays = []game.Play{}
	}
	if !record.UpdatedAt.IsZero() {
		updatedAt := record.UpdatedAt.UTC()
		out.UpdatedAt = &updatedAt
	}
	return out
}
