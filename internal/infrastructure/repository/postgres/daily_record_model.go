package postgres

import "time"

type dailyRecordTableModel struct {
	ID          int64     `db:"id"`
	League      string    `db:"league"`
	GameDate    time.Time `db:"game_date"`
	Games       string    `db:"games"`
	Plays       string    `db:"plays"`
	LastUpdated string    `db:"last_updated"`
	DataSource  string    `db:"data_source"`
	PPGLocked   bool      `db:"ppg_locked"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type dailyRecordUpsertModel struct {
	League      string `db:"league"`
	GameDate    string `db:"game_date"`
	Games       string `db:"games"`
	Plays       string `db:"plays"`
	LastUpdated string `db:"last_updated"`
	DataSource  string `db:"data_source"`
	PPGLocked   bool   `db:"ppg_locked"`
}
