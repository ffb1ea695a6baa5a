package models

import (
	"time"
)

// GameStatus represents the lifecycle tag of a game
type GameStatus string

const (
	GameStatusScheduled GameStatus = "scheduled"
	GameStatusLive      GameStatus = "live"
	GameStatusHalftime  GameStatus = "halftime"
	GameStatusFinal     GameStatus = "final"
)

// TeamSide identifies home or away
type TeamSide string

const (
	SideHome TeamSide = "home"
	SideAway TeamSide = "away"
	SideTie  TeamSide = "tie"
)

// Opposite returns the other side, or SideTie for anything that is not home/away
func (s TeamSide) Opposite() TeamSide {
	switch s {
	case SideHome:
		return SideAway
	case SideAway:
		return SideHome
	default:
		return SideTie
	}
}

// Team identifies one side of a game
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ScorePair is a home/away score pair
type ScorePair struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Total returns home + away
func (p ScorePair) Total() int {
	return p.Home + p.Away
}

// Differential returns home - away
func (p ScorePair) Differential() int {
	return p.Home - p.Away
}

// GameSnapshot is one tick of a live game as delivered by the ingestion side
type GameSnapshot struct {
	GameID        string      `db:"game_id" json:"game_id" validate:"required"`
	HomeTeam      Team        `json:"home_team"`
	AwayTeam      Team        `json:"away_team"`
	HomeScore     int         `db:"home_score" json:"home_score" validate:"gte=0"`
	AwayScore     int         `db:"away_score" json:"away_score" validate:"gte=0"`
	Quarter       int         `db:"quarter" json:"quarter" validate:"gte=0"`
	Clock         string      `db:"clock" json:"clock"`
	QuarterScores []ScorePair `db:"quarter_scores" json:"quarter_scores"`
	Halftime      *ScorePair  `db:"halftime" json:"halftime,omitempty"`
	Final         *ScorePair  `db:"final" json:"final,omitempty"`
	Spread        *float64    `db:"spread" json:"spread,omitempty"` // home-relative line
	HomeMoneyline *float64    `db:"home_moneyline" json:"home_moneyline,omitempty"`
	AwayMoneyline *float64    `db:"away_moneyline" json:"away_moneyline,omitempty"`
	TotalLine     *float64    `db:"total_line" json:"total_line,omitempty"`
	Status        GameStatus  `db:"status" json:"status" validate:"required,oneof=scheduled live halftime final"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

// IsFinal reports whether the snapshot marks the end of the game
func (g *GameSnapshot) IsFinal() bool {
	return g.Status == GameStatusFinal
}

// FinalScore returns the final pair, falling back to the live score for final snapshots
// that did not carry an explicit final pair.
func (g *GameSnapshot) FinalScore() (ScorePair, bool) {
	if g.Final != nil {
		return *g.Final, true
	}
	if g.IsFinal() {
		return ScorePair{Home: g.HomeScore, Away: g.AwayScore}, true
	}
	return ScorePair{}, false
}

// QuarterScore returns the score pair for quarter q (1-based); unplayed quarters are zero
func (g *GameSnapshot) QuarterScore(q int) ScorePair {
	if q < 1 || q > len(g.QuarterScores) {
		return ScorePair{}
	}
	return g.QuarterScores[q-1]
}

// PlayerStat is one row of the optional player statistics side table
type PlayerStat struct {
	PlayerID string   `json:"player_id"`
	Name     string   `json:"name"`
	Side     TeamSide `json:"side"`
	Points   int      `json:"points"`
	Rebounds int      `json:"rebounds"`
	Assists  int      `json:"assists"`
}
