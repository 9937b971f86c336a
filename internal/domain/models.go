package domain

import (
	"time"
)

// PlayerRecord is a snapshot of a ranked player at capture time. It is the
// unit stored in the freshness cache and embedded in search results.
type PlayerRecord struct {
	Name       string    `json:"name"`
	Region     string    `json:"region"`
	Queue      string    `json:"queue"`
	Rank       string    `json:"rank"`
	LP         int       `json:"lp"`
	TotalLP    int       `json:"totalLP"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	WinRate    string    `json:"winRate"`
	LastActive int       `json:"lastActiveMinutes"`
	GameMode   string    `json:"lastGameMode"`
	HotStreak  bool      `json:"hotStreak"`
	Veteran    bool      `json:"veteran"`
	FreshBlood bool      `json:"freshBlood"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Source says how a discovered player entered the result set.
type Source string

const (
	SourceCache    Source = "cache"
	SourceLive     Source = "live"
	SourceTeammate Source = "teammate"
)

// DiscoveredPlayer is one search result entry. The cache keeps its own
// independent PlayerRecord copy.
type DiscoveredPlayer struct {
	Puuid     string
	Record    PlayerRecord
	Source    Source
	UpdatedAt time.Time
}

// SearchRun is the archived header of one completed search invocation.
type SearchRun struct {
	ID          string
	Queues      string
	Tier        string
	Division    string
	MinLP       int
	MaxLP       int
	MaxPlayers  int
	FoundTotal  int
	FromCache   int
	Fresh       int
	StartedAt   time.Time
	CompletedAt time.Time
}

// ScoutReport is the archived header of one deep-scout invocation.
type ScoutReport struct {
	ID            string // nanoid
	Puuid         string
	GamesAnalyzed int
	AvgKDA        float64
	WinRate       float64
	CreatedAt     time.Time
}
