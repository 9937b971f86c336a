package api

// LeagueEntry is one row of the ranked ladder, also returned by the
// by-puuid standings endpoint.
type LeagueEntry struct {
	LeagueID     string `json:"leagueId"`
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	SummonerID   string `json:"summonerId"`
	Puuid        string `json:"puuid"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Veteran      bool   `json:"veteran"`
	Inactive     bool   `json:"inactive"`
	FreshBlood   bool   `json:"freshBlood"`
	HotStreak    bool   `json:"hotStreak"`
}

// WinRate is wins/(wins+losses), 0 when no games are on record.
func (e LeagueEntry) WinRate() float64 {
	games := e.Wins + e.Losses
	if games == 0 {
		return 0
	}
	return float64(e.Wins) / float64(games)
}

// Account maps a PUUID to a display name.
type Account struct {
	Puuid    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// RiotID renders the display name, or a placeholder when the account
// lookup came back empty.
func (a Account) RiotID() string {
	if a.GameName == "" {
		return "Unknown"
	}
	if a.TagLine == "" {
		return a.GameName
	}
	return a.GameName + "#" + a.TagLine
}

// Match is the match-v5 detail payload, reduced to the fields this tool
// reads.
type Match struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"`
}

type MatchInfo struct {
	GameMode         string        `json:"gameMode"`
	GameDuration     int64         `json:"gameDuration"`
	GameEndTimestamp int64         `json:"gameEndTimestamp"`
	Participants     []Participant `json:"participants"`
}

type Participant struct {
	Puuid                string `json:"puuid"`
	RiotIDGameName       string `json:"riotIdGameName"`
	RiotIDTagline        string `json:"riotIdTagline"`
	ChampionName         string `json:"championName"`
	TeamID               int    `json:"teamId"`
	TeamPosition         string `json:"teamPosition"`
	IndividualPosition   string `json:"individualPosition"`
	Win                  bool   `json:"win"`
	Kills                int    `json:"kills"`
	Deaths               int    `json:"deaths"`
	Assists              int    `json:"assists"`
	TotalMinionsKilled   int    `json:"totalMinionsKilled"`
	NeutralMinionsKilled int    `json:"neutralMinionsKilled"`
}

// CS is total creep score, lane plus jungle.
func (p Participant) CS() int {
	return p.TotalMinionsKilled + p.NeutralMinionsKilled
}
