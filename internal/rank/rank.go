// Package rank converts between Riot tier/division/LP triples and a single
// linear "total LP" scalar so rank windows can be compared numerically.
package rank

import "fmt"

// Tiers below the apex band, lowest first. Each tier spans 400 total LP.
var Tiers = []string{"IRON", "BRONZE", "SILVER", "GOLD", "PLATINUM", "EMERALD", "DIAMOND"}

// Divisions within a tier, lowest first. Each division spans 100 total LP.
var Divisions = []string{"IV", "III", "II", "I"}

// ApexTier labels everything above Diamond I. Master, Grandmaster and
// Challenger share one uncapped band distinguished only by points.
const ApexTier = "MASTER"

// ApexThreshold is the total LP at which the apex band begins
// (seven tiers of 400 LP each).
const ApexThreshold = 7 * 400

var tierIndex = buildIndex(Tiers)
var divisionIndex = buildIndex(Divisions)

func buildIndex(names []string) map[string]int {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	return idx
}

// RankPoint is a normalized rank value. Division is empty in the apex band.
type RankPoint struct {
	Tier     string
	Division string
	Points   int
}

// TotalPoints linearizes a (tier, division, points) triple. Unknown tier or
// division names are a configuration error, not a skippable condition.
func TotalPoints(tier, division string, points int) (int, error) {
	ti, ok := tierIndex[tier]
	if !ok {
		return 0, fmt.Errorf("unknown tier %q", tier)
	}
	di, ok := divisionIndex[division]
	if !ok {
		return 0, fmt.Errorf("unknown division %q", division)
	}
	return ti*400 + di*100 + points, nil
}

// FromTotalPoints decomposes a total-LP scalar. Negative input clamps to
// Iron IV 0; anything at or above the apex threshold maps into the apex
// band with the remainder as points.
func FromTotalPoints(total int) RankPoint {
	if total < 0 {
		return RankPoint{Tier: Tiers[0], Division: Divisions[0], Points: 0}
	}
	if total >= ApexThreshold {
		return RankPoint{Tier: ApexTier, Points: total - ApexThreshold}
	}
	return RankPoint{
		Tier:     Tiers[total/400],
		Division: Divisions[(total%400)/100],
		Points:   total % 100,
	}
}

var apexTiers = map[string]bool{"MASTER": true, "GRANDMASTER": true, "CHALLENGER": true}

// IsApex reports whether tier sits above the divisioned ladder.
func IsApex(tier string) bool {
	return apexTiers[tier]
}

// EntryTotalPoints linearizes a ladder entry's rank. Apex entries carry a
// nominal division of "I" upstream, so their league points are counted
// directly above the apex threshold instead.
func EntryTotalPoints(tier, division string, points int) (int, error) {
	if IsApex(tier) {
		return ApexThreshold + points, nil
	}
	return TotalPoints(tier, division, points)
}

// Combination is one (tier, division) exploration unit.
type Combination struct {
	Tier     string
	Division string
}

// CombinationsOverlapping enumerates, tier-major then division-major, every
// (tier, division) whose 100-point band [start, start+99] intersects
// [minLP, maxLP].
func CombinationsOverlapping(minLP, maxLP int) []Combination {
	var combos []Combination
	for ti, tier := range Tiers {
		for di, division := range Divisions {
			start := ti*400 + di*100
			end := start + 99
			if end >= minLP && start <= maxLP {
				combos = append(combos, Combination{Tier: tier, Division: division})
			}
		}
	}
	return combos
}
