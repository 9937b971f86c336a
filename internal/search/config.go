package search

import (
	"fmt"

	"github.com/ezflow997/lol-finder/internal/config"
	"github.com/ezflow997/lol-finder/internal/rank"
)

// Config describes one search invocation. Either an explicit Tier/Division
// pair or an LPRange must be set; an LP range expands to every overlapping
// (tier, division) pair.
type Config struct {
	Queues   []string
	Tier     string
	Division string
	LPRange  *config.LPRange

	MaxPlayers          int
	ActiveWithinMinutes int
	MinWinRate          float64
}

func (c Config) validate() error {
	if len(c.Queues) == 0 {
		return fmt.Errorf("at least one queue is required")
	}
	if c.MaxPlayers < 1 {
		return fmt.Errorf("max players must be positive")
	}
	if c.LPRange == nil {
		if c.Tier == "" {
			return fmt.Errorf("either a tier/division or an LP range is required")
		}
		if _, err := rank.EntryTotalPoints(c.Tier, c.Division, 0); err != nil {
			return err
		}
	}
	return nil
}

// pairs returns the (tier, division) units to explore, in codec order.
func (c Config) pairs() []rank.Combination {
	if c.LPRange != nil {
		return rank.CombinationsOverlapping(c.LPRange.Min, c.LPRange.Max)
	}
	if rank.IsApex(c.Tier) {
		// Apex tiers have a single division on the ladder endpoints.
		return []rank.Combination{{Tier: c.Tier, Division: "I"}}
	}
	return []rank.Combination{{Tier: c.Tier, Division: c.Division}}
}

// combination is one (queue, tier, division) exploration unit. Pages are
// tried at most once; maxPage is an adaptive estimate of the highest page
// that can still contain data.
type combination struct {
	queue    string
	tier     string
	division string

	tried     map[int]bool
	exhausted bool
	maxPage   int
}

func (c *combination) allTried() bool {
	n := 0
	for page := range c.tried {
		if page >= 1 && page <= c.maxPage {
			n++
		}
	}
	return n >= c.maxPage
}

// untriedPages lists the pages still worth probing, in ascending order.
func (c *combination) untriedPages() []int {
	var pages []int
	for page := 1; page <= c.maxPage; page++ {
		if !c.tried[page] {
			pages = append(pages, page)
		}
	}
	return pages
}
