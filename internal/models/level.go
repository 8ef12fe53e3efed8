package models

// LevelForXP maps cumulative XP to a level. The breakpoints are not evenly
// spaced; leaderboard ordering and level-up bonuses depend on these exact
// tiers.
func LevelForXP(xp int64) int {
	switch {
	case xp < 100:
		return 1
	case xp < 250:
		return 2
	case xp < 500:
		return 3
	case xp < 1000:
		return 4
	}
	return int((xp-1000)/750) + 5
}
