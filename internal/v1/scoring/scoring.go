// Package scoring computes the points a correct guesser and the
// round's drawer earn, grounded on the base-points-plus-multiplier shape
// used by draw-and-guess scoring elsewhere in the corpus, adapted to this
// project's remaining-time fraction formula.
package scoring

import (
	"math"
	"time"
)

// Config holds the tunable constants of the formula. Values are the
// spec's defaults; callers can override per-room if a future settings
// screen exposes them.
type Config struct {
	RoundBase   int     // time-scaled points on top of FloorBonus; all of it goes to the fastest possible guess
	FloorBonus  int     // minimum points for any correct guess, however late
	DrawerShare float64 // fraction of each guesser's points the drawer also earns
}

// DefaultConfig matches spec.md's §4.6 formula.
var DefaultConfig = Config{
	RoundBase:   200,
	FloorBonus:  50,
	DrawerShare: 0.5,
}

// Award computes the guesser's points and the drawer's cumulative bonus
// for a single correct guess. remaining is the time left on the turn
// clock at the moment of the guess; total is the turn's full duration.
// A guess at the very start of the turn earns close to RoundBase+FloorBonus;
// one at the buzzer earns close to FloorBonus.
func Award(remaining, total time.Duration, cfg Config) (guesserPoints, drawerBonus int) {
	if total <= 0 {
		return cfg.FloorBonus, int(float64(cfg.FloorBonus) * cfg.DrawerShare)
	}
	fraction := float64(remaining) / float64(total)
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	guesserPoints = cfg.FloorBonus + int(math.Ceil(float64(cfg.RoundBase)*fraction))
	drawerBonus = int(float64(guesserPoints) * cfg.DrawerShare)
	return guesserPoints, drawerBonus
}
