package scoring

import (
	"testing"
	"time"
)

func TestAwardEarlyGuessEarnsMore(t *testing.T) {
	early, earlyBonus := Award(90, 100, DefaultConfig)
	late, lateBonus := Award(5, 100, DefaultConfig)

	if early <= late {
		t.Errorf("early guess points %d should exceed late guess points %d", early, late)
	}
	if earlyBonus <= lateBonus {
		t.Errorf("early drawer bonus %d should exceed late drawer bonus %d", earlyBonus, lateBonus)
	}
}

func TestAwardFloor(t *testing.T) {
	points, _ := Award(0, 100, DefaultConfig)
	if points != DefaultConfig.FloorBonus {
		t.Errorf("Award at buzzer = %d, want floor %d", points, DefaultConfig.FloorBonus)
	}
}

func TestAwardZeroTotalDuration(t *testing.T) {
	points, bonus := Award(0, 0, DefaultConfig)
	if points != DefaultConfig.FloorBonus {
		t.Errorf("Award with zero total = %d, want floor %d", points, DefaultConfig.FloorBonus)
	}
	if bonus != int(float64(DefaultConfig.FloorBonus)*DefaultConfig.DrawerShare) {
		t.Errorf("drawer bonus with zero total = %d", bonus)
	}
}

func TestAwardClampsOutOfRangeFraction(t *testing.T) {
	points, _ := Award(200, 100, DefaultConfig)
	max := DefaultConfig.FloorBonus + DefaultConfig.RoundBase
	if points != max {
		t.Errorf("Award with remaining > total = %d, want clamp to %d", points, max)
	}

	points, _ = Award(-10, 100, DefaultConfig)
	if points != DefaultConfig.FloorBonus {
		t.Errorf("Award with negative remaining = %d, want floor %d", points, DefaultConfig.FloorBonus)
	}
}

func TestAwardCeilsFractionalGuesserPoints(t *testing.T) {
	guesser, drawer := Award(50*time.Second, 60*time.Second, DefaultConfig)
	if guesser != 217 {
		t.Errorf("guesser points = %d, want 217", guesser)
	}
	if drawer != 108 {
		t.Errorf("drawer bonus = %d, want 108", drawer)
	}
}

func TestAwardDrawerShare(t *testing.T) {
	guesser, drawer := Award(100, 100, DefaultConfig)
	want := int(float64(guesser) * DefaultConfig.DrawerShare)
	if drawer != want {
		t.Errorf("drawer bonus = %d, want %d", drawer, want)
	}
}
