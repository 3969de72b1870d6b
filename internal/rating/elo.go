package rating

import "math"

const eloFloor = 1000

// kFactor picks the effective K for one player's update. Fresh accounts
// move fast, established ones slow down, low-rated players get a boost so
// they can climb out of the floor, and big upsets swing a little harder.
func kFactor(games int, elo, foeElo, score float64) float64 {
	var k float64
	switch {
	case games < 20:
		k = 32
	case games < 50:
		k = 24
	default:
		k = 16
	}

	if elo < 1100 {
		k += 8
		if k > 32 {
			k = 32
		}
	}
	if elo > 1600 {
		k -= 4
		if k < 12 {
			k = 12
		}
	}

	diff := elo - foeElo
	switch {
	case diff < -200 && score > 0.6:
		k *= 1.1 // underdog win
	case diff > 200 && score < 0.4:
		k *= 1.05 // favorite loss
	}
	return k
}

// updateElo applies the standard expected-score update and the 1000 floor.
func updateElo(elo, foeElo float64, games int, score float64) float64 {
	k := kFactor(games, elo, foeElo, score)
	expected := 1 / (1 + math.Pow(10, (foeElo-elo)/400))
	next := elo + k*(score-expected)
	if next < eloFloor {
		next = eloFloor
	}
	return next
}
