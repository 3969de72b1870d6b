package rating

import "math"

// Glicko-1 per Glickman's paper, applied one game at a time. RD is clamped
// to [minRD, maxRD]; ratings above provisionalRD deviation are treated as
// provisional and report no GXE.
const (
	minRD         = 10
	maxRD         = 350
	provisionalRD = 100
)

var glickoQ = math.Ln10 / 400

func glickoG(rd float64) float64 {
	return 1 / math.Sqrt(1+3*glickoQ*glickoQ*rd*rd/(math.Pi*math.Pi))
}

// updateGlicko returns the new rating and deviation after a single game
// against a foe with rating foeR and deviation foeRD. Both results are
// rounded to one decimal before storage.
func updateGlicko(r, rd, foeR, foeRD, score float64) (float64, float64) {
	g := glickoG(foeRD)
	e := 1 / (1 + math.Pow(10, -g*(r-foeR)/400))
	d2 := 1 / (glickoQ * glickoQ * g * g * e * (1 - e))

	denom := 1/(rd*rd) + 1/d2
	newR := r + (glickoQ/denom)*g*(score-e)
	newRD := math.Sqrt(1 / denom)
	if newRD < minRD {
		newRD = minRD
	}
	if newRD > maxRD {
		newRD = maxRD
	}
	return roundTenth(newR), roundTenth(newRD)
}

// glixare folds the deviation into the win estimate against a 1500-rated
// reference opponent, as a percentage rounded to two decimals.
func glixare(r, rd float64) GXE {
	if rd > provisionalRD {
		return GXE{Unknown: true}
	}
	ln10 := math.Ln10
	spread := math.Sqrt(3*ln10*ln10*rd*rd + 2500*(64*math.Pi*math.Pi+147*ln10*ln10))
	pct := math.Round(10000/(1+math.Pow(10, (1500-r)*math.Pi/spread))) / 100
	return GXE{Value: pct}
}
