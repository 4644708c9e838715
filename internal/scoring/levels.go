package scoring

// Level names the maturity tier shown to the submitter next to the score.
func Level(score int) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Bon"
	case score >= 40:
		return "Acceptable"
	default:
		return "À améliorer"
	}
}

// Verdict is the sentence shown on the results screen.
func Verdict(score int) string {
	switch {
	case score >= 80:
		return "🌟 Excellent! Votre projet est très mature."
	case score >= 60:
		return "✨ Bon travail! Quelques points à affiner."
	case score >= 40:
		return "⚠️ Des efforts à faire pour améliorer la maturité."
	default:
		return "📚 À approfondir. Continuez vos validations."
	}
}

// Band buckets a maturity score for the reviewer dashboard.
type Band string

const (
	BandFragile Band = "fragile"
	BandImprove Band = "improve"
	BandReady   Band = "ready"
)

// BandFor returns the reviewer band of a maturity score.
func BandFor(score int) Band {
	switch {
	case score <= 30:
		return BandFragile
	case score <= 70:
		return BandImprove
	default:
		return BandReady
	}
}

// Label returns the reviewer-facing caption of the band.
func (b Band) Label() string {
	switch b {
	case BandFragile:
		return "🔴 Projet Fragile"
	case BandImprove:
		return "🟠 À améliorer"
	case BandReady:
		return "🟢 Prêt pour financement"
	default:
		return string(b)
	}
}
