package plan

import "fmt"

// ArtifactKind names one AI-generated output of a project.
type ArtifactKind string

const (
	Summary           ArtifactKind = "summary"
	Transcription     ArtifactKind = "transcription"
	SocialPosts       ArtifactKind = "socialPosts"
	Titles            ArtifactKind = "titles"
	Hashtags          ArtifactKind = "hashtags"
	KeyMoments        ArtifactKind = "keyMoments"
	YoutubeTimestamps ArtifactKind = "youtubeTimestamps"
)

// ArtifactKinds lists every kind in catalog order.
var ArtifactKinds = []ArtifactKind{
	Summary,
	Transcription,
	SocialPosts,
	Titles,
	Hashtags,
	KeyMoments,
	YoutubeTimestamps,
}

// TierGated reports whether generating k depends on the subscription tier.
// Summary and transcription are available to everyone.
func (k ArtifactKind) TierGated() bool {
	switch k {
	case SocialPosts, Titles, Hashtags, KeyMoments, YoutubeTimestamps:
		return true
	}
	return false
}

// Valid reports whether k is a known artifact kind.
func (k ArtifactKind) Valid() bool {
	for _, known := range ArtifactKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseArtifactKind parses a wire name such as "keyMoments".
func ParseArtifactKind(s string) (ArtifactKind, error) {
	k := ArtifactKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown artifact %q", s)
	}
	return k, nil
}

// MinimumTier is the lowest tier whose catalog contains k.
func (k ArtifactKind) MinimumTier() Tier {
	for _, t := range Tiers {
		if Entitles(t, k) {
			return t
		}
	}
	return TierUltra
}

var (
	freeFeatures  = []ArtifactKind{Summary, Transcription}
	proFeatures   = append(append([]ArtifactKind{}, freeFeatures...), SocialPosts, Titles, Hashtags)
	ultraFeatures = append(append([]ArtifactKind{}, proFeatures...), KeyMoments, YoutubeTimestamps)
)

// catalog maps each tier to the artifacts it entitles a project to. Each tier's
// set is a superset of the one below it.
var catalog = map[Tier][]ArtifactKind{
	TierFree:  freeFeatures,
	TierPro:   proFeatures,
	TierUltra: ultraFeatures,
}

// Features returns the artifacts entitled by t in catalog order. The returned
// slice is a copy.
func Features(t Tier) []ArtifactKind {
	return append([]ArtifactKind(nil), catalog[t]...)
}

// Entitles reports whether tier t entitles artifact k.
func Entitles(t Tier, k ArtifactKind) bool {
	for _, f := range catalog[t] {
		if f == k {
			return true
		}
	}
	return false
}
