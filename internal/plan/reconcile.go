package plan

// Artifacts is the set of artifact kinds already populated on a project.
type Artifacts map[ArtifactKind]bool

// NewArtifacts builds a presence set from the given kinds.
func NewArtifacts(kinds ...ArtifactKind) Artifacts {
	a := make(Artifacts, len(kinds))
	for _, k := range kinds {
		a[k] = true
	}
	return a
}

// Has reports whether k is present. A nil set has nothing.
func (a Artifacts) Has(k ArtifactKind) bool {
	return a[k]
}

// Present lists the populated kinds in catalog order.
func (a Artifacts) Present() []ArtifactKind {
	var out []ArtifactKind
	for _, k := range ArtifactKinds {
		if a.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// InferOriginalTier guesses the tier active when the project was last
// processed from the artifacts it carries. Any ultra-only artifact means ultra,
// any pro-only artifact means pro, otherwise free.
//
// A pro user who has not produced any pro-only artifact yet looks exactly like
// a free user here.
func InferOriginalTier(a Artifacts) Tier {
	switch {
	case a.Has(KeyMoments) || a.Has(YoutubeTimestamps):
		return TierUltra
	case a.Has(SocialPosts) || a.Has(Titles) || a.Has(Hashtags):
		return TierPro
	default:
		return TierFree
	}
}

// OriginalTier combines the plan recorded when the project was created (if
// any) with the inferred one. Both are lower bounds, so the higher wins.
func OriginalTier(recorded *Tier, a Artifacts) Tier {
	inferred := InferOriginalTier(a)
	if recorded != nil && recorded.Valid() && *recorded > inferred {
		return *recorded
	}
	return inferred
}

// MissingFeatures returns the tier-gated artifacts that current entitles but
// the project does not have yet, in catalog order. Summary and transcription
// never appear.
func MissingFeatures(current Tier, a Artifacts) []ArtifactKind {
	var missing []ArtifactKind
	for _, k := range catalog[current] {
		if !k.TierGated() {
			continue
		}
		if !a.Has(k) {
			missing = append(missing, k)
		}
	}
	return missing
}
