package plan

import (
	"errors"
	"slices"
	"testing"
)

func TestCatalog_Monotonic(t *testing.T) {
	for i := 1; i < len(Tiers); i++ {
		lower, higher := Tiers[i-1], Tiers[i]
		for _, k := range Features(lower) {
			if !Entitles(higher, k) {
				t.Errorf("%s entitles %s but %s does not", lower, k, higher)
			}
		}
	}
}

func TestCatalog_UniversalArtifacts(t *testing.T) {
	for _, tier := range Tiers {
		if !Entitles(tier, Summary) || !Entitles(tier, Transcription) {
			t.Errorf("%s must entitle summary and transcription", tier)
		}
	}
}

func TestFeatures_ReturnsCopy(t *testing.T) {
	got := Features(TierFree)
	got[0] = KeyMoments

	if Features(TierFree)[0] != Summary {
		t.Error("mutating the returned slice changed the catalog")
	}
}

func TestResolveTier(t *testing.T) {
	tests := []struct {
		name   string
		claims []Tier
		want   Tier
	}{
		{"no claims", nil, TierFree},
		{"pro only", []Tier{TierPro}, TierPro},
		{"ultra only", []Tier{TierUltra}, TierUltra},
		{"pro and ultra resolves to highest", []Tier{TierPro, TierUltra}, TierUltra},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var checked []Tier
			has := func(claim Tier) bool {
				checked = append(checked, claim)
				return slices.Contains(tt.claims, claim)
			}

			got, err := ResolveTier(has)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
			if checked[0] != TierUltra {
				t.Errorf("expected ultra to be checked first, got %s", checked[0])
			}
		})
	}
}

func TestResolveTier_NilCapability(t *testing.T) {
	_, err := ResolveTier(nil)
	if !errors.Is(err, ErrEntitlementUnavailable) {
		t.Errorf("expected ErrEntitlementUnavailable, got %v", err)
	}
}

func TestParseTier(t *testing.T) {
	for _, tier := range Tiers {
		got, err := ParseTier(tier.String())
		if err != nil || got != tier {
			t.Errorf("ParseTier(%q) = %v, %v", tier.String(), got, err)
		}
	}

	if _, err := ParseTier("enterprise"); err == nil {
		t.Error("expected error for unknown plan")
	}
	if _, err := ParseTier("Pro"); err == nil {
		t.Error("expected wire names to be case sensitive")
	}
}

func TestInferOriginalTier(t *testing.T) {
	tests := []struct {
		name      string
		artifacts Artifacts
		want      Tier
	}{
		{"nil set", nil, TierFree},
		{"universal only", NewArtifacts(Summary, Transcription), TierFree},
		{"titles", NewArtifacts(Summary, Titles), TierPro},
		{"hashtags", NewArtifacts(Hashtags), TierPro},
		{"key moments", NewArtifacts(KeyMoments), TierUltra},
		{"youtube timestamps beats pro", NewArtifacts(SocialPosts, YoutubeTimestamps), TierUltra},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferOriginalTier(tt.artifacts); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOriginalTier_RecordedPlanWins(t *testing.T) {
	pro := TierPro
	if got := OriginalTier(&pro, NewArtifacts(Summary)); got != TierPro {
		t.Errorf("got %s, want pro", got)
	}

	// artifacts above the recorded plan mean a later upgrade already ran
	free := TierFree
	if got := OriginalTier(&free, NewArtifacts(KeyMoments)); got != TierUltra {
		t.Errorf("got %s, want ultra", got)
	}

	if got := OriginalTier(nil, NewArtifacts(Titles)); got != TierPro {
		t.Errorf("got %s, want pro", got)
	}
}

func TestMissingFeatures(t *testing.T) {
	tests := []struct {
		name      string
		tier      Tier
		artifacts Artifacts
		want      []ArtifactKind
	}{
		{
			name:      "free never has gated jobs",
			tier:      TierFree,
			artifacts: nil,
			want:      nil,
		},
		{
			name:      "pro from scratch",
			tier:      TierPro,
			artifacts: NewArtifacts(Summary),
			want:      []ArtifactKind{SocialPosts, Titles, Hashtags},
		},
		{
			name:      "upgrade from pro to ultra",
			tier:      TierUltra,
			artifacts: NewArtifacts(SocialPosts, Titles),
			want:      []ArtifactKind{Hashtags, KeyMoments, YoutubeTimestamps},
		},
		{
			name:      "everything present",
			tier:      TierUltra,
			artifacts: NewArtifacts(ArtifactKinds...),
			want:      nil,
		},
		{
			name:      "missing summary is not a job",
			tier:      TierPro,
			artifacts: NewArtifacts(SocialPosts, Titles, Hashtags),
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingFeatures(tt.tier, tt.artifacts)
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMissingFeatures_MatchesSetDifference(t *testing.T) {
	subsets := [][]ArtifactKind{
		nil,
		{Summary},
		{Transcription, Titles},
		{KeyMoments},
		{SocialPosts, Hashtags, YoutubeTimestamps},
		ArtifactKinds,
	}

	for _, tier := range Tiers {
		for _, present := range subsets {
			a := NewArtifacts(present...)

			var want []ArtifactKind
			for _, k := range Features(tier) {
				if k.TierGated() && !a.Has(k) {
					want = append(want, k)
				}
			}

			first := MissingFeatures(tier, a)
			second := MissingFeatures(tier, a)
			if !slices.Equal(first, want) {
				t.Errorf("tier %s present %v: got %v, want %v", tier, present, first, want)
			}
			if !slices.Equal(first, second) {
				t.Errorf("tier %s present %v: not idempotent", tier, present)
			}
			if slices.Contains(first, Summary) || slices.Contains(first, Transcription) {
				t.Errorf("tier %s: universal artifact in output %v", tier, first)
			}
		}
	}
}

func TestArtifactKind_MinimumTier(t *testing.T) {
	tests := map[ArtifactKind]Tier{
		Summary:           TierFree,
		Transcription:     TierFree,
		SocialPosts:       TierPro,
		Hashtags:          TierPro,
		KeyMoments:        TierUltra,
		YoutubeTimestamps: TierUltra,
	}
	for kind, want := range tests {
		if got := kind.MinimumTier(); got != want {
			t.Errorf("%s: got %s, want %s", kind, got, want)
		}
	}
}
