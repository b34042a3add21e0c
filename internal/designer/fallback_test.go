package designer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFallbackWalksEachRegionOnce(t *testing.T) {
	t.Parallel()

	f := NewFallback(DefaultRegions, RegionNA)
	for _, want := range []Region{RegionEU, RegionSA, RegionOC} {
		next, ok := f.Fail()
		require.True(t, ok)
		require.Equal(t, want, next)
		require.Equal(t, want, f.Current())
	}

	next, ok := f.Fail()
	require.False(t, ok)
	require.Empty(t, next)
	require.Equal(t, FallbackExhausted, f.State())
	require.Equal(t, []Region{RegionNA, RegionEU, RegionSA, RegionOC}, f.Attempts())

	// exhausted is terminal
	_, ok = f.Fail()
	require.False(t, ok)
	require.Len(t, f.Attempts(), 4)
}

func TestFallbackStartingMidSequenceNeverWrapsAround(t *testing.T) {
	t.Parallel()

	f := NewFallback(DefaultRegions, RegionEU)
	next, ok := f.Fail()
	require.True(t, ok)
	require.Equal(t, RegionSA, next)
	next, ok = f.Fail()
	require.True(t, ok)
	require.Equal(t, RegionOC, next)
	_, ok = f.Fail()
	require.False(t, ok)
	require.NotContains(t, f.Attempts(), RegionNA)
}

func TestFallbackSuccessIsSticky(t *testing.T) {
	t.Parallel()

	f := NewFallback(DefaultRegions, RegionNA)
	_, ok := f.Fail()
	require.True(t, ok)
	f.Succeed()
	require.Equal(t, FallbackSucceeded, f.State())
	require.Equal(t, RegionEU, f.Current())

	_, ok = f.Fail()
	require.False(t, ok, "a halted machine does not transition")
	require.Equal(t, RegionEU, f.Current())
	require.Equal(t, []Region{RegionNA}, f.Attempts())
}

func TestFallbackDoesNotRevisitFailedSuccessor(t *testing.T) {
	t.Parallel()

	// A custom order where the successor of the start region already failed.
	regions := RegionSet{RegionSA, RegionOC}
	f := NewFallback(regions, RegionSA)
	f.attempts = []Region{RegionOC}
	_, ok := f.Fail()
	require.False(t, ok)
	require.Equal(t, FallbackExhausted, f.State())
}

func TestFallbackUnknownStartExhaustsImmediately(t *testing.T) {
	t.Parallel()

	f := NewFallback(DefaultRegions, Region("mars"))
	_, ok := f.Fail()
	require.False(t, ok)
	require.Equal(t, []Region{"mars"}, f.Attempts())
}
