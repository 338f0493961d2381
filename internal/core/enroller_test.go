package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/voiceauth/internal/models"
)

func TestEnroll_TemplateIsMean(t *testing.T) {
	f := newFixture(t, map[string][]float64{
		"a.wav": {1, 0, 3},
		"b.wav": {3, 2, 3},
		"c.wav": {2, 4, 0},
	})
	refs := []string{f.wav(t, "a.wav", 1.2), f.wav(t, "b.wav", 1.2), f.wav(t, "c.wav", 1.2)}

	res, err := f.enroller().Enroll(context.Background(), "owner", refs)
	require.NoError(t, err)
	assert.Equal(t, "owner", res.SpeakerID)
	assert.Equal(t, 3, res.SamplesUsed)
	assert.Equal(t, 3, res.Dimension)
	assert.Equal(t, f.store.Location("owner"), res.StorageLocation)

	vp, err := f.store.Load("owner")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 2, 2}, vp.Vector, 1e-12)
}

func TestEnroll_SingleSample(t *testing.T) {
	f := newFixture(t, map[string][]float64{"only.wav": {0.5, -0.5}})

	res, err := f.enroller().Enroll(context.Background(), "owner", []string{f.wav(t, "only.wav", 1.0)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SamplesUsed)

	vp, err := f.store.Load("owner")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.5}, vp.Vector)
}

func TestEnroll_ReplacesPreviousTemplate(t *testing.T) {
	f := newFixture(t, map[string][]float64{
		"first.wav":  {1, 0},
		"second.wav": {0, 1},
	})
	e := f.enroller()

	_, err := e.Enroll(context.Background(), "owner", []string{f.wav(t, "first.wav", 1.5)})
	require.NoError(t, err)
	_, err = e.Enroll(context.Background(), "owner", []string{f.wav(t, "second.wav", 1.5)})
	require.NoError(t, err)

	vp, err := f.store.Load("owner")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, vp.Vector)

	ids, err := f.store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"owner"}, ids)
}

func TestEnroll_NoSamples(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.enroller().Enroll(context.Background(), "owner", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNoSamplesProvided)

	ok, _ := f.store.Exists("owner")
	assert.False(t, ok)
}

func TestEnroll_TooManySamples(t *testing.T) {
	f := newFixture(t, nil)
	e := NewEnroller(f.provider, f.store, f.loader, 2)

	_, err := e.Enroll(context.Background(), "owner", []string{"a", "b", "c"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTooManySamples)
	assert.Equal(t, 0, f.table.Calls())
}

func TestEnroll_FailingSampleAbortsAndIsNamed(t *testing.T) {
	f := newFixture(t, map[string][]float64{"good.wav": {1, 1}})
	good := f.wav(t, "good.wav", 1.0)
	missing := f.dir + "/missing.wav"

	_, err := f.enroller().Enroll(context.Background(), "owner", []string{good, missing, good})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSampleNotFound)

	var de *models.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, de.SampleIndex)
	assert.Equal(t, missing, de.Sample)
	assert.Contains(t, err.Error(), "sample 2")

	ok, _ := f.store.Exists("owner")
	assert.False(t, ok, "nothing is stored when any sample fails")
}

func TestEnroll_ShortSampleNeverReachesProvider(t *testing.T) {
	f := newFixture(t, map[string][]float64{"short.wav": {1, 1}})

	_, err := f.enroller().Enroll(context.Background(), "owner", []string{f.wav(t, "short.wav", 0.3)})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientAudio)
	assert.Equal(t, 0, f.table.Calls())
}

func TestEnroll_ProviderFailure(t *testing.T) {
	f := newFixture(t, map[string][]float64{"a.wav": {1, 1}})
	f.table.Err["b.wav"] = errors.New("inference failed")

	_, err := f.enroller().Enroll(context.Background(), "owner",
		[]string{f.wav(t, "a.wav", 1.0), f.wav(t, "b.wav", 1.0)})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrEmbeddingExtractionFailed)

	var de *models.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, de.SampleIndex)
}

func TestEnroll_DimensionMismatchAcrossSamples(t *testing.T) {
	f := newFixture(t, map[string][]float64{
		"a.wav": {1, 2, 3},
		"b.wav": {1, 2},
	})

	_, err := f.enroller().Enroll(context.Background(), "owner",
		[]string{f.wav(t, "a.wav", 1.0), f.wav(t, "b.wav", 1.0)})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)
}

func TestEnroll_ZeroNormTemplate(t *testing.T) {
	f := newFixture(t, map[string][]float64{
		"up.wav":   {1, 0},
		"down.wav": {-1, 0},
	})

	_, err := f.enroller().Enroll(context.Background(), "owner",
		[]string{f.wav(t, "up.wav", 1.0), f.wav(t, "down.wav", 1.0)})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDegenerateEmbedding)
}

func TestEnroll_CancelledContext(t *testing.T) {
	f := newFixture(t, map[string][]float64{"a.wav": {1}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.enroller().Enroll(ctx, "owner", []string{f.wav(t, "a.wav", 1.0)})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
