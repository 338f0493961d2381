package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/voiceauth/internal/audio"
	"github.com/harper/voiceauth/internal/config"
	"github.com/harper/voiceauth/internal/embedding"
	"github.com/harper/voiceauth/internal/models"
)

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestService_OwnerLifecycle(t *testing.T) {
	f := newFixture(t, map[string][]float64{
		"owner1.wav":   {0.9, 0.1, 0.0},
		"owner2.wav":   {1.0, 0.0, 0.1},
		"owner3.wav":   {0.8, 0.2, 0.0},
		"owner-v.wav":  {0.95, 0.1, 0.05},
		"stranger.wav": {0.0, 0.2, 1.0},
	})
	svc := f.service()
	ctx := context.Background()

	enroll := svc.Enroll(ctx, "", []string{
		f.wav(t, "owner1.wav", 1.2), f.wav(t, "owner2.wav", 1.5), f.wav(t, "owner3.wav", 2.0),
	})
	require.True(t, enroll.Success, "enroll failed: %+v", enroll.Failure)
	assert.Equal(t, "owner", enroll.SpeakerID)
	assert.Equal(t, 3, enroll.SamplesUsed)
	assert.Equal(t, f.store.Location("owner"), enroll.VoiceprintPath)
	assert.Contains(t, enroll.Message, "owner")

	check := svc.Check("")
	assert.True(t, check.Success)
	assert.True(t, check.Enrolled)
	require.NotNil(t, check.VoiceprintPath)
	assert.Equal(t, enroll.VoiceprintPath, *check.VoiceprintPath)

	genuine := svc.Verify(ctx, "", f.wav(t, "owner-v.wav", 0.8), nil)
	require.True(t, genuine.Success)
	assert.True(t, genuine.Verified)
	require.NotNil(t, genuine.Similarity)
	assert.Greater(t, *genuine.Similarity, 0.75)
	assert.Equal(t, 0.75, *genuine.Threshold)
	assert.Equal(t, "Speaker verified", genuine.Message)

	impostor := svc.Verify(ctx, "", f.wav(t, "stranger.wav", 0.8), nil)
	require.True(t, impostor.Success, "a rejection is still a completed comparison")
	assert.False(t, impostor.Verified)
	require.NotNil(t, impostor.Similarity)
	assert.Less(t, *impostor.Similarity, 0.75)
	assert.Nil(t, impostor.Failure)

	del := svc.Delete("")
	assert.True(t, del.Success)
	assert.Equal(t, "owner", del.SpeakerID)

	check = svc.Check("owner")
	assert.True(t, check.Success)
	assert.False(t, check.Enrolled)
	assert.Nil(t, check.VoiceprintPath)
	assert.Nil(t, toMap(t, check)["voiceprint_path"])
	_, present := toMap(t, check)["voiceprint_path"]
	assert.True(t, present, "voiceprint_path is null, not absent")

	after := svc.Verify(ctx, "owner", f.wav(t, "owner-v.wav", 0.8), nil)
	assert.False(t, after.Success)
	assert.False(t, after.Verified)
	require.NotNil(t, after.Failure)
	assert.Equal(t, models.KindSpeakerNotEnrolled, after.Kind)
	assert.True(t, after.NeedsEnrollment)

	again := svc.Delete("owner")
	assert.False(t, again.Success)
	assert.Equal(t, models.KindSpeakerNotEnrolled, again.FailureKind())
	assert.False(t, again.NeedsEnrollment)
	_, has := toMap(t, again)["needs_enrollment"]
	assert.False(t, has)
}

func TestService_VerifyFailureShape(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.service().Verify(context.Background(), "ghost", "nowhere.wav", nil)

	m := toMap(t, resp)
	assert.Equal(t, false, m["success"])
	assert.Equal(t, false, m["verified"])
	assert.Equal(t, "speaker_not_enrolled", m["kind"])
	assert.Equal(t, true, m["needs_enrollment"])
	assert.NotEmpty(t, m["error"])
	assert.NotContains(t, m, "similarity")
}

func TestService_ThresholdOverride(t *testing.T) {
	f := newFixture(t, map[string][]float64{
		"e.wav": {1, 0},
		"v.wav": {1, 1},
	})
	svc := f.service()
	ctx := context.Background()
	require.True(t, svc.Enroll(ctx, "alice", []string{f.wav(t, "e.wav", 1.0)}).Success)

	lenient := 0.5
	resp := svc.Verify(ctx, "alice", f.wav(t, "v.wav", 1.0), &lenient)
	assert.True(t, resp.Verified)
	assert.Equal(t, 0.5, *resp.Threshold)

	strict := svc.Verify(ctx, "alice", f.wav(t, "v.wav", 1.0), nil)
	assert.True(t, strict.Success)
	assert.False(t, strict.Verified)

	bad := 1.5
	invalid := svc.Verify(ctx, "alice", f.wav(t, "v.wav", 1.0), &bad)
	assert.False(t, invalid.Success)
	assert.Equal(t, models.KindInvalidThreshold, invalid.FailureKind())
}

func TestService_EnrollFailures(t *testing.T) {
	f := newFixture(t, nil)
	svc := f.service()

	none := svc.Enroll(context.Background(), "owner", nil)
	assert.False(t, none.Success)
	assert.Equal(t, models.KindNoSamplesProvided, none.FailureKind())

	short := svc.Enroll(context.Background(), "owner", []string{f.wav(t, "short.wav", 0.3)})
	assert.False(t, short.Success)
	assert.Equal(t, models.KindInsufficientAudio, short.FailureKind())
	assert.Contains(t, short.Error, "sample 1")
}

func TestService_ProviderUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	svc := NewServiceWith(Options{
		Provider: embedding.NewLazy(func(ctx context.Context) (embedding.Provider, error) {
			return nil, errors.New("no model")
		}, 0),
		Store:     f.store,
		Loader:    f.loader,
		Threshold: DefaultThreshold,
	})

	resp := svc.Enroll(context.Background(), "owner", []string{f.wav(t, "a.wav", 1.0)})
	assert.False(t, resp.Success)
	assert.Equal(t, models.KindProviderUnavailable, resp.FailureKind())

	// Registry queries never need the provider
	check := svc.Check("owner")
	assert.True(t, check.Success)
	assert.False(t, check.Enrolled)
}

func TestService_List(t *testing.T) {
	f := newFixture(t, map[string][]float64{"a.wav": {1, 2}})
	svc := f.service()
	ref := f.wav(t, "a.wav", 1.0)

	for _, id := range []string{"zoe", "adam", "owner"} {
		require.True(t, svc.Enroll(context.Background(), id, []string{ref}).Success)
	}

	resp := svc.List()
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"adam", "owner", "zoe"}, resp.Speakers)
	assert.Equal(t, 3, resp.Count)
}

func TestService_SpeakerIDDefault(t *testing.T) {
	svc := NewServiceWith(Options{DefaultSpeakerID: "me"})
	assert.Equal(t, "me", svc.SpeakerID(""))
	assert.Equal(t, "me", svc.SpeakerID("  "))
	assert.Equal(t, "bob", svc.SpeakerID("bob"))
}

func TestLimitsFromConfig(t *testing.T) {
	cfg := config.Default().Audio
	assert.Equal(t, audio.Limits{MinEnrollSeconds: 1, MinVerifySeconds: 0.5, MaxSeconds: 30, TruncateLong: true}, LimitsFromConfig(cfg))

	cfg.LongSamplePolicy = config.PolicyReject
	assert.False(t, LimitsFromConfig(cfg).TruncateLong)
}

func TestNewService_FromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Dir = t.TempDir()
	cfg.Provider.ModelPath = "/nonexistent/model.onnx"

	svc, err := NewService(cfg)
	require.NoError(t, err, "the provider is not loaded until first use")
	defer func() { _ = svc.Close() }()

	check := svc.Check("")
	assert.True(t, check.Success)
	assert.Equal(t, "owner", check.SpeakerID)
}
