package faces

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albumworks/albumserver/models"
	"github.com/albumworks/albumserver/vectorindex"
)

// probes at known cosine distances from the enrolled vector {1, 0}
var (
	enrolledVector = []float32{1, 0}
	nearProbe      = []float32{0.9, 0.43589}  // distance 0.10
	farProbe       = []float32{0.75, 0.66144} // distance 0.25
)

func enrollIdentity(index *fakeIndex, name string) uuid.UUID {
	id := uuid.New()
	index.records[id] = &vectorindex.Record{ID: id, Vector: enrolledVector, Hash: "h", Name: name}
	return id
}

func createImageItem(t *testing.T, env *testEnv) *models.Item {
	t.Helper()
	item := &models.Item{Type: models.BinaryTypeImage, Path: "items/probe.jpg"}
	require.NoError(t, env.items.Create(item))
	return item
}

func newTaggerUnderTest(env *testEnv, index Index, embedder Embedder) *Tagger {
	return NewTagger(index, embedder, env.store, env.items, env.identities, 0.18)
}

func TestTagVideoSkipsFaceWork(t *testing.T) {
	env := newTestEnv(t)
	index := newFakeIndex()
	embedder := &fakeEmbedder{}

	item := &models.Item{Type: models.BinaryTypeVideo, Path: "items/clip.mp4"}
	require.NoError(t, env.items.Create(item))

	tagger := newTaggerUnderTest(env, index, embedder)
	require.NoError(t, tagger.Tag(context.Background(), item))

	reloaded, err := env.items.GetByID(item.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Processed)
	assert.Zero(t, index.searches)
	assert.Zero(t, embedder.calls)
}

func TestTagLinksNearbyIdentity(t *testing.T) {
	env := newTestEnv(t)
	index := newFakeIndex()
	annID := enrollIdentity(index, "Ann")
	embedder := &fakeEmbedder{vectors: [][]float32{nearProbe}}

	item := createImageItem(t, env)
	tagger := newTaggerUnderTest(env, index, embedder)
	require.NoError(t, tagger.Tag(context.Background(), item))

	reloaded, err := env.items.GetByID(item.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Processed)
	require.Len(t, reloaded.Identities, 1)
	assert.Equal(t, annID, reloaded.Identities[0].ID)
	assert.Equal(t, "Ann", reloaded.Identities[0].Name)
}

func TestTagIgnoresDistantFaces(t *testing.T) {
	env := newTestEnv(t)
	index := newFakeIndex()
	enrollIdentity(index, "Ann")
	embedder := &fakeEmbedder{vectors: [][]float32{farProbe}}

	item := createImageItem(t, env)
	tagger := newTaggerUnderTest(env, index, embedder)
	require.NoError(t, tagger.Tag(context.Background(), item))

	reloaded, err := env.items.GetByID(item.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Processed, "an unrecognized face still completes the pass")
	assert.Empty(t, reloaded.Identities)
}

func TestTagLeavesItemUnprocessedOnSearchError(t *testing.T) {
	env := newTestEnv(t)
	index := newFakeIndex()
	index.searchErr = context.DeadlineExceeded
	embedder := &fakeEmbedder{vectors: [][]float32{nearProbe}}

	item := createImageItem(t, env)
	tagger := newTaggerUnderTest(env, index, embedder)
	require.Error(t, tagger.Tag(context.Background(), item))

	reloaded, err := env.items.GetByID(item.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Processed, "a failed pass must stay retryable")
}

func TestTagTwiceKeepsSingleLink(t *testing.T) {
	env := newTestEnv(t)
	index := newFakeIndex()
	enrollIdentity(index, "Ann")
	embedder := &fakeEmbedder{vectors: [][]float32{nearProbe}}

	item := createImageItem(t, env)
	tagger := newTaggerUnderTest(env, index, embedder)
	require.NoError(t, tagger.Tag(context.Background(), item))
	require.NoError(t, tagger.Tag(context.Background(), item))

	reloaded, err := env.items.GetByID(item.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Identities, 1, "re-tagging must not duplicate links")
}

func TestSweepProcessesBacklog(t *testing.T) {
	env := newTestEnv(t)
	index := newFakeIndex()
	enrollIdentity(index, "Ann")
	embedder := &fakeEmbedder{vectors: [][]float32{nearProbe}}

	imageItem := createImageItem(t, env)
	videoItem := &models.Item{Type: models.BinaryTypeVideo, Path: "items/clip.mp4"}
	require.NoError(t, env.items.Create(videoItem))

	tagger := newTaggerUnderTest(env, index, embedder)
	sweeper := NewSweeper(env.items, tagger)
	require.NoError(t, sweeper.Sweep(context.Background()))

	remaining, err := env.items.ListUnprocessed()
	require.NoError(t, err)
	assert.Empty(t, remaining)

	reloaded, err := env.items.GetByID(imageItem.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Identities, 1)
}

func TestSweepSecondPassDoesNothing(t *testing.T) {
	env := newTestEnv(t)
	index := newFakeIndex()
	enrollIdentity(index, "Ann")
	embedder := &fakeEmbedder{vectors: [][]float32{nearProbe}}

	createImageItem(t, env)

	tagger := newTaggerUnderTest(env, index, embedder)
	sweeper := NewSweeper(env.items, tagger)
	require.NoError(t, sweeper.Sweep(context.Background()))

	searchesAfterFirst := index.searches
	require.NoError(t, sweeper.Sweep(context.Background()))
	assert.Equal(t, searchesAfterFirst, index.searches, "a clean backlog must cost no vector queries")
}

func TestSweepContinuesPastFailures(t *testing.T) {
	env := newTestEnv(t)
	index := newFakeIndex()
	embedder := &fakeEmbedder{err: context.DeadlineExceeded}

	imageItem := createImageItem(t, env)
	videoItem := &models.Item{Type: models.BinaryTypeVideo, Path: "items/clip.mp4"}
	require.NoError(t, env.items.Create(videoItem))

	tagger := newTaggerUnderTest(env, index, embedder)
	sweeper := NewSweeper(env.items, tagger)
	require.NoError(t, sweeper.Sweep(context.Background()))

	reloadedVideo, err := env.items.GetByID(videoItem.ID)
	require.NoError(t, err)
	assert.True(t, reloadedVideo.Processed)

	reloadedImage, err := env.items.GetByID(imageItem.ID)
	require.NoError(t, err)
	assert.False(t, reloadedImage.Processed)
}
