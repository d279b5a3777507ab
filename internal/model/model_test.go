package model

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalist/internal/mlerr"
)

// separableDataset builds three well-separated clusters in 9
// dimensions, one per class.
func separableDataset(n int) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(7))
	centers := [3]float64{0.1, 0.5, 0.9}
	var features [][]float64
	var labels []int
	for i := 0; i < n; i++ {
		class := i % 3
		row := make([]float64, 9)
		for j := range row {
			row[j] = centers[class] + rng.Float64()*0.08 - 0.04
		}
		features = append(features, row)
		labels = append(labels, class)
	}
	return features, labels
}

func TestTrainNetworkLearnsSeparableData(t *testing.T) {
	features, labels := separableDataset(90)
	net, err := TrainNetwork(features, labels, 3, NetworkOptions{Hidden1: 16, Hidden2: 8, Epochs: 1000})
	require.NoError(t, err)

	correct := 0
	for i, row := range features {
		probs, err := net.PredictProba(row)
		require.NoError(t, err)
		assert.Len(t, probs, 3)
		assert.InDelta(t, 1.0, probs[0]+probs[1]+probs[2], 1e-9)
		if Argmax(probs) == labels[i] {
			correct++
		}
	}
	assert.Greater(t, float64(correct)/float64(len(features)), 0.9)
}

func TestTrainNetworkRejectsEmptyInput(t *testing.T) {
	_, err := TrainNetwork(nil, nil, 3, NetworkOptions{})
	assert.ErrorIs(t, err, mlerr.ErrInvalidInput)
}

func TestNetworkPredictRejectsWrongWidth(t *testing.T) {
	features, labels := separableDataset(30)
	net, err := TrainNetwork(features, labels, 3, NetworkOptions{Hidden1: 8, Hidden2: 4, Epochs: 5})
	require.NoError(t, err)

	_, err = net.PredictProba([]float64{1, 2, 3})
	assert.ErrorIs(t, err, mlerr.ErrInvalidInput)
}

func TestTrainForestLearnsSeparableData(t *testing.T) {
	features, labels := separableDataset(90)
	forest, err := TrainForest(features, labels, 3, ForestOptions{NumTrees: 20, MaxDepth: 6})
	require.NoError(t, err)

	correct := 0
	for i, row := range features {
		probs, err := forest.PredictProba(row)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, probs[0]+probs[1]+probs[2], 1e-9)
		if Argmax(probs) == labels[i] {
			correct++
		}
	}
	assert.Greater(t, float64(correct)/float64(len(features)), 0.9)
}

func TestTrainForestDeterministicForSeed(t *testing.T) {
	features, labels := separableDataset(45)
	a, err := TrainForest(features, labels, 3, ForestOptions{NumTrees: 5, MaxDepth: 4, Seed: 42})
	require.NoError(t, err)
	b, err := TrainForest(features, labels, 3, ForestOptions{NumTrees: 5, MaxDepth: 4, Seed: 42})
	require.NoError(t, err)

	probe := features[10]
	pa, err := a.PredictProba(probe)
	require.NoError(t, err)
	pb, err := b.PredictProba(probe)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	features, labels := separableDataset(45)

	for _, c := range []Classifier{
		mustTrainNetwork(t, features, labels),
		mustTrainForest(t, features, labels),
	} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, c))

		decoded, err := Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, c.Kind(), decoded.Kind())

		want, err := c.PredictProba(features[0])
		require.NoError(t, err)
		got, err := decoded.PredictProba(features[0])
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDecodeGarbageIsCorruptArtifact(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not a gob payload")))
	assert.ErrorIs(t, err, mlerr.ErrArtifactCorrupt)
}

func TestArgmaxTieKeepsLowestClass(t *testing.T) {
	assert.Equal(t, 0, Argmax([]float64{0.4, 0.4, 0.2}))
	assert.Equal(t, 2, Argmax([]float64{0.1, 0.2, 0.7}))
}

func mustTrainNetwork(t *testing.T, features [][]float64, labels []int) *Network {
	t.Helper()
	net, err := TrainNetwork(features, labels, 3, NetworkOptions{Hidden1: 8, Hidden2: 4, Epochs: 10})
	require.NoError(t, err)
	return net
}

func mustTrainForest(t *testing.T, features [][]float64, labels []int) *Forest {
	t.Helper()
	forest, err := TrainForest(features, labels, 3, ForestOptions{NumTrees: 5, MaxDepth: 4})
	require.NoError(t, err)
	return forest
}
