package model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"signalist/internal/logger"
	"signalist/internal/mlerr"
)

// Forest is a bagged ensemble of CART trees. Each tree trains on a
// bootstrap sample and considers sqrt(inputs) random features per
// split. Exported fields serialize via gob.
type Forest struct {
	InputSize  int
	NumClasses int
	Trees      []*Tree
}

// Tree is one decision tree, stored as a flat node array with child
// indices. Leaves carry the class distribution of the samples that
// reached them.
type Tree struct {
	Nodes []TreeNode
}

type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Leaf      bool
	Probs     []float64
}

// ForestOptions control training. Zero values fall back to defaults.
type ForestOptions struct {
	NumTrees int
	MaxDepth int
	Seed     int64
}

func (o *ForestOptions) fill() {
	if o.NumTrees <= 0 {
		o.NumTrees = 100
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = 10
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
}

// TrainForest grows a random forest on the given dataset.
func TrainForest(features [][]float64, labels []int, numClasses int, opts ForestOptions) (*Forest, error) {
	if len(features) == 0 || len(features) != len(labels) {
		return nil, fmt.Errorf("%w: %d feature rows vs %d labels", mlerr.ErrInvalidInput, len(features), len(labels))
	}
	opts.fill()
	rng := rand.New(rand.NewSource(opts.Seed))
	logger.Infof("training forest with %d trees, max_depth=%d", opts.NumTrees, opts.MaxDepth)

	inputSize := len(features[0])
	maxFeatures := int(math.Max(1, math.Floor(math.Sqrt(float64(inputSize)))))

	f := &Forest{InputSize: inputSize, NumClasses: numClasses, Trees: make([]*Tree, opts.NumTrees)}
	for t := range f.Trees {
		idx := bootstrap(len(features), rng)
		g := &grower{
			features:    features,
			labels:      labels,
			numClasses:  numClasses,
			maxDepth:    opts.MaxDepth,
			maxFeatures: maxFeatures,
			rng:         rng,
		}
		f.Trees[t] = g.grow(idx)
	}
	logger.Infof("forest training completed")
	return f, nil
}

func (f *Forest) Kind() Kind { return KindRandomForest }

// PredictProba averages the leaf class distributions of all trees.
func (f *Forest) PredictProba(features []float64) ([]float64, error) {
	if len(features) != f.InputSize {
		return nil, fmt.Errorf("%w: feature vector width %d, want %d", mlerr.ErrInvalidInput, len(features), f.InputSize)
	}
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("%w: forest has no trees", mlerr.ErrArtifactCorrupt)
	}
	probs := make([]float64, f.NumClasses)
	for _, tree := range f.Trees {
		leaf := tree.route(features)
		for c, p := range leaf {
			probs[c] += p
		}
	}
	for c := range probs {
		probs[c] /= float64(len(f.Trees))
	}
	return probs, nil
}

func (t *Tree) route(features []float64) []float64 {
	i := 0
	for {
		node := &t.Nodes[i]
		if node.Leaf {
			return node.Probs
		}
		if features[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

func bootstrap(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}

type grower struct {
	features    [][]float64
	labels      []int
	numClasses  int
	maxDepth    int
	maxFeatures int
	rng         *rand.Rand
}

func (g *grower) grow(idx []int) *Tree {
	t := &Tree{}
	g.split(t, idx, 0)
	return t
}

// split appends a node for the sample set idx and returns its index.
func (g *grower) split(t *Tree, idx []int, depth int) int {
	counts := g.classCounts(idx)
	self := len(t.Nodes)
	t.Nodes = append(t.Nodes, TreeNode{})

	if depth >= g.maxDepth || len(idx) < 2 || pure(counts) {
		t.Nodes[self] = leafNode(counts, len(idx))
		return self
	}

	feature, threshold, ok := g.bestSplit(idx, counts)
	if !ok {
		t.Nodes[self] = leafNode(counts, len(idx))
		return self
	}

	var left, right []int
	for _, i := range idx {
		if g.features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		t.Nodes[self] = leafNode(counts, len(idx))
		return self
	}

	leftIdx := g.split(t, left, depth+1)
	rightIdx := g.split(t, right, depth+1)
	t.Nodes[self] = TreeNode{Feature: feature, Threshold: threshold, Left: leftIdx, Right: rightIdx}
	return self
}

func (g *grower) classCounts(idx []int) []int {
	counts := make([]int, g.numClasses)
	for _, i := range idx {
		counts[g.labels[i]]++
	}
	return counts
}

func pure(counts []int) bool {
	nonzero := 0
	for _, c := range counts {
		if c > 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}

func leafNode(counts []int, total int) TreeNode {
	probs := make([]float64, len(counts))
	for c, n := range counts {
		probs[c] = float64(n) / float64(total)
	}
	return TreeNode{Leaf: true, Probs: probs}
}

// bestSplit scans a random feature subset for the threshold with the
// lowest weighted Gini impurity. Candidate thresholds are midpoints
// between adjacent distinct values.
func (g *grower) bestSplit(idx []int, counts []int) (feature int, threshold float64, ok bool) {
	parentGini := gini(counts, len(idx))
	bestGain := 1e-9

	for _, f := range g.sampleFeatures() {
		values := make([]float64, len(idx))
		for k, i := range idx {
			values[k] = g.features[i][f]
		}
		sort.Float64s(values)

		for k := 1; k < len(values); k++ {
			if values[k] == values[k-1] {
				continue
			}
			mid := (values[k] + values[k-1]) / 2
			gain := parentGini - g.splitImpurity(idx, f, mid)
			if gain > bestGain {
				bestGain, feature, threshold, ok = gain, f, mid, true
			}
		}
	}
	return feature, threshold, ok
}

func (g *grower) sampleFeatures() []int {
	n := len(g.features[0])
	perm := g.rng.Perm(n)
	return perm[:g.maxFeatures]
}

func (g *grower) splitImpurity(idx []int, feature int, threshold float64) float64 {
	leftCounts := make([]int, g.numClasses)
	rightCounts := make([]int, g.numClasses)
	leftN, rightN := 0, 0
	for _, i := range idx {
		if g.features[i][feature] <= threshold {
			leftCounts[g.labels[i]]++
			leftN++
		} else {
			rightCounts[g.labels[i]]++
			rightN++
		}
	}
	total := float64(leftN + rightN)
	return float64(leftN)/total*gini(leftCounts, leftN) + float64(rightN)/total*gini(rightCounts, rightN)
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		impurity -= p * p
	}
	return impurity
}
