package model

import (
	"fmt"
	"math"
	"math/rand"

	"signalist/internal/logger"
	"signalist/internal/mlerr"
)

const dropoutRate = 0.2

// Network is a three-layer perceptron with ReLU activations and a
// softmax head. Fields are exported for gob serialization; weight
// matrices are stored row-major as [out][in].
type Network struct {
	InputSize  int
	Hidden1    int
	Hidden2    int
	NumClasses int

	W1 [][]float64
	B1 []float64
	W2 [][]float64
	B2 []float64
	W3 [][]float64
	B3 []float64
}

// NetworkOptions control training. Zero values fall back to the
// defaults the rest of the system is tuned for.
type NetworkOptions struct {
	Hidden1      int
	Hidden2      int
	Epochs       int
	LearningRate float64
	Seed         int64
}

func (o *NetworkOptions) fill() {
	if o.Hidden1 <= 0 {
		o.Hidden1 = 128
	}
	if o.Hidden2 <= 0 {
		o.Hidden2 = 64
	}
	if o.Epochs <= 0 {
		o.Epochs = 50
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 0.001
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
}

// TrainNetwork fits a fresh network with full-batch Adam on softmax
// cross-entropy. Dropout is applied to both hidden layers during
// training only.
func TrainNetwork(features [][]float64, labels []int, numClasses int, opts NetworkOptions) (*Network, error) {
	if len(features) == 0 || len(features) != len(labels) {
		return nil, fmt.Errorf("%w: %d feature rows vs %d labels", mlerr.ErrInvalidInput, len(features), len(labels))
	}
	opts.fill()
	rng := rand.New(rand.NewSource(opts.Seed))

	inputSize := len(features[0])
	net := &Network{
		InputSize:  inputSize,
		Hidden1:    opts.Hidden1,
		Hidden2:    opts.Hidden2,
		NumClasses: numClasses,
		W1:         heInit(opts.Hidden1, inputSize, rng),
		B1:         make([]float64, opts.Hidden1),
		W2:         heInit(opts.Hidden2, opts.Hidden1, rng),
		B2:         make([]float64, opts.Hidden2),
		W3:         heInit(numClasses, opts.Hidden2, rng),
		B3:         make([]float64, numClasses),
	}

	opt := newAdam(net, opts.LearningRate)
	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		loss := net.trainEpoch(features, labels, opt, rng)
		if epoch%10 == 0 {
			logger.Infof("network epoch %d/%d, loss=%.4f", epoch, opts.Epochs, loss)
		}
	}
	return net, nil
}

func (n *Network) Kind() Kind { return KindNeuralNetwork }

// PredictProba runs a forward pass without dropout.
func (n *Network) PredictProba(features []float64) ([]float64, error) {
	if len(features) != n.InputSize {
		return nil, fmt.Errorf("%w: feature vector width %d, want %d", mlerr.ErrInvalidInput, len(features), n.InputSize)
	}
	h1 := relu(affine(n.W1, n.B1, features))
	h2 := relu(affine(n.W2, n.B2, h1))
	return softmax(affine(n.W3, n.B3, h2)), nil
}

// trainEpoch runs one full-batch forward/backward pass and returns the
// mean cross-entropy loss.
func (n *Network) trainEpoch(features [][]float64, labels []int, opt *adam, rng *rand.Rand) float64 {
	grads := newGradients(n)
	var loss float64

	for i, x := range features {
		z1 := affine(n.W1, n.B1, x)
		a1 := relu(z1)
		m1 := dropoutMask(len(a1), rng)
		applyMask(a1, m1)

		z2 := affine(n.W2, n.B2, a1)
		a2 := relu(z2)
		m2 := dropoutMask(len(a2), rng)
		applyMask(a2, m2)

		probs := softmax(affine(n.W3, n.B3, a2))
		loss += -math.Log(math.Max(probs[labels[i]], 1e-12))

		// Softmax cross-entropy gradient: probs - onehot(label).
		d3 := append([]float64(nil), probs...)
		d3[labels[i]] -= 1

		accumulate(grads.w3, grads.b3, d3, a2)
		d2 := backprop(n.W3, d3, z2, m2)
		accumulate(grads.w2, grads.b2, d2, a1)
		d1 := backprop(n.W2, d2, z1, m1)
		accumulate(grads.w1, grads.b1, d1, x)
	}

	grads.scale(1 / float64(len(features)))
	opt.step(n, grads)
	return loss / float64(len(features))
}

func heInit(rows, cols int, rng *rand.Rand) [][]float64 {
	scale := math.Sqrt(2 / float64(cols))
	w := make([][]float64, rows)
	for i := range w {
		w[i] = make([]float64, cols)
		for j := range w[i] {
			w[i][j] = rng.NormFloat64() * scale
		}
	}
	return w
}

func affine(w [][]float64, b []float64, x []float64) []float64 {
	out := make([]float64, len(w))
	for i, row := range w {
		sum := b[i]
		for j, v := range row {
			sum += v * x[j]
		}
		out[i] = sum
	}
	return out
}

func relu(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if v > 0 {
			out[i] = v
		}
	}
	return out
}

func softmax(logits []float64) []float64 {
	max := logits[0]
	for _, v := range logits {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// dropoutMask builds an inverted-dropout mask so inference needs no
// rescaling.
func dropoutMask(n int, rng *rand.Rand) []float64 {
	mask := make([]float64, n)
	keep := 1 - dropoutRate
	for i := range mask {
		if rng.Float64() < keep {
			mask[i] = 1 / keep
		}
	}
	return mask
}

func applyMask(x, mask []float64) {
	for i := range x {
		x[i] *= mask[i]
	}
}

// backprop pushes a layer's output gradient through its weights, the
// dropout mask of the previous activation and the ReLU derivative.
func backprop(w [][]float64, dOut []float64, z []float64, mask []float64) []float64 {
	dIn := make([]float64, len(z))
	for j := range dIn {
		var sum float64
		for i := range w {
			sum += w[i][j] * dOut[i]
		}
		sum *= mask[j]
		if z[j] <= 0 {
			sum = 0
		}
		dIn[j] = sum
	}
	return dIn
}

func accumulate(dw [][]float64, db []float64, d []float64, input []float64) {
	for i, g := range d {
		db[i] += g
		row := dw[i]
		for j, v := range input {
			row[j] += g * v
		}
	}
}

type gradients struct {
	w1, w2, w3 [][]float64
	b1, b2, b3 []float64
}

func newGradients(n *Network) *gradients {
	return &gradients{
		w1: zerosLike(n.W1), b1: make([]float64, len(n.B1)),
		w2: zerosLike(n.W2), b2: make([]float64, len(n.B2)),
		w3: zerosLike(n.W3), b3: make([]float64, len(n.B3)),
	}
}

func (g *gradients) scale(f float64) {
	for _, w := range [][][]float64{g.w1, g.w2, g.w3} {
		for _, row := range w {
			for j := range row {
				row[j] *= f
			}
		}
	}
	for _, b := range [][]float64{g.b1, g.b2, g.b3} {
		for j := range b {
			b[j] *= f
		}
	}
}

func zerosLike(w [][]float64) [][]float64 {
	out := make([][]float64, len(w))
	for i := range out {
		out[i] = make([]float64, len(w[i]))
	}
	return out
}

// adam keeps first and second moment estimates per parameter tensor.
type adam struct {
	lr      float64
	beta1   float64
	beta2   float64
	eps     float64
	t       int
	mW, vW  [3][][]float64
	mB, vB  [3][]float64
	weights [3][][]float64
	biases  [3][]float64
}

func newAdam(n *Network, lr float64) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8}
	a.weights = [3][][]float64{n.W1, n.W2, n.W3}
	a.biases = [3][]float64{n.B1, n.B2, n.B3}
	for i := range a.weights {
		a.mW[i] = zerosLike(a.weights[i])
		a.vW[i] = zerosLike(a.weights[i])
		a.mB[i] = make([]float64, len(a.biases[i]))
		a.vB[i] = make([]float64, len(a.biases[i]))
	}
	return a
}

func (a *adam) step(n *Network, g *gradients) {
	a.t++
	gw := [3][][]float64{g.w1, g.w2, g.w3}
	gb := [3][]float64{g.b1, g.b2, g.b3}
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))

	for l := range a.weights {
		for i := range a.weights[l] {
			for j := range a.weights[l][i] {
				grad := gw[l][i][j]
				a.mW[l][i][j] = a.beta1*a.mW[l][i][j] + (1-a.beta1)*grad
				a.vW[l][i][j] = a.beta2*a.vW[l][i][j] + (1-a.beta2)*grad*grad
				a.weights[l][i][j] -= a.lr * (a.mW[l][i][j] / c1) / (math.Sqrt(a.vW[l][i][j]/c2) + a.eps)
			}
		}
		for i := range a.biases[l] {
			grad := gb[l][i]
			a.mB[l][i] = a.beta1*a.mB[l][i] + (1-a.beta1)*grad
			a.vB[l][i] = a.beta2*a.vB[l][i] + (1-a.beta2)*grad*grad
			a.biases[l][i] -= a.lr * (a.mB[l][i] / c1) / (math.Sqrt(a.vB[l][i]/c2) + a.eps)
		}
	}
}
