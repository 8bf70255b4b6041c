package policies

import (
	"encoding/json"
	"math"
	"time"

	erand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// SoftMaxPolicy samples actions with probability proportional to
// exp(Q/temperature) and learns with one-step Q-learning.
type SoftMaxPolicy struct {
	QTable      *QTable
	Alpha       float64
	Gamma       float64
	Temperature float64

	frozen bool
	rand   erand.Source
}

func NewSoftMaxPolicy(alpha, gamma, temperature float64) *SoftMaxPolicy {
	return &SoftMaxPolicy{
		QTable:      NewQTable(),
		Alpha:       alpha,
		Gamma:       gamma,
		Temperature: temperature,
		rand:        erand.NewSource(uint64(time.Now().UnixNano())),
	}
}

// Seed fixes the sampling source.
func (s *SoftMaxPolicy) Seed(seed uint64) {
	s.rand = erand.NewSource(seed)
}

// Freeze stops UpdateStep from changing the table.
func (s *SoftMaxPolicy) Freeze()      { s.frozen = true }
func (s *SoftMaxPolicy) Frozen() bool { return s.frozen }

func (s *SoftMaxPolicy) Reset() {
	s.QTable.Reset()
	s.frozen = false
}

// Weights returns the softmax distribution over actions in state.
func (s *SoftMaxPolicy) Weights(state string, actions []string) []float64 {
	temp := s.Temperature
	if temp <= 0 {
		temp = 1
	}
	vals := make([]float64, len(actions))
	largest := math.Inf(-1)
	for i, a := range actions {
		vals[i] = s.QTable.Get(state, a, 0) / temp
		if vals[i] > largest {
			largest = vals[i]
		}
	}
	sum := float64(0)
	for i := range vals {
		vals[i] = math.Exp(vals[i] - largest)
		sum += vals[i]
	}
	for i := range vals {
		vals[i] = vals[i] / sum
	}
	return vals
}

// PickAction returns "" when actions is empty.
func (s *SoftMaxPolicy) PickAction(state string, actions []string) string {
	if len(actions) == 0 {
		return ""
	}
	i, ok := sampleuv.NewWeighted(s.Weights(state, actions), s.rand).Take()
	if !ok {
		return actions[0]
	}
	return actions[i]
}

func (s *SoftMaxPolicy) UpdateStep(state, action string, reward float64, nextState string) {
	if s.frozen {
		return
	}
	s.QTable.Update(state, action, reward, nextState, s.Alpha, s.Gamma)
}

func (s *SoftMaxPolicy) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.QTable)
}

func (s *SoftMaxPolicy) UnmarshalJSON(bs []byte) error {
	return s.QTable.UnmarshalJSON(bs)
}
