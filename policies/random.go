package policies

import (
	"time"

	erand "golang.org/x/exp/rand"
)

type RandomPolicy struct {
	rand *erand.Rand
}

func NewRandomPolicy() *RandomPolicy {
	return &RandomPolicy{
		rand: erand.New(erand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

func NewSeededRandomPolicy(seed uint64) *RandomPolicy {
	return &RandomPolicy{
		rand: erand.New(erand.NewSource(seed)),
	}
}

func (r *RandomPolicy) PickAction(actions []string) string {
	if len(actions) == 0 {
		return ""
	}
	return actions[r.rand.Intn(len(actions))]
}
