package policies

import (
	"encoding/json"
	"math"
	"time"

	erand "golang.org/x/exp/rand"
)

// QTable maps state -> action -> value. It is the policy blob exchanged with
// the adapter, encoded as a plain nested JSON object.
type QTable struct {
	table map[string]map[string]float64

	rand *erand.Rand
}

func NewQTable() *QTable {
	return &QTable{
		table: make(map[string]map[string]float64),
		rand:  erand.New(erand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

func (q *QTable) GetAll(state string) (map[string]float64, bool) {
	values, ok := q.table[state]
	return values, ok
}

func (q *QTable) Get(state, action string, def float64) float64 {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	if _, ok := q.table[state][action]; !ok {
		q.table[state][action] = def
	}
	return q.table[state][action]
}

func (q *QTable) Set(state, action string, val float64) {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	q.table[state][action] = val
}

func (q *QTable) Exists(state string) bool {
	_, ok := q.table[state]
	return ok
}

func (q *QTable) Size() int {
	return len(q.table)
}

// Max returns the best known action for state, or def when nothing is known.
func (q *QTable) Max(state string, def float64) (string, float64) {
	values, ok := q.table[state]
	if !ok || len(values) == 0 {
		return "", def
	}
	maxAction := ""
	maxVal := math.Inf(-1)
	for a, val := range values {
		if val > maxVal || (val == maxVal && a < maxAction) {
			maxAction = a
			maxVal = val
		}
	}
	return maxAction, maxVal
}

// MaxAmong breaks ties uniformly at random.
func (q *QTable) MaxAmong(state string, actions []string, def float64) (string, float64) {
	maxActions := make([]string, 0)
	maxVal := math.Inf(-1)
	for _, a := range actions {
		val := q.Get(state, a, def)
		if val > maxVal {
			maxActions = maxActions[:0]
			maxVal = val
		}
		if val == maxVal {
			maxActions = append(maxActions, a)
		}
	}
	if len(maxActions) == 0 {
		return "", def
	}
	return maxActions[q.rand.Intn(len(maxActions))], maxVal
}

// Update applies the one-step Q-learning rule.
func (q *QTable) Update(state, action string, reward float64, nextState string, alpha, gamma float64) float64 {
	cur := q.Get(state, action, 0)
	_, next := q.Max(nextState, 0)
	val := (1-alpha)*cur + alpha*(reward+gamma*next)
	q.Set(state, action, val)
	return val
}

func (q *QTable) Reset() {
	q.table = make(map[string]map[string]float64)
}

func (q *QTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.table)
}

func (q *QTable) UnmarshalJSON(bs []byte) error {
	table := make(map[string]map[string]float64)
	if err := json.Unmarshal(bs, &table); err != nil {
		return err
	}
	q.table = table
	if q.rand == nil {
		q.rand = erand.New(erand.NewSource(uint64(time.Now().UnixNano())))
	}
	return nil
}
