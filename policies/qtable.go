package policies

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path"
	"sort"

	"github.com/zeu5/tickrl/types"
)

// QRow holds one value per action, indexed by Action.Index
type QRow [types.NumActions]float64

// QTable grows lazily, unseen states start at the initial value
type QTable struct {
	table   map[StateKey]*QRow
	initial float64
}

func NewQTable(initial float64) *QTable {
	return &QTable{
		table:   make(map[StateKey]*QRow),
		initial: initial,
	}
}

// Row returns the row for the state, inserting it if absent
func (q *QTable) Row(state StateKey) *QRow {
	row, ok := q.table[state]
	if !ok {
		row = &QRow{}
		for i := range row {
			row[i] = q.initial
		}
		q.table[state] = row
	}
	return row
}

func (q *QTable) Get(state StateKey, action types.Action) float64 {
	return q.Row(state)[action.Index()]
}

func (q *QTable) Set(state StateKey, action types.Action, val float64) {
	q.Row(state)[action.Index()] = val
}

func (q *QTable) HasState(state StateKey) bool {
	_, ok := q.table[state]
	return ok
}

func (q *QTable) Len() int {
	return len(q.table)
}

// MaxAmong returns the largest value among the allowed actions, ok is false if none is allowed
func (q *QTable) MaxAmong(state StateKey, allowed func(types.Action) bool) (float64, bool) {
	row := q.Row(state)
	best := 0.0
	found := false
	for _, a := range types.AllActions {
		if allowed != nil && !allowed(a) {
			continue
		}
		if !found || row[a.Index()] > best {
			best = row[a.Index()]
			found = true
		}
	}
	return best, found
}

type qTableEntry struct {
	State  string    `json:"state"`
	Values []float64 `json:"values"`
}

// Record writes the table as JSON lines, sorted by state
func (q *QTable) Record(filePath string) error {
	if dir := path.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	keys := make([]StateKey, 0, len(q.table))
	for k := range q.table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	w := bufio.NewWriter(f)
	for _, k := range keys {
		row := q.table[k]
		bs, err := json.Marshal(qTableEntry{State: k.String(), Values: row[:]})
		if err != nil {
			return err
		}
		w.Write(bs)
		w.WriteString("\n")
	}
	return w.Flush()
}

// Read loads a table recorded with Record, replacing existing rows
func (q *QTable) Read(filePath string) error {
	return q.ReadBounded(filePath, math.Inf(-1), math.Inf(1))
}

// ReadBounded is Read with every loaded value clamped to [lo, hi]
func (q *QTable) ReadBounded(filePath string, lo, hi float64) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e qTableEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		k, err := ParseStateKey(e.State)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if len(e.Values) != types.NumActions {
			return fmt.Errorf("line %d: %d values, expected %d", line, len(e.Values), types.NumActions)
		}
		row := &QRow{}
		for i, v := range e.Values {
			row[i] = math.Max(lo, math.Min(hi, v))
		}
		q.table[k] = row
	}
	return scanner.Err()
}
