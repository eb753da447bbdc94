package transitions

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/zeu5/tickrl/types"
)

var (
	ErrQueueFull = errors.New("transition queue full")
)

// Header of the csv file
var Header = []string{"obs", "action", "reward", "next_obs", "done"}

// Record is the serialized form of a transition.
// Observations are their features joined by ';' with six decimals.
type Record struct {
	Obs     string  `json:"obs"`
	Action  int     `json:"action"`
	Reward  float64 `json:"reward"`
	NextObs string  `json:"next_obs"`
	Done    bool    `json:"done"`
}

func NewRecord(state types.Observation, action types.Action, reward float64, next types.Observation, done bool) Record {
	return Record{
		Obs:     state.String(),
		Action:  action.Index(),
		Reward:  reward,
		NextObs: next.String(),
		Done:    done,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatDone(done bool) string {
	if done {
		return "1"
	}
	return "0"
}

// Row in the column order of Header
func (r Record) Row() []string {
	return []string{r.Obs, strconv.Itoa(r.Action), formatFloat(r.Reward), r.NextObs, formatDone(r.Done)}
}

// Values as stored in a redis stream entry
func (r Record) Values() map[string]interface{} {
	row := r.Row()
	values := make(map[string]interface{}, len(Header))
	for i, k := range Header {
		values[k] = row[i]
	}
	return values
}

// ParseValues reads a record back from stream entry values
func ParseValues(values map[string]interface{}) (Record, error) {
	get := func(k string) (string, error) {
		v, ok := values[k]
		if !ok {
			return "", fmt.Errorf("missing field %s", k)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("field %s is %T, expected string", k, v)
		}
		return s, nil
	}
	r := Record{}
	var err error
	if r.Obs, err = get("obs"); err != nil {
		return r, err
	}
	if r.NextObs, err = get("next_obs"); err != nil {
		return r, err
	}
	s, err := get("action")
	if err != nil {
		return r, err
	}
	if r.Action, err = strconv.Atoi(s); err != nil {
		return r, fmt.Errorf("action: %w", err)
	}
	if s, err = get("reward"); err != nil {
		return r, err
	}
	if r.Reward, err = strconv.ParseFloat(s, 64); err != nil {
		return r, fmt.Errorf("reward: %w", err)
	}
	if s, err = get("done"); err != nil {
		return r, err
	}
	r.Done = s == "1"
	return r, nil
}

// Nop discards transitions
func Nop() types.TransitionLogger {
	return types.NopTransitionLogger()
}
