package types

import "fmt"

// EpisodeStats is a point in time snapshot of the runner statistics
type EpisodeStats struct {
	EpisodesCompleted     int64   `json:"episodes_completed"`
	SuccessCount          int64   `json:"success_count"`
	FailureCount          int64   `json:"failure_count"`
	OverallSuccessRate    float64 `json:"overall_success_rate"`
	RecentSuccessRate     float64 `json:"recent_success_rate"`
	OverallAvgStepsToGoal float64 `json:"overall_avg_steps_to_goal"`
	RecentAvgStepsToGoal  float64 `json:"recent_avg_steps_to_goal"`
	// -1 until the first success
	BestStepsToGoal   int     `json:"best_steps_to_goal"`
	EpisodesPerMinute float64 `json:"episodes_per_minute"`
	// -1 when the policy does not expose them
	Epsilon    float64 `json:"epsilon"`
	StateCount int     `json:"state_count"`

	StepsPerSecond  float64 `json:"steps_per_second"`
	MovingAvgReward float64 `json:"moving_avg_reward"`
	TotalSteps      int64   `json:"total_steps"`
	LogFailures     int64   `json:"log_failures"`
	State           string  `json:"state"`
}

func (s EpisodeStats) String() string {
	best := "n/a"
	if s.BestStepsToGoal >= 0 {
		best = fmt.Sprintf("%d", s.BestStepsToGoal)
	}
	eps := "n/a"
	if s.Epsilon >= 0 {
		eps = fmt.Sprintf("%.3f", s.Epsilon)
	}
	return fmt.Sprintf("Episodes:%d, Success:%d [%5.1f%%], Recent:[%5.1f%%] || AvgSteps:%.1f, Recent:%.1f, Best:%s || Eps/min:%.1f, Epsilon:%s, States:%d, Speed:%.1f",
		s.EpisodesCompleted, s.SuccessCount, s.OverallSuccessRate*100, s.RecentSuccessRate*100,
		s.OverallAvgStepsToGoal, s.RecentAvgStepsToGoal, best,
		s.EpisodesPerMinute, eps, s.StateCount, s.StepsPerSecond)
}
