package config

// Metric names that may be recorded and plotted
const (
	AvgAttackerEpisodeRewards = "avg_attacker_episode_rewards"
	AvgDefenderEpisodeRewards = "avg_defender_episode_rewards"
	AvgEpisodeSteps           = "avg_episode_steps"
	EpsilonValues             = "epsilon_values"
	HackProbability           = "hack_probability"
	CumulativeHackProbability = "cumulative_hack_probability"
	AttackerCumulativeReward  = "attacker_cumulative_reward"
	DefenderCumulativeReward  = "defender_cumulative_reward"
	LearningRates             = "learning_rates"
)

// KnownMetrics lists every metric name in the order results are written
var KnownMetrics = []string{
	AvgAttackerEpisodeRewards,
	AvgDefenderEpisodeRewards,
	AvgEpisodeSteps,
	EpsilonValues,
	HackProbability,
	CumulativeHackProbability,
	AttackerCumulativeReward,
	DefenderCumulativeReward,
	LearningRates,
}

// IsKnownMetric returns whether name is a known metric
func IsKnownMetric(name string) bool {
	for _, m := range KnownMetrics {
		if m == name {
			return true
		}
	}
	return false
}
