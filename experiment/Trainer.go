// Package experiment implements the training and evaluation loop of a
// SARSA agent in an intrusion-detection game
package experiment

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/medai-secure/idsgame-sarsa/agent"
	"github.com/medai-secure/idsgame-sarsa/config"
	"github.com/medai-secure/idsgame-sarsa/environment"
	"github.com/medai-secure/idsgame-sarsa/experiment/checkpointer"
	"github.com/medai-secure/idsgame-sarsa/experiment/store"
	"github.com/medai-secure/idsgame-sarsa/experiment/trackers"
	"github.com/medai-secure/idsgame-sarsa/features"
	ts "github.com/medai-secure/idsgame-sarsa/timestep"
	"github.com/medai-secure/idsgame-sarsa/utils/progressbar"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// Agent is an on-policy tabular agent that can be trained by a Trainer
type Agent interface {
	agent.Agent

	// Step performs one on-policy update for role r and returns the
	// next action
	Step(r environment.Role, state, action int, reward float64,
		nextState int, terminal bool) (int, error)

	Epsilon() float64
	SetEpsilon(float64)
	LearningRate() float64
	StateValues(r environment.Role) ([]float64, error)
}

// TrainerConfig configures a Trainer
type TrainerConfig struct {
	config.Schedule

	RunID   string
	Game    environment.Game
	Agent   Agent
	Encoder features.Encoder
	Logger  zerolog.Logger

	// CheckpointDir receives Q-table snapshots and ResultsDir the result
	// CSVs. Compress enables zstd compression of snapshots.
	CheckpointDir string
	ResultsDir    string
	Compress      bool

	// Metrics are written to the result CSVs, the log, and the store
	Metrics []string

	// Store records metrics if non-nil
	Store *store.Store

	// Progress receives a progress bar if non-nil
	Progress io.Writer
}

// Trainer runs an online SARSA experiment: it trains the agent for a
// number of episodes, periodically logging metrics, evaluating the
// greedy policy, and checkpointing the agent's action values.
type Trainer struct {
	TrainerConfig

	train, eval *Result

	trainReturns  map[environment.Role]*trackers.Return
	trainLengths  *trackers.EpisodeLength
	trainOutcomes *trackers.Outcome

	evalReturns  map[environment.Role]*trackers.Return
	evalLengths  *trackers.EpisodeLength
	evalOutcomes *trackers.Outcome

	checkpointer checkpointer.Checkpointer
	bar          *progressbar.ManualProgressBar
}

// NewTrainer returns a new Trainer
func NewTrainer(c TrainerConfig) (*Trainer, error) {
	if c.Game == nil || c.Agent == nil || c.Encoder == nil {
		return nil, fmt.Errorf("newTrainer: game, agent, and encoder must " +
			"be set")
	}
	if c.NumEpisodes < 1 || c.LogFrequency < 1 || c.EvalFrequency < 1 ||
		c.CheckpointFrequency < 1 {
		return nil, fmt.Errorf("newTrainer: episodes and frequencies must "+
			"be positive, got %+v", c.Schedule)
	}
	if len(c.Metrics) == 0 {
		c.Metrics = config.KnownMetrics
	}

	t := &Trainer{
		TrainerConfig: c,
		train:         NewResult(),
		eval:          NewResult(),
		trainReturns:  make(map[environment.Role]*trackers.Return),
		trainLengths:  trackers.NewEpisodeLength(),
		trainOutcomes: trackers.NewOutcome(c.Game),
		evalReturns:   make(map[environment.Role]*trackers.Return),
		evalLengths:   trackers.NewEpisodeLength(),
		evalOutcomes:  trackers.NewOutcome(c.Game),
	}
	for _, r := range environment.Roles {
		t.trainReturns[r] = trackers.NewReturn(r)
		t.evalReturns[r] = trackers.NewReturn(r)
	}

	var err error
	t.checkpointer, err = checkpointer.NewEpisodic(c.CheckpointFrequency,
		t.Save)
	if err != nil {
		return nil, fmt.Errorf("newTrainer: %w", err)
	}

	if c.Progress != nil {
		t.bar = progressbar.NewManualProgressBar(c.Progress, 40,
			c.NumEpisodes)
	}
	return t, nil
}

// Results returns the training and evaluation results recorded so far
func (t *Trainer) Results() (train, eval *Result) {
	return t.train, t.eval
}

// Run trains the agent. Logging, evaluation, and checkpointing happen
// on every episode divisible by their frequency, starting with episode
// 0, and ε is annealed after every episode. After training, a final
// evaluation is run and the action values and results are saved.
func (t *Trainer) Run(ctx context.Context) (train, eval *Result, err error) {
	t.Logger.Info().
		Str("env", fmt.Sprint(t.Game)).
		Int("episodes", t.NumEpisodes).
		Float64("epsilon", t.Agent.Epsilon()).
		Float64("learning_rate", t.Agent.LearningRate()).
		Msg("Starting Training")

	t.Agent.Train()
	t.updateBar()

	for episode := 0; episode < t.NumEpisodes; episode++ {
		if err := ctx.Err(); err != nil {
			return t.train, t.eval, fmt.Errorf("run: episode %d: %w",
				episode, err)
		}

		if err := t.episode(true, t.trainTrackers()); err != nil {
			return t.train, t.eval, fmt.Errorf("run: episode %d: %w",
				episode, err)
		}

		if episode%t.LogFrequency == 0 {
			err := t.logMetrics(store.Train, episode, t.train,
				t.trainReturns, t.trainLengths, t.trainOutcomes)
			if err != nil {
				return t.train, t.eval, fmt.Errorf("run: %w", err)
			}
		}

		if episode%t.EvalFrequency == 0 {
			if err := t.Eval(ctx, episode, true); err != nil {
				return t.train, t.eval, fmt.Errorf("run: %w", err)
			}
		}

		if err := t.checkpointer.Checkpoint(episode); err != nil {
			return t.train, t.eval, fmt.Errorf("run: %w", err)
		}

		if t.bar != nil {
			t.bar.Increment()
			t.updateBar()
		}

		t.Agent.EndEpisode()
	}
	if t.bar != nil {
		t.bar.Done()
	}
	t.Logger.Info().Msg("Training Complete")

	if err := t.Eval(ctx, t.NumEpisodes, false); err != nil {
		return t.train, t.eval, fmt.Errorf("run: %w", err)
	}
	t.logStateValues()

	if err := t.Save(t.NumEpisodes); err != nil {
		return t.train, t.eval, fmt.Errorf("run: %w", err)
	}
	return t.train, t.eval, nil
}

// Eval runs the configured number of evaluation episodes without
// updating the agent. If log is true the averaged metrics are recorded
// at trainEpisode in the evaluation Result.
func (t *Trainer) Eval(ctx context.Context, trainEpisode int, log bool) error {
	t.Logger.Info().Int("episode", trainEpisode).Msg("Starting Evaluation")
	t.Agent.Eval()
	defer t.Agent.Train()

	for i := 0; i < t.EvalEpisodes; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("eval: %w", err)
		}
		if err := t.episode(false, t.evalTrackers()); err != nil {
			return fmt.Errorf("eval: episode %d: %w", i, err)
		}

		t.Logger.Debug().
			Int("eval_episode", i).
			Stringer("outcome", t.Game.Outcome()).
			Msg("Eval episode finished")
	}

	if log {
		err := t.logMetrics(store.Eval, trainEpisode, t.eval, t.evalReturns,
			t.evalLengths, t.evalOutcomes)
		if err != nil {
			return fmt.Errorf("eval: %w", err)
		}
	} else {
		t.drain(t.evalReturns, t.evalLengths, t.evalOutcomes)
	}

	t.Logger.Info().Msg("Evaluation Complete")
	return nil
}

// episode plays a single episode. In training mode the agent is updated
// on every step with the SARSA rule, and the next action it selects is
// the action it takes next.
func (t *Trainer) episode(train bool, tr []trackers.Tracker) error {
	step, err := t.Game.Reset()
	if err != nil {
		return err
	}
	track(tr, step)

	roles := t.Agent.Roles()
	states := make(map[environment.Role]int, len(roles))
	actions := make(map[environment.Role]int, len(roles))
	for _, r := range roles {
		if states[r], err = t.Encoder.Encode(r, step); err != nil {
			return err
		}
		if actions[r], err = t.Agent.SelectAction(r, states[r]); err != nil {
			return err
		}
	}

	for !step.Last() {
		var action environment.JointAction
		for _, r := range roles {
			action.Set(r, actions[r])
		}

		step, err = t.Game.Step(action)
		if err != nil {
			return err
		}
		track(tr, step)

		for _, r := range roles {
			rStep := step.Of(r)
			nextState, err := t.Encoder.Encode(r, step)
			if err != nil {
				return err
			}

			var next int
			if train {
				next, err = t.Agent.Step(r, states[r], actions[r],
					rStep.Reward, nextState, terminal(rStep))
			} else if !rStep.Last() {
				next, err = t.Agent.SelectAction(r, nextState)
			}
			if err != nil {
				return err
			}
			states[r], actions[r] = nextState, next
		}
	}
	return nil
}

// terminal returns whether step ended the episode in a terminal state.
// Episodes cut off by the step limit are not terminal, so their last
// update still bootstraps.
func terminal(step ts.TimeStep) bool {
	return step.Last() && step.EndType == ts.TerminalStateReached
}

func track(tr []trackers.Tracker, step environment.JointStep) {
	for _, t := range tr {
		t.Track(step)
	}
}

func (t *Trainer) trainTrackers() []trackers.Tracker {
	return []trackers.Tracker{
		t.trainReturns[environment.Attacker],
		t.trainReturns[environment.Defender],
		t.trainLengths,
		t.trainOutcomes,
	}
}

func (t *Trainer) evalTrackers() []trackers.Tracker {
	return []trackers.Tracker{
		t.evalReturns[environment.Attacker],
		t.evalReturns[environment.Defender],
		t.evalLengths,
		t.evalOutcomes,
	}
}

// drain starts a new logging window
func (t *Trainer) drain(returns map[environment.Role]*trackers.Return,
	lengths *trackers.EpisodeLength, outcomes *trackers.Outcome) {
	for _, r := range returns {
		r.Drain()
	}
	lengths.Drain()
	outcomes.Drain()
}

// mean returns the mean of values, or 0 if there are none
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	return stat.Mean(values, nil)
}

// logMetrics averages the tracked data of the current window, records
// it in result and the store, and starts a new window
func (t *Trainer) logMetrics(phase string, episode int, result *Result,
	returns map[environment.Role]*trackers.Return,
	lengths *trackers.EpisodeLength, outcomes *trackers.Outcome) error {
	values := map[string]float64{
		config.AvgAttackerEpisodeRewards: mean(
			returns[environment.Attacker].Drain()),
		config.AvgDefenderEpisodeRewards: mean(
			returns[environment.Defender].Drain()),
		config.AvgEpisodeSteps:           mean(lengths.Drain()),
		config.EpsilonValues:             t.Agent.Epsilon(),
		config.HackProbability:           outcomes.HackProbability(),
		config.CumulativeHackProbability: outcomes.CumulativeHackProbability(),
		config.AttackerCumulativeReward:  returns[environment.Attacker].Total(),
		config.DefenderCumulativeReward:  returns[environment.Defender].Total(),
		config.LearningRates:             t.Agent.LearningRate(),
	}
	outcomes.Drain()

	if err := result.Append(episode, values); err != nil {
		return fmt.Errorf("logMetrics: %w", err)
	}

	selected := make(map[string]float64, len(t.Metrics))
	event := t.Logger.Info().Str("phase", phase).Int("episode", episode)
	for _, m := range t.Metrics {
		selected[m] = values[m]
		event = event.Float64(m, values[m])
	}
	event.Msg("metrics")

	if t.Store != nil {
		err := t.Store.RecordMetrics(t.RunID, phase, episode, selected)
		if err != nil {
			return fmt.Errorf("logMetrics: %w", err)
		}
	}
	return nil
}

// updateBar refreshes the progress bar description with the latest
// training metrics
func (t *Trainer) updateBar() {
	if t.bar == nil {
		return
	}

	last := func(name string) float64 {
		v, _ := t.train.Last(name)
		return v
	}
	t.bar.SetDescription(fmt.Sprintf("[Train] epsilon:%.2f,avg_a_R:%.2f,"+
		"avg_d_R:%.2f,avg_t:%.2f,avg_h:%.2f,acc_A_R:%.2f,acc_D_R:%.2f",
		t.Agent.Epsilon(), last(config.AvgAttackerEpisodeRewards),
		last(config.AvgDefenderEpisodeRewards), last(config.AvgEpisodeSteps),
		last(config.HackProbability), last(config.AttackerCumulativeReward),
		last(config.DefenderCumulativeReward)))
	t.bar.Display()
}

// logStateValues logs the value of each state, the sum of its action
// values, for every role the agent plays
func (t *Trainer) logStateValues() {
	for _, r := range t.Agent.Roles() {
		values, err := t.Agent.StateValues(r)
		if err != nil {
			t.Logger.Warn().Err(err).Msg("could not compute state values")
			continue
		}

		t.Logger.Info().Stringer("role", r).Int("states", len(values)).
			Msg("State Values")
		for s, v := range values {
			t.Logger.Debug().Stringer("role", r).Int("s", s).
				Float64("V(s)", v).Msg("state value")
		}
	}
}

// Save writes a snapshot of the action values of every role and the
// result CSVs
func (t *Trainer) Save(episode int) error {
	ext := checkpointer.Extension
	if t.Compress {
		ext = checkpointer.CompressedExtension
	}

	weights := t.Agent.Weights()
	for _, r := range t.Agent.Roles() {
		q, ok := weights[r.String()]
		if !ok {
			return fmt.Errorf("save: no action values for role %v", r)
		}

		snapshot := checkpointer.NewSnapshot(t.RunID, r.String(), episode,
			t.Agent.Epsilon(), q)
		if keyed, ok := t.Encoder.(features.Keyed); ok {
			snapshot.FullStateSpace = true
			snapshot.States = keyed.States(r)
		}
		path := checkpointer.FileTimer(filepath.Join(t.CheckpointDir,
			r.String()+"_q_table"), ext)()

		t.Logger.Info().Str("path", path).Msg("Saving Q-table")
		if err := checkpointer.Save(path, snapshot, t.Compress); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}

	if t.ResultsDir == "" {
		return nil
	}
	trainPath := checkpointer.FilePrefixTimer(t.ResultsDir,
		"train_results_checkpoint.csv")()
	if err := t.train.SaveCSV(trainPath, t.Metrics); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	evalPath := checkpointer.FilePrefixTimer(t.ResultsDir,
		"eval_results_checkpoint.csv")()
	if err := t.eval.SaveCSV(evalPath, t.Metrics); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}
