package trackers

import (
	"github.com/medai-secure/idsgame-sarsa/environment"
)

// Outcome counts finished games and the games the attacker won. Since
// the outcome of a game is not part of a JointStep, Outcome reads it
// from the registered game when a last step is tracked.
type Outcome struct {
	game environment.Game

	games, hacks           int
	totalGames, totalHacks int
}

// NewOutcome returns a new Outcome Tracker registered with game
func NewOutcome(game environment.Game) *Outcome {
	return &Outcome{game: game}
}

// Track counts the game if step is the last of its episode
func (o *Outcome) Track(step environment.JointStep) {
	if !step.Last() {
		return
	}

	o.games++
	o.totalGames++
	if o.game.Outcome() == environment.Hacked {
		o.hacks++
		o.totalHacks++
	}
}

// HackProbability returns the fraction of games won by the attacker
// since the last call to Drain
func (o *Outcome) HackProbability() float64 {
	if o.games == 0 {
		return 0.0
	}
	return float64(o.hacks) / float64(o.games)
}

// CumulativeHackProbability returns the fraction of all games won by
// the attacker
func (o *Outcome) CumulativeHackProbability() float64 {
	if o.totalGames == 0 {
		return 0.0
	}
	return float64(o.totalHacks) / float64(o.totalGames)
}

// Drain starts a new window for HackProbability
func (o *Outcome) Drain() {
	o.games, o.hacks = 0, 0
}
