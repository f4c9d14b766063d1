package entities

import "fmt"

type MukjjippaPhase string

const (
	PhaseRockPaperScissors MukjjippaPhase = "ROCK_PAPER_SCISSORS"
	PhaseMukjjippa         MukjjippaPhase = "MUKJJIPPA"
	PhaseGameOver          MukjjippaPhase = "GAME_OVER"
)

func ParseMukjjippaPhase(s string) (MukjjippaPhase, error) {
	switch MukjjippaPhase(s) {
	case PhaseRockPaperScissors, PhaseMukjjippa, PhaseGameOver:
		return MukjjippaPhase(s), nil
	}
	return "", fmt.Errorf("unknown mukjjippa phase %q", s)
}

type CountdownState string

const (
	CountdownWaiting       CountdownState = "WAITING"
	Countdown1             CountdownState = "COUNTDOWN_1"
	Countdown2             CountdownState = "COUNTDOWN_2"
	Countdown3             CountdownState = "COUNTDOWN_3"
	CountdownResultWait    CountdownState = "RESULT_WAIT"
	CountdownShowingResult CountdownState = "SHOWING_RESULT"
)

func ParseCountdownState(s string) (CountdownState, error) {
	switch CountdownState(s) {
	case CountdownWaiting, Countdown1, Countdown2, Countdown3,
		CountdownResultWait, CountdownShowingResult:
		return CountdownState(s), nil
	}
	return "", fmt.Errorf("unknown countdown state %q", s)
}

// Choice is a rock-paper-scissors hand. The empty string means "not chosen
// yet"; persisted documents store absent choices as null.
type Choice string

const (
	ChoiceNone     Choice = ""
	ChoiceRock     Choice = "ROCK"
	ChoiceScissors Choice = "SCISSORS"
	ChoicePaper    Choice = "PAPER"
)

func ParseChoice(s string) (Choice, error) {
	switch Choice(s) {
	case ChoiceRock, ChoiceScissors, ChoicePaper:
		return Choice(s), nil
	}
	return ChoiceNone, fmt.Errorf("unknown choice %q", s)
}

// MukjjippaState is the in-memory mukjjippa game state.
type MukjjippaState struct {
	Phase     MukjjippaPhase
	Countdown CountdownState
	// Message is the call-out currently shown to both players ("가위",
	// "묵에", ...). Empty between reveals.
	Message       string
	Player1Score  int
	Player2Score  int
	Player1Choice Choice
	Player2Choice Choice
	// AttackerId is the user currently on the attack during the MUKJJIPPA
	// phase, empty during rock-paper-scissors.
	AttackerId string
	// PreviousAttackerChoice drives the attacker call-out of the next round.
	PreviousAttackerChoice Choice
	Winner                 string
	Finished               bool
	BothReady              bool
}

// NewMukjjippaState returns a fresh game. Games are created on invitation
// acceptance with both players counted as ready.
func NewMukjjippaState() MukjjippaState {
	return MukjjippaState{
		Phase:     PhaseRockPaperScissors,
		Countdown: CountdownWaiting,
		BothReady: true,
	}
}

func (s MukjjippaState) ChoiceComplete() bool {
	return s.Player1Choice != ChoiceNone && s.Player2Choice != ChoiceNone
}

func (s MukjjippaState) ChoiceFor(userId, player1Id string) Choice {
	if userId == player1Id {
		return s.Player1Choice
	}
	return s.Player2Choice
}

// ResetChoices clears both pending choices and rewinds the countdown, keeping
// phase, scores and attacker.
func (s MukjjippaState) ResetChoices() MukjjippaState {
	s.Player1Choice = ChoiceNone
	s.Player2Choice = ChoiceNone
	s.Countdown = CountdownWaiting
	s.Message = ""
	return s
}
