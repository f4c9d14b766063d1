package engine

import "github.com/jimlee/watchduel/entities"

// Call-outs shown during the countdown. The rock-paper-scissors phase always
// announces the same three; the mukjjippa phase announces the attacker's
// previous hand twice.
const (
	MessageRPS1 = "가위"
	MessageRPS2 = "바위"
	MessageRPS3 = "보!"

	CalloutRock     = "묵에"
	CalloutScissors = "찌에"
	CalloutPaper    = "빠에"
)

// Beats reports whether a wins against b under the cyclic
// rock>scissors>paper>rock rule. Never true for equal hands.
func Beats(a, b entities.Choice) bool {
	switch a {
	case entities.ChoiceRock:
		return b == entities.ChoiceScissors
	case entities.ChoiceScissors:
		return b == entities.ChoicePaper
	case entities.ChoicePaper:
		return b == entities.ChoiceRock
	}
	return false
}

// Callout returns the countdown call-out for a hand.
func Callout(c entities.Choice) string {
	switch c {
	case entities.ChoiceScissors:
		return CalloutScissors
	case entities.ChoicePaper:
		return CalloutPaper
	default:
		return CalloutRock
	}
}

// CountdownMessages is the reveal sequence for the state's phase: three
// messages for rock-paper-scissors, two (the attacker's previous call-out,
// twice) for mukjjippa.
func CountdownMessages(state entities.MukjjippaState) []string {
	if state.Phase == entities.PhaseRockPaperScissors {
		return []string{MessageRPS1, MessageRPS2, MessageRPS3}
	}
	prev := state.PreviousAttackerChoice
	if prev == entities.ChoiceNone {
		prev = entities.ChoiceRock
	}
	callout := Callout(prev)
	return []string{callout, callout}
}

// ResolveMukjjippa advances the state machine once both choices are in.
// Rock-paper-scissors: a tie replays the phase, a win moves to mukjjippa with
// the winner attacking. Mukjjippa: equal hands end the game in the attacker's
// favor, otherwise the round winner attacks next. GAME_OVER is terminal.
func ResolveMukjjippa(state entities.MukjjippaState, player1Id, player2Id string) entities.MukjjippaState {
	if !state.ChoiceComplete() {
		return state
	}

	switch state.Phase {
	case entities.PhaseRockPaperScissors:
		return resolveRockPaperScissors(state, player1Id, player2Id)
	case entities.PhaseMukjjippa:
		return resolveMukjjippaRound(state, player1Id, player2Id)
	default:
		return state
	}
}

func resolveRockPaperScissors(state entities.MukjjippaState, player1Id, player2Id string) entities.MukjjippaState {
	p1 := state.Player1Choice
	p2 := state.Player2Choice

	if p1 == p2 {
		next := state.ResetChoices()
		next.BothReady = true
		return next
	}

	attacker := player2Id
	attackerChoice := p2
	if Beats(p1, p2) {
		attacker = player1Id
		attackerChoice = p1
	}

	next := state.ResetChoices()
	next.Phase = entities.PhaseMukjjippa
	next.AttackerId = attacker
	next.PreviousAttackerChoice = attackerChoice
	next.BothReady = true
	return next
}

func resolveMukjjippaRound(state entities.MukjjippaState, player1Id, player2Id string) entities.MukjjippaState {
	p1 := state.Player1Choice
	p2 := state.Player2Choice

	// Matching hands: the attacker called it, game over.
	if p1 == p2 {
		next := state.ResetChoices()
		next.Phase = entities.PhaseGameOver
		next.Winner = state.AttackerId
		next.Finished = true
		return next
	}

	roundWinner := player2Id
	winnerChoice := p2
	if Beats(p1, p2) {
		roundWinner = player1Id
		winnerChoice = p1
	}

	next := state.ResetChoices()
	next.AttackerId = roundWinner
	next.PreviousAttackerChoice = winnerChoice
	next.BothReady = true
	return next
}

// RestartMukjjippa starts the next game, crediting the previous winner with
// one point and carrying both scores forward.
func RestartMukjjippa(state entities.MukjjippaState, player1Id, player2Id string) entities.MukjjippaState {
	next := entities.NewMukjjippaState()
	next.Player1Score = state.Player1Score
	next.Player2Score = state.Player2Score
	if state.Winner == player1Id {
		next.Player1Score++
	}
	if state.Winner == player2Id {
		next.Player2Score++
	}
	return next
}
