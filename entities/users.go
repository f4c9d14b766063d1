package entities

// Pair is the two statically configured participant identities. There are no
// dynamic accounts; each device is built knowing both IDs and which one it is.
type Pair struct {
	User1 string
	User2 string
}

func (p Pair) Contains(userId string) bool {
	return userId == p.User1 || userId == p.User2
}

// Other returns the counterpart identity.
func (p Pair) Other(userId string) string {
	if userId == p.User1 {
		return p.User2
	}
	return p.User1
}

// Authority elects the single participant allowed to run time-gated phase
// transitions for a game. Both clients compute it the same way, so exactly
// one of them schedules countdown and resolution writes.
func Authority(player1Id, player2Id string) string {
	if player2Id < player1Id {
		return player2Id
	}
	return player1Id
}
