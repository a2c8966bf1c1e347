package model

type Status string

const (
	StatusOpen    Status = "open"
	StatusClaimed Status = "claimed"
	StatusClosed  Status = "closed"
)

// transitions lists every permitted edge. Closed is terminal and claimed -> open (unclaim) is the
// only edge that moves backwards.
var transitions = map[Status][]Status{
	StatusOpen:    {StatusClaimed, StatusClosed},
	StatusClaimed: {StatusOpen, StatusClosed},
	StatusClosed:  {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}
