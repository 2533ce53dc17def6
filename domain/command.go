package domain

// TargetCommand is the payload of START, STOP and REMOVE.
type TargetCommand struct {
	ID string `json:"id" validate:"required,max=128"`
}

// JoinCommand is the payload of UserJoin, a bare string or {"name":...}.
type JoinCommand struct {
	Name string `json:"name" validate:"required,max=64"`
}

type LeaveCommand struct {
	Name string `json:"name" validate:"max=64"`
}

type ChatCommand struct {
	Text string `json:"text" validate:"max=4096"`
}
