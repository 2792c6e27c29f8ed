package domain

import "time"

// TurnRequest is one user utterance on its way from a channel to the
// dialog loop.
type TurnRequest struct {
	TurnID    string // unique per turn, assigned by the channel
	Channel   string
	ChatID    string
	UserID    string
	Text      string
	Timestamp time.Time
}

// TurnReply is the engine's answer on its way back to a channel.
type TurnReply struct {
	TurnID  string
	Channel string
	ChatID  string
	Text    string
}

// Bus routes turns between channels and the dialog loop.
type Bus interface {
	Publish(req TurnRequest)
	Subscribe() <-chan TurnRequest
	Reply(r TurnReply)
	OnReply(channelName string, handler func(TurnReply))
	Close()
}
