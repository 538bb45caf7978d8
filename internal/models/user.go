package models

// PushToken is one registered device of a user.
type PushToken struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// NotificationTarget is the slice of the user read model the notification
// fan-out cares about. The accounts service owns these fields; we only read.
type NotificationTarget struct {
	Enabled  bool
	Messages bool
	Tokens   []PushToken
}
