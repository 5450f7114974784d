package model

type Feedback struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	Ctime     int64  `json:"ctime"`
}
