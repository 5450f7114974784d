package model

type Conversation struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Ctime  int64  `json:"ctime"`
}
