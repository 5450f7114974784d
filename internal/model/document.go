package model

type Document struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Filename string `json:"filename"`
	FilePath string `json:"file_path"`
	State    int    `json:"state"`
	Ctime    int64  `json:"ctime"`
}
