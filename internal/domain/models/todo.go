package models

// Todo is a single task owned by a user.
type Todo struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"-"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}
