package models

import "time"

type User struct {
	Id string `json:"id" db:"id"`
	// Handle 对外展示的唯一用户名
	Handle string `json:"handle" db:"handle"`
	// Email 登录邮箱，唯一
	Email string `json:"email" db:"email"`
	// Password bcrypt 哈希，外显不输出
	Password string `json:"-" db:"password"`
	// Role voter / admin
	Role UserRole `json:"role" db:"role"`
	// Status 状态 iota-enum
	//
	// UserStatusActive UserStatusDisabled
	Status UserStatus `json:"status" db:"status"`
	// VotesCast 已投票总数，仅由投票流程维护
	VotesCast int `json:"votes_cast" db:"votes_cast"`
	// PositionsVoted 已投过的职位数
	PositionsVoted int        `json:"positions_voted" db:"positions_voted"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

func (u *User) Active() bool { return u.Status == UserStatusActive }
