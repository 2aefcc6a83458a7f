package models

import "time"

type Candidate struct {
	Id string `json:"id" db:"id"`
	// Name 候选人外显名称
	Name string `json:"name" db:"name"`
	// Position 所属职位，分组键而非独立实体
	Position string `json:"position" db:"position"`
	// Party 所属党派，可为空
	Party string `json:"party,omitempty" db:"party"`
	// Description 简介，可为空
	Description string `json:"description,omitempty" db:"description"`
	// ImageUrl 头像地址，可为空
	ImageUrl string `json:"image_url,omitempty" db:"image_url"`
	// Status 状态 iota-enum
	//
	// CandidateStatusActive CandidateStatusRetired
	Status CandidateStatus `json:"status" db:"status"`
	// VoteCount 冗余计数器，仅由投票账本维护
	VoteCount int       `json:"vote_count" db:"vote_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (c *Candidate) Active() bool { return c.Status == CandidateStatusActive }
