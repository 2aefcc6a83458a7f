package models

import (
	"net/netip"
	"time"
)

type Vote struct {
	Id string `json:"id" db:"id"`
	// VoterId 投票人 ID
	VoterId string `json:"voter_id" db:"voter_id"`
	// CandidateId 候选人 ID
	CandidateId string `json:"candidate_id" db:"candidate_id"`
	// Position 冗余存储职位，(voter_id, position) 唯一
	Position string `json:"position" db:"position"`
	// Ip 当前投票 IP，可为空，外显不输出
	Ip *netip.Addr `json:"-" db:"ip"`
	// IpHash IP 的 HMAC 指纹
	IpHash string `json:"-" db:"ip_hash"`
	// Device 由 User-Agent 推导的设备类别
	Device DeviceClass `json:"device" db:"device"`
	// Valid 有效标记，管理员可作废但记录保留
	Valid bool `json:"valid" db:"valid"`
	// CreatedAt 创建时间
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	// InvalidatedAt 作废时间，可为空
	InvalidatedAt *time.Time `json:"invalidated_at,omitempty" db:"invalidated_at"`
}
