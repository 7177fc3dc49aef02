package models

import (
	"time"
)

// DocumentRecord is the registry entry written for every successfully indexed upload
type DocumentRecord struct {
	ID            string    `json:"id" badgerhold:"key"` // doc_{uuid}
	SessionID     string    `json:"session_id"`
	Name          string    `json:"name"`
	SHA256        string    `json:"sha256" badgerhold:"index"`
	SizeBytes     int64     `json:"size_bytes"`
	Pages         int       `json:"pages"`
	TextRecords   int       `json:"text_records"`
	VisionRecords int       `json:"vision_records"`
	CreatedAt     time.Time `json:"created_at"`
}

// DocumentInfo identifies the document held by a session
type DocumentInfo struct {
	Name      string `json:"name"`
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"size_bytes"`
	Pages     int    `json:"pages"`
}

// Turn is one question and its outcome in a session's conversation history
type Turn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer,omitempty"`
	Chart     string    `json:"chart,omitempty"` // chart title when the turn produced a chart
	Grounded  bool      `json:"grounded"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
