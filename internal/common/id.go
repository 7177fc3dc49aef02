package common

import (
	"github.com/google/uuid"
)

// NewSessionID generates a session ID with the "ses_" prefix
func NewSessionID() string {
	return "ses_" + uuid.New().String()
}

// NewDocumentID generates a document registry ID with the "doc_" prefix
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewAuditID generates an audit entry ID with the "llm_" prefix
func NewAuditID() string {
	return "llm_" + uuid.New().String()
}
