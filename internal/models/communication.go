package models

import "time"

type CommunicationCategory string

const (
	CommCategoryMaintenance    CommunicationCategory = "Maintenance"
	CommCategoryGeneralInquiry CommunicationCategory = "General Inquiry"
	CommCategoryPaymentIssue   CommunicationCategory = "Payment Issue"
	CommCategoryPersonal       CommunicationCategory = "Personal Message"
	CommCategoryOther          CommunicationCategory = "Other"
)

func IsValidCommunicationCategory(c CommunicationCategory) bool {
	switch c {
	case CommCategoryMaintenance, CommCategoryGeneralInquiry, CommCategoryPaymentIssue, CommCategoryPersonal, CommCategoryOther:
		return true
	}
	return false
}

type CommunicationStatus string

const (
	CommStatusNotStarted CommunicationStatus = "Not Started"
	CommStatusInProgress CommunicationStatus = "In Progress"
	CommStatusFinished   CommunicationStatus = "Finished"
	CommStatusClosed     CommunicationStatus = "Closed"
)

func IsValidCommunicationStatus(s CommunicationStatus) bool {
	switch s {
	case CommStatusNotStarted, CommStatusInProgress, CommStatusFinished, CommStatusClosed:
		return true
	}
	return false
}

type CommunicationAuthor string

const (
	CommAuthorManager CommunicationAuthor = "Manager"
	CommAuthorTenant  CommunicationAuthor = "Tenant"
)

// Communication is a free-form log entry on a lease. Unlike the transaction
// ledger it is editable and deletable; it shares the lease aggregate but is
// not part of the financial model. Attachments are stored externally; only
// the reference is kept here.
type Communication struct {
	ID            string                `json:"id" db:"id"`
	LeaseID       string                `json:"lease_id" db:"lease_id"`
	Date          time.Time             `json:"date" db:"comm_date"`
	Subject       string                `json:"subject" db:"subject"`
	Notes         string                `json:"notes,omitempty" db:"notes"`
	Category      CommunicationCategory `json:"category" db:"category"`
	Status        CommunicationStatus   `json:"status" db:"status"`
	Author        CommunicationAuthor   `json:"author" db:"author"`
	AttachmentURL *string               `json:"attachment_url,omitempty" db:"attachment_url"`
	AttachmentID  *string               `json:"attachment_id,omitempty" db:"attachment_id"`
}
