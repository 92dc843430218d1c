package httpapi

import (
	"github.com/letterdesk/approvals/internal/approval"
	"github.com/letterdesk/approvals/pkg/attachment"
)

// ApproveRequest is the body of POST /approve_letters.
type ApproveRequest struct {
	EmployeeName  string   `json:"employee_name"`
	Designation   string   `json:"designation"`
	ReceiverEmail string   `json:"receiver_email" validate:"required,email"`
	SenderEmail   string   `json:"sender_email" validate:"required,email"`
	CCEmails      []string `json:"cc_emails" validate:"omitempty,dive,email"`
	RequestID     string   `json:"request_id" validate:"required,max=128,excludesall=/\\"`
	RequestType   string   `json:"request_type"`
	Department    string   `json:"department"`

	ApprovalType       string `json:"approval_type"`
	TransactionStatus  string `json:"transaction_status"`
	BookLanguage       string `json:"book_language"`
	TransactionCreator string `json:"transaction_creator"`
	Sender             string `json:"sender"`
	Receiver           string `json:"receiver"`
	TransactionDate    string `json:"transaction_date"`
	TransactionType    string `json:"transaction_type"`
	Confidentiality    string `json:"confidentiality"`
	Subject            string `json:"subject"`
	NotesOnRequest     string `json:"notes_on_request"`

	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileData string `json:"file_data"`
}

// toRequest maps the wire format onto an approval request. The transaction
// type doubles as the document classification tag.
func (a *ApproveRequest) toRequest() approval.Request {
	return approval.Request{
		ID:             a.RequestID,
		Classification: approval.ParseClassification(a.TransactionType),
		Recipients: approval.Recipients{
			Primary:   a.ReceiverEmail,
			Secondary: a.SenderEmail,
			CC:        a.CCEmails,
		},
		Document: approval.DocumentFields{
			ApprovalType:       a.ApprovalType,
			TransactionStatus:  a.TransactionStatus,
			BookLanguage:       a.BookLanguage,
			TransactionCreator: a.TransactionCreator,
			Sender:             a.Sender,
			Receiver:           a.Receiver,
			TransactionDate:    a.TransactionDate,
			TransactionType:    a.TransactionType,
			Confidentiality:    a.Confidentiality,
			Subject:            a.Subject,
			Notes:              a.NotesOnRequest,
		},
		Notification: approval.NotificationFields{
			EmployeeName: a.EmployeeName,
			Sender:       a.Sender,
			SenderEmail:  a.SenderEmail,
			Department:   a.Department,
			Designation:  a.Designation,
			RequestType:  a.RequestType,
		},
		Payload: attachment.Payload{
			Data:      a.FileData,
			MediaType: a.MimeType,
			Name:      a.FileName,
		},
	}
}
