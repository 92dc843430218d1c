package approval

import (
	"fmt"
	"strings"
	"time"

	"github.com/letterdesk/approvals/pkg/attachment"
	"github.com/letterdesk/approvals/pkg/sanitizer"
	"github.com/letterdesk/approvals/pkg/templates"
)

// Classification is the kind of document being approved.
type Classification int

const (
	Unclassified Classification = iota
	InnerBook
	Certificate
	OuterBook
	Memo
)

type classificationInfo struct {
	name string   // document name used in file names, subjects and archive keys
	tags []string // accepted request tags
}

var classifications = [...]classificationInfo{
	Unclassified: {name: "Document"},
	InnerBook:    {name: "Inner Book", tags: []string{"INNER BOOK"}},
	Certificate:  {name: "Certificate", tags: []string{"CERTIFICATE LETTER"}},
	OuterBook:    {name: "Outer Book", tags: []string{"OUTER BOOK"}},
	Memo:         {name: "Memo", tags: []string{"MEMO", "NOTE"}},
}

var classificationByTag = func() map[string]Classification {
	m := make(map[string]Classification)
	for c, info := range classifications {
		for _, tag := range info.tags {
			m[tag] = Classification(c)
		}
	}
	return m
}()

// ParseClassification maps a request tag to a Classification. Matching ignores
// case and surrounding whitespace; unknown tags are Unclassified.
func ParseClassification(tag string) Classification {
	if c, ok := classificationByTag[strings.ToUpper(strings.TrimSpace(tag))]; ok {
		return c
	}
	return Unclassified
}

func (c Classification) info() classificationInfo {
	if c < 0 || int(c) >= len(classifications) {
		return classifications[Unclassified]
	}
	return classifications[c]
}

// Name returns the document name, e.g. "Inner Book".
func (c Classification) Name() string { return c.info().name }

// String implements fmt.Stringer.
func (c Classification) String() string { return c.Name() }

// FileName returns the synthesized document's file name, e.g. "Memo.pdf".
func (c Classification) FileName() string { return c.Name() + ".pdf" }

// Subject returns the notification subject for request id.
func (c Classification) Subject(id string) string {
	return fmt.Sprintf("%s - Request ID - %s – Approved", c.Name(), id)
}

// Recipients are the addresses notified for a request.
type Recipients struct {
	Primary   string // receives the document
	Secondary string // receives the document and the request attachment
	CC        []string
}

// DocumentFields are rendered into the approval document.
type DocumentFields struct {
	ApprovalType       string
	TransactionStatus  string
	BookLanguage       string
	TransactionCreator string
	Sender             string
	Receiver           string
	TransactionDate    string
	TransactionType    string
	Confidentiality    string
	Subject            string
	Notes              string // HTML; sanitized and stripped of paragraph tags
}

// NotificationFields are rendered into the notification email.
type NotificationFields struct {
	EmployeeName string
	Sender       string
	SenderEmail  string
	Department   string
	Designation  string
	RequestType  string
}

// Request is one approval to process.
type Request struct {
	ID             string
	Classification Classification
	Recipients     Recipients
	Document       DocumentFields
	Notification   NotificationFields
	Payload        attachment.Payload
}

// DateLayout formats the notification date.
const DateLayout = "01-02-2006"

// plain escapes a text field for the document markup; tags are dropped.
var plain = sanitizer.StripHTML

func (d DocumentFields) fields() templates.Fields {
	return templates.Fields{
		"approval_type":       plain(d.ApprovalType),
		"transaction_status":  plain(d.TransactionStatus),
		"book_language":       plain(d.BookLanguage),
		"transaction_creator": plain(d.TransactionCreator),
		"sender":              plain(d.Sender),
		"receiver":            plain(d.Receiver),
		"transaction_date":    plain(d.TransactionDate),
		"transaction_type":    plain(d.TransactionType),
		"confidentiality":     plain(d.Confidentiality),
		"subject":             plain(d.Subject),
		"l1":                  sanitizer.Notes(d.Notes),
		"l2":                  "",
		"l3":                  "",
	}
}

func (n NotificationFields) fields(id string, today time.Time) templates.Fields {
	return templates.Fields{
		"request_id":    id,
		"employee_name": n.EmployeeName,
		"sender":        n.Sender,
		"sender_email":  n.SenderEmail,
		"department":    n.Department,
		"designation":   n.Designation,
		"request_type":  n.RequestType,
		"today":         today.Format(DateLayout),
	}
}
