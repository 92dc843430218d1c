package approval

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result summarises one orchestration run.
type Result struct {
	Status          string
	Message         string
	DocumentPath    string // file name of the synthesized document; the file itself is gone
	ArchiveKey      string
	AttachmentBuilt bool
	Warnings        []string
}

// OK reports whether the run succeeded.
func (r *Result) OK() bool {
	return r.Status == StatusSuccess
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *Result) fail(msg string) {
	if r.Status == StatusError {
		return
	}
	r.Status = StatusError
	r.Message = msg
}
