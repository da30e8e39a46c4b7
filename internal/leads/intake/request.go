package intake

// Request is a raw intake form submission.
type Request struct {
	// SubmissionKey is an optional idempotency key from the submitting form.
	SubmissionKey string   `json:"submissionKey" validate:"omitempty,max=128"`
	FirstName     string   `json:"firstName" validate:"required,min=1,max=100"`
	LastName      string   `json:"lastName" validate:"omitempty,max=100"`
	Email         string   `json:"email" validate:"required,email,max=254"`
	Phone         string   `json:"phone" validate:"omitempty,min=5,max=30"`
	Program       string   `json:"program" validate:"required,program"`
	Message       string   `json:"message" validate:"omitempty,max=5000"`
	Source        string   `json:"source" validate:"omitempty,max=50"`
	IsVeteran     *bool    `json:"isVeteran,omitempty"`
	Housing       string   `json:"housing" validate:"omitempty,oneof=homeless temporary unstable stable"`
	Timeline      string   `json:"timeline" validate:"omitempty,max=100"`
	HasChildren   bool     `json:"hasChildren"`
	MonthlyIncome *float64 `json:"monthlyIncome,omitempty" validate:"omitempty,gte=0"`
}
