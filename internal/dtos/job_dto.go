package dtos

// JobExtractionRequest carries a pasted job posting for POST /jobs/extract.
type JobExtractionRequest struct {
	RawHTML string `json:"raw_html" binding:"required"`
	URL     string `json:"url" binding:"omitempty,url"`
}

type JobCreationRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	Title       string `json:"role_title" binding:"required"`

	// Optional Fields
	JobLink     string   `json:"job_link" binding:"omitempty,url"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	SalaryRange string   `json:"salary_range"`
	ResumeLink  string   `json:"resume_link"`
	TechStack   []string `json:"tech_stack"`
	Stage       string   `json:"stage" binding:"omitempty,oneof=saved applied phone-screen interview offer rejected withdrawn"` // Defaults to "applied" if empty
}

// JobUpdateRequest only touches the fields that are present.
type JobUpdateRequest struct {
	Title       *string  `json:"role_title" binding:"omitempty,min=1"`
	Description *string  `json:"description"`
	JobLink     *string  `json:"job_link" binding:"omitempty,url"`
	Location    *string  `json:"location"`
	SalaryRange *string  `json:"salary_range"`
	ResumeLink  *string  `json:"resume_link"`
	TechStack   []string `json:"tech_stack"`
	Stage       *string  `json:"stage" binding:"omitempty,oneof=saved applied phone-screen interview offer rejected withdrawn"`
}
