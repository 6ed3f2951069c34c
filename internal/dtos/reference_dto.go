package dtos

type ReferenceRequest struct {
	Name               string   `json:"name" binding:"required"`
	Email              string   `json:"email" binding:"omitempty,email"`
	Company            string   `json:"company"`
	Relationship       string   `json:"relationship"`
	Tags               []string `json:"tags"`
	AvailabilityStatus string   `json:"availability_status" binding:"omitempty,oneof=available limited unavailable"`
}

// ReferenceUpdateRequest only touches the fields that are present.
type ReferenceUpdateRequest struct {
	Name               *string   `json:"name" binding:"omitempty,min=1"`
	Email              *string   `json:"email" binding:"omitempty,email"`
	Company            *string   `json:"company"`
	Relationship       *string   `json:"relationship"`
	Tags               *[]string `json:"tags"`
	AvailabilityStatus *string   `json:"availability_status" binding:"omitempty,oneof=available limited unavailable"`
}

type ContactRequest struct {
	Kind        string    `json:"kind" binding:"required,oneof=email call meeting request"`
	Note        string    `json:"note"`
	Outcome     string    `json:"outcome" binding:"omitempty,oneof=success declined pending"`
	ContactedAt *FlexTime `json:"contacted_at"`
}

type PortfolioRequest struct {
	Goal  string `json:"goal" binding:"required"`
	Limit int    `json:"limit" binding:"omitempty,min=1,max=20"`
}
