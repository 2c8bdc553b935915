package threat

import "github.com/trustnet/core/internal/models"

// CreateThreatDTO is the payload for reporting a new threat directly.
type CreateThreatDTO struct {
	Type        models.ThreatType `json:"type"        binding:"required,oneof=url phone email"`
	Value       string            `json:"value"       binding:"required,max=191"`
	Description string            `json:"description"`
	Severity    int               `json:"severity"    binding:"omitempty,min=0,max=5"`
}

// UpdateThreatDTO carries partial updates; nil fields are untouched.
type UpdateThreatDTO struct {
	Description *string `json:"description"`
	Severity    *int    `json:"severity"    binding:"omitempty,min=0,max=5"`
}
