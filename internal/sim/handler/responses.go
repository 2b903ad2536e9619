package handler

import (
	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
)

// ListResponse is the HTTP response for GET /sims. Total is the match
// count before pagination.
type ListResponse struct {
	Items []*models.SimCard `json:"items"`
	Total int               `json:"total"`
}

// HistoryResponse is the HTTP response for GET /sims/{id}/events, oldest
// event first.
type HistoryResponse struct {
	Events []*models.SimEvent `json:"events"`
}
