package domain

import (
	"fmt"
	"strings"
	"time"
)

// Order statuses
const (
	OrderPending = "pending"
)

type Order struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	ArtistID    int64     `json:"artist_id"`
	ServiceName string    `json:"service_name"`
	Notes       string    `json:"notes,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateOrderRequest struct {
	ArtistID    int64  `json:"artist_id"`
	ServiceName string `json:"service_name"`
	Notes       string `json:"notes,omitempty"`
}

func (r *CreateOrderRequest) Normalize() {
	r.ServiceName = strings.TrimSpace(r.ServiceName)
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *CreateOrderRequest) Validate() error {
	if r.ArtistID <= 0 {
		return fmt.Errorf("artist_id is required")
	}
	if r.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	return nil
}
