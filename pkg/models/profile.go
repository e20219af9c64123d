package models

import "time"

// Profile is the tenant owner record: company metadata plus the WhatsApp
// Business credentials every outbound send needs. The engine loads it once
// per run.
type Profile struct {
	ID            string    `json:"id"`
	CompanyName   string    `json:"company_name"`
	PhoneNumberID string    `json:"phone_number_id" validate:"required"`
	AccessToken   string    `json:"-"`
	WebhookPrefix string    `json:"webhook_prefix"  validate:"required"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
