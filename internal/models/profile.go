package models

// Profile is the snapshot served by the external profile directory. The
// messaging core never writes profiles; it only reads nicknames for push
// titles and device tokens for delivery.
type Profile struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Nickname    string `json:"nickname"`
	DeviceToken string `json:"device_token,omitempty"`
}
