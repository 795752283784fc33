package domain

// MFASetup is returned when a user starts TOTP enrollment. When
// AlreadyEnabled is set the other fields are empty.
type MFASetup struct {
	AlreadyEnabled bool   `json:"alreadyEnabled,omitempty"`
	Message        string `json:"message"`
	Secret         string `json:"secret,omitempty"`
	URI            string `json:"uri,omitempty"`
	QRImageURL     string `json:"qrImageUrl,omitempty"` // data:image/png;base64,...
}

// MFAStatus is the informational result of confirm/revoke.
type MFAStatus struct {
	Enabled bool   `json:"enable2FA"`
	Changed bool   `json:"changed"`
	Message string `json:"message"`
}
