// internal/notify/templates.go
package notify

// Template and reply-to identifiers registered with the email gateway.
const (
	// Sent when a trap registration or a renewal is confirmed.
	TemplateRegistrationConfirmation = "247825a7-cb7b-4da0-9da5-92b421beab28"

	// Sent to valid meat-bait licence holders when returns fall due.
	TemplateReturnReminder = "18e9ce0c-ea52-4c70-a5ef-01ef16590d8c"

	// Sent to valid licence holders with no return from the previous year.
	TemplatePreviousYearReturnReminder = "5223cf17-75e1-4ee6-b0b1-93fd4d4da8df"

	// Sent to valid licence holders who have never submitted a return.
	TemplateNeverSubmittedReturnReminder = "9318c092-aaea-4df2-ad04-e909cce8a683"

	// Sent when a recently expired licence has no returns on record.
	TemplateExpiredRecentlyNoReturn = "7f80c081-bf2b-4f23-a7db-6ac581888b44"

	// Sent two weeks ahead of a registration's expiry date.
	TemplateTwoWeekExpiryRenewalReminder = "9ee505d4-688f-4e2e-bac3-63a5963cd730"

	// Sent when a licence expired yesterday without a renewal on record.
	TemplateExpiredRecentlyNoRenewal = "7ae27d94-2048-4a39-8617-b252e503205f"

	// Sent with a signed login link for the return-submission flow.
	TemplateLoginLink = "a5901745-e01c-4e42-a726-ece91b63e593"

	// Reply-to address id for all licensing correspondence.
	ReplyToLicensing = "4b49467e-2a35-4713-9d92-809c55bf1cdd"
)
