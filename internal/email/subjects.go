package email

const (
	subjectLeadNotificationFmt = "New lead: %s"
	subjectAutoResponder       = "Thanks for reaching out"
)
