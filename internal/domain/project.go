package domain

// Project represents one tenant's configured bot persona
type Project struct {
	ID             string
	Name           string
	BusinessInfo   string
	WelcomeMessage string
	Token          string
	CollectionName string
	TelegramID     int64

	Design Design
}

// Design holds the optional presentation settings of a project bot
type Design struct {
	BotName      string
	AvatarFileID string
	WelcomeText  string
	WelcomeImage string
	Description  string
}
