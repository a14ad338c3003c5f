package notify

// Contact holds one candidate's delivery addresses.
type Contact struct {
	Name           string `yaml:"name"`
	Email          string `yaml:"email"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

// StaticContacts is a config-backed ContactBook keyed by candidate id.
type StaticContacts map[string]Contact

func (c StaticContacts) Email(candidateID string) (name, address string, ok bool) {
	contact, found := c[candidateID]
	if !found || contact.Email == "" {
		return "", "", false
	}
	return contact.Name, contact.Email, true
}

func (c StaticContacts) TelegramChat(candidateID string) (chatID int64, ok bool) {
	contact, found := c[candidateID]
	if !found || contact.TelegramChatID == 0 {
		return 0, false
	}
	return contact.TelegramChatID, true
}
