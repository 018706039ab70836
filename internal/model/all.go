package model

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&MakerProfile{},
		&Project{},
		&ProjectFile{},
		&Bid{},
		&Review{},
		&Earning{},
		&Payout{},
		&Notification{},
		&Conversation{},
		&ConversationState{},
		&Message{},
		&Design{},
		&DesignPurchase{},
	}
}
