package session

// Chat texts sent to the room
const (
	msgGreeting = "--- please ignore the messages above ---\n" +
		"Welcome to the auto battle room. The bot is still being tested and may have bugs; " +
		"please report them to the project maintainers."
	msgRoomRules = "The bot only plays rooms that are: two players, not anonymous, no coin stake, " +
		"one round, no password, auto open, flags allowed, no rank limit. " +
		"Please change the room settings, otherwise the bot will not get ready."
	msgLevelStatus   = "Current level: LV %.3f"
	msgInvalidSyntax = "Invalid command syntax"
	msgLevelBounds   = "Level must be between %.3f and %.3f"
	msgGamesLeft     = "Games left: %d. You cannot play again this hour once it reaches 0."

	roomTitleFormat = "Auto PvP test (%s)"
)
