// Package chat runs the Twitch IRC side of the bot.
//
// Bot connects one IRC client, joins every configured channel, and feeds each
// PRIVMSG through two stages: first as a guess for the channel's active quiz
// round, then, when the message is addressed to the bot via its nick or the
// channel's command prefix, as a command (quiz, top, ping, dice).
//
// Announcer adapts the IRC client to the quiz engine's Notifier interface so
// the engine can post prompts and results without knowing about IRC.
//
// Credentials: the IRC client requires a bot username and a user OAuth token
// with chat:read/chat:edit scopes.
package chat
