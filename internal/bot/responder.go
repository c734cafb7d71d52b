package bot

import "github.com/bwmarrin/discordgo"

// Responder answers a single Discord interaction. Handlers receive one
// instead of calling the session directly, so they can be exercised in
// tests without a live connection.
type Responder interface {
	Respond(response *discordgo.InteractionResponse) error
}

// DiscordResponder answers through a live session.
type DiscordResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

// NewDiscordResponder binds a responder to one interaction.
func NewDiscordResponder(s *discordgo.Session, i *discordgo.Interaction) *DiscordResponder {
	return &DiscordResponder{
		session:     s,
		interaction: i,
	}
}

// Respond sends the response over the Discord API.
func (r *DiscordResponder) Respond(response *discordgo.InteractionResponse) error {
	return r.session.InteractionRespond(r.interaction, response)
}

// MockResponder records responses for assertions in handler tests.
type MockResponder struct {
	LastResponse *discordgo.InteractionResponse
	Calls        int
	Err          error
}

// Respond records the response and returns the configured error.
func (m *MockResponder) Respond(response *discordgo.InteractionResponse) error {
	m.LastResponse = response
	m.Calls++
	return m.Err
}
