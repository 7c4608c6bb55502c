package dgrpc

import "context"

// ///////////////////////////////////////////////
// GET_GUILD / GET_GUILDS
// ///////////////////////////////////////////////

const (
	cmdGetGuild  = "GET_GUILD"
	cmdGetGuilds = "GET_GUILDS"
)

// Guild is the decoded data of a GET_GUILD response, or one element of a
// GET_GUILDS response.
type Guild struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"icon_url"`
}

// GetGuild fetches a single guild by id.
func (c *Client) GetGuild(ctx context.Context, guildID string) (Guild, error) {
	args := map[string]any{"guild_id": guildID}
	return do[Guild](c, ctx, cmdGetGuild, "", args)
}

// guildsResult is the decoded data of a GET_GUILDS response.
type guildsResult struct {
	Guilds []Guild `json:"guilds"`
}

// GetGuilds fetches the list of guilds the connected user belongs to.
func (c *Client) GetGuilds(ctx context.Context) ([]Guild, error) {
	result, err := do[guildsResult](c, ctx, cmdGetGuilds, "", nil)
	if err != nil {
		return nil, err
	}
	return result.Guilds, nil
}

// ///////////////////////////////////////////////
// GET_CHANNEL / GET_CHANNELS
// ///////////////////////////////////////////////

const (
	cmdGetChannel  = "GET_CHANNEL"
	cmdGetChannels = "GET_CHANNELS"
)

// ChannelVoiceState describes one member's voice state within a voice
// channel, part of GET_CHANNEL's decoded data.
type ChannelVoiceState struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Mute bool `json:"mute"`
	Deaf bool `json:"deaf"`
}

// Channel is the decoded data of a GET_CHANNEL response, or one element
// of a GET_CHANNELS response.
type Channel struct {
	ID          string              `json:"id"`
	GuildID     string              `json:"guild_id"`
	Name        string              `json:"name"`
	Type        int                 `json:"type"`
	Topic       string              `json:"topic,omitempty"`
	Bitrate     int                 `json:"bitrate,omitempty"`
	UserLimit   int                 `json:"user_limit,omitempty"`
	Position    int                 `json:"position,omitempty"`
	VoiceStates []ChannelVoiceState `json:"voice_states,omitempty"`
}

// GetChannel fetches a single channel by id.
func (c *Client) GetChannel(ctx context.Context, channelID string) (Channel, error) {
	args := map[string]any{"channel_id": channelID}
	return do[Channel](c, ctx, cmdGetChannel, "", args)
}

// channelsResult is the decoded data of a GET_CHANNELS response.
type channelsResult struct {
	Channels []Channel `json:"channels"`
}

// GetChannels fetches the list of channels belonging to guildID.
func (c *Client) GetChannels(ctx context.Context, guildID string) ([]Channel, error) {
	args := map[string]any{"guild_id": guildID}
	result, err := do[channelsResult](c, ctx, cmdGetChannels, "", args)
	if err != nil {
		return nil, err
	}
	return result.Channels, nil
}

// ///////////////////////////////////////////////
// SUBSCRIBE / UNSUBSCRIBE
// ///////////////////////////////////////////////

const (
	cmdSubscribe   = "SUBSCRIBE"
	cmdUnsubscribe = "UNSUBSCRIBE"
)

// subscribeResult is the decoded data of a SUBSCRIBE/UNSUBSCRIBE ack.
// Discord echoes back the evt being subscribed; the caller does not need
// the value, only confirmation the ack was not an error.
type subscribeResult struct {
	Evt string `json:"evt"`
}

// Subscribe requests server-pushed events of kind evt, optionally scoped
// by args (e.g. {"channel_id": "..."} for MESSAGE_CREATE). Per spec, the
// acknowledgment is observed to always echo the request's nonce.
// Subsequent matching DISPATCH envelopes arrive on [Client.Events].
func (c *Client) Subscribe(ctx context.Context, evt string, args any) error {
	_, err := do[subscribeResult](c, ctx, cmdSubscribe, evt, args)
	return err
}

// Unsubscribe cancels a prior Subscribe for evt.
func (c *Client) Unsubscribe(ctx context.Context, evt string, args any) error {
	_, err := do[subscribeResult](c, ctx, cmdUnsubscribe, evt, args)
	return err
}
