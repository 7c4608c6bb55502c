package dgrpc

import (
	"context"
	"encoding/json"
	"os"
)

// ///////////////////////////////////////////////
// Activity payload types
// ///////////////////////////////////////////////

// Button is a clickable button shown on a Rich Presence activity. Up to
// two may be attached to an [Activity].
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Timestamps holds start/end times for an activity's elapsed or
// remaining-time display.
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

// Assets holds image keys and hover text for an activity.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Party describes the current party size for an activity, shown as
// "state (size/max)".
type Party struct {
	ID   string `json:"id,omitempty"`
	Size [2]int `json:"size,omitempty"`
}

// Secrets carries the join/spectate/match secrets used by
// SEND_ACTIVITY_JOIN_INVITE and ask-to-join flows.
type Secrets struct {
	Join     string `json:"join,omitempty"`
	Spectate string `json:"spectate,omitempty"`
	Match    string `json:"match,omitempty"`
}

// Activity represents a Discord Rich Presence activity, the payload of
// the SET_ACTIVITY command.
type Activity struct {
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
	Party      *Party      `json:"party,omitempty"`
	Secrets    *Secrets    `json:"secrets,omitempty"`
	Buttons    []Button    `json:"buttons,omitempty"`
	Instance   bool        `json:"instance,omitempty"`
}

const cmdSetActivity = "SET_ACTIVITY"

// setActivityResult is the decoded response data for SET_ACTIVITY; its
// fields are not surfaced to callers today but decoding it confirms
// Discord echoed the command back rather than an error.
type setActivityResult struct{}

// SetActivity sends a SET_ACTIVITY command with the given activity
// payload, replacing any Rich Presence currently displayed for this
// application.
func (c *Client) SetActivity(ctx context.Context, activity *Activity) error {
	args := map[string]any{
		"pid":      os.Getpid(),
		"activity": activity,
	}
	_, err := do[setActivityResult](c, ctx, cmdSetActivity, "", args)
	return err
}

// ClearActivity sends a SET_ACTIVITY command with a nil activity,
// removing any Rich Presence currently displayed for this application.
func (c *Client) ClearActivity(ctx context.Context) error {
	args := map[string]any{
		"pid":      os.Getpid(),
		"activity": nil,
	}
	_, err := do[setActivityResult](c, ctx, cmdSetActivity, "", args)
	return err
}

// ///////////////////////////////////////////////
// SEND_ACTIVITY_JOIN_INVITE / CLOSE_ACTIVITY_REQUEST
// ///////////////////////////////////////////////

const (
	cmdSendActivityJoinInvite  = "SEND_ACTIVITY_JOIN_INVITE"
	cmdCloseActivityRequest    = "CLOSE_ACTIVITY_REQUEST"
	evtActivityJoinRequest     = "ACTIVITY_JOIN_REQUEST"
	evtActivitySpectateRequest = "ACTIVITY_SPECTATE_REQUEST"
)

// ActivityJoinRequest is the push event delivered when another user asks
// to join this application's party, surfaced by [Client.Events].
type ActivityJoinRequest struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
	} `json:"user"`
	Secret string `json:"secret"`
}

// sendActivityJoinInviteArgs is the args payload for
// SEND_ACTIVITY_JOIN_INVITE.
type sendActivityJoinInviteArgs struct {
	UserID string `json:"user_id"`
}

// SendActivityJoinInvite accepts a pending join request from userID,
// letting Discord notify that user they may now join.
func (c *Client) SendActivityJoinInvite(ctx context.Context, userID string) error {
	args := sendActivityJoinInviteArgs{UserID: userID}
	_, err := do[json.RawMessage](c, ctx, cmdSendActivityJoinInvite, "", args)
	return err
}

// closeActivityRequestArgs is the args payload for
// CLOSE_ACTIVITY_REQUEST.
type closeActivityRequestArgs struct {
	UserID string `json:"user_id"`
}

// CloseActivityRequest rejects a pending join/spectate request from
// userID.
func (c *Client) CloseActivityRequest(ctx context.Context, userID string) error {
	args := closeActivityRequestArgs{UserID: userID}
	_, err := do[json.RawMessage](c, ctx, cmdCloseActivityRequest, "", args)
	return err
}
