package models

import "time"

type BroadcasterType string

var (
	BroadcasterPartner   BroadcasterType = "partner"
	BroadcasterAffiliate BroadcasterType = "affiliate"
)

type GetUserInfoResponse struct {
	Data []TwitchUserInfo `json:"data"`
}

type TwitchUserInfo struct {
	UserID          string          `json:"id"`                // User’s ID
	Login           string          `json:"login"`             // User’s login name
	DisplayName     string          `json:"display_name"`      // User’s display name
	Type            string          `json:"type"`              // User’s type: "staff", "admin", "global_mod", or ""
	BroadcasterType BroadcasterType `json:"broadcaster_type"`  // User’s broadcaster type: "partner", "affiliate", or ""
	Description     string          `json:"description"`       // User’s channel description
	ProfileImageUrl string          `json:"profile_image_url"` // URL of the user’s profile image
	CreatedAt       time.Time       `json:"created_at"`        // Date when the user was created
}

type GetChannelFollowersResponse struct {
	Total uint64 `json:"total"` // Total number of users that follow the broadcaster
}
