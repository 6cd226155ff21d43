package profile

import (
	"encoding/json"
	"fmt"
)

// TypenameImage is the media type tag of a static image post.
const TypenameImage = "GraphImage"

// Document is the upstream web_profile_info response envelope.
type Document struct {
	Data struct {
		User json.RawMessage `json:"user"`
	} `json:"data"`
}

// User is the upstream user object. Only the fields read by Normalize are modeled.
type User struct {
	Username        string     `json:"username"`
	FullName        string     `json:"full_name"`
	Biography       string     `json:"biography"`
	ProfilePicURL   string     `json:"profile_pic_url"`
	ProfilePicURLHD string     `json:"profile_pic_url_hd"`
	IsPrivate       bool       `json:"is_private"`
	FollowedBy      *EdgeCount `json:"edge_followed_by"`
	Follow          *EdgeCount `json:"edge_follow"`
	Timeline        *Timeline  `json:"edge_owner_to_timeline_media"`
}

// EdgeCount is a nested count field.
type EdgeCount struct {
	Count int64 `json:"count"`
}

// Timeline is the first page of the user's media.
type Timeline struct {
	Count int64          `json:"count"`
	Edges []TimelineEdge `json:"edges"`
}

// TimelineEdge is one media post on the timeline.
type TimelineEdge struct {
	Node MediaNode `json:"node"`
}

// MediaNode describes a single media item.
type MediaNode struct {
	Typename   string `json:"__typename"`
	DisplayURL string `json:"display_url"`
	IsVideo    bool   `json:"is_video"`
}

// DecodeUser parses a 2xx response body and returns the user object.
//
// Classification:
//   - body is not the expected JSON structure -> KindMalformedResponse
//   - user object missing, null, or empty -> KindNotFound
//   - user object flagged private -> KindPrivate
func DecodeUser(username string, body []byte) (*User, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, NewError(KindMalformedResponse, username, 0, fmt.Errorf("decode document: %w", err))
	}

	// An empty object counts as absent, same as null.
	var fields map[string]json.RawMessage
	if len(doc.Data.User) > 0 {
		if err := json.Unmarshal(doc.Data.User, &fields); err != nil {
			return nil, NewError(KindMalformedResponse, username, 0, fmt.Errorf("decode user: %w", err))
		}
	}
	if len(fields) == 0 {
		return nil, NewError(KindNotFound, username, 0, nil)
	}

	var user User
	if err := json.Unmarshal(doc.Data.User, &user); err != nil {
		return nil, NewError(KindMalformedResponse, username, 0, fmt.Errorf("decode user: %w", err))
	}

	if user.IsPrivate {
		return nil, NewError(KindPrivate, username, 0, nil)
	}

	return &user, nil
}
