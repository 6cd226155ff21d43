package profile

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edge(typename, url string) TimelineEdge {
	return TimelineEdge{Node: MediaNode{Typename: typename, DisplayURL: url}}
}

func TestNormalize_Fixture(t *testing.T) {
	body, err := os.ReadFile("testdata/web_profile_info.json")
	require.NoError(t, err)

	user, err := DecodeUser("natgeo", body)
	require.NoError(t, err)

	rec := Normalize(user)

	assert.Equal(t, Record{
		Username:      "natgeo",
		FullName:      "National Geographic",
		Bio:           "Experience the world through the eyes of National Geographic photographers.",
		ProfilePicURL: "https://cdn.example.com/natgeo_hd.jpg",
		Followers:     283000000,
		Following:     160,
		Posts:         30000,
		LatestPhotos: []string{
			"https://cdn.example.com/p0.jpg",
			"https://cdn.example.com/p1.jpg",
			"https://cdn.example.com/p3.jpg",
			"https://cdn.example.com/p4.jpg",
		},
	}, rec)
}

func TestNormalize_OnlyFirstFiveEdgesInspected(t *testing.T) {
	user := &User{
		Username: "window",
		Timeline: &Timeline{
			Count: 7,
			Edges: []TimelineEdge{
				edge(TypenameImage, "img0"),
				edge(TypenameImage, "img1"),
				edge("GraphVideo", "vid2"),
				edge(TypenameImage, "img3"),
				edge(TypenameImage, "img4"),
				edge("GraphVideo", "vid5"),
				edge(TypenameImage, "img6"),
			},
		},
	}

	rec := Normalize(user)

	assert.Equal(t, []string{"img0", "img1", "img3", "img4"}, rec.LatestPhotos)
}

func TestNormalize_LatestPhotos(t *testing.T) {
	tests := []struct {
		name  string
		edges []TimelineEdge
		want  []string
	}{
		{
			name:  "no edges",
			edges: nil,
			want:  []string{},
		},
		{
			name: "all images capped at five",
			edges: []TimelineEdge{
				edge(TypenameImage, "a"), edge(TypenameImage, "b"), edge(TypenameImage, "c"),
				edge(TypenameImage, "d"), edge(TypenameImage, "e"), edge(TypenameImage, "f"),
			},
			want: []string{"a", "b", "c", "d", "e"},
		},
		{
			name: "sidecars and videos skipped",
			edges: []TimelineEdge{
				edge("GraphSidecar", "s"), edge("GraphVideo", "v"), edge(TypenameImage, "i"),
			},
			want: []string{"i"},
		},
		{
			name: "only videos in window",
			edges: []TimelineEdge{
				edge("GraphVideo", "v0"), edge("GraphVideo", "v1"), edge("GraphVideo", "v2"),
				edge("GraphVideo", "v3"), edge("GraphVideo", "v4"), edge(TypenameImage, "late"),
			},
			want: []string{},
		},
		{
			name:  "order preserved",
			edges: []TimelineEdge{edge(TypenameImage, "z"), edge(TypenameImage, "a")},
			want:  []string{"z", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Normalize(&User{Timeline: &Timeline{Edges: tt.edges}})
			assert.Equal(t, tt.want, rec.LatestPhotos)
			assert.LessOrEqual(t, len(rec.LatestPhotos), MaxLatestPhotos)
		})
	}
}

func TestNormalize_ProfilePicFallback(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{
			name: "hd preferred",
			user: User{ProfilePicURL: "sd", ProfilePicURLHD: "hd"},
			want: "hd",
		},
		{
			name: "empty hd falls back",
			user: User{ProfilePicURL: "sd"},
			want: "sd",
		},
		{
			name: "neither present",
			user: User{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Normalize(&tt.user)
			assert.Equal(t, tt.want, rec.ProfilePicURL)
		})
	}
}

func TestNormalize_MissingNestedCounts(t *testing.T) {
	rec := Normalize(&User{Username: "bare"})

	assert.Equal(t, "bare", rec.Username)
	assert.Zero(t, rec.Followers)
	assert.Zero(t, rec.Following)
	assert.Zero(t, rec.Posts)
	assert.NotNil(t, rec.LatestPhotos)
	assert.Empty(t, rec.LatestPhotos)
}

func TestNormalize_NegativeCountsClamped(t *testing.T) {
	rec := Normalize(&User{
		FollowedBy: &EdgeCount{Count: -1},
		Follow:     &EdgeCount{Count: -5},
		Timeline:   &Timeline{Count: -2},
	})

	assert.Zero(t, rec.Followers)
	assert.Zero(t, rec.Following)
	assert.Zero(t, rec.Posts)
}
