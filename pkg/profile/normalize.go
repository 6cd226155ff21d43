package profile

// Normalize maps an upstream user object to a Record.
// The caller has already excluded missing and private users.
//
// Only the first MaxLatestPhotos timeline edges are candidates for
// LatestPhotos; non-image edges among them are skipped without being
// replaced by later edges.
func Normalize(user *User) Record {
	rec := Record{
		Username:      user.Username,
		FullName:      user.FullName,
		Bio:           user.Biography,
		ProfilePicURL: user.ProfilePicURLHD,
		LatestPhotos:  make([]string, 0, MaxLatestPhotos),
	}
	if rec.ProfilePicURL == "" {
		rec.ProfilePicURL = user.ProfilePicURL
	}

	if user.FollowedBy != nil {
		rec.Followers = nonNegative(user.FollowedBy.Count)
	}
	if user.Follow != nil {
		rec.Following = nonNegative(user.Follow.Count)
	}

	if user.Timeline != nil {
		rec.Posts = nonNegative(user.Timeline.Count)
		rec.LatestPhotos = latestPhotos(user.Timeline.Edges)
	}

	return rec
}

func latestPhotos(edges []TimelineEdge) []string {
	if len(edges) > MaxLatestPhotos {
		edges = edges[:MaxLatestPhotos]
	}

	photos := make([]string, 0, MaxLatestPhotos)
	for _, edge := range edges {
		node := edge.Node
		if node.Typename != TypenameImage || node.DisplayURL == "" {
			continue
		}
		photos = append(photos, node.DisplayURL)
	}
	return photos
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
