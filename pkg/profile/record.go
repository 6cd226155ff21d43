package profile

// MaxLatestPhotos bounds Record.LatestPhotos and the number of timeline
// edges inspected to fill it.
const MaxLatestPhotos = 5

// Record is the normalized profile returned to callers and stored in the cache.
// A Record is immutable once built.
type Record struct {
	Username      string   `json:"username"`
	FullName      string   `json:"full_name"`
	Bio           string   `json:"bio"`
	ProfilePicURL string   `json:"profile_pic_url"`
	Followers     int64    `json:"followers"`
	Following     int64    `json:"following"`
	Posts         int64    `json:"posts"`
	LatestPhotos  []string `json:"latest_photos"`
}
