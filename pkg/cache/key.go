package cache

// ProfileKeyPrefix namespaces profile entries in the shared store.
const ProfileKeyPrefix = "ig:"

// ProfileKey returns the cache key for a username.
// The username is used verbatim: keys are case-sensitive and not normalized.
//
// Example:
//
//	ProfileKey("instagram") == "ig:instagram"
func ProfileKey(username string) string {
	return ProfileKeyPrefix + username
}
