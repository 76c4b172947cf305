package security

import "strings"

const usernameSeparator = ":"

// SplitUsername splits an MQTT connect username of the form realm:user. A
// username without a separator names only the realm.
func SplitUsername(username string) (realm, user string) {
	realm, user, _ = strings.Cut(username, usernameSeparator)
	return strings.TrimSpace(realm), strings.TrimSpace(user)
}
