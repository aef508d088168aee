package proposal

import "strings"

// DefaultDenylist is used when no policy supplies one. Entries are matched
// case-insensitively as substrings of the replacement.
var DefaultDenylist = []string{
	"rm -rf",
	"rm -fr",
	"sudo ",
	"chmod 777",
	"chown -r",
	"mkfs",
	"dd if=",
	":(){",
	"> /dev/sd",
	"shutdown -h",
	"drop table",
	"drop database",
	"truncate table",
	"delete from",
	"format c:",
}

// matchDenylist returns the first entry contained in text.
func matchDenylist(denylist []string, text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, entry := range denylist {
		if entry != "" && strings.Contains(lower, entry) {
			return entry, true
		}
	}
	return "", false
}
