package httpcache

import (
	"crypto/md5"  //nolint:gosec // not used for security, only key distribution
	"crypto/sha1" //nolint:gosec // not used for security, only key distribution
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// KeyFactory derives the two blob keys the Decision Engine reads and writes:
// the settings key (one per URI) and the response key (one per URI × vary
// projection × private token). It is the pluggable cache-key hashing scheme
// named as a collaborator in the package overview.
type KeyFactory interface {
	SettingsKey(u *url.URL) string
	ResponseKey(u *url.URL, vary map[string]string, privateToken string) string
}

// defaultKeyFactory implements KeyFactory with H(s) = sha1(s) || md5(s),
// hex-concatenated. Any stable, well-distributed hash of at least 160 bits
// would satisfy the contract; this pairing is simply the one this cache has
// always used, and the choice must not change across restarts.
type defaultKeyFactory struct{}

// NewDefaultKeyFactory returns the built-in KeyFactory implementation.
func NewDefaultKeyFactory() KeyFactory {
	return defaultKeyFactory{}
}

func hashString(s string) string {
	sh := sha1.Sum([]byte(s)) //nolint:gosec
	md := md5.Sum([]byte(s))  //nolint:gosec
	return hex.EncodeToString(sh[:]) + hex.EncodeToString(md[:])
}

func (defaultKeyFactory) SettingsKey(u *url.URL) string {
	return "http.settings." + hashString(u.String())
}

func (defaultKeyFactory) ResponseKey(u *url.URL, vary map[string]string, privateToken string) string {
	scope := "public"
	if privateToken != "" {
		scope = "private_" + hashString(privateToken)
	}

	key := "http.response." + scope + "_" + hashString(u.String())

	if len(vary) == 0 {
		return key
	}

	names := make([]string, 0, len(vary))
	for name := range vary {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+":"+vary[name])
	}

	return key + "_" + hashString(strings.Join(pairs, ","))
}
