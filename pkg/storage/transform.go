package storage

import (
	"net/url"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// RemoteRootDomain returns the registrable domain of a repository remote.
// e.g., "https://codeload.github.com/org/repo.git" -> "github.com", true
func RemoteRootDomain(remote string) (string, bool) {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return "", false
	}
	if !strings.Contains(remote, "://") {
		remote = "https://" + remote
	}
	u, err := url.Parse(remote)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := u.Hostname()
	if !strings.Contains(host, ".") {
		return "", false
	}
	domain, err := publicsuffix.Domain(strings.ToLower(host))
	if err != nil {
		return "", false
	}
	return domain, true
}

// RepositoryPath returns the "owner/name" part of a GitHub remote, without a .git suffix.
func RepositoryPath(remote string) (string, bool) {
	if !strings.Contains(remote, "://") {
		remote = "https://" + remote
	}
	u, err := url.Parse(remote)
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[0] + "/" + strings.TrimSuffix(parts[1], ".git"), true
}
