package cameras

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var rtspCredsRegex = regexp.MustCompile(`(?i)^(rtsp|rtsps)://([^@]+)@`)

// StreamURL is the stored RTSP URL, returned verbatim.
func StreamURL(c Camera) string {
	return c.RTSPURL
}

// SnapshotURL points at the device's ISAPI picture endpoint for the main channel.
// Empty when the camera has no address or port.
func SnapshotURL(c Camera) string {
	if c.IPAddress == "" || c.Port == 0 {
		return ""
	}
	return fmt.Sprintf("http://%s:%d/ISAPI/Streaming/channels/101/picture", c.IPAddress, c.Port)
}

// SanitizeRtspURL strips credentials and secret-looking query parameters so the URL can be logged.
func SanitizeRtspURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return rtspCredsRegex.ReplaceAllString(rawURL, "$1://")
	}
	u.User = nil

	q := u.Query()
	for k := range q {
		kl := strings.ToLower(k)
		if strings.Contains(kl, "token") || strings.Contains(kl, "pass") || strings.Contains(kl, "auth") || strings.Contains(kl, "secret") {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}
