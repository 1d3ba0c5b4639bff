package linkhub

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strings"
)

// DigestTarget builds the string a token request signature covers:
//
//	METHOD \n base64(md5(body)) \n x-lh-date \n [forwardIP \n] version \n uri
func DigestTarget(method string, body []byte, xDate, forwardIP, version, uri string) string {
	sum := md5.Sum(body)

	var b strings.Builder
	b.WriteString(strings.ToUpper(method))
	b.WriteString("\n")
	b.WriteString(base64.StdEncoding.EncodeToString(sum[:]))
	b.WriteString("\n")
	b.WriteString(xDate)
	b.WriteString("\n")
	if forwardIP != "" {
		b.WriteString(forwardIP)
		b.WriteString("\n")
	}
	b.WriteString(version)
	b.WriteString("\n")
	b.WriteString(uri)
	return b.String()
}

// Sign returns base64(HMAC-SHA1(key, target)), where key is the
// base64-decoded partner secret.
func Sign(secretKey, target string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secretKey)
	if err != nil {
		return "", fmt.Errorf("secret key is not valid base64: %w", err)
	}

	mac := hmac.New(sha1.New, key)
	mac.Write([]byte(target))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// AuthorizationHeader formats the LINKHUB Authorization header value.
func AuthorizationHeader(linkID, signature string) string {
	return "LINKHUB " + linkID + " " + signature
}

// ParseAuthorizationHeader splits a LINKHUB Authorization header into the
// partner LinkID and signature.
func ParseAuthorizationHeader(value string) (linkID, signature string, ok bool) {
	parts := strings.Fields(value)
	if len(parts) != 3 || parts[0] != "LINKHUB" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
