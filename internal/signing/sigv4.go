package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/goliatone/go-docshare/internal/fault"
)

const (
	sigV4Algorithm     = "AWS4-HMAC-SHA256"
	sigV4Service       = "s3"
	sigV4Terminator    = "aws4_request"
	sigV4SignedHeaders = "host;x-amz-content-sha256;x-amz-date"

	// UnsignedPayload is sent as the payload hash; bodies are not hashed.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	amzDateFormat   = "20060102T150405Z"
	dateStampFormat = "20060102"
)

// SigV4 signs requests with AWS Signature Version 4 for the s3 service. The
// payload is declared unsigned and the query string is always empty.
type SigV4 struct {
	Credentials
	Region string
}

// Sign returns Content-Type (when set), x-amz-date, x-amz-content-sha256 and
// Authorization headers for req.
func (s *SigV4) Sign(req Request) (http.Header, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.Region) == "" {
		return nil, fault.Signing(nil, "signing: region is required")
	}
	if req.Host == "" || req.Method == "" {
		return nil, fault.Signing(nil, "signing: method and host are required")
	}

	now := req.Time.UTC()
	amzDate := now.Format(amzDateFormat)
	dateStamp := now.Format(dateStampFormat)
	scope := dateStamp + "/" + s.Region + "/" + sigV4Service + "/" + sigV4Terminator

	canonicalURI := req.CanonicalURI
	if canonicalURI == "" {
		canonicalURI = "/" + EscapePath(req.Key)
	}

	canonicalRequest := CanonicalRequest(req.Method, canonicalURI, req.Host, amzDate)
	digest := sha256.Sum256([]byte(canonicalRequest))
	stringToSign := sigV4Algorithm + "\n" + amzDate + "\n" + scope + "\n" + hex.EncodeToString(digest[:])

	key := SigningKey(s.SecretAccessKey, dateStamp, s.Region)
	signature := hex.EncodeToString(hmacSHA256(key, stringToSign))

	headers := http.Header{}
	if req.ContentType != "" {
		headers.Set("Content-Type", req.ContentType)
	}
	headers.Set("x-amz-date", amzDate)
	headers.Set("x-amz-content-sha256", UnsignedPayload)
	headers.Set("Authorization", sigV4Algorithm+
		" Credential="+s.AccessKeyID+"/"+scope+
		", SignedHeaders="+sigV4SignedHeaders+
		", Signature="+signature)
	return headers, nil
}

// CanonicalRequest builds the SigV4 canonical request for an empty query
// string, the fixed signed header set and an unsigned payload.
func CanonicalRequest(method, canonicalURI, host, amzDate string) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte('\n')
	b.WriteString(canonicalURI)
	b.WriteString("\n\n")
	b.WriteString("host:" + host + "\n")
	b.WriteString("x-amz-content-sha256:" + UnsignedPayload + "\n")
	b.WriteString("x-amz-date:" + amzDate + "\n")
	b.WriteByte('\n')
	b.WriteString(sigV4SignedHeaders)
	b.WriteByte('\n')
	b.WriteString(UnsignedPayload)
	return b.String()
}

// SigningKey derives the SigV4 key for dateStamp and region.
func SigningKey(secret, dateStamp, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, sigV4Service)
	return hmacSHA256(kService, sigV4Terminator)
}

func hmacSHA256(key []byte, message string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return mac.Sum(nil)
}
