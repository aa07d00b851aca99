package signing

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"

	"github.com/goliatone/go-docshare/internal/fault"
)

// OSS signs requests with the Aliyun OSS header scheme (HMAC-SHA1). No
// Content-MD5 and no x-oss-* headers are signed.
type OSS struct {
	Credentials
}

// Sign returns Date, Content-Type (when set) and Authorization headers.
func (o *OSS) Sign(req Request) (http.Header, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	if req.Method == "" || req.Bucket == "" {
		return nil, fault.Signing(nil, "signing: method and bucket are required")
	}

	date := req.Time.UTC().Format(http.TimeFormat)
	stringToSign := OSSStringToSign(req.Method, req.ContentType, date, "/"+req.Bucket+"/"+req.Key)

	mac := hmac.New(sha1.New, []byte(o.SecretAccessKey))
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	headers := http.Header{}
	headers.Set("Date", date)
	if req.ContentType != "" {
		headers.Set("Content-Type", req.ContentType)
	}
	headers.Set("Authorization", "OSS "+o.AccessKeyID+":"+signature)
	return headers, nil
}

// OSSStringToSign builds METHOD\n\nCONTENT-TYPE\nDATE\nRESOURCE.
func OSSStringToSign(method, contentType, date, resource string) string {
	return method + "\n\n" + contentType + "\n" + date + "\n" + resource
}
