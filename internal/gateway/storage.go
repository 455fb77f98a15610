package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// UploadResult identifies a stored object.
type UploadResult struct {
	Key string `json:"Key"`
	URL string `json:"url"`
}

func objectPath(bucket, name string) string {
	return url.PathEscape(bucket) + "/" + url.PathEscape(name)
}

// Upload stores body under bucket/name. Uploading over an existing name
// fails with ErrConflict.
func (c *Client) Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) (UploadResult, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	var res UploadResult
	err := c.do(ctx, http.MethodPost, "/storage/v1/object/"+objectPath(bucket, name), contentType, body, &res)
	return res, err
}

// Remove deletes the named objects from bucket and reports how many existed.
func (c *Client) Remove(ctx context.Context, bucket string, names ...string) (int64, error) {
	var res struct {
		Removed int64 `json:"removed"`
	}
	body := map[string][]string{"prefixes": names}
	err := c.doJSON(ctx, http.MethodDelete, "/storage/v1/object/"+url.PathEscape(bucket), body, &res)
	return res.Removed, err
}

// PublicURL is the unauthenticated link to an object. It does not check that
// the object exists.
func (c *Client) PublicURL(bucket, name string) string {
	return c.baseURL + "/storage/v1/object/public/" + objectPath(bucket, name)
}
