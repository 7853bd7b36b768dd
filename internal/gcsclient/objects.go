package gcsclient

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"

	"gcsync/internal/errs"
)

// MTimeMetaKey is the custom object metadata field carrying the source's
// mtime as decimal seconds since epoch (spec §6).
const MTimeMetaKey = "goog-reserved-file-mtime"

// Object is the subset of a GCS object resource the engine needs.
type Object struct {
	Name     string
	Size     uint64
	Updated  time.Time
	CRC32C   *uint32
	Metadata map[string]string
}

type objectResource struct {
	Name     string            `json:"name"`
	Size     string            `json:"size"`
	Updated  time.Time         `json:"updated"`
	CRC32C   string            `json:"crc32c"`
	Metadata map[string]string `json:"metadata"`
}

func (r objectResource) toObject() (Object, error) {
	o := Object{Name: r.Name, Updated: r.Updated, Metadata: r.Metadata}
	if r.Size != "" {
		sz, err := strconv.ParseUint(r.Size, 10, 64)
		if err != nil {
			return Object{}, errs.New(errs.Protocol, "gcsclient.decode_size", r.Name, err)
		}
		o.Size = sz
	}
	if r.CRC32C != "" {
		v, err := decodeCRC32C(r.CRC32C)
		if err != nil {
			return Object{}, errs.New(errs.Protocol, "gcsclient.decode_crc32c", r.Name, err)
		}
		o.CRC32C = &v
	}
	return o, nil
}

// decodeCRC32C decodes GCS's base64 big-endian 4-byte crc32c field.
func decodeCRC32C(s string) (uint32, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return 0, err
	}
	if len(b) != 4 {
		return 0, fmt.Errorf("crc32c field has %d bytes, want 4", len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

func encodeCRC32C(v uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return base64.StdEncoding.EncodeToString(b[:])
}

type listResponse struct {
	Items         []objectResource `json:"items"`
	NextPageToken string           `json:"nextPageToken"`
}

// List returns a channel of Objects under prefix, flattening GCS's paged
// listing into a single back-pressured stream (spec §9 DESIGN NOTES:
// "expose it as a flattened per-item sequence with back-pressure"). GCS
// already returns items in lexicographic order by name; List preserves
// that order verbatim.
func (c *Client) List(ctx context.Context, prefix, delimiter string) <-chan ListItem {
	out := make(chan ListItem)

	go func() {
		defer close(out)

		pageToken := ""
		for {
			resp, err := c.listPage(ctx, prefix, delimiter, pageToken)
			if err != nil {
				select {
				case out <- ListItem{Err: err}:
				case <-ctx.Done():
				}
				return
			}

			for _, item := range resp.Items {
				obj, err := item.toObject()
				if err != nil {
					select {
					case out <- ListItem{Err: err}:
					case <-ctx.Done():
					}
					return
				}
				select {
				case out <- ListItem{Object: obj}:
				case <-ctx.Done():
					return
				}
			}

			if resp.NextPageToken == "" {
				return
			}
			pageToken = resp.NextPageToken
		}
	}()

	return out
}

// ListItem is one element of a List stream: an Object or a terminating
// error.
type ListItem struct {
	Object Object
	Err    error
}

func (c *Client) listPage(ctx context.Context, prefix, delimiter, pageToken string) (*listResponse, error) {
	q := url.Values{}
	q.Set("prefix", prefix)
	q.Set("fields", "items(name,size,updated,crc32c,metadata),nextPageToken")
	if delimiter != "" {
		q.Set("delimiter", delimiter)
	}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	u := fmt.Sprintf("%s/storage/v1/b/%s/o?%s", c.baseURL, url.PathEscape(c.bucket), q.Encode())

	body, err := c.doJSON(ctx, http.MethodGet, u, nil, "gcsclient.list", prefix)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp listResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, errs.New(errs.Protocol, "gcsclient.list", prefix, err)
	}
	return &resp, nil
}

// GetMetadata fetches the metadata for one object.
func (c *Client) GetMetadata(ctx context.Context, name string) (Object, error) {
	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", c.baseURL, url.PathEscape(c.bucket), url.PathEscape(name))

	body, err := c.doJSON(ctx, http.MethodGet, u, nil, "gcsclient.get_metadata", name)
	if err != nil {
		return Object{}, err
	}
	defer body.Close()

	var res objectResource
	if err := json.NewDecoder(body).Decode(&res); err != nil {
		return Object{}, errs.New(errs.Protocol, "gcsclient.get_metadata", name, err)
	}
	return res.toObject()
}

// Download streams the bytes of an object. The caller must Close the
// returned reader.
func (c *Client) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", c.baseURL, url.PathEscape(c.bucket), url.PathEscape(name))
	return c.doStream(ctx, http.MethodGet, u, nil, "gcsclient.download", name)
}

// Delete removes an object. Deleting an absent object is not an error.
func (c *Client) Delete(ctx context.Context, name string) error {
	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", c.baseURL, url.PathEscape(c.bucket), url.PathEscape(name))

	body, err := c.doJSON(ctx, http.MethodDelete, u, nil, "gcsclient.delete", name)
	if err != nil {
		var se *errs.SyncError
		if asSyncError(err, &se) && se.Status == http.StatusNotFound {
			return nil
		}
		return err
	}
	defer body.Close()
	return nil
}

func asSyncError(err error, target **errs.SyncError) bool {
	se, ok := err.(*errs.SyncError)
	if ok {
		*target = se
	}
	return ok
}

// UploadSimple uploads body under name with size known up front, carrying
// mtimeSeconds in the goog-reserved-file-mtime custom metadata field
// (spec §4.B).
func (c *Client) UploadSimple(ctx context.Context, name string, size int64, mtimeSeconds int64, body io.Reader) (Object, error) {
	meta := map[string]any{
		"name":     name,
		"metadata": map[string]string{MTimeMetaKey: strconv.FormatInt(mtimeSeconds, 10)},
	}
	return c.uploadMultipart(ctx, name, meta, body)
}

func (c *Client) uploadMultipart(ctx context.Context, name string, metadata map[string]any, body io.Reader) (Object, error) {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return Object{}, errs.New(errs.Config, "gcsclient.upload", name, err)
	}

	pr, pw := io.Pipe()
	boundary := "gcsync-multipart-boundary"

	go func() {
		defer pw.Close()
		fmt.Fprintf(pw, "--%s\r\nContent-Type: application/json; charset=UTF-8\r\n\r\n", boundary)
		pw.Write(metaJSON)
		fmt.Fprintf(pw, "\r\n--%s\r\nContent-Type: application/octet-stream\r\n\r\n", boundary)
		io.Copy(pw, body)
		fmt.Fprintf(pw, "\r\n--%s--", boundary)
	}()

	u := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?uploadType=multipart", c.baseURL, url.PathEscape(c.bucket))

	respBody, err := c.doJSONWithContentType(ctx, http.MethodPost, u, pr,
		"multipart/related; boundary="+boundary, "gcsclient.upload", name)
	if err != nil {
		return Object{}, err
	}
	defer respBody.Close()

	var res objectResource
	if err := json.NewDecoder(respBody).Decode(&res); err != nil {
		return Object{}, errs.New(errs.Protocol, "gcsclient.upload", name, err)
	}
	return res.toObject()
}

// classifyResponse maps an *http.Response with a non-2xx status to a
// classified *errs.SyncError, reading the googleapi error shape for
// diagnostics; it returns nil for a 2xx status.
func classifyResponse(op, key string, resp *http.Response) error {
	gerr := googleapi.CheckResponse(resp)
	if gerr == nil {
		return nil
	}

	var body string
	if ge, ok := gerr.(*googleapi.Error); ok {
		body = ge.Body
	}

	return errs.Remote(op, key, resp.StatusCode, body, gerr)
}
