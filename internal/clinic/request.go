package clinic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// Request describes one logical API call. The body is kept as bytes so the
// same request can be sent again after a token refresh.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string
}

// NewRequest returns a body-less request.
func NewRequest(method, path string) *Request {
	return &Request{Method: method, Path: path}
}

// JSONRequest returns a request whose body is payload encoded as JSON.
func JSONRequest(method, path string, payload any) (*Request, error) {
	req := NewRequest(method, path)
	if payload == nil {
		return req, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req.Body = body
	req.ContentType = "application/json"
	return req, nil
}

// FilePart is a file field in a multipart request.
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

// MultipartRequest returns a multipart/form-data request with the given
// plain fields and one file part. The file content is read fully.
func MultipartRequest(method, path string, fields map[string]string, file FilePart) (*Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", name, err)
		}
	}
	if file.Content != nil {
		part, err := w.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return nil, fmt.Errorf("create file part: %w", err)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, fmt.Errorf("copy file part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}
	req := NewRequest(method, path)
	req.Body = buf.Bytes()
	req.ContentType = w.FormDataContentType()
	return req, nil
}

// Response is a successful (2xx) response with its body read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into dest. An empty body leaves dest
// untouched.
func (r *Response) Decode(dest any) error {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 || dest == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
