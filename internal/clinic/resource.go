package clinic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

func fetch[T any](ctx context.Context, c *Client, req *Request) (T, error) {
	var out T
	resp, err := c.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func getJSON[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	req := NewRequest(http.MethodGet, path)
	req.Query = query
	return fetch[T](ctx, c, req)
}

func sendJSON[T any](ctx context.Context, c *Client, method, path string, payload any) (T, error) {
	req, err := JSONRequest(method, path, payload)
	if err != nil {
		var zero T
		return zero, err
	}
	return fetch[T](ctx, c, req)
}

func (c *Client) remove(ctx context.Context, path string) error {
	_, err := c.Do(ctx, NewRequest(http.MethodDelete, path))
	return err
}

// listPage fetches a list endpoint that may answer with a page envelope or a
// bare array. A bare array becomes a single page.
func listPage[T any](ctx context.Context, c *Client, path string, query url.Values) (Page[T], error) {
	req := NewRequest(http.MethodGet, path)
	req.Query = query
	resp, err := c.Do(ctx, req)
	if err != nil {
		return Page[T]{}, err
	}
	return decodePage[T](resp.Body)
}

func listAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	page, err := listPage[T](ctx, c, path, query)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

func decodePage[T any](body []byte) (Page[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Page[T]{}, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Page[T]{}, fmt.Errorf("decode response: %w", err)
		}
		return Page[T]{Count: len(items), Results: items}, nil
	}
	var page Page[T]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return Page[T]{}, fmt.Errorf("decode response: %w", err)
	}
	return page, nil
}

func (o ListOptions) values() url.Values {
	values := url.Values{}
	if o.Page > 0 {
		values.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(o.PageSize))
	}
	if search := strings.TrimSpace(o.Search); search != "" {
		values.Set("search", search)
	}
	return values
}

func itemPath(collection string, id int64) string {
	return collection + strconv.FormatInt(id, 10) + "/"
}

func requireID(kind string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%s id required", kind)
	}
	return nil
}
