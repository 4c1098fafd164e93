package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

var client = &http.Client{Timeout: time.Second * 30}

func do(req *http.Request) ([]byte, int, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "%s %s", req.Method, req.URL)
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errors.Wrapf(err, "read body of %s", req.URL)
	}
	return body, resp.StatusCode, nil
}

// GetBytes fetches url and fails on any non-2xx status.
func GetBytes(ctx context.Context, url string) ([]byte, error) {
	body, status, err := GetRequest(ctx, url)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, errors.Errorf("GET %s: status %d", url, status)
	}
	return body, nil
}

func GetRequest(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "build request")
	}
	return do(req)
}

// PostJSON posts v as JSON and returns the raw response body and status.
func PostJSON(ctx context.Context, url string, v interface{}) ([]byte, int, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, 0, errors.Wrap(err, "encode body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, 0, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req)
}
