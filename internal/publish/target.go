package publish

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/go-redis/redis/v8"

	"github.com/go-sod/bandsense/internal/httputil"
	"github.com/go-sod/bandsense/internal/publish/model"
)

const UserAgent = "bandsense/0.1"

type sender interface {
	Name() string
	Send(ctx context.Context, predictions []model.Prediction) error
}

type request struct {
	Target      string             `json:"target"`
	Predictions []model.Prediction `json:"predictions"`
}

func newWebhook(target Target) (*webhook, error) {
	link, err := url.Parse(target.URL)
	if err != nil {
		return nil, fmt.Errorf("url parsing error: %w", err)
	}
	client, err := httputil.NewClientFromConfig(target.HTTPConfig, true)
	if err != nil {
		return nil, fmt.Errorf("unable create client for target %s: %w", target.Name, err)
	}
	return &webhook{name: target.Name, url: link, client: client}, nil
}

type webhook struct {
	name   string
	url    *url.URL
	client *http.Client
}

func (w *webhook) Name() string { return w.name }

func (w *webhook) Send(ctx context.Context, predictions []model.Prediction) error {
	body, err := json.Marshal(request{Target: w.name, Predictions: predictions})
	if err != nil {
		return fmt.Errorf("unable encode json data: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request error: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Add("User-Agent", UserAgent)
	req.Header.Add("Accept-Encoding", "gzip")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request error: %w", err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("unable create gzip.NewReader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	respBody, err := ioutil.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("response was not 2xx: %d %s", resp.StatusCode, respBody)
	}
	return nil
}

// redisPublisher is the part of *redis.Client the publisher uses.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type redisTarget struct {
	client  redisPublisher
	channel string
}

func (r *redisTarget) Name() string { return "redis:" + r.channel }

// Send publishes every prediction as its own JSON message.
func (r *redisTarget) Send(ctx context.Context, predictions []model.Prediction) error {
	for i := range predictions {
		msg, err := json.Marshal(predictions[i])
		if err != nil {
			return fmt.Errorf("unable encode json data: %w", err)
		}
		if err := r.client.Publish(ctx, r.channel, msg).Err(); err != nil {
			return fmt.Errorf("redis publish to %s: %w", r.channel, err)
		}
	}
	return nil
}
