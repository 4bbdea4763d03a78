// Package httpdetect calls an HTTP object detection endpoint per image
//
// The endpoint receives the raw JPEG as the POST body with the confidence
// threshold in the conf query parameter and answers
//
//	{"detections":[{"label":"person","confidence":0.91}]}
package httpdetect

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"telewarehouse/internal/adapters/httpc"
	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/platform/logger"
	"telewarehouse/internal/services/inference/domain"
)

// Options configures the Client
type Options struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	RetryBase  time.Duration
}

// Client implements domain.Detector
type Client struct {
	http *httpc.Client
	url  *url.URL
	log  logger.Logger
}

var _ domain.Detector = (*Client)(nil)

type response struct {
	Detections []domain.Detection `json:"detections"`
}

// New creates a Client for the endpoint at o.URL
func New(o Options) (*Client, error) {
	u, err := url.Parse(o.URL)
	if err != nil || !u.IsAbs() {
		return nil, perr.InvalidArgf("httpdetect: invalid endpoint %q", o.URL)
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	return &Client{
		http: httpc.New(httpc.Options{
			Name:       "httpdetect",
			Timeout:    o.Timeout,
			MaxRetries: o.MaxRetries,
			RetryBase:  o.RetryBase,
		}),
		url: u,
		log: *logger.Named("httpdetect"),
	}, nil
}

// Detect posts the image and returns the detections in endpoint order
func (c *Client) Detect(ctx context.Context, imagePath string, confidence float64) ([]domain.Detection, error) {
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "httpdetect: read %s", imagePath)
	}

	u := *c.url
	q := u.Query()
	q.Set("conf", strconv.FormatFloat(confidence, 'f', -1, 64))
	u.RawQuery = q.Encode()
	target := u.String()

	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(img))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "image/jpeg")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := httpc.DrainAndClose(resp.Body); cerr != nil {
			c.log.Error().Err(cerr).Msg("error closing body")
		}
	}()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeMalformed, "httpdetect: decode response for %s", imagePath)
	}
	for _, d := range out.Detections {
		if !domain.ValidLabel(d.Label) || d.Confidence < 0 || d.Confidence > 1 {
			return nil, perr.Newf(perr.ErrorCodeMalformed, "httpdetect: bad detection %+v for %s", d, imagePath)
		}
	}
	return out.Detections, nil
}
