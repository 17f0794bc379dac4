package assetstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/assetflow/uploader/internal/ratelimit"
)

const (
	defaultLocale      = "en-US"
	processPollTimeout = 2 * time.Minute
	processPollDelay   = 500 * time.Millisecond
)

// ContentfulClient talks to a Contentful-style management API. Rate-limited
// requests (429) are retried internally with backoff; every 429 response is
// reported to the rate-limit bus through the response hook, and transport
// errors that never produced a response are reported through the bus's
// message path. The two hooks never see the same event twice.
type ContentfulClient struct {
	api    *resty.Client
	upload *resty.Client
	logger *slog.Logger

	spaceID string
	envID   string
}

// Options configures a ContentfulClient.
type Options struct {
	APIBaseURL    string
	UploadBaseURL string
	RetryCount    int
}

// NewContentfulClient builds a client wired to the given rate-limit bus.
func NewContentfulClient(opts Options, bus *ratelimit.Bus, logger *slog.Logger) *ContentfulClient {
	if opts.RetryCount <= 0 {
		opts.RetryCount = 3
	}

	build := func(base string) *resty.Client {
		c := resty.New().
			SetBaseURL(base).
			SetRetryCount(opts.RetryCount).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(10 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return false
				}
				return r.StatusCode() == 429 || r.StatusCode() >= 500
			})

		// Canonical network-transport detection: one event per 429 response,
		// including responses the retry loop swallows.
		c.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
			bus.ObserveStatus(r.StatusCode())
			if r.StatusCode() == 429 {
				logger.Warn("asset store throttled request",
					"url", r.Request.URL,
					"retry_after", r.Header().Get("Retry-After"),
				)
			}
			return nil
		})

		// Canonical log-transport detection: only errors that never produced
		// a response reach this path, so it cannot duplicate the hook above.
		c.OnError(func(req *resty.Request, err error) {
			var respErr *resty.ResponseError
			if errors.As(err, &respErr) {
				return
			}
			bus.ObserveMessage(err.Error())
		})

		return c
	}

	return &ContentfulClient{
		api:    build(opts.APIBaseURL),
		upload: build(opts.UploadBaseURL),
		logger: logger,
	}
}

type sysEnvelope struct {
	Sys struct {
		ID      string `json:"id"`
		Version int    `json:"version"`
	} `json:"sys"`
	Fields struct {
		File map[string]struct {
			URL      string `json:"url"`
			FileName string `json:"fileName"`
		} `json:"file"`
	} `json:"fields"`
}

func (e sysEnvelope) asset() Asset {
	a := Asset{ID: e.Sys.ID, Version: e.Sys.Version}
	if f, ok := e.Fields.File[defaultLocale]; ok {
		a.URL = f.URL
		a.FileName = f.FileName
	}
	return a
}

// Connect verifies the token against the target environment and stores the
// space/environment coordinates for later calls.
func (c *ContentfulClient) Connect(ctx context.Context, spaceID, envID, token string) error {
	c.api.SetAuthToken(token)
	c.upload.SetAuthToken(token)

	resp, err := c.api.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/spaces/%s/environments/%s", spaceID, envID))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("connect: %s", resp.Status())
	}

	c.spaceID = spaceID
	c.envID = envID
	c.logger.Info("connected to asset store", "space_id", spaceID, "environment_id", envID)
	return nil
}

// CreateAsset uploads the raw bytes and creates a draft asset referencing
// the upload. onProgress receives coarse transfer milestones.
func (c *ContentfulClient) CreateAsset(ctx context.Context, contents []byte, fileName, contentType string, onProgress ProgressFunc) (Asset, error) {
	if onProgress != nil {
		onProgress(0)
	}

	var uploaded sysEnvelope
	resp, err := c.upload.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(contents).
		SetResult(&uploaded).
		Post(fmt.Sprintf("/spaces/%s/uploads", c.spaceID))
	if err != nil {
		return Asset{}, fmt.Errorf("upload contents: %w", err)
	}
	if resp.IsError() {
		return Asset{}, fmt.Errorf("upload contents: %s", resp.Status())
	}

	if onProgress != nil {
		onProgress(100)
	}

	body := map[string]any{
		"fields": map[string]any{
			"title": map[string]string{defaultLocale: fileName},
			"file": map[string]any{
				defaultLocale: map[string]any{
					"contentType": contentType,
					"fileName":    fileName,
					"uploadFrom": map[string]any{
						"sys": map[string]string{
							"type":     "Link",
							"linkType": "Upload",
							"id":       uploaded.Sys.ID,
						},
					},
				},
			},
		},
	}

	var created sysEnvelope
	resp, err = c.api.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/vnd.contentful.management.v1+json").
		SetBody(body).
		SetResult(&created).
		Post(fmt.Sprintf("/spaces/%s/environments/%s/assets", c.spaceID, c.envID))
	if err != nil {
		return Asset{}, fmt.Errorf("create asset: %w", err)
	}
	if resp.IsError() {
		return Asset{}, fmt.Errorf("create asset: %s", resp.Status())
	}

	a := created.asset()
	a.FileName = fileName
	return a, nil
}

// ProcessAsset triggers file processing and polls until the processed file
// URL appears.
func (c *ContentfulClient) ProcessAsset(ctx context.Context, asset Asset) (Asset, error) {
	resp, err := c.api.R().
		SetContext(ctx).
		SetHeader("X-Contentful-Version", strconv.Itoa(asset.Version)).
		Put(fmt.Sprintf("/spaces/%s/environments/%s/assets/%s/files/%s/process",
			c.spaceID, c.envID, asset.ID, defaultLocale))
	if err != nil {
		return asset, fmt.Errorf("process asset: %w", err)
	}
	if resp.IsError() {
		return asset, fmt.Errorf("process asset: %s", resp.Status())
	}

	deadline := time.Now().Add(processPollTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return asset, err
		}
		if time.Now().After(deadline) {
			return asset, fmt.Errorf("process asset: timed out waiting for processed file")
		}

		var current sysEnvelope
		resp, err := c.api.R().
			SetContext(ctx).
			SetResult(&current).
			Get(fmt.Sprintf("/spaces/%s/environments/%s/assets/%s", c.spaceID, c.envID, asset.ID))
		if err != nil {
			return asset, fmt.Errorf("poll asset: %w", err)
		}
		if resp.IsError() {
			return asset, fmt.Errorf("poll asset: %s", resp.Status())
		}

		processed := current.asset()
		if processed.URL != "" {
			processed.FileName = asset.FileName
			return processed, nil
		}

		select {
		case <-ctx.Done():
			return asset, ctx.Err()
		case <-time.After(processPollDelay):
		}
	}
}

type tagEnvelope struct {
	Sys struct {
		ID      string `json:"id"`
		Version int    `json:"version"`
	} `json:"sys"`
	Name string `json:"name"`
}

// FindOrCreateTag resolves an environment tag by name, creating it when
// absent. Tag IDs are derived from the name.
func (c *ContentfulClient) FindOrCreateTag(ctx context.Context, name string) (Tag, error) {
	id := tagID(name)

	var existing tagEnvelope
	resp, err := c.api.R().
		SetContext(ctx).
		SetResult(&existing).
		Get(fmt.Sprintf("/spaces/%s/environments/%s/tags/%s", c.spaceID, c.envID, id))
	if err != nil {
		return Tag{}, fmt.Errorf("find tag: %w", err)
	}
	if resp.IsSuccess() {
		return Tag{ID: existing.Sys.ID, Name: existing.Name}, nil
	}
	if resp.StatusCode() != 404 {
		return Tag{}, fmt.Errorf("find tag: %s", resp.Status())
	}

	body := map[string]any{
		"name": name,
		"sys":  map[string]string{"visibility": "public"},
	}
	var created tagEnvelope
	resp, err = c.api.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/vnd.contentful.management.v1+json").
		SetBody(body).
		SetResult(&created).
		Put(fmt.Sprintf("/spaces/%s/environments/%s/tags/%s", c.spaceID, c.envID, id))
	if err != nil {
		return Tag{}, fmt.Errorf("create tag: %w", err)
	}
	if resp.IsError() {
		return Tag{}, fmt.Errorf("create tag: %s", resp.Status())
	}
	return Tag{ID: created.Sys.ID, Name: created.Name}, nil
}

// ApplyTag attaches the tag to the asset's metadata.
func (c *ContentfulClient) ApplyTag(ctx context.Context, asset Asset, tag Tag) (Asset, error) {
	body := map[string]any{
		"metadata": map[string]any{
			"tags": []map[string]any{
				{"sys": map[string]string{"type": "Link", "linkType": "Tag", "id": tag.ID}},
			},
		},
	}

	var updated sysEnvelope
	resp, err := c.api.R().
		SetContext(ctx).
		SetHeader("X-Contentful-Version", strconv.Itoa(asset.Version)).
		SetHeader("Content-Type", "application/vnd.contentful.management.v1+json").
		SetBody(body).
		SetResult(&updated).
		Patch(fmt.Sprintf("/spaces/%s/environments/%s/assets/%s", c.spaceID, c.envID, asset.ID))
	if err != nil {
		return asset, fmt.Errorf("apply tag: %w", err)
	}
	if resp.IsError() {
		return asset, fmt.Errorf("apply tag: %s", resp.Status())
	}

	a := updated.asset()
	a.FileName = asset.FileName
	if a.URL == "" {
		a.URL = asset.URL
	}
	return a, nil
}

// PublishAsset publishes the processed asset.
func (c *ContentfulClient) PublishAsset(ctx context.Context, asset Asset) (Asset, error) {
	var published sysEnvelope
	resp, err := c.api.R().
		SetContext(ctx).
		SetHeader("X-Contentful-Version", strconv.Itoa(asset.Version)).
		SetResult(&published).
		Put(fmt.Sprintf("/spaces/%s/environments/%s/assets/%s/published", c.spaceID, c.envID, asset.ID))
	if err != nil {
		return asset, fmt.Errorf("publish asset: %w", err)
	}
	if resp.IsError() {
		return asset, fmt.Errorf("publish asset: %s", resp.Status())
	}

	a := published.asset()
	a.FileName = asset.FileName
	if a.URL == "" {
		a.URL = asset.URL
	}
	return a, nil
}

// AssetPublicURL returns the delivery URL, normalizing protocol-relative
// URLs the API returns.
func (c *ContentfulClient) AssetPublicURL(asset Asset) string {
	if strings.HasPrefix(asset.URL, "//") {
		return "https:" + asset.URL
	}
	return asset.URL
}

// AssetConsoleURL returns the management-console deep link for the asset.
func (c *ContentfulClient) AssetConsoleURL(asset Asset, spaceID, envID string) string {
	return fmt.Sprintf("https://app.contentful.com/spaces/%s/environments/%s/assets/%s", spaceID, envID, asset.ID)
}

func tagID(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	id = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, id)
	return strings.Trim(id, "-")
}
