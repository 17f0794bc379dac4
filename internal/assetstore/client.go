// Package assetstore defines the contract the upload engine depends on and a
// Contentful-style management API client implementing it.
package assetstore

import "context"

// Asset is a handle to a remote asset. Version tracks the remote revision
// required for optimistic-locking writes.
type Asset struct {
	ID       string
	Version  int
	FileName string
	URL      string
}

// Tag is a handle to a remote environment tag.
type Tag struct {
	ID   string
	Name string
}

// ProgressFunc receives transfer progress as a 0-100 percentage.
type ProgressFunc func(percent int)

// Client is the narrow contract between the upload engine and the asset
// store. Implementations handle their own network retries; throttling they
// absorb internally is surfaced through the rate-limit bus, not through
// these return values.
type Client interface {
	// Connect verifies credentials and target space/environment. It must be
	// called before any other operation.
	Connect(ctx context.Context, spaceID, envID, token string) error

	// CreateAsset uploads the file contents and creates a draft asset.
	CreateAsset(ctx context.Context, contents []byte, fileName, contentType string, onProgress ProgressFunc) (Asset, error)

	// ProcessAsset triggers remote processing and waits for it to finish.
	ProcessAsset(ctx context.Context, asset Asset) (Asset, error)

	// FindOrCreateTag resolves a tag by name, creating it if missing.
	FindOrCreateTag(ctx context.Context, name string) (Tag, error)

	// ApplyTag attaches the tag to the asset. Best-effort: callers treat a
	// failure as non-fatal.
	ApplyTag(ctx context.Context, asset Asset, tag Tag) (Asset, error)

	// PublishAsset publishes the processed asset.
	PublishAsset(ctx context.Context, asset Asset) (Asset, error)

	// AssetPublicURL returns the public delivery URL of a published asset.
	AssetPublicURL(asset Asset) string

	// AssetConsoleURL returns the management-console URL of an asset.
	AssetConsoleURL(asset Asset, spaceID, envID string) string
}
