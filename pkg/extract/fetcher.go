// Package extract pulls data from configured API sources and persists
// each response as a local JSON artifact. Artifacts are immutable once
// written; each extraction fully overwrites the prior artifact at the
// same path.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vibedata/platform/pkg/clients"
	"github.com/vibedata/platform/pkg/config"
	"github.com/vibedata/platform/pkg/errors"
)

// Artifact wraps one endpoint payload with extraction metadata
type Artifact struct {
	ExtractedAt string      `json:"extracted_at"`
	Source      string      `json:"source"`
	Endpoint    string      `json:"endpoint"`
	URL         string      `json:"url"`
	RecordCount int         `json:"record_count"`
	Data        interface{} `json:"data"`
}

// Fetcher issues one request per endpoint and writes the artifact.
// Failed requests are never retried; callers may re-invoke.
type Fetcher struct {
	client *clients.HTTPClient
	logger *zap.Logger
}

// NewFetcher creates a fetcher. A nil client gets the default
// configuration with its fixed 30 second request timeout.
func NewFetcher(client *clients.HTTPClient, log *zap.Logger) *Fetcher {
	if client == nil {
		client = clients.NewHTTPClient(nil, log)
	}
	return &Fetcher{
		client: client,
		logger: log.With(zap.String("component", "fetcher")),
	}
}

// Fetch extracts one endpoint and writes the artifact to outputPath,
// overwriting any prior content. Parent directories are created lazily.
func (f *Fetcher) Fetch(ctx context.Context, source *config.APISource, endpoint config.Endpoint, outputPath string) (*Artifact, error) {
	url := source.BaseURL + endpoint.Path

	headers := f.authHeaders(source)
	headers["Accept"] = "application/json"

	var (
		resp *http.Response
		err  error
	)
	switch endpoint.Method {
	case http.MethodGet:
		resp, err = f.client.Get(ctx, url, headers)
	case http.MethodPost:
		resp, err = f.client.Post(ctx, url, nil, headers)
	default:
		return nil, errors.New(errors.ErrorTypeMethod, "unsupported method").
			WithDetail("endpoint", endpoint.Name).
			WithDetail("method", endpoint.Method)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeRequest, "request failed").
			WithDetail("endpoint", endpoint.Name).
			WithDetail("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New(errors.ErrorTypeRequest, "unexpected response status").
			WithDetail("endpoint", endpoint.Name).
			WithDetail("url", url).
			WithDetail("status", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeRequest, "failed to read response body").
			WithDetail("endpoint", endpoint.Name).
			WithDetail("url", url)
	}

	var data interface{}
	if err := gojson.Unmarshal(body, &data); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDecode, "invalid JSON response").
			WithDetail("endpoint", endpoint.Name).
			WithDetail("url", url)
	}

	recordCount := 1
	if seq, ok := data.([]interface{}); ok {
		recordCount = len(seq)
	}

	artifact := &Artifact{
		ExtractedAt: time.Now().UTC().Format(time.RFC3339),
		Source:      source.Name,
		Endpoint:    endpoint.Name,
		URL:         url,
		RecordCount: recordCount,
		Data:        data,
	}

	if err := writeArtifact(outputPath, artifact); err != nil {
		return nil, err
	}

	f.logger.Info("endpoint extracted",
		zap.String("source", source.Name),
		zap.String("endpoint", endpoint.Name),
		zap.Int("records", recordCount),
		zap.String("output", outputPath))

	return artifact, nil
}

// authHeaders resolves the auth header for a source. A missing
// environment value degrades to no auth header with a warning rather
// than failing the fetch.
func (f *Fetcher) authHeaders(source *config.APISource) map[string]string {
	headers := make(map[string]string)

	switch source.AuthType {
	case config.AuthBearer:
		if token := os.Getenv(source.AuthEnvVar); token != "" {
			headers["Authorization"] = "Bearer " + token
		} else {
			f.logger.Warn("auth environment variable not set, proceeding without auth",
				zap.String("source", source.Name),
				zap.String("env_var", source.AuthEnvVar))
		}
	case config.AuthAPIKey:
		if key := os.Getenv(source.AuthEnvVar); key != "" {
			headers["X-API-Key"] = key
		} else {
			f.logger.Warn("auth environment variable not set, proceeding without auth",
				zap.String("source", source.Name),
				zap.String("env_var", source.AuthEnvVar))
		}
	}

	return headers
}

// writeArtifact pretty-prints the artifact and commits it with a rename
// so a failed write leaves no partial file behind
func writeArtifact(outputPath string, artifact *Artifact) error {
	data, err := gojson.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeDecode, "failed to marshal artifact")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create artifact directory").
			WithDetail("path", filepath.Dir(outputPath))
	}

	tmp := fmt.Sprintf("%s.tmp.%d", outputPath, os.Getpid())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write artifact").
			WithDetail("path", outputPath)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to commit artifact").
			WithDetail("path", outputPath)
	}
	return nil
}
