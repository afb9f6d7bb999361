package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"

	"github.com/vibedata/platform/pkg/config"
	"github.com/vibedata/platform/pkg/errors"
)

const defaultOperationTimeout = 2 * time.Minute

// AzureClient is the Azure Blob Storage implementation of Client
type AzureClient struct {
	client  *azblob.Client
	logger  *zap.Logger
	timeout time.Duration
}

// AzureOptions tunes the Azure client
type AzureOptions struct {
	// OperationTimeout bounds every remote call; a timed-out item is
	// reported as failed and never retried
	OperationTimeout time.Duration
}

// NewAzureClient builds a client from resolved credentials. A failure
// here is a configuration error and aborts the run; per-call failures
// afterwards are counted at the item boundary.
func NewAzureClient(creds *config.Credentials, opts *AzureOptions, logger *zap.Logger) (*AzureClient, error) {
	timeout := defaultOperationTimeout
	if opts != nil && opts.OperationTimeout > 0 {
		timeout = opts.OperationTimeout
	}

	var (
		client *azblob.Client
		err    error
	)
	if creds.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(creds.ConnectionString, nil)
	} else {
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(creds.AccountName, creds.AccountKey)
		if err == nil {
			serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", creds.AccountName)
			client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create azure blob client")
	}

	return &AzureClient{
		client:  client,
		logger:  logger.With(zap.String("component", "azure_client")),
		timeout: timeout,
	}, nil
}

// List returns every object in the container
func (c *AzureClient) List(ctx context.Context, container string) ([]Object, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var objects []Object
	pager := c.client.NewListBlobsFlatPager(container, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrapAzureError(err, "failed to list container", container, "")
		}
		for _, item := range page.Segment.BlobItems {
			obj := Object{Container: container}
			if item.Name != nil {
				obj.Key = *item.Name
			}
			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					obj.Size = *item.Properties.ContentLength
				}
				if item.Properties.LastModified != nil {
					obj.LastModified = *item.Properties.LastModified
				}
			}
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

// Stat returns object metadata without fetching content
func (c *AzureClient) Stat(ctx context.Context, container, key string) (*Object, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	props, err := c.client.ServiceClient().
		NewContainerClient(container).
		NewBlobClient(key).
		GetProperties(ctx, nil)
	if err != nil {
		return nil, wrapAzureError(err, "failed to stat object", container, key)
	}

	obj := &Object{Container: container, Key: key}
	if props.ContentLength != nil {
		obj.Size = *props.ContentLength
	}
	if props.LastModified != nil {
		obj.LastModified = *props.LastModified
	}
	return obj, nil
}

// Get downloads the full object content
func (c *AzureClient) Get(ctx context.Context, container, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.DownloadStream(ctx, container, key, nil)
	if err != nil {
		return nil, wrapAzureError(err, "failed to download object", container, key)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapAzureError(err, "failed to read object body", container, key)
	}
	return data, nil
}

// Put uploads content under key, replacing any existing object
func (c *AzureClient) Put(ctx context.Context, container, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contentType := ContentType(key)
	_, err := c.client.UploadBuffer(ctx, container, key, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return wrapAzureError(err, "failed to upload object", container, key)
	}

	c.logger.Debug("object uploaded",
		zap.String("container", container),
		zap.String("key", key),
		zap.Int("size", len(data)))
	return nil
}

func wrapAzureError(err error, message, container, key string) *errors.Error {
	errType := errors.ErrorTypeRemote
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		errType = errors.ErrorTypeNotFound
	}
	wrapped := errors.Wrap(err, errType, message).WithDetail("container", container)
	if key != "" {
		wrapped = wrapped.WithDetail("key", key)
	}
	return wrapped
}
