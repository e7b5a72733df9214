package blobclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/yourorg/ctk-wopi/pkg/logging"
)

// AzureBlobClient implements BlobClient using Azure Blob Storage.
// A single instance is safe for concurrent use and is meant to live for
// the whole process.
type AzureBlobClient struct {
	client *azblob.Client
	logger logging.Logger
}

// NewAzureBlobClient creates a client authenticated with a shared access
// signature. accountURL is the blob service endpoint, for example
// https://<account>.blob.core.windows.net/.
func NewAzureBlobClient(accountURL, sas string, logger logging.Logger) (*AzureBlobClient, error) {
	sas = strings.TrimPrefix(sas, "?")
	if sas == "" {
		return nil, fmt.Errorf("shared access signature is required")
	}

	serviceURL := strings.TrimSuffix(accountURL, "/") + "/?" + sas

	// Each operation is a single round trip; failures surface to the caller.
	client, err := azblob.NewClientWithNoCredential(serviceURL, &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	return &AzureBlobClient{
		client: client,
		logger: logger,
	}, nil
}

func (a *AzureBlobClient) opLogger(op, container, blobName string) logging.Logger {
	return a.logger.With(
		logging.NewField("operation", op),
		logging.NewField("container", container),
		logging.NewField("blob", blobName),
	)
}

// ReadBlob downloads a blob into memory.
func (a *AzureBlobClient) ReadBlob(ctx context.Context, container, blobName string) ([]byte, error) {
	logger := a.opLogger("blob.read", container, blobName)
	logger.Debug("Downloading blob")

	resp, err := a.client.DownloadStream(ctx, container, blobName, nil)
	if err != nil {
		err = classify(err)
		logger.Error("Failed to download blob", logging.NewField("error", err))
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("Failed to read blob body", logging.NewField("error", err))
		return nil, fmt.Errorf("failed to read blob body: %w: %w", ErrTransient, err)
	}

	logger.Debug("Blob downloaded", logging.NewField("bytes", len(data)))
	return data, nil
}

// ReadBlobMetadata fetches the blob properties and returns its metadata.
func (a *AzureBlobClient) ReadBlobMetadata(ctx context.Context, container, blobName string) (map[string]string, error) {
	logger := a.opLogger("blob.metadata", container, blobName)
	logger.Debug("Fetching blob properties")

	blobClient := a.client.ServiceClient().NewContainerClient(container).NewBlobClient(blobName)
	props, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		err = classify(err)
		logger.Error("Failed to fetch blob properties", logging.NewField("error", err))
		return nil, fmt.Errorf("failed to fetch blob properties: %w", err)
	}

	metadata := make(map[string]string, len(props.Metadata))
	for k, v := range props.Metadata {
		if v != nil {
			metadata[k] = *v
		}
	}
	return metadata, nil
}

// CreateBlob uploads data only if no blob with that name exists yet.
func (a *AzureBlobClient) CreateBlob(ctx context.Context, container, blobName string, data []byte) error {
	logger := a.opLogger("blob.create", container, blobName)
	logger.Debug("Creating blob", logging.NewField("bytes", len(data)))

	ifNoneMatch := azcore.ETagAny
	_, err := a.client.UploadBuffer(ctx, container, blobName, data, &azblob.UploadBufferOptions{
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{
				IfNoneMatch: &ifNoneMatch,
			},
		},
	})
	if err != nil {
		err = classify(err)
		logger.Error("Failed to create blob", logging.NewField("error", err))
		return fmt.Errorf("failed to create blob: %w", err)
	}

	logger.Info("Blob created")
	return nil
}

// UpdateBlob uploads data unconditionally, replacing any existing blob.
func (a *AzureBlobClient) UpdateBlob(ctx context.Context, container, blobName string, data []byte) error {
	logger := a.opLogger("blob.update", container, blobName)
	logger.Debug("Uploading blob", logging.NewField("bytes", len(data)))

	if _, err := a.client.UploadBuffer(ctx, container, blobName, data, nil); err != nil {
		err = classify(err)
		logger.Error("Failed to upload blob", logging.NewField("error", err))
		return fmt.Errorf("failed to upload blob: %w", err)
	}

	logger.Info("Blob updated")
	return nil
}

// DeleteBlob deletes a blob.
func (a *AzureBlobClient) DeleteBlob(ctx context.Context, container, blobName string) error {
	logger := a.opLogger("blob.delete", container, blobName)
	logger.Debug("Deleting blob")

	if _, err := a.client.DeleteBlob(ctx, container, blobName, nil); err != nil {
		err = classify(err)
		logger.Error("Failed to delete blob", logging.NewField("error", err))
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	logger.Info("Blob deleted")
	return nil
}

// classify tags an SDK error with one of the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case bloberror.HasCode(err,
		bloberror.AuthenticationFailed,
		bloberror.AuthorizationFailure,
		bloberror.AuthorizationPermissionMismatch,
		bloberror.AuthorizationProtocolMismatch,
		bloberror.AuthorizationResourceTypeMismatch,
		bloberror.AuthorizationServiceMismatch,
		bloberror.AuthorizationSourceIPMismatch,
		bloberror.InsufficientAccountPermissions,
	):
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return fmt.Errorf("%w: %w", statusSentinel(respErr.StatusCode), err)
	}

	// No HTTP response at all: DNS, TLS, connection reset, context deadline.
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// statusSentinel covers responses without a recognised error code, such as
// HEAD requests which carry no body.
func statusSentinel(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusConflict, http.StatusPreconditionFailed:
		return ErrConflict
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return ErrTransient
	}
	if status >= http.StatusInternalServerError {
		return ErrTransient
	}
	return errors.New("unexpected storage response")
}
