package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"diploma_generator/config"
	"diploma_generator/generator"
)

// blobClient is the subset of *azblob.Client the publisher needs.
type blobClient interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
	URL() string
}

// AzurePublisher uploads documents as text/plain blobs.
type AzurePublisher struct {
	client    blobClient
	container string
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	ready bool
}

func NewAzurePublisher(cfg config.AzureConfig, logger *slog.Logger) (*AzurePublisher, error) {
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return newAzurePublisher(client, cfg.Container, logger), nil
}

func newAzurePublisher(client blobClient, container string, logger *slog.Logger) *AzurePublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AzurePublisher{
		client:    client,
		container: container,
		logger:    logger.With("component", "publisher", "backend", "azure"),
		now:       time.Now,
	}
}

// Publish uploads the document text and returns the blob URL. The container
// is created on first use.
func (p *AzurePublisher) Publish(ctx context.Context, run *generator.Run) (string, error) {
	if err := checkRun(run); err != nil {
		return "", err
	}
	if err := p.ensureContainer(ctx); err != nil {
		return "", err
	}

	name := baseName(p.now(), run) + ".txt"
	contentType := "text/plain; charset=utf-8"
	opts := &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
		Metadata: map[string]*string{
			"runid": stringPtr(run.ID.String()),
		},
	}

	if _, err := p.client.UploadBuffer(ctx, p.container, name, []byte(run.Document.Text), opts); err != nil {
		return "", fmt.Errorf("%w: upload blob %s: %v", ErrPersistence, name, err)
	}

	location := strings.TrimSuffix(p.client.URL(), "/") + "/" + p.container + "/" + name
	p.logger.InfoContext(ctx, "document uploaded",
		"run_id", run.ID.String(),
		"container", p.container,
		"blob", name)
	return location, nil
}

func (p *AzurePublisher) ensureContainer(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}

	_, err := p.client.CreateContainer(ctx, p.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("%w: create container %s: %v", ErrPersistence, p.container, err)
	}
	p.ready = true
	p.logger.DebugContext(ctx, "storage container ready", "container", p.container)
	return nil
}

func stringPtr(s string) *string { return &s }
