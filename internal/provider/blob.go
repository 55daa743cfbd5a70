package provider

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

const blobSourceName = "blob"

// maxBlobBytes caps the size of a snapshot blob.
const maxBlobBytes = 256 << 20

// BlobConfig locates a record document in Azure Blob Storage.
type BlobConfig struct {
	AccountURL string
	Container  string
	Name       string
}

// downloader fetches one blob's content.
type downloader interface {
	Download(ctx context.Context, container, name string) (io.ReadCloser, error)
}

// Blob reads a JSON, YAML or CSV record document from Azure Blob Storage.
// Credentials come from azidentity.DefaultAzureCredential (environment,
// workload identity, managed identity or az CLI login).
type Blob struct {
	cfg BlobConfig
	dl  downloader
}

// NewBlob creates a Blob provider authenticated with the default Azure
// credential chain.
func NewBlob(cfg BlobConfig) (*Blob, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure credential: %w", err)
	}
	client, err := azblob.NewClient(cfg.AccountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating blob client for %s: %w", cfg.AccountURL, err)
	}
	return &Blob{cfg: cfg, dl: azblobDownloader{client: client}}, nil
}

// Name implements Provider.
func (b *Blob) Name() string { return blobSourceName }

// Fetch implements Provider.
func (b *Blob) Fetch(ctx context.Context) ([]map[string]any, error) {
	op := fmt.Sprintf("download %s/%s", b.cfg.Container, b.cfg.Name)
	body, err := b.dl.Download(ctx, b.cfg.Container, b.cfg.Name)
	if err != nil {
		return nil, &Error{Source: blobSourceName, Op: op, Err: classifyBlobError(err)}
	}
	defer func() {
		_ = body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(body, maxBlobBytes))
	if err != nil {
		return nil, &Error{Source: blobSourceName, Op: op, Err: err}
	}
	records, err := Decode(b.cfg.Name, data)
	if err != nil {
		return nil, &Error{Source: blobSourceName, Op: "decode " + b.cfg.Name, Err: err}
	}
	return records, nil
}

// ErrBlobNotFound is wrapped when the container or blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

func classifyBlobError(err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound) {
		return fmt.Errorf("%w: %w", ErrBlobNotFound, err)
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return fmt.Errorf("storage returned status %d (%s): %w", respErr.StatusCode, respErr.ErrorCode, err)
	}
	return err
}

type azblobDownloader struct {
	client *azblob.Client
}

func (d azblobDownloader) Download(ctx context.Context, container, name string) (io.ReadCloser, error) {
	resp, err := d.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
