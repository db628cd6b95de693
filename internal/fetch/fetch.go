// Package fetch resolves input references into local filesystem paths.
// Plain paths and file:// URLs pass through; http(s):// and s3:// refs are
// downloaded into a temporary file first so the command-line tools can work
// on them.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// IsRemote reports whether ref must be downloaded before local tools can
// read it.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "s3://")
}

// LocalPath strips the file:// scheme from a local reference.
func LocalPath(ref string) string {
	return strings.TrimPrefix(ref, "file://")
}

// Resolve returns a local path for ref. For remote refs the returned cleanup
// removes the downloaded copy; for local refs it is a no-op. cleanup is
// always safe to call, also on error.
func Resolve(ctx context.Context, ref string) (path string, cleanup func(), err error) {
	noop := func() {}
	if !IsRemote(ref) {
		return LocalPath(ref), noop, nil
	}

	// URL fragments (e.g. #page=3) address content inside the document
	// and mean nothing to the download.
	if i := strings.Index(ref, "#"); i >= 0 {
		ref = ref[:i]
	}

	if strings.HasPrefix(ref, "s3://") {
		path, err = downloadS3(ctx, ref)
	} else {
		path, err = downloadHTTP(ctx, ref)
	}
	if err != nil {
		return "", noop, err
	}
	log.Debug().Str("ref", ref).Str("local", path).Msg("fetched remote input")
	return path, func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn().Err(rmErr).Str("path", path).Msg("failed to remove downloaded input")
		}
	}, nil
}

func downloadHTTP(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", url, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp("", "stackedpdf-dl-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("finish download of %s: %w", url, err)
	}
	return tmp.Name(), nil
}

func downloadS3(ctx context.Context, ref string) (string, error) {
	bucket, key, err := splitS3(ref)
	if err != nil {
		return "", err
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("load AWS config: %w", err)
	}
	downloader := manager.NewDownloader(s3.NewFromConfig(cfg))

	tmp, err := os.CreateTemp("", "stackedpdf-s3-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	if _, err := downloader.Download(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download %s: %w", ref, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("finish download of %s: %w", ref, err)
	}
	return tmp.Name(), nil
}

// splitS3 splits "s3://bucket/key/with/slashes" into its bucket and key.
func splitS3(ref string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(ref, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid s3 reference %q", ref)
	}
	return parts[0], parts[1], nil
}
