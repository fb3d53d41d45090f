package inference

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/terraguard/terraguard-go/internal/errors"
	"github.com/terraguard/terraguard-go/internal/httpclient"
)

// fetchDescriptor retrieves the raw descriptor document from the configured
// source, which is either a filesystem path or an http(s) URL.
func fetchDescriptor(ctx context.Context, client *httpclient.Client, source string) ([]byte, error) {
	start := time.Now()

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err := client.Get(ctx, source)
		if err != nil {
			return nil, errors.Newf("model descriptor: fetching %s: %w", source, err).
				Component("inference").
				Category(errors.CategoryNetwork).
				Timing("descriptor-fetch", time.Since(start)).
				Build()
		}
		return data, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, errors.Newf("model descriptor: reading %s: %w", source, err).
			Component("inference").
			Category(errors.CategoryFileIO).
			Timing("descriptor-read", time.Since(start)).
			Build()
	}
	return data, nil
}
