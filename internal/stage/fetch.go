package stage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// HTTPFetcher returns a FetchFunc that downloads url to the target path.
// The request honors ctx for cancellation, so an interrupted build does
// not leave a download running.
func HTTPFetcher(ctx context.Context, url string) FetchFunc {
	return func(path string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("GET %s: %s", url, resp.Status)
		}

		out, err := os.Create(path) //#nosec G304 -- path is the stager's temp file
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, resp.Body); err != nil {
			_ = out.Close()
			return err
		}
		return out.Close()
	}
}
