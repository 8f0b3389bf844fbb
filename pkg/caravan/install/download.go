package install

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// downloadChunkSize is how much we read between progress reports.
const downloadChunkSize = 64 * 1024

// ChunkFunc receives byte counters during a download. hasTotal is false
// when the server did not send a content length.
type ChunkFunc func(downloaded, total uint64, hasTotal bool)

// Download streams url into dest, writing through a temp file so a
// partial download never looks complete.
func (c *Client) Download(ctx context.Context, downloadURL, dest string, onChunk ChunkFunc) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapNetErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with %s", resp.Status)
	}

	var total uint64
	hasTotal := resp.ContentLength > 0
	if hasTotal {
		total = uint64(resp.ContentLength)
	}

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	var downloaded uint64
	buf := make([]byte, downloadChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				_ = out.Close()
				_ = os.Remove(tmp)
				return fmt.Errorf("writing %s: %w", tmp, writeErr)
			}
			downloaded += uint64(n)
			if onChunk != nil {
				onChunk(downloaded, total, hasTotal)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = out.Close()
			_ = os.Remove(tmp)
			return fmt.Errorf("reading download stream: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalizing %s: %w", dest, err)
	}

	c.log.Debug("download complete", "url", downloadURL, "dest", dest, "bytes", downloaded)
	return nil
}
